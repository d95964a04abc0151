// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Farm      FarmConfig      `mapstructure:"farm"`
	Games     GamesConfig     `mapstructure:"games"`
	Render    RenderConfig    `mapstructure:"render"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "json" (single-file document store) or "postgres".
	Driver string `mapstructure:"driver"`
	// PlayersFile is the document path for the json driver.
	PlayersFile string `mapstructure:"players_file"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// FarmConfig holds farming bonus configuration.
type FarmConfig struct {
	MinReward       int64 `mapstructure:"min_reward"`
	MaxReward       int64 `mapstructure:"max_reward"`
	CooldownSeconds int   `mapstructure:"cooldown_seconds"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	Mines MinesConfig `mapstructure:"mines"`
}

// MinesConfig holds mines game configuration. Multiplier values are in
// hundredths: 125 means 1.25x.
type MinesConfig struct {
	BoardSize        int     `mapstructure:"board_size"`
	DefaultMineCount int     `mapstructure:"default_mine_count"`
	Multipliers      []int64 `mapstructure:"multipliers"`
	// MultiplierRows overrides the default row for specific mine counts,
	// keyed by the decimal mine count.
	MultiplierRows map[string][]int64 `mapstructure:"multiplier_rows"`
}

// RenderConfig holds board image rendering configuration.
type RenderConfig struct {
	ImagesDir string `mapstructure:"images_dir"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// RowFor returns the multiplier row for the given mine count, falling back
// to the default row when no override exists.
func (m *MinesConfig) RowFor(mineCount int) []int64 {
	if row, ok := m.MultiplierRows[strconv.Itoa(mineCount)]; ok && len(row) > 0 {
		return row
	}
	return m.Multipliers
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, STORAGE_DRIVER, DATABASE_HOST.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, env vars can provide all config.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "json", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Farm.MinReward <= 0 || c.Farm.MaxReward < c.Farm.MinReward {
		return fmt.Errorf("invalid farm reward range [%d, %d]", c.Farm.MinReward, c.Farm.MaxReward)
	}
	m := &c.Games.Mines
	if m.BoardSize < 2 {
		return fmt.Errorf("mines board size %d too small", m.BoardSize)
	}
	total := m.BoardSize * m.BoardSize
	if m.DefaultMineCount < 1 || m.DefaultMineCount >= total {
		return fmt.Errorf("default mine count %d out of range for %dx%d board",
			m.DefaultMineCount, m.BoardSize, m.BoardSize)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.players_file", "users.json")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "glitchbot")
	v.SetDefault("database.name", "glitchbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Farming defaults
	v.SetDefault("farm.min_reward", 5)
	v.SetDefault("farm.max_reward", 17)
	v.SetDefault("farm.cooldown_seconds", 0)

	// Game defaults
	v.SetDefault("games.mines.board_size", 5)
	v.SetDefault("games.mines.default_mine_count", 2)
	v.SetDefault("games.mines.multipliers", []int64{100, 125, 150, 175, 200, 225, 250})

	// Rendering defaults
	v.SetDefault("render.images_dir", "images")
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
