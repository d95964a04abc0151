// Package main is the entry point for the Glitch casino bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"glitch-bot/internal/bot"
	"glitch-bot/internal/config"
	"glitch-bot/internal/game/coinflip"
	"glitch-bot/internal/game/mines"
	"glitch-bot/internal/pkg/db"
	"glitch-bot/internal/pkg/lock"
	"glitch-bot/internal/render"
	"glitch-bot/internal/repository"
	"glitch-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Str("storage", cfg.Storage.Driver).Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, cleanup, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open player storage")
	}
	defer cleanup()

	table, err := mines.NewTable(cfg.Games.Mines.Multipliers, parseMultiplierRows(cfg.Games.Mines.MultiplierRows))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid mines payout table")
	}

	renderer, err := render.NewTileRenderer(cfg.Render.ImagesDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Render.ImagesDir).Msg("Failed to load board sprites")
	}

	userLock := lock.NewUserLock()
	ledger := service.NewLedger(repo)

	deps := &bot.Dependencies{
		Config:          cfg,
		AccountService:  service.NewAccountService(repo),
		FarmingService:  service.NewFarmingService(repo, userLock, cfg.Farm.MinReward, cfg.Farm.MaxReward, time.Duration(cfg.Farm.CooldownSeconds)*time.Second),
		RankingService:  service.NewRankingService(repo),
		TransferService: service.NewTransferService(repo, userLock),
		Coinflip:        coinflip.NewEngine(ledger, userLock, repo),
		Mines:           mines.NewEngine(ledger, userLock, repo, table, cfg.Games.Mines.BoardSize, cfg.Games.Mines.DefaultMineCount),
		Renderer:        renderer,
	}

	glitchBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		glitchBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	glitchBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// openRepository selects the storage backend from configuration.
func openRepository(ctx context.Context, cfg *config.Config) (repository.PlayerRepository, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresRepository(pool.Pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	default:
		repo, err := repository.NewJSONFileRepository(cfg.Storage.PlayersFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("file", repo.Path()).Msg("Using JSON document storage")
		return repo, func() {}, nil
	}
}

// parseMultiplierRows converts config override rows keyed by decimal mine
// count into the payout table's form. Bad keys are skipped with a warning
// rather than aborting startup.
func parseMultiplierRows(raw map[string][]int64) map[int][]int64 {
	rows := make(map[int][]int64, len(raw))
	for key, row := range raw {
		count, err := strconv.Atoi(key)
		if err != nil || count < 1 {
			log.Warn().Str("key", key).Msg("Ignoring payout row with invalid mine count")
			continue
		}
		rows[count] = row
	}
	return rows
}
