package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"glitch-bot/internal/model"
)

// PostgresRepository implements PlayerRepository over a pgx pool, for
// deployments that outgrow the JSON document store.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository on the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			user_id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			last_bonus TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_balance ON players(balance DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create players table: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activities (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES players(user_id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_activities_user_time ON activities(user_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create activities table: %w", err)
	}
	return nil
}

// GetByID returns the player or ErrPlayerNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, userID int64) (*model.Player, error) {
	const query = `
		SELECT user_id, name, balance, last_bonus, created_at
		FROM players
		WHERE user_id = $1
	`

	var p model.Player
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Name,
		&p.Balance,
		&p.LastBonus,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("%w: get player: %v", ErrPersistenceFailed, err)
	}
	return &p, nil
}

// GetOrCreate returns the player, creating a default record if absent.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID int64, name string) (*model.Player, bool, error) {
	p, err := r.GetByID(ctx, userID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	if name == "" {
		name = fmt.Sprintf("Пользователь %d", userID)
	}

	const query = `
		INSERT INTO players (user_id, name, balance, created_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING user_id, name, balance, last_bonus, created_at
	`

	var created model.Player
	err = r.pool.QueryRow(ctx, query, userID, name).Scan(
		&created.UserID,
		&created.Name,
		&created.Balance,
		&created.LastBonus,
		&created.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a create race; the record exists now.
			p, err := r.GetByID(ctx, userID)
			return p, false, err
		}
		return nil, false, fmt.Errorf("%w: create player: %v", ErrPersistenceFailed, err)
	}
	return &created, true, nil
}

// AddBalance adjusts the player's balance by delta.
func (r *PostgresRepository) AddBalance(ctx context.Context, userID int64, delta int64) (*model.Player, error) {
	const query = `
		UPDATE players
		SET balance = balance + $2
		WHERE user_id = $1
		RETURNING user_id, name, balance, last_bonus, created_at
	`

	var p model.Player
	err := r.pool.QueryRow(ctx, query, userID, delta).Scan(
		&p.UserID,
		&p.Name,
		&p.Balance,
		&p.LastBonus,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("%w: update balance: %v", ErrPersistenceFailed, err)
	}
	return &p, nil
}

// UpdateName changes the player's display name.
func (r *PostgresRepository) UpdateName(ctx context.Context, userID int64, name string) error {
	const query = `UPDATE players SET name = $2 WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID, name)
	if err != nil {
		return fmt.Errorf("%w: update name: %v", ErrPersistenceFailed, err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// AppendActivity records one interaction in the player's activity log.
func (r *PostgresRepository) AppendActivity(ctx context.Context, userID int64, message string) error {
	const query = `
		INSERT INTO activities (user_id, message, created_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, userID, message); err != nil {
		return fmt.Errorf("%w: append activity: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// SetLastBonus records the player's last bonus claim time.
func (r *PostgresRepository) SetLastBonus(ctx context.Context, userID int64, at time.Time) error {
	const query = `UPDATE players SET last_bonus = $2 WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID, at)
	if err != nil {
		return fmt.Errorf("%w: set last bonus: %v", ErrPersistenceFailed, err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// TopByBalance returns up to limit players ordered by balance descending.
func (r *PostgresRepository) TopByBalance(ctx context.Context, limit int) ([]*model.Player, error) {
	const query = `
		SELECT user_id, name, balance, last_bonus, created_at
		FROM players
		ORDER BY balance DESC, user_id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: top players: %v", ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		var p model.Player
		err := rows.Scan(&p.UserID, &p.Name, &p.Balance, &p.LastBonus, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan player: %v", ErrPersistenceFailed, err)
		}
		players = append(players, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate players: %v", ErrPersistenceFailed, err)
	}
	return players, nil
}
