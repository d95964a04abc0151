// Package repository provides player data persistence.
//
// The game engines and services only see the PlayerRepository interface;
// whether the durable store is a JSON document on disk or a PostgreSQL
// database is a deployment choice.
package repository

import (
	"context"
	"errors"
	"time"

	"glitch-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")

	// ErrPersistenceFailed wraps the underlying cause when a mutation could
	// not be made durable. A mutation that returns it has not been applied.
	ErrPersistenceFailed = errors.New("persistence failed")
)

// PlayerRepository is the durable store of player records. Every mutating
// call is write-through: when it returns nil the change has been persisted.
type PlayerRepository interface {
	// GetByID returns the player or ErrPlayerNotFound.
	GetByID(ctx context.Context, userID int64) (*model.Player, error)

	// GetOrCreate returns the player, creating one with default balance 0
	// if absent. The bool reports whether a record was created.
	GetOrCreate(ctx context.Context, userID int64, name string) (*model.Player, bool, error)

	// AddBalance adjusts the player's balance by delta (negative to debit)
	// and returns the updated record. It does not enforce a floor; balance
	// checks belong to the ledger.
	AddBalance(ctx context.Context, userID int64, delta int64) (*model.Player, error)

	// UpdateName changes the player's display name.
	UpdateName(ctx context.Context, userID int64, name string) error

	// AppendActivity records one interaction in the player's activity log.
	AppendActivity(ctx context.Context, userID int64, message string) error

	// SetLastBonus records when the player last claimed the farming bonus.
	SetLastBonus(ctx context.Context, userID int64, at time.Time) error

	// TopByBalance returns up to limit players ordered by balance descending.
	TopByBalance(ctx context.Context, limit int) ([]*model.Player, error)
}
