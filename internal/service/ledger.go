// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"glitch-bot/internal/model"
	"glitch-bot/internal/repository"
)

// Common errors for ledger operations.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount: must be positive")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
)

// Ledger performs balance mutations against the player store. Amounts are
// whole coins; a debit either moves the full amount or nothing.
//
// Ledger methods do not take per-player locks. Callers that combine a
// balance check with other state changes (the game engines, the transfer
// service) hold the player's lock around the whole sequence.
type Ledger struct {
	repo repository.PlayerRepository
}

// NewLedger creates a Ledger over the given repository.
func NewLedger(repo repository.PlayerRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Debit removes amount coins from the player's balance. The balance is
// checked first so it can never go below zero.
func (l *Ledger) Debit(ctx context.Context, userID int64, amount int64) (*model.Player, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	p, err := l.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if p.Balance < amount {
		return nil, ErrInsufficientFunds
	}
	updated, err := l.repo.AddBalance(ctx, userID, -amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit: %w", err)
	}
	return updated, nil
}

// Credit adds amount coins to the player's balance. A zero credit is
// allowed: a mines cash-out before any reveal pays stake x 1.00.
func (l *Ledger) Credit(ctx context.Context, userID int64, amount int64) (*model.Player, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	updated, err := l.repo.AddBalance(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit: %w", err)
	}
	return updated, nil
}

// Balance returns the player's current balance.
func (l *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	p, err := l.repo.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return p.Balance, nil
}
