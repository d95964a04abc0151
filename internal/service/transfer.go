package service

import (
	"context"
	"errors"
	"fmt"

	"glitch-bot/internal/model"
	"glitch-bot/internal/pkg/lock"
	"glitch-bot/internal/repository"
)

// TransferService moves coins between players.
type TransferService struct {
	repo  repository.PlayerRepository
	locks *lock.UserLock
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(repo repository.PlayerRepository, locks *lock.UserLock) *TransferService {
	return &TransferService{repo: repo, locks: locks}
}

// Transfer moves amount coins from one player to another. The recipient is
// created with zero balance if not yet registered. Both player locks are
// held for the whole check-debit-credit sequence, so concurrent transfers
// cannot overdraw the sender.
//
// Returns the sender's new balance on success.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if fromID == toID {
		return 0, ErrSelfTransfer
	}

	var senderBalance int64
	err := s.locks.WithPair(fromID, toID, func() error {
		sender, err := s.repo.GetByID(ctx, fromID)
		if err != nil {
			return fmt.Errorf("failed to get sender: %w", err)
		}
		if sender.Balance < amount {
			return ErrInsufficientFunds
		}

		if _, _, err := s.repo.GetOrCreate(ctx, toID, ""); err != nil {
			return fmt.Errorf("failed to ensure recipient: %w", err)
		}

		updated, err := s.repo.AddBalance(ctx, fromID, -amount)
		if err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if _, err := s.repo.AddBalance(ctx, toID, amount); err != nil {
			// Put the debited amount back so no coins vanish.
			if _, rbErr := s.repo.AddBalance(ctx, fromID, amount); rbErr != nil {
				return errors.Join(
					fmt.Errorf("failed to credit recipient: %w", err),
					fmt.Errorf("rollback failed: %w", rbErr),
				)
			}
			return fmt.Errorf("failed to credit recipient: %w", err)
		}
		senderBalance = updated.Balance

		_ = s.repo.AppendActivity(ctx, fromID, model.ActTransfer)
		_ = s.repo.AppendActivity(ctx, toID, model.ActTransfer)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return senderBalance, nil
}

// Validate checks a transfer without executing it, for the confirmation
// step of the transfer form.
func (s *TransferService) Validate(ctx context.Context, fromID, toID int64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTransfer
	}
	sender, err := s.repo.GetByID(ctx, fromID)
	if err != nil {
		return fmt.Errorf("failed to get sender: %w", err)
	}
	if sender.Balance < amount {
		return ErrInsufficientFunds
	}
	return nil
}
