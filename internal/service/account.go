package service

import (
	"context"
	"fmt"

	"glitch-bot/internal/model"
	"glitch-bot/internal/repository"
)

// AccountService handles player account operations: registration, profile
// lookups, name changes and the activity log.
type AccountService struct {
	repo repository.PlayerRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(repo repository.PlayerRepository) *AccountService {
	return &AccountService{repo: repo}
}

// EnsurePlayer ensures a player record exists, creating one with zero
// balance if necessary. Returns the player and whether it was created.
func (s *AccountService) EnsurePlayer(ctx context.Context, userID int64, name string) (*model.Player, bool, error) {
	p, created, err := s.repo.GetOrCreate(ctx, userID, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure player: %w", err)
	}
	return p, created, nil
}

// GetPlayer retrieves a player record.
func (s *AccountService) GetPlayer(ctx context.Context, userID int64) (*model.Player, error) {
	return s.repo.GetByID(ctx, userID)
}

// Rename changes the player's display name and records the change.
func (s *AccountService) Rename(ctx context.Context, userID int64, name string) error {
	if err := s.repo.UpdateName(ctx, userID, name); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	if err := s.repo.AppendActivity(ctx, userID, model.ActRename); err != nil {
		return fmt.Errorf("failed to record rename: %w", err)
	}
	return nil
}
