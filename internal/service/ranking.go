package service

import (
	"context"

	"glitch-bot/internal/model"
	"glitch-bot/internal/repository"
)

// DefaultTopLimit is how many players the leaderboard shows.
const DefaultTopLimit = 5

// RankingService handles leaderboard queries.
type RankingService struct {
	repo repository.PlayerRepository
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(repo repository.PlayerRepository) *RankingService {
	return &RankingService{repo: repo}
}

// TopBalances returns the richest players, ties broken by lower user id.
func (s *RankingService) TopBalances(ctx context.Context, limit int) ([]*model.Player, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return s.repo.TopByBalance(ctx, limit)
}
