package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"glitch-bot/internal/model"
	"glitch-bot/internal/pkg/lock"
	"glitch-bot/internal/repository"
)

// ErrBonusCooldown is returned when the farming bonus is claimed again
// before the cooldown elapses.
var ErrBonusCooldown = errors.New("bonus on cooldown")

// FarmingService hands out the periodic farming bonus, a small random
// amount of coins.
type FarmingService struct {
	repo     repository.PlayerRepository
	locks    *lock.UserLock
	min      int64
	max      int64
	cooldown time.Duration
}

// NewFarmingService creates a FarmingService. Rewards are drawn uniformly
// from [min, max]. A zero cooldown disables rate limiting.
func NewFarmingService(repo repository.PlayerRepository, locks *lock.UserLock, min, max int64, cooldown time.Duration) *FarmingService {
	return &FarmingService{repo: repo, locks: locks, min: min, max: max, cooldown: cooldown}
}

// Farm credits a random bonus to the player and returns the amount earned
// and the updated record.
func (s *FarmingService) Farm(ctx context.Context, userID int64) (int64, *model.Player, error) {
	var (
		earned int64
		player *model.Player
	)
	err := s.locks.WithLock(userID, func() error {
		p, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get player: %w", err)
		}
		if s.cooldown > 0 && p.LastBonus != nil {
			if remaining := s.cooldown - time.Since(*p.LastBonus); remaining > 0 {
				return fmt.Errorf("%w: %s remaining", ErrBonusCooldown, remaining.Round(time.Second))
			}
		}

		earned = s.min + rand.Int64N(s.max-s.min+1)
		player, err = s.repo.AddBalance(ctx, userID, earned)
		if err != nil {
			return fmt.Errorf("failed to credit bonus: %w", err)
		}
		if err := s.repo.SetLastBonus(ctx, userID, time.Now()); err != nil {
			return fmt.Errorf("failed to record bonus time: %w", err)
		}
		_ = s.repo.AppendActivity(ctx, userID, model.ActBonus)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return earned, player, nil
}
