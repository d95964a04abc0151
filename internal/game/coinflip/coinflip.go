// Package coinflip implements the provably fair heads-or-tails game.
//
// The outcome is drawn and committed to before the player picks a side:
// the session carries the MD5 commitment of "<outcome>|<salt>", published
// at start, and the pre-image is disclosed at resolution so the player can
// verify the flip was not changed after their choice.
package coinflip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"glitch-bot/internal/fair"
	"glitch-bot/internal/game/session"
	"glitch-bot/internal/model"
	"glitch-bot/internal/pkg/lock"
	"glitch-bot/internal/repository"
	"glitch-bot/internal/service"
)

// Game errors.
var (
	ErrInvalidStake  = errors.New("stake must be positive")
	ErrInvalidChoice = errors.New("choice must be heads or tails")
)

// Session is one committed coin flip awaiting the player's choice.
type Session struct {
	ID         uuid.UUID
	UserID     int64
	Stake      int64
	Outcome    string
	Salt       string
	Commitment string
	CreatedAt  time.Time
}

// Material returns the commitment pre-image for disclosure.
func (s *Session) Material() string {
	return fair.CoinMaterial(s.Outcome, s.Salt)
}

// Result is the outcome of a resolved flip.
type Result struct {
	Session *Session
	Choice  string
	Won     bool
	// Payout is the credited amount: twice the stake on a win, zero on a
	// loss (the stake was debited at session start).
	Payout  int64
	Balance int64
}

// Engine runs coin flip sessions. All methods serialize per player.
type Engine struct {
	sessions *session.Store[*Session]
	ledger   *service.Ledger
	locks    *lock.UserLock
	repo     repository.PlayerRepository
}

// NewEngine creates a coin flip engine.
func NewEngine(ledger *service.Ledger, locks *lock.UserLock, repo repository.PlayerRepository) *Engine {
	return &Engine{
		sessions: session.NewStore[*Session](),
		ledger:   ledger,
		locks:    locks,
		repo:     repo,
	}
}

// Active reports whether the player has an unresolved flip.
func (e *Engine) Active(userID int64) bool {
	return e.sessions.Active(userID)
}

// Start debits the stake and opens a session. The outcome is fixed and
// committed to here, before the player sees anything.
//
// Fails with session.ErrAlreadyActive if the player has an unresolved
// flip; the active session is never replaced.
func (e *Engine) Start(ctx context.Context, userID int64, stake int64) (*Session, error) {
	if stake <= 0 {
		return nil, ErrInvalidStake
	}

	var sess *Session
	err := e.locks.WithLock(userID, func() error {
		if e.sessions.Active(userID) {
			return session.ErrAlreadyActive
		}
		if _, err := e.ledger.Debit(ctx, userID, stake); err != nil {
			return err
		}

		outcome := fair.FlipCoin()
		salt := fair.RandomString(fair.SaltLength)
		sess = &Session{
			ID:         uuid.New(),
			UserID:     userID,
			Stake:      stake,
			Outcome:    outcome,
			Salt:       salt,
			Commitment: fair.Commit(fair.CoinMaterial(outcome, salt)),
			CreatedAt:  time.Now(),
		}
		if err := e.sessions.Create(userID, sess); err != nil {
			// Unreachable while the user lock is held; refund to be safe.
			_, _ = e.ledger.Credit(ctx, userID, stake)
			return err
		}
		_ = e.repo.AppendActivity(ctx, userID, model.ActCoinflip)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve settles the flip against the player's choice. The session is
// removed first, so a second resolution attempt fails with
// session.ErrNotFound instead of paying twice.
func (e *Engine) Resolve(ctx context.Context, userID int64, choice string) (*Result, error) {
	if choice != fair.Heads && choice != fair.Tails {
		return nil, ErrInvalidChoice
	}

	var result *Result
	err := e.locks.WithLock(userID, func() error {
		sess, err := e.sessions.Remove(userID)
		if err != nil {
			return err
		}

		result = &Result{Session: sess, Choice: choice, Won: choice == sess.Outcome}
		if result.Won {
			result.Payout = sess.Stake * 2
			p, err := e.ledger.Credit(ctx, userID, result.Payout)
			if err != nil {
				return fmt.Errorf("failed to pay out: %w", err)
			}
			result.Balance = p.Balance
		} else {
			balance, err := e.ledger.Balance(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}
			result.Balance = balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
