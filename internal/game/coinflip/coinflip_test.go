package coinflip

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glitch-bot/internal/fair"
	"glitch-bot/internal/game/session"
	"glitch-bot/internal/pkg/lock"
	"glitch-bot/internal/repository"
	"glitch-bot/internal/service"
)

func newTestEngine(t *testing.T) (*Engine, repository.PlayerRepository) {
	t.Helper()
	repo, err := repository.NewJSONFileRepository(filepath.Join(t.TempDir(), "players.json"))
	require.NoError(t, err)
	engine := NewEngine(service.NewLedger(repo), lock.NewUserLock(), repo)
	return engine, repo
}

func seedPlayer(t *testing.T, repo repository.PlayerRepository, userID, balance int64) {
	t.Helper()
	ctx := context.Background()
	_, _, err := repo.GetOrCreate(ctx, userID, "")
	require.NoError(t, err)
	if balance != 0 {
		_, err = repo.AddBalance(ctx, userID, balance)
		require.NoError(t, err)
	}
}

func TestStartDebitsStakeAndCommits(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), sess.Stake)
	assert.Contains(t, []string{fair.Heads, fair.Tails}, sess.Outcome)
	assert.Len(t, sess.Salt, fair.SaltLength)
	assert.True(t, fair.Verify(sess.Material(), sess.Commitment),
		"published digest must match the disclosed pre-image")

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), p.Balance, "stake is debited at start")
	assert.True(t, engine.Active(1))
}

func TestStartRejectsBadStakes(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 50)

	_, err := engine.Start(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = engine.Start(ctx, 1, -10)
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = engine.Start(ctx, 1, 51)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	// Failed starts leave the balance alone and open no session.
	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Balance)
	assert.False(t, engine.Active(1))
}

func TestStartRejectsSecondSession(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	first, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	_, err = engine.Start(ctx, 1, 50)
	assert.ErrorIs(t, err, session.ErrAlreadyActive)

	// Only the first stake was taken.
	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), p.Balance)

	// The original session is still resolvable.
	result, err := engine.Resolve(ctx, 1, first.Outcome)
	require.NoError(t, err)
	assert.True(t, result.Won)
}

func TestResolveWinPaysDouble(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	result, err := engine.Resolve(ctx, 1, sess.Outcome)
	require.NoError(t, err)
	assert.True(t, result.Won)
	assert.Equal(t, int64(200), result.Payout)
	assert.Equal(t, int64(600), result.Balance, "400 after debit + 200 payout")
	assert.False(t, engine.Active(1))
}

func TestResolveLossForfeitsStake(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	wrong := fair.Heads
	if sess.Outcome == fair.Heads {
		wrong = fair.Tails
	}
	result, err := engine.Resolve(ctx, 1, wrong)
	require.NoError(t, err)
	assert.False(t, result.Won)
	assert.Equal(t, int64(0), result.Payout)
	assert.Equal(t, int64(400), result.Balance)
}

func TestResolveIsSingleUse(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	_, err = engine.Resolve(ctx, 1, sess.Outcome)
	require.NoError(t, err)

	_, err = engine.Resolve(ctx, 1, sess.Outcome)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// The double resolution paid nothing extra.
	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(600), p.Balance)
}

func TestResolveValidatesChoice(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	_, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	_, err = engine.Resolve(ctx, 1, "edge")
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.True(t, engine.Active(1), "bad input does not burn the session")
}

func TestResolveWithoutSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Resolve(context.Background(), 1, fair.Heads)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
