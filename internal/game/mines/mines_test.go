package mines

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

	table, err := NewTable(defaultRow, nil)
	require.NoError(t, err)

	engine := NewEngine(service.NewLedger(repo), lock.NewUserLock(), repo, table, 5, 2)
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

// startGame takes a session through Start and ChooseMineCount.
func startGame(t *testing.T, engine *Engine, userID, stake int64, mineCount int) *Session {
	t.Helper()
	ctx := context.Background()
	_, err := engine.Start(ctx, userID, stake)
	require.NoError(t, err)
	sess, err := engine.ChooseMineCount(ctx, userID, mineCount)
	require.NoError(t, err)
	return sess
}

// cellsOf splits the board into safe cells and mine cells.
func cellsOf(b *fair.Board) (safe, mined []int) {
	for c := 1; c <= b.TotalCells(); c++ {
		if b.IsMine(c) {
			mined = append(mined, c)
		} else {
			safe = append(safe, c)
		}
	}
	return safe, mined
}

func TestStartDebitsAndWaitsForMineCount(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, PhaseMineCount, sess.Phase)
	assert.Nil(t, sess.Board)

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), p.Balance)
}

func TestStartRejectsBadStakes(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 50)

	_, err := engine.Start(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = engine.Start(ctx, 1, 51)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Balance)
}

func TestStartRejectsSecondSession(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	_, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	_, err = engine.Start(ctx, 1, 100)
	assert.ErrorIs(t, err, session.ErrAlreadyActive)

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), p.Balance, "the rejected start took nothing")
}

func TestChooseMineCountCommitsBoard(t *testing.T) {
	engine, repo := newTestEngine(t)
	seedPlayer(t, repo, 1, 500)

	sess := startGame(t, engine, 1, 100, 2)
	assert.Equal(t, PhaseReveal, sess.Phase)
	assert.Equal(t, Baseline, sess.Multiplier)
	require.NotNil(t, sess.Board)
	assert.Equal(t, 2, sess.Board.Mines)
	assert.Len(t, sess.Padding, fair.PaddingLength)
	assert.True(t, fair.Verify(sess.Material(), sess.Commitment),
		"published digest must match the disclosed pre-image")
}

func TestChooseMineCountValidation(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	_, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	_, err = engine.ChooseMineCount(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidMineCount)
	_, err = engine.ChooseMineCount(ctx, 1, 25)
	assert.ErrorIs(t, err, ErrInvalidMineCount)

	// Still awaiting a valid count.
	sess, err := engine.Get(1)
	require.NoError(t, err)
	assert.Equal(t, PhaseMineCount, sess.Phase)

	// Once the board is committed the count cannot be chosen again.
	_, err = engine.ChooseMineCount(ctx, 1, 24)
	require.NoError(t, err)
	_, err = engine.ChooseMineCount(ctx, 1, 3)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestRevealBeforeMineCount(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	_, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	_, err = engine.Reveal(ctx, 1, 5)
	assert.ErrorIs(t, err, ErrWrongPhase)
	_, err = engine.CashOut(ctx, 1)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestSafeRevealsRaiseMultiplier(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess := startGame(t, engine, 1, 100, 2)
	safe, _ := cellsOf(sess.Board)

	// Default row: 1.00, 1.25, 1.50 for the first three safe reveals.
	want := []int64{100, 125, 150}
	for i := 0; i < 3; i++ {
		move, err := engine.Reveal(ctx, 1, safe[i])
		require.NoError(t, err)
		assert.False(t, move.Busted)
		assert.Equal(t, want[i], move.Multiplier)
		assert.Equal(t, CellPress, move.Board.Cells[safe[i]])
		assert.False(t, move.Board.GameOver)
	}

	result, err := engine.CashOut(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), result.Payout, "100 x 1.50")
	assert.Equal(t, int64(550), result.Balance, "400 after debit + 150 payout")
	assert.True(t, result.Board.GameOver)
	assert.False(t, engine.Active(1))
}

func TestRevealValidation(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess := startGame(t, engine, 1, 100, 2)
	safe, _ := cellsOf(sess.Board)

	_, err := engine.Reveal(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidCell)
	_, err = engine.Reveal(ctx, 1, 26)
	assert.ErrorIs(t, err, ErrInvalidCell)

	move, err := engine.Reveal(ctx, 1, safe[0])
	require.NoError(t, err)
	require.False(t, move.Busted)

	_, err = engine.Reveal(ctx, 1, safe[0])
	assert.ErrorIs(t, err, ErrCellAlreadyRevealed)

	// The rejected repeat changed nothing.
	got, err := engine.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []int{safe[0]}, got.Revealed)
	assert.Equal(t, int64(100), got.Multiplier)
}

func TestMineRevealForfeitsStake(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess := startGame(t, engine, 1, 100, 2)
	safe, mined := cellsOf(sess.Board)

	move, err := engine.Reveal(ctx, 1, safe[0])
	require.NoError(t, err)
	require.False(t, move.Busted)

	move, err = engine.Reveal(ctx, 1, mined[0])
	require.NoError(t, err)
	assert.True(t, move.Busted)
	assert.Equal(t, mined[0], move.Cell)
	assert.False(t, engine.Active(1))

	// Final board: the hit mine explodes, the other stays a bomb, the
	// earlier pick remains pressed.
	assert.True(t, move.Board.GameOver)
	assert.Equal(t, CellExplosion, move.Board.Cells[mined[0]])
	assert.Equal(t, CellBomb, move.Board.Cells[mined[1]])
	assert.Equal(t, CellPress, move.Board.Cells[safe[0]])

	// No payout: the start debit stands.
	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), p.Balance)

	// The finished session cannot be settled again.
	_, err = engine.CashOut(ctx, 1)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestCashOutBeforeFirstReveal(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	startGame(t, engine, 1, 100, 2)

	result, err := engine.CashOut(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.Payout, "baseline pays the stake back")
	assert.Equal(t, int64(500), result.Balance)
}

func TestPayoutRoundsDown(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	sess := startGame(t, engine, 1, 99, 2)
	safe, _ := cellsOf(sess.Board)

	// Two safe reveals: multiplier 1.25, payout floor(99 * 125 / 100).
	for i := 0; i < 2; i++ {
		_, err := engine.Reveal(ctx, 1, safe[i])
		require.NoError(t, err)
	}
	result, err := engine.CashOut(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(123), result.Payout)
}

func TestChooseDefaultMineCount(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	seedPlayer(t, repo, 1, 500)

	_, err := engine.Start(ctx, 1, 100)
	require.NoError(t, err)

	sess, err := engine.ChooseDefaultMineCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Board.Mines)
}
