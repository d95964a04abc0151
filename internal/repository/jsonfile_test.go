package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*JSONFileRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "players.json")
	repo, err := NewJSONFileRepository(path)
	require.NoError(t, err)
	return repo, path
}

func TestGetOrCreateDefaults(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p, created, err := repo.GetOrCreate(ctx, 100, "Алиса")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(100), p.UserID)
	assert.Equal(t, "Алиса", p.Name)
	assert.Equal(t, int64(0), p.Balance, "new players start with zero balance")

	again, created, err := repo.GetOrCreate(ctx, 100, "другое имя")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Алиса", again.Name, "existing record is not renamed")
}

func TestGetOrCreateEmptyNameFallback(t *testing.T) {
	repo, _ := newTestRepo(t)

	p, _, err := repo.GetOrCreate(context.Background(), 55, "")
	require.NoError(t, err)
	assert.Equal(t, "Пользователь 55", p.Name)
}

func TestGetByIDUnknown(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestAddBalancePersistsAcrossReopen(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.GetOrCreate(ctx, 7, "Игрок")
	require.NoError(t, err)

	p, err := repo.AddBalance(ctx, 7, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(150), p.Balance)

	p, err = repo.AddBalance(ctx, 7, -50)
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.Balance)

	reopened, err := NewJSONFileRepository(path)
	require.NoError(t, err)
	got, err := reopened.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
	assert.Equal(t, "Игрок", got.Name)
}

func TestDocumentUsesDecimalStringKeys(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.GetOrCreate(ctx, 123456789, "x")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "123456789")
}

func TestUpdateNameAndActivity(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.GetOrCreate(ctx, 1, "старое")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateName(ctx, 1, "новое"))
	require.NoError(t, repo.AppendActivity(ctx, 1, "bonus"))

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "новое", p.Name)
	require.Len(t, p.Activity, 1)
	assert.Equal(t, "bonus", p.Activity[0].Message)

	assert.ErrorIs(t, repo.UpdateName(ctx, 99, "x"), ErrPlayerNotFound)
	assert.ErrorIs(t, repo.AppendActivity(ctx, 99, "x"), ErrPlayerNotFound)
}

func TestSetLastBonus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.GetOrCreate(ctx, 1, "x")
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, repo.SetLastBonus(ctx, 1, at))

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.LastBonus)
	assert.WithinDuration(t, at, *p.LastBonus, time.Second)
}

func TestTopByBalanceOrdering(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, seed := range []struct {
		id      int64
		balance int64
	}{{1, 50}, {2, 200}, {3, 200}, {4, 10}, {5, 75}, {6, 60}} {
		_, _, err := repo.GetOrCreate(ctx, seed.id, "")
		require.NoError(t, err)
		_, err = repo.AddBalance(ctx, seed.id, seed.balance)
		require.NoError(t, err)
	}

	top, err := repo.TopByBalance(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)

	ids := make([]int64, len(top))
	for i, p := range top {
		ids[i] = p.UserID
	}
	// Descending balance, ties broken by lower id; limit drops the rest.
	assert.Equal(t, []int64{2, 3, 5, 6, 1}, ids)
}

func TestSaveFailureHaltsMutations(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.GetOrCreate(ctx, 1, "x")
	require.NoError(t, err)
	_, err = repo.AddBalance(ctx, 1, 100)
	require.NoError(t, err)
	saved, err := os.ReadFile(path)
	require.NoError(t, err)

	// Replace the document with a directory so the atomic rename fails.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err = repo.AddBalance(ctx, 1, 100)
	require.ErrorIs(t, err, ErrPersistenceFailed)

	// The failed mutation was rolled back and the store is halted.
	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.Balance)

	_, err = repo.AddBalance(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	_, _, err = repo.GetOrCreate(ctx, 2, "y")
	assert.ErrorIs(t, err, ErrPersistenceFailed)

	// Restore the document; Reload clears the halt.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(path, saved, 0o644))
	require.NoError(t, repo.Reload())

	p, err = repo.AddBalance(ctx, 1, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(125), p.Balance)
}
