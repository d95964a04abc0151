package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSession struct {
	stake int64
}

func TestCreateRejectsDuplicate(t *testing.T) {
	s := NewStore[*testSession]()

	require.NoError(t, s.Create(1, &testSession{stake: 100}))
	err := s.Create(1, &testSession{stake: 200})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	// The original session survives the rejected create.
	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.stake)
}

func TestGetUnknownUser(t *testing.T) {
	s := NewStore[*testSession]()
	_, err := s.Get(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMutatesStoredSession(t *testing.T) {
	s := NewStore[*testSession]()
	require.NoError(t, s.Create(1, &testSession{stake: 100}))

	require.NoError(t, s.Update(1, func(sess *testSession) {
		sess.stake = 250
	}))

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.stake)

	err = s.Update(2, func(*testSession) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveIsSingleUse(t *testing.T) {
	s := NewStore[*testSession]()
	require.NoError(t, s.Create(1, &testSession{stake: 100}))

	got, err := s.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.stake)

	_, err = s.Remove(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, s.Active(1))
}

func TestActiveAndLen(t *testing.T) {
	s := NewStore[*testSession]()
	assert.False(t, s.Active(1))
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Create(1, &testSession{}))
	require.NoError(t, s.Create(2, &testSession{}))
	assert.True(t, s.Active(1))
	assert.Equal(t, 2, s.Len())
}
