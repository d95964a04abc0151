// Package lock provides per-player locking.
//
// The bot transport dispatches every update on its own goroutine, so any
// sequence of balance or session mutations for one player must run under
// that player's lock to keep the at-most-one-active-session and
// never-double-spend invariants.
package lock

import "sync"

// UserLock hands out one mutex per player id.
type UserLock struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{}
}

func (ul *UserLock) get(userID int64) *sync.Mutex {
	if v, ok := ul.locks.Load(userID); ok {
		return v.(*sync.Mutex)
	}
	v, _ := ul.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Lock acquires the lock for a player.
func (ul *UserLock) Lock(userID int64) {
	ul.get(userID).Lock()
}

// Unlock releases the lock for a player.
func (ul *UserLock) Unlock(userID int64) {
	if v, ok := ul.locks.Load(userID); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID int64) bool {
	return ul.get(userID).TryLock()
}

// WithLock runs fn while holding the player's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithPair runs fn while holding the locks of both players. Locks are
// always acquired in ascending id order so two concurrent transfers between
// the same pair cannot deadlock. a and b must differ.
func (ul *UserLock) WithPair(a, b int64, fn func() error) error {
	first, second := a, b
	if first > second {
		first, second = second, first
	}
	ul.Lock(first)
	defer ul.Unlock(first)
	ul.Lock(second)
	defer ul.Unlock(second)
	return fn()
}
