// Package session provides the in-memory store for active game sessions.
//
// Each game family owns one Store, keyed by player id, so a player can hold
// at most one active session per family. Sessions live only in process
// memory: a restart drops in-flight games (the stake was already debited at
// session start, so no credited currency is lost).
package session

import (
	"errors"
	"sync"
)

// Store errors.
var (
	// ErrAlreadyActive is returned by Create when the player already has an
	// unresolved session in this family. A new session never silently
	// replaces an active one.
	ErrAlreadyActive = errors.New("session already active")

	// ErrNotFound is returned when no active session exists for the player.
	ErrNotFound = errors.New("no active session")
)

// Store holds the active sessions of one game family.
type Store[T any] struct {
	mu       sync.Mutex
	sessions map[int64]T
}

// NewStore creates an empty session store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{sessions: make(map[int64]T)}
}

// Create registers a session for the player.
// Fails with ErrAlreadyActive if one is already registered.
func (s *Store[T]) Create(userID int64, sess T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		return ErrAlreadyActive
	}
	s.sessions[userID] = sess
	return nil
}

// Get returns the player's active session.
func (s *Store[T]) Get(userID int64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return sess, nil
}

// Update applies mutate to the player's stored session. It is the only way
// mutable session state changes after creation.
func (s *Store[T]) Update(userID int64, mutate func(T)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return ErrNotFound
	}
	mutate(sess)
	return nil
}

// Remove ends the player's session, returning it for final disclosure.
// A second Remove for the same player fails with ErrNotFound, which is what
// makes resolution single-use.
func (s *Store[T]) Remove(userID int64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	delete(s.sessions, userID)
	return sess, nil
}

// Active reports whether the player has a session in this family.
func (s *Store[T]) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// Len returns the number of active sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
