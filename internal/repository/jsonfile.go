package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"glitch-bot/internal/model"
)

// JSONFileRepository keeps all players in memory and rewrites the whole
// document to disk on every mutation. That is acceptable at chat-bot event
// volume and keeps the on-disk format a single human-readable file.
//
// After a failed save the in-memory state no longer matches the file, so
// the store refuses further mutations until Reload succeeds.
type JSONFileRepository struct {
	mu      sync.Mutex
	path    string
	players map[int64]*model.Player
	saveErr error
}

// NewJSONFileRepository loads path (an absent file starts an empty store).
func NewJSONFileRepository(path string) (*JSONFileRepository, error) {
	r := &JSONFileRepository{path: path}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *JSONFileRepository) load() error {
	r.players = make(map[int64]*model.Player)
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	// Keys are decimal user ids, matching the historical document format.
	raw := make(map[string]*model.Player)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", r.path, err)
	}
	for key, p := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid player key %q in %s: %w", key, r.path, err)
		}
		p.UserID = id
		r.players[id] = p
	}
	return nil
}

// save rewrites the whole document. The write goes to a temp file first so
// a crash mid-write cannot truncate the store.
func (r *JSONFileRepository) save() error {
	raw := make(map[string]*model.Player, len(r.players))
	for id, p := range r.players {
		raw[strconv.FormatInt(id, 10)] = p
	}
	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		r.saveErr = err
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		r.saveErr = err
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		r.saveErr = err
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	r.saveErr = nil
	return nil
}

// checkHealthy blocks mutations while the store is out of sync with disk.
func (r *JSONFileRepository) checkHealthy() error {
	if r.saveErr != nil {
		return fmt.Errorf("%w: store halted after failed save: %v", ErrPersistenceFailed, r.saveErr)
	}
	return nil
}

// Reload re-reads the document from disk, clearing a halted state.
func (r *JSONFileRepository) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	r.saveErr = nil
	return nil
}

// GetByID returns the player or ErrPlayerNotFound.
func (r *JSONFileRepository) GetByID(_ context.Context, userID int64) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[userID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

// GetOrCreate returns the player, creating a default record if absent.
func (r *JSONFileRepository) GetOrCreate(ctx context.Context, userID int64, name string) (*model.Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[userID]; ok {
		cp := *p
		return &cp, false, nil
	}
	if err := r.checkHealthy(); err != nil {
		return nil, false, err
	}
	if name == "" {
		name = fmt.Sprintf("Пользователь %d", userID)
	}
	p := model.NewPlayer(userID, name)
	r.players[userID] = p
	if err := r.save(); err != nil {
		delete(r.players, userID)
		return nil, false, err
	}
	cp := *p
	return &cp, true, nil
}

// AddBalance adjusts the balance by delta and persists.
func (r *JSONFileRepository) AddBalance(_ context.Context, userID int64, delta int64) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkHealthy(); err != nil {
		return nil, err
	}
	p, ok := r.players[userID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.Balance += delta
	if err := r.save(); err != nil {
		p.Balance -= delta
		return nil, err
	}
	cp := *p
	return &cp, nil
}

// UpdateName changes the display name and persists.
func (r *JSONFileRepository) UpdateName(_ context.Context, userID int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkHealthy(); err != nil {
		return err
	}
	p, ok := r.players[userID]
	if !ok {
		return ErrPlayerNotFound
	}
	old := p.Name
	p.Name = name
	if err := r.save(); err != nil {
		p.Name = old
		return err
	}
	return nil
}

// AppendActivity records an interaction in the player's log and persists.
func (r *JSONFileRepository) AppendActivity(_ context.Context, userID int64, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkHealthy(); err != nil {
		return err
	}
	p, ok := r.players[userID]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Activity = append(p.Activity, model.Activity{
		Message:   message,
		Timestamp: time.Now(),
	})
	if err := r.save(); err != nil {
		p.Activity = p.Activity[:len(p.Activity)-1]
		return err
	}
	return nil
}

// SetLastBonus records the player's last bonus claim time and persists.
func (r *JSONFileRepository) SetLastBonus(_ context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkHealthy(); err != nil {
		return err
	}
	p, ok := r.players[userID]
	if !ok {
		return ErrPlayerNotFound
	}
	old := p.LastBonus
	p.LastBonus = &at
	if err := r.save(); err != nil {
		p.LastBonus = old
		return err
	}
	return nil
}

// TopByBalance returns up to limit players ordered by balance descending.
func (r *JSONFileRepository) TopByBalance(_ context.Context, limit int) ([]*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]*model.Player, 0, len(r.players))
	for _, p := range r.players {
		cp := *p
		players = append(players, &cp)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Balance != players[j].Balance {
			return players[i].Balance > players[j].Balance
		}
		return players[i].UserID < players[j].UserID
	})
	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}

// Path returns the backing file path.
func (r *JSONFileRepository) Path() string {
	return filepath.Clean(r.path)
}
