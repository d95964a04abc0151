// Package model defines the data models for the Glitch bot.
package model

import "time"

// Player represents a chat user participating in the Glitch economy.
// Balance is an int64 amount of whole Glitch coins; it is the single
// authoritative numeric representation of currency. Multipliers never
// reach this field as floats.
type Player struct {
	UserID    int64      `json:"user_id" db:"user_id"`
	Name      string     `json:"name" db:"name"`
	Balance   int64      `json:"balance" db:"balance"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	LastBonus *time.Time `json:"last_bonus,omitempty" db:"last_bonus"`
	Activity  []Activity `json:"activity,omitempty"`
}

// Activity is one interaction record in a player's activity log.
type Activity struct {
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// Activity kinds recorded in the log.
const (
	ActBonus    = "bonus"
	ActCoinflip = "coinflip"
	ActMines    = "mines"
	ActTransfer = "transfer"
	ActRename   = "rename"
)

// NewPlayer returns a player record with the default starting balance of 0.
func NewPlayer(userID int64, name string) *Player {
	return &Player{
		UserID:    userID,
		Name:      name,
		Balance:   0,
		CreatedAt: time.Now(),
	}
}
