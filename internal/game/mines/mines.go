// Package mines implements the provably fair minesweeper-style game.
//
// The board is generated and committed to before the first reveal: the
// published MD5 digest covers the canonical board string plus random
// padding, and the pre-image is disclosed when the session ends. Each safe
// reveal raises the payout multiplier; hitting a mine forfeits the stake.
package mines

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
	ErrInvalidStake        = errors.New("stake must be at least 1")
	ErrInvalidMineCount    = errors.New("mine count out of range")
	ErrInvalidCell         = errors.New("cell number out of range")
	ErrCellAlreadyRevealed = errors.New("cell already revealed")
	// ErrWrongPhase is returned when an operation does not match the
	// session's current phase, e.g. revealing a cell before the mine count
	// is chosen.
	ErrWrongPhase = errors.New("operation not valid in current game phase")
)

// Phase is the step a mines session is waiting on.
type Phase int

const (
	// PhaseMineCount: stake accepted, waiting for the number of mines.
	PhaseMineCount Phase = iota
	// PhaseReveal: board committed, waiting for cell picks or cash-out.
	PhaseReveal
)

// CellStatus is the rendered state of one board cell.
type CellStatus string

const (
	CellEmpty     CellStatus = "empty"
	CellPress     CellStatus = "press"
	CellBomb      CellStatus = "bomb"
	CellExplosion CellStatus = "explosion"
)

// BoardView is a renderable snapshot of the board, keyed by 1-based cell
// number. GameOver marks the final disclosure view where unrevealed safe
// cells are shown too.
type BoardView struct {
	Size     int
	Cells    map[int]CellStatus
	GameOver bool
}

// Session is one mines game in progress.
type Session struct {
	ID         uuid.UUID
	UserID     int64
	Stake      int64
	Phase      Phase
	Board      *fair.Board // nil until the mine count is chosen
	Padding    string
	Commitment string
	Revealed   []int // 1-based, in reveal order
	Multiplier int64 // hundredths
	CreatedAt  time.Time
}

// Material returns the commitment pre-image for disclosure.
func (s *Session) Material() string {
	return fair.BoardMaterial(s.Board, s.Padding)
}

// progressView shows only the player's safe picks on a hidden board.
func (s *Session) progressView() *BoardView {
	cells := make(map[int]CellStatus, s.Board.TotalCells())
	for c := 1; c <= s.Board.TotalCells(); c++ {
		cells[c] = CellEmpty
	}
	for _, c := range s.Revealed {
		cells[c] = CellPress
	}
	return &BoardView{Size: s.Board.Size, Cells: cells}
}

// finalView discloses the whole board. exploded is the mine the player
// hit, or 0 on a cash-out.
func (s *Session) finalView(exploded int) *BoardView {
	cells := make(map[int]CellStatus, s.Board.TotalCells())
	for c := 1; c <= s.Board.TotalCells(); c++ {
		switch {
		case c == exploded:
			cells[c] = CellExplosion
		case s.Board.IsMine(c):
			cells[c] = CellBomb
		default:
			cells[c] = CellEmpty
		}
	}
	for _, c := range s.Revealed {
		cells[c] = CellPress
	}
	return &BoardView{Size: s.Board.Size, Cells: cells, GameOver: true}
}

// Move is the outcome of a single cell reveal.
type Move struct {
	Session *Session
	Cell    int
	Busted  bool
	// Multiplier is the updated multiplier after a safe reveal, in
	// hundredths. Zero on a bust.
	Multiplier int64
	Board      *BoardView
}

// Result is a finished session: a cash-out or a bust.
type Result struct {
	Session *Session
	Payout  int64
	Balance int64
	Board   *BoardView
}

// Engine runs mines sessions. All methods serialize per player.
type Engine struct {
	sessions  *session.Store[*Session]
	ledger    *service.Ledger
	locks     *lock.UserLock
	repo      repository.PlayerRepository
	table     *Table
	boardSize int
	defMines  int
}

// NewEngine creates a mines engine with the given board size and default
// mine count.
func NewEngine(ledger *service.Ledger, locks *lock.UserLock, repo repository.PlayerRepository, table *Table, boardSize, defaultMines int) *Engine {
	return &Engine{
		sessions:  session.NewStore[*Session](),
		ledger:    ledger,
		locks:     locks,
		repo:      repo,
		table:     table,
		boardSize: boardSize,
		defMines:  defaultMines,
	}
}

// BoardSize returns the configured board dimension.
func (e *Engine) BoardSize() int { return e.boardSize }

// DefaultMines returns the configured default mine count.
func (e *Engine) DefaultMines() int { return e.defMines }

// Active reports whether the player has a session in progress.
func (e *Engine) Active(userID int64) bool {
	return e.sessions.Active(userID)
}

// Get returns the player's active session.
func (e *Engine) Get(userID int64) (*Session, error) {
	return e.sessions.Get(userID)
}

// Start debits the stake and opens a session waiting for the mine count.
//
// Fails with session.ErrAlreadyActive if the player already has a game in
// progress; the active session is never replaced.
func (e *Engine) Start(ctx context.Context, userID int64, stake int64) (*Session, error) {
	if stake < 1 {
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
		sess = &Session{
			ID:        uuid.New(),
			UserID:    userID,
			Stake:     stake,
			Phase:     PhaseMineCount,
			CreatedAt: time.Now(),
		}
		if err := e.sessions.Create(userID, sess); err != nil {
			_, _ = e.ledger.Credit(ctx, userID, stake)
			return err
		}
		_ = e.repo.AppendActivity(ctx, userID, model.ActMines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ChooseMineCount generates and commits the board, moving the session to
// the reveal phase. The commitment digest in the returned session is what
// the player verifies the final disclosure against.
func (e *Engine) ChooseMineCount(ctx context.Context, userID int64, mineCount int) (*Session, error) {
	var sess *Session
	err := e.locks.WithLock(userID, func() error {
		cur, err := e.sessions.Get(userID)
		if err != nil {
			return err
		}
		if cur.Phase != PhaseMineCount {
			return ErrWrongPhase
		}
		total := e.boardSize * e.boardSize
		if mineCount < 1 || mineCount >= total {
			return fmt.Errorf("%w: must be in [1, %d]", ErrInvalidMineCount, total-1)
		}

		board, err := fair.NewBoard(e.boardSize, mineCount)
		if err != nil {
			return err
		}
		padding := fair.RandomString(fair.PaddingLength)
		return e.sessions.Update(userID, func(s *Session) {
			s.Phase = PhaseReveal
			s.Board = board
			s.Padding = padding
			s.Commitment = fair.Commit(fair.BoardMaterial(board, padding))
			s.Multiplier = Baseline
			sess = s
		})
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ChooseDefaultMineCount commits a board with the configured default
// number of mines.
func (e *Engine) ChooseDefaultMineCount(ctx context.Context, userID int64) (*Session, error) {
	return e.ChooseMineCount(ctx, userID, e.defMines)
}

// Reveal opens one cell. A safe cell raises the multiplier and keeps the
// session going; a mine ends the session with the stake forfeited and the
// pre-image disclosed. Repeating an already revealed cell fails without
// changing anything.
func (e *Engine) Reveal(ctx context.Context, userID int64, cell int) (*Move, error) {
	var move *Move
	err := e.locks.WithLock(userID, func() error {
		sess, err := e.sessions.Get(userID)
		if err != nil {
			return err
		}
		if sess.Phase != PhaseReveal {
			return ErrWrongPhase
		}
		if cell < 1 || cell > sess.Board.TotalCells() {
			return fmt.Errorf("%w: must be in [1, %d]", ErrInvalidCell, sess.Board.TotalCells())
		}
		for _, c := range sess.Revealed {
			if c == cell {
				return ErrCellAlreadyRevealed
			}
		}

		if sess.Board.IsMine(cell) {
			removed, err := e.sessions.Remove(userID)
			if err != nil {
				return err
			}
			move = &Move{
				Session: removed,
				Cell:    cell,
				Busted:  true,
				Board:   removed.finalView(cell),
			}
			return nil
		}

		err = e.sessions.Update(userID, func(s *Session) {
			s.Revealed = append(s.Revealed, cell)
			s.Multiplier = e.table.Multiplier(s.Board.Mines, len(s.Revealed))
			move = &Move{
				Session:    s,
				Cell:       cell,
				Multiplier: s.Multiplier,
				Board:      s.progressView(),
			}
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return move, nil
}

// CashOut ends the session and credits stake x multiplier / 100, rounded
// down. Allowed at any point in the reveal phase, including before the
// first pick, where the multiplier is still the baseline and the player
// gets exactly the stake back.
func (e *Engine) CashOut(ctx context.Context, userID int64) (*Result, error) {
	var result *Result
	err := e.locks.WithLock(userID, func() error {
		sess, err := e.sessions.Get(userID)
		if err != nil {
			return err
		}
		if sess.Phase != PhaseReveal {
			return ErrWrongPhase
		}
		removed, err := e.sessions.Remove(userID)
		if err != nil {
			return err
		}

		payout := removed.Stake * removed.Multiplier / 100
		p, err := e.ledger.Credit(ctx, userID, payout)
		if err != nil {
			return fmt.Errorf("failed to pay out: %w", err)
		}
		result = &Result{
			Session: removed,
			Payout:  payout,
			Balance: p.Balance,
			Board:   removed.finalView(0),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
