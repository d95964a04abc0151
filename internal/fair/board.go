package fair

import (
	"fmt"
	"math/rand/v2"
)

// Cell markers in the canonical board string. The mine marker is the
// Cyrillic letter М — it is what players historically verified pre-images
// against, so it stays even though it looks like an ASCII M.
const (
	SafeMarker = '0'
	MineMarker = 'М'
)

// Board is an N×N mines grid fixed at generation time.
type Board struct {
	Size  int
	Mines int
	cells []bool // true = mine, row-major
}

// NewBoard places mines uniformly at random without replacement on a
// size×size grid, by rejection sampling. mines must be less than size²
// or placement could never terminate.
func NewBoard(size, mines int) (*Board, error) {
	if size < 2 {
		return nil, fmt.Errorf("board size must be at least 2, got %d", size)
	}
	total := size * size
	if mines < 1 || mines >= total {
		return nil, fmt.Errorf("mine count must be in [1, %d], got %d", total-1, mines)
	}

	b := &Board{
		Size:  size,
		Mines: mines,
		cells: make([]bool, total),
	}
	placed := 0
	for placed < mines {
		i := rand.IntN(total)
		if b.cells[i] {
			continue
		}
		b.cells[i] = true
		placed++
	}
	return b, nil
}

// TotalCells returns the number of cells on the board.
func (b *Board) TotalCells() int {
	return b.Size * b.Size
}

// IsMine reports whether the 1-based cell index holds a mine.
// The index must be in [1, TotalCells].
func (b *Board) IsMine(cell int) bool {
	return b.cells[cell-1]
}

// Plain returns the canonical row-major string form of the board:
// SafeMarker for safe cells, MineMarker for mines. This string is the
// committed outcome representation.
func (b *Board) Plain() string {
	out := make([]rune, 0, len(b.cells))
	for _, mine := range b.cells {
		if mine {
			out = append(out, MineMarker)
		} else {
			out = append(out, SafeMarker)
		}
	}
	return string(out)
}

// BoardMaterial builds the pre-image for a mines commitment:
// "<plain>|<padding>".
func BoardMaterial(b *Board, padding string) string {
	return fmt.Sprintf("%s|%s", b.Plain(), padding)
}
