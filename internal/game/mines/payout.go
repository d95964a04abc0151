package mines

import (
	"fmt"
	"sort"
)

// Baseline is the multiplier before any safe reveal, in hundredths
// (100 = 1.00x). Cashing out immediately returns exactly the stake.
const Baseline int64 = 100

// Table maps the number of safe reveals to a payout multiplier. All values
// are in hundredths; the stored integers are the authoritative odds and
// floats only appear when formatting them for display.
//
// A row is indexed by safe reveals: row[0] after the first safe reveal,
// row[1] after the second, and so on. Reveals past the end of a row keep
// the last value.
type Table struct {
	defaultRow []int64
	rows       map[int][]int64
}

// NewTable builds a payout table from a default row and optional
// per-mine-count override rows. Every row must be non-empty, start at or
// above Baseline and be non-decreasing, so revealing another safe cell can
// never lower the payout.
func NewTable(defaultRow []int64, rows map[int][]int64) (*Table, error) {
	if err := validateRow("default", defaultRow); err != nil {
		return nil, err
	}
	for count, row := range rows {
		if err := validateRow(fmt.Sprintf("%d mines", count), row); err != nil {
			return nil, err
		}
	}
	return &Table{defaultRow: defaultRow, rows: rows}, nil
}

func validateRow(name string, row []int64) error {
	if len(row) == 0 {
		return fmt.Errorf("payout row %s is empty", name)
	}
	prev := Baseline
	for i, m := range row {
		if m < prev {
			return fmt.Errorf("payout row %s not monotonic at index %d: %d after %d", name, i, m, prev)
		}
		prev = m
	}
	return nil
}

// Multiplier returns the multiplier in hundredths for the given mine count
// after safeReveals safe cells. Zero reveals is the Baseline.
func (t *Table) Multiplier(mineCount, safeReveals int) int64 {
	if safeReveals <= 0 {
		return Baseline
	}
	row := t.defaultRow
	if custom, ok := t.rows[mineCount]; ok {
		row = custom
	}
	i := safeReveals - 1
	if i >= len(row) {
		i = len(row) - 1
	}
	return row[i]
}

// MineCounts returns the mine counts with override rows, sorted ascending.
func (t *Table) MineCounts() []int {
	counts := make([]int, 0, len(t.rows))
	for c := range t.rows {
		counts = append(counts, c)
	}
	sort.Ints(counts)
	return counts
}

// FormatMultiplier renders a hundredths multiplier for display, e.g.
// 125 -> "1.25".
func FormatMultiplier(m int64) string {
	return fmt.Sprintf("%d.%02d", m/100, m%100)
}
