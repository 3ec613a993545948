// Package rewards holds the static weighted catalog of grantable rewards.
package rewards

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
)

var (
	ErrEmptyTable    = errors.New("reward table has no entries")
	ErrInvalidWeight = errors.New("reward weight must be positive")
	ErrMissingID     = errors.New("reward id is required")
)

// Entry is a single grantable reward and its relative weight.
type Entry struct {
	RewardID string
	Weight   int64
}

// Table is an immutable weighted catalog. It is safe for concurrent use.
type Table struct {
	entries []Entry
	total   int64
	draw    func(n int64) int64
}

// Option configures a Table.
type Option func(*Table)

// WithDraw replaces the uniform draw used by Sample. draw(n) must return a
// value in [0, n).
func WithDraw(draw func(n int64) int64) Option {
	return func(t *Table) {
		t.draw = draw
	}
}

// NewTable validates the entries and returns a table ready for sampling.
func NewTable(entries []Entry, opts ...Option) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyTable
	}

	copied := make([]Entry, len(entries))
	var total int64
	for i, e := range entries {
		if e.RewardID == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrMissingID)
		}
		if e.Weight <= 0 {
			return nil, fmt.Errorf("reward %s: %w", e.RewardID, ErrInvalidWeight)
		}
		total += e.Weight
		copied[i] = e
	}

	t := &Table{entries: copied, total: total, draw: cryptoDraw}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Entries returns a copy of the table entries in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// TotalWeight returns the sum of all entry weights.
func (t *Table) TotalWeight() int64 {
	return t.total
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Sample picks a reward with probability weight/TotalWeight.
func (t *Table) Sample() string {
	return t.SampleAt(t.draw(t.total))
}

// SampleAt maps a draw r in [0, TotalWeight) onto an entry by walking the
// cumulative weights. Draws outside that range clamp to the first or last
// entry, so SampleAt always returns an id from the table.
func (t *Table) SampleAt(r int64) string {
	if r < 0 {
		return t.entries[0].RewardID
	}
	var cum int64
	for _, e := range t.entries {
		cum += e.Weight
		if r < cum {
			return e.RewardID
		}
	}
	return t.entries[len(t.entries)-1].RewardID
}

// cryptoDraw draws from crypto/rand and falls back to math/rand/v2 if the
// system RNG fails.
func cryptoDraw(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return mrand.Int64N(n)
	}
	return v.Int64()
}
