package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/TruWeaveTrader/statarb/internal/models"
)

var (
	ErrNoSuchPosition = errors.New("no such position")
	ErrPositionExists = errors.New("position already open")
)

// Ledger tracks at most one open position per pair.
// It is owned by a single simulator and is not safe for concurrent use.
type Ledger struct {
	positions map[string]*models.Position
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{positions: make(map[string]*models.Position)}
}

// Open records a new position for a pair
func (l *Ledger) Open(pairID string, pos *models.Position) error {
	if pos == nil {
		return fmt.Errorf("nil position for %s", pairID)
	}
	if _, exists := l.positions[pairID]; exists {
		return fmt.Errorf("%w: %s", ErrPositionExists, pairID)
	}
	l.positions[pairID] = pos
	return nil
}

// Close removes and returns the position of a pair
func (l *Ledger) Close(pairID string) (*models.Position, error) {
	pos, exists := l.positions[pairID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPosition, pairID)
	}
	delete(l.positions, pairID)
	return pos, nil
}

// Get returns the open position of a pair, or nil
func (l *Ledger) Get(pairID string) *models.Position {
	return l.positions[pairID]
}

// Len returns the number of open positions
func (l *Ledger) Len() int {
	return len(l.positions)
}

// Snapshot returns copies of the open positions ordered by pair id
func (l *Ledger) Snapshot() []models.Position {
	out := make([]models.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pair.ID() < out[j].Pair.ID()
	})
	return out
}

// Verify checks that every entry is keyed by its own pair id
func (l *Ledger) Verify() error {
	for id, pos := range l.positions {
		if pos.Pair.ID() != id {
			return fmt.Errorf("ledger key %s holds position for %s", id, pos.Pair.ID())
		}
	}
	return nil
}
