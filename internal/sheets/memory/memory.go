package memory

import (
	"context"
	"sync"

	"finboard/internal/core"
	ports "finboard/internal/sheets"
)

var _ ports.LedgerWriter = (*Ledger)(nil)

// Ledger keeps ledger rows in insertion order, like a sheet would.
type Ledger struct {
	mu   sync.Mutex
	rows [][]string
}

func New() *Ledger {
	return &Ledger{}
}

// Upsert replaces the row with the same ID or appends a new one.
func (l *Ledger) Upsert(_ context.Context, userID string, tx core.Transaction) error {
	row := ports.LedgerRow(userID, tx)
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.find(tx.ID); i >= 0 {
		l.rows[i] = row
		return nil
	}
	l.rows = append(l.rows, row)
	return nil
}

// Remove deletes the row with txID. Unknown IDs are ignored.
func (l *Ledger) Remove(_ context.Context, txID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.find(txID); i >= 0 {
		l.rows = append(l.rows[:i], l.rows[i+1:]...)
	}
	return nil
}

// Rows returns a copy of the current rows.
func (l *Ledger) Rows() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]string, len(l.rows))
	for i, r := range l.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (l *Ledger) find(id string) int {
	for i, r := range l.rows {
		if r[0] == id {
			return i
		}
	}
	return -1
}
