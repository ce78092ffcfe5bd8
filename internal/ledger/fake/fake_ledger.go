package fake

import (
	"context"
	"sync"
)

// Ledger is an in-memory ledger. AppendErr and RowsErr simulate service failures.
type Ledger struct {
	mu   sync.Mutex
	rows [][]string

	AppendErr error
	RowsErr   error
	Appends   int
}

// NewLedger creates a ledger holding a copy of the given rows
func NewLedger(rows ...[]string) *Ledger {
	l := &Ledger{}
	for _, r := range rows {
		l.rows = append(l.rows, append([]string(nil), r...))
	}
	return l
}

func (l *Ledger) Append(_ context.Context, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.AppendErr != nil {
		return l.AppendErr
	}
	l.rows = append(l.rows, append([]string(nil), row...))
	l.Appends++
	return nil
}

func (l *Ledger) Rows(_ context.Context) ([][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.RowsErr != nil {
		return nil, l.RowsErr
	}

	out := make([][]string, len(l.rows))
	for i, r := range l.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}
