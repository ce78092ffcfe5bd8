package ledger

import (
	"context"
	"fmt"

	"mail-auto-ticketing/internal/models"
)

// Width is the number of columns a ledger row may hold (A:E)
const Width = 5

// Ledger is an append-only table of rows addressed by column position. Rows read
// back may be shorter than the header row.
type Ledger interface {
	Append(ctx context.Context, row []string) error
	Rows(ctx context.Context) ([][]string, error)
}

// Open builds the ledger backend selected in the configuration
func Open(ctx context.Context, cfg models.LedgerConfig) (Ledger, error) {
	switch cfg.Backend {
	case models.LedgerSheets:
		l, err := NewSheetsLedger(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	case models.LedgerSQLite:
		l, err := NewSQLiteLedger(cfg.Path, cfg.Table)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
