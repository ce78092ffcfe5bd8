package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteLedger stores rows in a local SQLite database, one table name per ledger
type SQLiteLedger struct {
	db    *sqlx.DB
	table string
}

type ledgerRow struct {
	A sql.NullString `db:"col_a"`
	B sql.NullString `db:"col_b"`
	C sql.NullString `db:"col_c"`
	D sql.NullString `db:"col_d"`
	E sql.NullString `db:"col_e"`
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_rows (
	seq   INTEGER PRIMARY KEY AUTOINCREMENT,
	tbl   TEXT NOT NULL,
	col_a TEXT,
	col_b TEXT,
	col_c TEXT,
	col_d TEXT,
	col_e TEXT
);

CREATE INDEX IF NOT EXISTS idx_ledger_rows_tbl ON ledger_rows (tbl, seq);
`

// NewSQLiteLedger opens (or creates) the database at the given path
func NewSQLiteLedger(dbPath, table string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Dashboards read while the poller appends.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteLedger{db: db, table: table}, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) Append(ctx context.Context, row []string) error {
	if len(row) > Width {
		return fmt.Errorf("row has %d cells, ledger holds %d", len(row), Width)
	}

	cells := make([]sql.NullString, Width)
	for i, v := range row {
		cells[i] = sql.NullString{String: v, Valid: true}
	}

	_, err := l.db.NamedExecContext(ctx, `
INSERT INTO ledger_rows (tbl, col_a, col_b, col_c, col_d, col_e)
VALUES (:tbl, :col_a, :col_b, :col_c, :col_d, :col_e)`,
		map[string]interface{}{
			"tbl":   l.table,
			"col_a": cells[0],
			"col_b": cells[1],
			"col_c": cells[2],
			"col_d": cells[3],
			"col_e": cells[4],
		})
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) Rows(ctx context.Context) ([][]string, error) {
	var stored []ledgerRow
	err := l.db.SelectContext(ctx, &stored, `
SELECT col_a, col_b, col_c, col_d, col_e
FROM ledger_rows
WHERE tbl = ?
ORDER BY seq`, l.table)
	if err != nil {
		return nil, fmt.Errorf("read ledger rows: %w", err)
	}

	rows := make([][]string, 0, len(stored))
	for _, r := range stored {
		rows = append(rows, r.cells())
	}
	return rows, nil
}

// cells returns the row up to its last non-NULL cell
func (r ledgerRow) cells() []string {
	all := []sql.NullString{r.A, r.B, r.C, r.D, r.E}
	n := len(all)
	for n > 0 && !all[n-1].Valid {
		n--
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].String
	}
	return out
}
