package ledger

import (
	"context"
	"fmt"
	"strings"

	"mail-auto-ticketing/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsLedger stores rows in a Google Sheets tab
type SheetsLedger struct {
	svc     *sheets.Service
	sheetID string
	rng     string
}

// NewSheetsLedger authenticates with the service account file. Extra options are
// appended after the credentials, which lets tests point the client elsewhere.
func NewSheetsLedger(ctx context.Context, cfg models.LedgerConfig, opts ...option.ClientOption) (*SheetsLedger, error) {
	base := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.ServiceAccountFile != "" {
		base = append(base, option.WithCredentialsFile(cfg.ServiceAccountFile))
	}

	svc, err := sheets.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsLedger{
		svc:     svc,
		sheetID: cfg.SheetID,
		rng:     sheetRange(cfg.Table),
	}, nil
}

// sheetRange quotes the tab name for A1 notation, e.g. 'Ticket Log'!A:E
func sheetRange(table string) string {
	return "'" + strings.ReplaceAll(table, "'", "''") + "'!A:E"
}

func (l *SheetsLedger) Append(ctx context.Context, row []string) error {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}

	_, err := l.svc.Spreadsheets.Values.
		Append(l.sheetID, l.rng, &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", l.sheetID, err)
	}
	return nil
}

func (l *SheetsLedger) Rows(ctx context.Context) ([][]string, error) {
	resp, err := l.svc.Spreadsheets.Values.Get(l.sheetID, l.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", l.sheetID, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
