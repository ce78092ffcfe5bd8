package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mail-auto-ticketing/internal/ledger"
	"mail-auto-ticketing/internal/models"
)

// IDPrefix starts every ticket identifier
const IDPrefix = "T-"

const idLayout = "20060102150405"

// ErrStore is wrapped by every ledger failure surfaced by the store
var ErrStore = errors.New("ticket store failed")

// Store appends tickets to a ledger and reads them back.
//
// Identifiers carry one-second resolution. Within a Store, tickets minted in
// the same second get a "-2", "-3", ... suffix; two processes (or a restart)
// writing in the same second can still produce the same ID.
type Store struct {
	ledger  ledger.Ledger
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	lastBase string
	seq      int
}

// NewStore creates a Store. A positive timeout bounds every ledger call.
func NewStore(l ledger.Ledger, timeout time.Duration) *Store {
	return &Store{
		ledger:  l,
		timeout: timeout,
		now:     time.Now,
	}
}

// Create appends one Open ticket for the message and returns it
func (s *Store) Create(ctx context.Context, msg models.NormalizedMessage) (*models.Ticket, error) {
	now := s.now()

	ticket := &models.Ticket{
		ID:        s.nextID(now),
		CreatedAt: now.Format(models.TimestampLayout),
		Sender:    msg.Sender,
		Subject:   msg.Subject,
		Status:    models.StatusOpen,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.ledger.Append(ctx, ticket.Row()); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrStore, ticket.ID, err)
	}

	ticket.Fields = fieldsOf(models.LedgerHeader, ticket.Row())
	return ticket, nil
}

// List reads the whole ledger. The first row holds the column names; cells
// missing from short rows are absent from the ticket's Fields.
func (s *Store) List(ctx context.Context) ([]models.Ticket, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.ledger.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing: %v", ErrStore, err)
	}

	if len(rows) < 2 {
		return []models.Ticket{}, nil
	}

	tickets := make([]models.Ticket, 0, len(rows)-1)
	for _, row := range rows[1:] {
		tickets = append(tickets, fromFields(fieldsOf(rows[0], row)))
	}
	return tickets, nil
}

// EnsureHeader writes the header row into a ledger that has no rows at all
func (s *Store) EnsureHeader(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.ledger.Rows(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrStore, err)
	}
	if len(rows) > 0 {
		return nil
	}

	if err := s.ledger.Append(ctx, models.LedgerHeader); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrStore, err)
	}
	return nil
}

func (s *Store) nextID(now time.Time) string {
	base := IDPrefix + now.Format(idLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	if base != s.lastBase {
		s.lastBase = base
		s.seq = 1
		return base
	}
	s.seq++
	return fmt.Sprintf("%s-%d", base, s.seq)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func fieldsOf(header, row []string) map[string]string {
	fields := make(map[string]string, len(row))
	for i, name := range header {
		if i >= len(row) {
			break
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		fields[key] = row[i]
	}
	return fields
}

func fromFields(fields map[string]string) models.Ticket {
	return models.Ticket{
		ID:        fields[strings.ToLower(models.ColumnID)],
		CreatedAt: fields[strings.ToLower(models.ColumnTimestamp)],
		Sender:    fields[strings.ToLower(models.ColumnSender)],
		Subject:   fields[strings.ToLower(models.ColumnSubject)],
		Status:    fields[strings.ToLower(models.ColumnStatus)],
		Fields:    fields,
	}
}
