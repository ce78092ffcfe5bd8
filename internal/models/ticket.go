package models

// Ledger column headers, in row order
const (
	ColumnID        = "ID"
	ColumnTimestamp = "Timestamp"
	ColumnSender    = "Sender"
	ColumnSubject   = "Subject"
	ColumnStatus    = "Status"
)

// LedgerHeader is the header row every ledger table starts with
var LedgerHeader = []string{ColumnID, ColumnTimestamp, ColumnSender, ColumnSubject, ColumnStatus}

const (
	StatusOpen   = "Open"
	StatusClosed = "Closed"
)

// TimestampLayout is the layout of the Timestamp column
const TimestampLayout = "2006-01-02 15:04:05"

// Ticket is one row of the ledger. Fields holds every populated cell keyed by the
// lower-cased column header; cells missing from a short row are absent from Fields.
type Ticket struct {
	ID        string
	CreatedAt string
	Sender    string
	Subject   string
	Status    string
	Fields    map[string]string
}

// Get returns the value of a column by its lower-cased header name
func (t Ticket) Get(field string) (string, bool) {
	v, ok := t.Fields[field]
	return v, ok
}

// Row returns the ticket as a ledger row
func (t Ticket) Row() []string {
	return []string{t.ID, t.CreatedAt, t.Sender, t.Subject, t.Status}
}
