package imap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"mail-auto-ticketing/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

var errNotConnected = fmt.Errorf("%w: not connected", ErrConnection)

type StandardClient struct {
	client  *client.Client
	timeout time.Duration
}

// NewStandardClient creates a new StandardClient. A zero timeout falls back to 30 seconds.
func NewStandardClient(timeout time.Duration) *StandardClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StandardClient{
		timeout: timeout,
	}
}

// Connect establishes a secure connection to the IMAP server using TLS.
func (c *StandardClient) Connect(server string) error {
	cl, err := client.DialTLS(server, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnection, server, err)
	}
	cl.Timeout = c.timeout
	c.client = cl
	return nil
}

// Login authenticates with the mailbox address and application password.
func (c *StandardClient) Login(user, password string) error {
	if c.client == nil {
		return errNotConnected
	}
	if err := c.client.Login(user, password); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrAuth, user, err)
	}
	return nil
}

// SelectMailbox selects the monitored folder read-write so flags can be stored.
func (c *StandardClient) SelectMailbox(name string) error {
	if c.client == nil {
		return errNotConnected
	}
	_, err := c.client.Select(name, false)
	return err
}

// ListUnseenUIDs returns the UIDs of every message without the \Seen flag.
func (c *StandardClient) ListUnseenUIDs() ([]uint32, error) {
	if c.client == nil {
		return nil, errNotConnected
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: searching for unseen emails: %v", ErrConnection, err)
	}

	return uids, nil
}

// FetchMessage retrieves the full message for the UID without setting \Seen.
// A message that disappeared since the search yields ErrFetch.
func (c *StandardClient) FetchMessage(uid uint32) (*models.MailMessage, error) {
	if c.client == nil {
		return nil, errNotConnected
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: UID %d: %v", ErrFetch, uid, err)
	}

	if msg == nil {
		return nil, fmt.Errorf("%w: no message retrieved for UID %d", ErrFetch, uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("%w: empty body for UID %d", ErrFetch, uid)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading UID %d: %v", ErrFetch, uid, err)
	}

	mailMsg := ParseRaw(uid, raw)
	mailMsg.InternalDate = msg.InternalDate
	return mailMsg, nil
}

// MarkSeen adds the \Seen flag. Storing a flag that is already set is a no-op.
func (c *StandardClient) MarkSeen(uid uint32) error {
	if c.client == nil {
		return errNotConnected
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := c.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("marking UID %d as seen: %w", uid, err)
	}
	return nil
}

// Close logs out from the IMAP server. If there is no active connection, it simply returns nil.
func (c *StandardClient) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	if errors.Is(err, client.ErrAlreadyLoggedOut) {
		return nil
	}
	return err
}

// ParseRaw splits a raw RFC 5322 message into its header block and body at the
// first empty line. A message without an empty line is kept whole as headers.
func ParseRaw(uid uint32, raw []byte) *models.MailMessage {
	end, sepLen := -1, 0
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if i := bytes.Index(raw, sep); i >= 0 && (end < 0 || i < end) {
			end, sepLen = i, len(sep)
		}
	}

	switch {
	case bytes.HasPrefix(raw, []byte("\r\n")):
		return &models.MailMessage{UID: uid, RawBody: raw[2:]}
	case bytes.HasPrefix(raw, []byte("\n")):
		return &models.MailMessage{UID: uid, RawBody: raw[1:]}
	case end < 0:
		return &models.MailMessage{UID: uid, RawHeaders: raw}
	}

	// Keep the line break that terminates the last header field.
	headerEnd := end + sepLen/2
	return &models.MailMessage{
		UID:        uid,
		RawHeaders: raw[:headerEnd],
		RawBody:    raw[end+sepLen:],
	}
}
