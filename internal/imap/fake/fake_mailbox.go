package fake

import (
	"fmt"
	"sort"
	"sync"

	"mail-auto-ticketing/internal/imap"
	"mail-auto-ticketing/internal/models"
)

// Mailbox is an in-memory mailbox shared by the clients it hands out. Each Client
// is one session, mirroring a real IMAP connection.
type Mailbox struct {
	mu       sync.Mutex
	messages map[uint32]*entry
	nextUID  uint32

	Password   string
	Folder     string
	ConnectErr error
	FetchErr   map[uint32]error

	sessions int
	open     int
}

type entry struct {
	raw  []byte
	seen bool
}

// NewMailbox creates an empty mailbox accepting the given password for the INBOX folder
func NewMailbox(password string) *Mailbox {
	return &Mailbox{
		messages: make(map[uint32]*entry),
		nextUID:  1,
		Password: password,
		Folder:   "INBOX",
		FetchErr: make(map[uint32]error),
	}
}

// Deliver adds an unread message and returns its UID
func (m *Mailbox) Deliver(raw string) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	uid := m.nextUID
	m.nextUID++
	m.messages[uid] = &entry{raw: []byte(raw)}
	return uid
}

// Delete removes a message, as another mail client would
func (m *Mailbox) Delete(uid uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, uid)
}

// Seen reports whether the message carries the \Seen flag
func (m *Mailbox) Seen(uid uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.messages[uid]
	return ok && e.seen
}

// Sessions returns how many sessions were opened so far
func (m *Mailbox) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions
}

// OpenSessions returns how many sessions have not been closed
func (m *Mailbox) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// NewClient returns a new session against the mailbox
func (m *Mailbox) NewClient() imap.Client {
	return &Client{mailbox: m}
}

// Client is one session against a Mailbox
type Client struct {
	mailbox   *Mailbox
	connected bool
	loggedIn  bool
	selected  bool
}

func (c *Client) Connect(server string) error {
	m := c.mailbox
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ConnectErr != nil {
		return fmt.Errorf("%w: %s: %v", imap.ErrConnection, server, m.ConnectErr)
	}
	c.connected = true
	m.sessions++
	m.open++
	return nil
}

func (c *Client) Login(user, password string) error {
	if !c.connected {
		return imap.ErrConnection
	}
	if password != c.mailbox.Password {
		return fmt.Errorf("%w for %s", imap.ErrAuth, user)
	}
	c.loggedIn = true
	return nil
}

func (c *Client) SelectMailbox(name string) error {
	if !c.loggedIn {
		return fmt.Errorf("not logged in")
	}
	if name != c.mailbox.Folder {
		return fmt.Errorf("no such mailbox %s", name)
	}
	c.selected = true
	return nil
}

func (c *Client) ListUnseenUIDs() ([]uint32, error) {
	if !c.selected {
		return nil, imap.ErrConnection
	}

	m := c.mailbox
	m.mu.Lock()
	defer m.mu.Unlock()

	var uids []uint32
	for uid, e := range m.messages {
		if !e.seen {
			uids = append(uids, uid)
		}
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

func (c *Client) FetchMessage(uid uint32) (*models.MailMessage, error) {
	if !c.selected {
		return nil, imap.ErrConnection
	}

	m := c.mailbox
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FetchErr[uid]; err != nil {
		return nil, fmt.Errorf("%w: UID %d: %v", imap.ErrFetch, uid, err)
	}
	e, ok := m.messages[uid]
	if !ok {
		return nil, fmt.Errorf("%w: no message retrieved for UID %d", imap.ErrFetch, uid)
	}

	return imap.ParseRaw(uid, e.raw), nil
}

func (c *Client) MarkSeen(uid uint32) error {
	if !c.selected {
		return imap.ErrConnection
	}

	m := c.mailbox
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.messages[uid]; ok {
		e.seen = true
	}
	return nil
}

func (c *Client) Close() error {
	if !c.connected {
		return nil
	}

	m := c.mailbox
	m.mu.Lock()
	defer m.mu.Unlock()

	c.connected, c.loggedIn, c.selected = false, false, false
	m.open--
	return nil
}
