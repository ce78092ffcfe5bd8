package imap

import (
	"errors"
	"fmt"

	"mail-auto-ticketing/internal/models"
)

var (
	ErrConnection = errors.New("mailbox connection failed")
	ErrAuth       = errors.New("mailbox authentication failed")
	ErrFetch      = errors.New("mailbox fetch failed")
)

type Client interface {
	Connect(server string) error
	Login(user, password string) error
	SelectMailbox(name string) error
	ListUnseenUIDs() ([]uint32, error)
	FetchMessage(uid uint32) (*models.MailMessage, error)
	MarkSeen(uid uint32) error
	Close() error
}

// Open connects, authenticates and selects the monitored folder. When login or
// folder selection fails the connection is closed before returning.
func Open(c Client, cfg models.MailboxConfig) error {
	if err := c.Connect(cfg.Server); err != nil {
		return err
	}

	if err := c.Login(cfg.Address, cfg.Password); err != nil {
		_ = c.Close()
		return err
	}

	if err := c.SelectMailbox(cfg.Folder); err != nil {
		_ = c.Close()
		return fmt.Errorf("%w: selecting %s: %v", ErrConnection, cfg.Folder, err)
	}

	return nil
}
