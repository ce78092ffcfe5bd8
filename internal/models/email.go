package models

import "time"

// MailMessage is a raw message fetched from the mailbox for one poll cycle
type MailMessage struct {
	UID          uint32
	RawHeaders   []byte
	RawBody      []byte
	InternalDate time.Time
}

// NormalizedMessage is the canonical view of a mail message used to open a ticket
type NormalizedMessage struct {
	Timestamp     time.Time
	Sender        string
	SenderAddress string
	Subject       string
	TraceID       string
}

// ReplyTo returns the address a confirmation should be sent to
func (m NormalizedMessage) ReplyTo() string {
	if m.SenderAddress != "" {
		return m.SenderAddress
	}
	return m.Sender
}
