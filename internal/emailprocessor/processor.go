package emailprocessor

import (
	"context"
	"fmt"
	"time"

	imapclient "mail-auto-ticketing/internal/imap"
	"mail-auto-ticketing/internal/logging"
	"mail-auto-ticketing/internal/mailparse"
	"mail-auto-ticketing/internal/models"
	"mail-auto-ticketing/internal/notify"
)

// TicketCreator records a ticket for a normalized message
type TicketCreator interface {
	Create(ctx context.Context, msg models.NormalizedMessage) (*models.Ticket, error)
}

// Notifier confirms a ticket to its sender
type Notifier interface {
	Notify(ctx context.Context, to, subject, ticketID string) notify.Outcome
}

// Result describes what happened to one message
type Result struct {
	UID      uint32
	TicketID string
	Notified bool
	Channel  string
}

type Processor struct {
	imapClient imapclient.Client
	tickets    TicketCreator
	notifier   Notifier
	now        func() time.Time
}

// NewProcessor creates a new Processor working on the given mailbox session
func NewProcessor(imapClient imapclient.Client, tickets TicketCreator, notifier Notifier) *Processor {
	return &Processor{
		imapClient: imapClient,
		tickets:    tickets,
		notifier:   notifier,
		now:        time.Now,
	}
}

// ProcessEmail orchestrates the complete email processing workflow:
// fetch → normalize → create ticket → notify → mark as seen.
// The message is only marked seen once its ticket is stored. A failed
// confirmation is logged and does not keep the message unseen.
func (p *Processor) ProcessEmail(ctx context.Context, uid uint32) (Result, error) {
	result := Result{UID: uid}

	msg, err := p.imapClient.FetchMessage(uid)
	if err != nil {
		return result, err
	}

	email := mailparse.Normalize(msg, p.now())
	locallog := logging.Log.WithField("trace_id", email.TraceID)
	locallog.Infof("Processing message UID %d from %s: %q", uid, email.Sender, email.Subject)

	ticket, err := p.tickets.Create(ctx, email)
	if err != nil {
		locallog.Errorf("Error creating ticket for UID %d: %v", uid, err)
		return result, err
	}
	result.TicketID = ticket.ID
	locallog = locallog.WithField("ticket_id", ticket.ID)
	locallog.Info("Ticket created")

	outcome := p.notifier.Notify(ctx, email.ReplyTo(), email.Subject, ticket.ID)
	result.Notified = outcome.Delivered
	result.Channel = outcome.Channel
	if !outcome.Delivered {
		locallog.Warnf("Ticket %s created but no confirmation could be sent to %s", ticket.ID, email.ReplyTo())
	}

	if err := p.imapClient.MarkSeen(uid); err != nil {
		locallog.Errorf("Error marking message UID %d as seen: %v", uid, err)
		return result, fmt.Errorf("marking UID %d as seen: %w", uid, err)
	}

	return result, nil
}
