package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mail-auto-ticketing/internal/emailprocessor"
	imapclient "mail-auto-ticketing/internal/imap"
	"mail-auto-ticketing/internal/logging"
	"mail-auto-ticketing/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	// FailureThreshold is the number of consecutive connection failures before backoff starts
	FailureThreshold = 5
	backoffBase      = 5 * time.Minute
	backoffMax       = 30 * time.Minute
)

// State is the lifecycle phase of the poller
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateProcessing
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateProcessing:
		return "processing"
	case StateSleeping:
		return "sleeping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// CycleReport summarizes one polling cycle
type CycleReport struct {
	Listed   int
	Ticketed int
	Notified int
	Failed   int
	Err      error
}

// ClientFactory opens a fresh mailbox session for each cycle
type ClientFactory func() imapclient.Client

type Poller struct {
	mailbox   models.MailboxConfig
	poll      models.PollConfig
	newClient ClientFactory
	tickets   emailprocessor.TicketCreator
	notifier  emailprocessor.Notifier
	sleeper   Sleeper

	state atomic.Int32

	mu       sync.Mutex
	failures int
}

// Option customizes a Poller
type Option func(*Poller)

// WithSleeper replaces the timer used between cycles
func WithSleeper(s Sleeper) Option {
	return func(p *Poller) { p.sleeper = s }
}

// New creates a poller for the configured mailbox
func New(mailbox models.MailboxConfig, poll models.PollConfig, newClient ClientFactory,
	tickets emailprocessor.TicketCreator, notifier emailprocessor.Notifier, opts ...Option) *Poller {
	p := &Poller{
		mailbox:   mailbox,
		poll:      poll,
		newClient: newClient,
		tickets:   tickets,
		notifier:  notifier,
		sleeper:   TimerSleeper{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle phase
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// Run polls until ctx is cancelled. Cancellation is only observed between cycles:
// a cycle in flight always runs to completion. Run returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	logging.Log.Infof("Starting mailbox polling of %s/%s, refresh every %s", p.mailbox.Server, p.mailbox.Folder, p.poll.Interval)

	for {
		if err := ctx.Err(); err != nil {
			p.setState(StateIdle)
			return err
		}

		report := p.safeCycle(context.WithoutCancel(ctx))

		p.setState(StateSleeping)
		if err := p.sleeper.Sleep(ctx, p.nextSleep(report)); err != nil {
			p.setState(StateIdle)
			logging.Log.Info("Mailbox polling stopped")
			return err
		}
		p.setState(StateIdle)
	}
}

func (p *Poller) safeCycle(ctx context.Context) (report CycleReport) {
	defer func() {
		if r := recover(); r != nil {
			logging.Log.Errorf("Recovered from panic in polling cycle: %v", r)
			report.Err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return p.RunCycle(ctx)
}

// RunCycle opens a mailbox session, processes every unseen message in listing
// order and closes the session. Per-message failures do not stop the cycle.
func (p *Poller) RunCycle(ctx context.Context) CycleReport {
	var report CycleReport
	defer p.setState(StateIdle)
	p.setState(StateFetching)

	client := p.newClient()
	if err := imapclient.Open(client, p.mailbox); err != nil {
		p.connectionFailed(err)
		report.Err = err
		return report
	}
	defer func() {
		_ = client.Close()
	}()
	p.connectionSucceeded()

	uids, err := client.ListUnseenUIDs()
	if err != nil {
		logging.Log.Errorf("Error searching for unseen emails: %v", err)
		report.Err = err
		return report
	}
	report.Listed = len(uids)
	if len(uids) == 0 {
		logging.Log.Debug("No unseen messages")
		return report
	}

	p.setState(StateProcessing)
	processor := emailprocessor.NewProcessor(client, p.tickets, p.notifier)

	for _, uid := range uids {
		result, err := processOne(ctx, processor, uid)
		if result.TicketID != "" {
			report.Ticketed++
		}
		if result.Notified {
			report.Notified++
		}
		if err != nil {
			report.Failed++
			logging.Log.WithField("uid", uid).Errorf("Error processing email UID %d: %v", uid, err)
		}
	}

	logging.Log.WithFields(logrus.Fields{
		"listed":   report.Listed,
		"ticketed": report.Ticketed,
		"notified": report.Notified,
		"failed":   report.Failed,
	}).Info("Polling cycle complete")
	return report
}

func processOne(ctx context.Context, processor *emailprocessor.Processor, uid uint32) (result emailprocessor.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing UID %d panicked: %v", uid, r)
		}
	}()
	return processor.ProcessEmail(ctx, uid)
}

func (p *Poller) connectionFailed(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if errors.Is(err, imapclient.ErrAuth) {
		logging.Log.Errorf("Login error: %v", err)
		return
	}
	p.failures++
	logging.Log.Errorf("IMAP connection error: %v", err)
}

func (p *Poller) connectionSucceeded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
}

// ConsecutiveFailures returns the number of connection failures since the last successful session
func (p *Poller) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// nextSleep returns the poll interval, stretched by an exponential backoff once the
// mailbox has been unreachable FailureThreshold times in a row.
func (p *Poller) nextSleep(report CycleReport) time.Duration {
	interval := p.poll.Interval
	if report.Err == nil || !p.poll.BackoffEnabled() {
		return interval
	}

	failures := p.ConsecutiveFailures()
	if failures < FailureThreshold {
		return interval
	}

	backoff := Backoff(failures)
	logging.Log.Warnf("IMAP failed %d times, waiting %s before next attempt", failures, backoff)
	if backoff < interval {
		return interval
	}
	return backoff
}

// Backoff returns the wait after the given number of consecutive failures:
// 5 minutes at the threshold, doubling each time, capped at 30 minutes.
func Backoff(failures int) time.Duration {
	if failures < FailureThreshold {
		return 0
	}
	n := failures - FailureThreshold
	if n > 10 {
		n = 10
	}
	backoff := backoffBase * time.Duration(1<<n)
	if backoff > backoffMax {
		backoff = backoffMax
	}
	return backoff
}
