package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mail-auto-ticketing/internal/logging"

	"github.com/sirupsen/logrus"
)

var (
	// ErrChannel is wrapped by every failed delivery attempt
	ErrChannel = errors.New("notification channel failed")
	// ErrNotConfigured is returned by channel constructors when a required
	// credential or setting is absent
	ErrNotConfigured = errors.New("notification channel not configured")
)

// Channel delivers a confirmation through one transport
type Channel interface {
	Name() string
	Send(ctx context.Context, to string, c Confirmation) error
}

// Attempt records the outcome of one channel
type Attempt struct {
	Channel string
	Err     error
}

// Outcome is the result of a dispatch. Delivered is false when every channel failed.
type Outcome struct {
	Delivered bool
	Channel   string
	Attempts  []Attempt
}

// Dispatcher tries its channels in order until one delivers
type Dispatcher struct {
	channels       []Channel
	supportAddress string
	timeout        time.Duration
}

// NewDispatcher keeps the channels in the given priority order. Nil channels are dropped.
func NewDispatcher(supportAddress string, timeout time.Duration, channels ...Channel) *Dispatcher {
	d := &Dispatcher{
		supportAddress: supportAddress,
		timeout:        timeout,
	}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// Channels returns the names of the configured channels in priority order
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// Notify confirms receipt of a ticket to the sender. It never panics; failure
// of every channel is reported through Outcome.Delivered.
func (d *Dispatcher) Notify(ctx context.Context, to, subject, ticketID string) Outcome {
	locallog := logging.Log.WithFields(logrus.Fields{"ticket_id": ticketID, "to": to})

	confirmation, err := RenderConfirmation(subject, ticketID, d.supportAddress)
	if err != nil {
		locallog.WithError(err).Error("Could not render confirmation")
		return Outcome{}
	}

	var outcome Outcome
	for _, ch := range d.channels {
		err := d.attempt(ctx, ch, to, confirmation)
		outcome.Attempts = append(outcome.Attempts, Attempt{Channel: ch.Name(), Err: err})

		if err == nil {
			locallog.Infof("Confirmation sent via %s", ch.Name())
			outcome.Delivered = true
			outcome.Channel = ch.Name()
			return outcome
		}
		locallog.WithError(err).Warnf("Channel %s failed, trying next", ch.Name())
	}

	locallog.Errorf("All %d notification channels failed", len(d.channels))
	return outcome
}

func (d *Dispatcher) attempt(ctx context.Context, ch Channel, to string, c Confirmation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrChannel, ch.Name(), r)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := ch.Send(ctx, to, c); err != nil {
		if errors.Is(err, ErrChannel) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrChannel, ch.Name(), err)
	}
	return nil
}
