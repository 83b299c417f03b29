package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"concertlog/api/internal/metrics"
)

const (
	KindWelcome      = "welcome"
	KindCancellation = "cancellation"
)

// WelcomeMessage and CancellationMessage build the two lifecycle emails.
func WelcomeMessage(email, name string) Message {
	return Message{
		To:      email,
		ToName:  name,
		Subject: "Thanks for joining in!",
		Text:    fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name),
	}
}

func CancellationMessage(email, name string) Message {
	return Message{
		To:      email,
		ToName:  name,
		Subject: "Sorry to see you go!",
		Text:    fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name),
	}
}

// Dispatcher sends emails on background goroutines. Failures are logged and
// counted, never retried and never returned to the caller.
type Dispatcher struct {
	mailer  Mailer
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(mailer Mailer, log zerolog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		mailer:  mailer,
		log:     log.With().Str("component", "notify").Logger(),
		timeout: timeout,
	}
}

func (d *Dispatcher) Welcome(email, name string) {
	d.dispatch(KindWelcome, WelcomeMessage(email, name))
}

func (d *Dispatcher) Cancellation(email, name string) {
	d.dispatch(KindCancellation, CancellationMessage(email, name))
}

func (d *Dispatcher) dispatch(kind string, msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.mailer.Send(ctx, msg); err != nil {
			metrics.EmailsTotal.WithLabelValues(kind, "failed").Inc()
			d.log.Error().Err(err).Str("kind", kind).Str("to", msg.To).Msg("email send failed")
			return
		}
		metrics.EmailsTotal.WithLabelValues(kind, "sent").Inc()
		d.log.Debug().Str("kind", kind).Str("to", msg.To).Msg("email sent")
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
