package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/billo/billo/internal/metrics"
	"github.com/billo/billo/internal/models"
)

// UserLookup resolves recipients. storage.Store satisfies it.
type UserLookup interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// Event asks for kind to be sent about settlement to each recipient.
type Event struct {
	ID         string
	Kind       Kind
	Settlement models.Settlement
	Recipients []string
	CreatedAt  time.Time
}

// Options tune a Dispatcher.
type Options struct {
	BufferSize  int
	AppURL      string
	SendTimeout time.Duration
}

// Dispatcher sends notification events from a buffered queue on a single
// background goroutine. A nil *Dispatcher accepts and drops everything.
type Dispatcher struct {
	eventCh chan Event
	users   UserLookup
	sender  Sender
	metrics *metrics.Metrics
	opts    Options

	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(users UserLookup, sender Sender, m *metrics.Metrics, opts Options) *Dispatcher {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		eventCh: make(chan Event, opts.BufferSize),
		users:   users,
		sender:  sender,
		metrics: m,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.ctx.Done():
				slog.Info("Draining notifications before shutdown", "remaining", len(d.eventCh))
				for len(d.eventCh) > 0 {
					d.deliver(context.Background(), <-d.eventCh)
				}
				return
			case ev := <-d.eventCh:
				d.deliver(context.Background(), ev)
			}
		}
	}()
}

// Enqueue queues kind for the given recipients. It never blocks: when the
// queue is full the event is dropped and logged.
func (d *Dispatcher) Enqueue(kind Kind, s models.Settlement, recipients ...string) {
	if d == nil || len(recipients) == 0 {
		return
	}

	ev := Event{
		ID:         ulid.Make().String(),
		Kind:       kind,
		Settlement: s,
		Recipients: recipients,
		CreatedAt:  time.Now().UTC(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		slog.Warn("Notification dispatcher closed, dropping event", "kind", kind, "settlement_id", s.ID)
		d.metrics.Notification(string(kind), "dropped")
		return
	}

	select {
	case d.eventCh <- ev:
	default:
		slog.Warn("Notification queue full, dropping event", "kind", kind, "settlement_id", s.ID)
		d.metrics.Notification(string(kind), "dropped")
	}
}

// Shutdown stops accepting events, sends what is queued and waits.
func (d *Dispatcher) Shutdown() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	ids := append([]string{ev.Settlement.FromUserID, ev.Settlement.ToUserID}, ev.Recipients...)
	users, err := d.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		slog.Error("Failed to load notification recipients", "error", err, "event_id", ev.ID)
		d.metrics.Notification(string(ev.Kind), "failed")
		return
	}

	for _, id := range ev.Recipients {
		recipient, ok := users[id]
		if !ok || recipient.Email == "" {
			slog.Debug("Notification recipient has no email", "user_id", id, "event_id", ev.ID)
			d.metrics.Notification(string(ev.Kind), "skipped")
			continue
		}
		if !ev.Kind.Enabled(recipient.Preferences) {
			d.metrics.Notification(string(ev.Kind), "skipped")
			continue
		}

		email := render(ev.Kind, ev.Settlement, recipient, users, d.opts.AppURL)

		sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
		err := d.sender.Send(sendCtx, email)
		cancel()
		if err != nil {
			slog.Error("Failed to send notification",
				"error", err,
				"event_id", ev.ID,
				"kind", ev.Kind,
				"user_id", id,
				"settlement_id", ev.Settlement.ID,
			)
			d.metrics.Notification(string(ev.Kind), "failed")
			continue
		}
		d.metrics.Notification(string(ev.Kind), "sent")
	}
}
