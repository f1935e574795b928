// Package dispatch owns the store at runtime. Every command and every
// clipboard capture funnels through one goroutine fed by a capacity-one
// channel, so operations execute strictly in arrival order and producers
// feel backpressure instead of racing each other for the store.
package dispatch

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/clipd/internal/clipboard"
	"github.com/hpungsan/clipd/internal/metric"
	"github.com/hpungsan/clipd/internal/persist"
	"github.com/hpungsan/clipd/internal/protocol"
	"github.com/hpungsan/clipd/internal/store"
)

// ErrStopped is returned by Submit and Sync once the dispatcher has shut
// down.
var ErrStopped = errors.New("dispatcher stopped")

// Recorder receives content that newly entered the store, with the source it
// arrived from.
type Recorder interface {
	Append(source, value string) error
}

// Announcer is told about newly captured content, for fan-out to event
// subscribers.
type Announcer interface {
	Announce(value string)
}

// Deps is everything command execution touches. Journal, Announcer and
// Metrics may be nil; a nil Log falls back to slog.Default.
type Deps struct {
	Store     *store.Store
	Clipboard clipboard.Device
	DB        persist.File
	Journal   Recorder
	Announcer Announcer
	Metrics   *metric.Metrics
	Log       *slog.Logger
}

type request struct {
	id    string
	cmd   protocol.Command
	sync  bool
	value string
	reply chan protocol.Payload
}

// Dispatcher serializes access to the store.
type Dispatcher struct {
	deps     Deps
	requests chan request
	stopped  chan struct{}
}

func New(deps Deps) *Dispatcher {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Dispatcher{
		deps:     deps,
		requests: make(chan request, 1),
		stopped:  make(chan struct{}),
	}
}

// Done is closed once the dispatcher stops accepting work.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.stopped
}

// Submit validates cmd, queues it and waits for its payload. After shutdown
// it returns ErrStopped.
func (d *Dispatcher) Submit(ctx context.Context, cmd protocol.Command) (protocol.Payload, error) {
	if err := cmd.Validate(); err != nil {
		return protocol.Payload{}, err
	}

	req := request{
		id:    newID(),
		cmd:   cmd,
		reply: make(chan protocol.Payload, 1),
	}

	select {
	case d.requests <- req:
	case <-d.stopped:
		return protocol.Payload{}, ErrStopped
	case <-ctx.Done():
		return protocol.Payload{}, ctx.Err()
	}

	select {
	case p := <-req.reply:
		return p, nil
	case <-d.stopped:
		// The loop replies to quit before it exits; prefer a reply that
		// raced the close.
		select {
		case p := <-req.reply:
			return p, nil
		default:
			return protocol.Payload{}, ErrStopped
		}
	case <-ctx.Done():
		return protocol.Payload{}, ctx.Err()
	}
}

// Sync queues clipboard content seen by the watcher. Captures share the
// command queue, so they keep their place in the global order.
func (d *Dispatcher) Sync(ctx context.Context, value string) error {
	req := request{id: newID(), sync: true, value: value}
	select {
	case d.requests <- req:
		return nil
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes requests until a quit command lands or ctx is cancelled. The
// store stays usable after Run returns, so the caller can still snapshot it
// for a final save.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.stopped)

	for {
		select {
		case <-ctx.Done():
			d.deps.Log.Info("dispatcher stopping", "reason", ctx.Err())
			return ctx.Err()
		case req := <-d.requests:
			if req.sync {
				d.capture(req.id, req.value)
				continue
			}

			start := time.Now()
			p, stop := d.execute(req.cmd)
			dur := time.Since(start)

			d.deps.Log.Debug("command executed",
				"request", req.id,
				"command", string(req.cmd.Type),
				"status", string(p.Type),
				"duration", dur)
			if d.deps.Metrics != nil {
				d.deps.Metrics.ObserveRequest(string(req.cmd.Type), string(p.Type), dur.Seconds())
				d.deps.Metrics.SetEntries(d.deps.Store.Len())
			}

			req.reply <- p
			if stop {
				d.deps.Log.Info("dispatcher stopping", "reason", "quit", "request", req.id)
				return nil
			}
		}
	}
}

// capture stores content picked up from the clipboard and fans it out when
// it is new.
func (d *Dispatcher) capture(id, value string) {
	if value == "" {
		return
	}

	fresh := d.deps.Store.Insert(value)
	d.deps.Log.Debug("clipboard captured", "request", id, "new", fresh, "bytes", len(value))
	if d.deps.Metrics != nil {
		d.deps.Metrics.SyncCaptured()
		d.deps.Metrics.SetEntries(d.deps.Store.Len())
	}
	if fresh {
		d.record("sync", value)
	}
}

// record reports new content to the journal and event subscribers.
func (d *Dispatcher) record(source, value string) {
	if d.deps.Journal != nil {
		if err := d.deps.Journal.Append(source, value); err != nil {
			d.deps.Log.Warn("journal append failed", "source", source, "error", err)
		}
	}
	if d.deps.Announcer != nil {
		d.deps.Announcer.Announce(value)
	}
}

func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
