// Package watcher polls the clipboard and feeds changed content into the
// dispatcher queue.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/clipd/internal/clipboard"
	"github.com/hpungsan/clipd/internal/store"
)

// DefaultInterval is the poll cadence used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Sink accepts captured clipboard content. The dispatcher implements it.
type Sink interface {
	Sync(ctx context.Context, value string) error
}

// Config wires a watcher. Tracker is optional; when present, content the
// daemon wrote to the clipboard itself is not captured again.
type Config struct {
	Device   clipboard.Device
	Tracker  *clipboard.Tracker
	Sink     Sink
	Interval time.Duration
	Log      *slog.Logger
}

// Watcher owns the poll loop. It runs on a single goroutine; lastSeen needs
// no lock.
type Watcher struct {
	device   clipboard.Device
	tracker  *clipboard.Tracker
	sink     Sink
	interval time.Duration
	log      *slog.Logger

	lastSeen [32]byte
	seen     bool
}

func New(cfg Config) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Watcher{
		device:   cfg.Device,
		tracker:  cfg.Tracker,
		sink:     cfg.Sink,
		interval: cfg.Interval,
		log:      cfg.Log,
	}
}

// Run polls until ctx is cancelled. Whatever the clipboard holds at startup
// counts as the first capture.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("clipboard watcher started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("clipboard watcher stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	value, err := w.device.Read()
	if err != nil {
		// Headless sessions fail every read; keep this off the warn path.
		w.log.Debug("clipboard read failed", "error", err)
		return
	}
	if value == "" {
		return
	}

	h := store.ContentHash(value)
	if w.seen && h == w.lastSeen {
		return
	}
	w.lastSeen = h
	w.seen = true

	if w.tracker != nil && w.tracker.Wrote(h) {
		// The daemon put this on the clipboard itself.
		return
	}

	if err := w.sink.Sync(ctx, value); err != nil {
		w.log.Debug("capture rejected", "error", err)
	}
}
