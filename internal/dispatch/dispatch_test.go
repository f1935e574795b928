package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/clipd/internal/clipboard"
	"github.com/hpungsan/clipd/internal/persist"
	"github.com/hpungsan/clipd/internal/protocol"
	"github.com/hpungsan/clipd/internal/store"
)

// captureLog is a Recorder that remembers what it was fed.
type captureLog struct {
	mu      sync.Mutex
	fail    error
	sources []string
	values  []string
}

func (c *captureLog) Append(source, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sources = append(c.sources, source)
	c.values = append(c.values, value)
	return nil
}

func (c *captureLog) snapshot() ([]string, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sources...), append([]string(nil), c.values...)
}

// announceLog is an Announcer that remembers what it was told.
type announceLog struct {
	mu     sync.Mutex
	values []string
}

func (a *announceLog) Announce(value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = append(a.values, value)
}

func (a *announceLog) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.values...)
}

// startDispatcher fills in default deps, runs the loop in the background and
// tears it down with the test.
func startDispatcher(t *testing.T, deps Deps) *Dispatcher {
	t.Helper()
	if deps.Store == nil {
		deps.Store = store.New()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.NewMemory()
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := New(deps)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d
}

func submit(t *testing.T, d *Dispatcher, cmd protocol.Command) protocol.Payload {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := d.Submit(ctx, cmd)
	require.NoError(t, err)
	return p
}

func intPtr(i int) *int { return &i }

// TestCommandWorkflow exercises the full command surface against one
// dispatcher: add → list → get → set → tag/pin → select → tags/count →
// save/del/load → quit.
func TestCommandWorkflow(t *testing.T) {
	clip := clipboard.NewMemory()
	st := store.New()
	dbPath := filepath.Join(t.TempDir(), "clipd.json")
	d := startDispatcher(t, Deps{Store: st, Clipboard: clip, DB: persist.File{Path: dbPath}})

	// 1. Add content; it lands at the front and mirrors to the clipboard.
	p := submit(t, d, protocol.NewAdd("hello", "world"))
	require.Equal(t, protocol.PayloadOk, p.Type)
	v, err := clip.Read()
	require.NoError(t, err)
	require.Equal(t, "hello world", v)

	// 2. A second add shifts the first down.
	submit(t, d, protocol.NewAdd("second"))
	p = submit(t, d, protocol.NewList(nil, nil, nil))
	require.Equal(t, protocol.PayloadList, p.Type)
	require.Len(t, p.Items, 2)
	require.Equal(t, "second", p.Items[0].Entry.Value)
	require.Equal(t, "hello world", p.Items[1].Entry.Value)

	// 3. Get returns the stored value without touching the clipboard.
	p = submit(t, d, protocol.NewGet(1))
	require.Equal(t, protocol.PayloadValue, p.Type)
	require.NotNil(t, p.Value)
	require.Equal(t, "hello world", *p.Value)
	v, err = clip.Read()
	require.NoError(t, err)
	require.Equal(t, "second", v)

	// 4. Set writes an older entry back to the clipboard without reordering.
	p = submit(t, d, protocol.NewSet(1))
	require.Equal(t, protocol.PayloadOk, p.Type)
	v, err = clip.Read()
	require.NoError(t, err)
	require.Equal(t, "hello world", v)
	got, ok := st.Value(0)
	require.True(t, ok)
	require.Equal(t, "second", got)

	// 5. Tag and pin, then select by each filter.
	submit(t, d, protocol.NewTag(0, "work"))
	submit(t, d, protocol.NewPin(1, "h"))
	p = submit(t, d, protocol.NewSelect("", []string{"work"}, ""))
	require.Len(t, p.Items, 1)
	require.Equal(t, "second", p.Items[0].Entry.Value)
	p = submit(t, d, protocol.NewSelect("h", nil, ""))
	require.Len(t, p.Items, 1)
	require.Equal(t, "hello world", p.Items[0].Entry.Value)

	// A select with no filters is deliberately empty.
	p = submit(t, d, protocol.NewSelect("", nil, ""))
	require.Equal(t, protocol.PayloadList, p.Type)
	require.Empty(t, p.Items)

	// 6. Tags lists the union, count the size.
	p = submit(t, d, protocol.NewBare(protocol.CmdTags))
	require.Equal(t, "work", p.Message)
	p = submit(t, d, protocol.NewBare(protocol.CmdCount))
	require.Equal(t, "2", p.Message)

	// 7. Save, delete everything, load it back with tags and pin intact.
	p = submit(t, d, protocol.NewBare(protocol.CmdSave))
	require.Equal(t, protocol.PayloadOk, p.Type)
	submit(t, d, protocol.NewDel(0, intPtr(2)))
	p = submit(t, d, protocol.NewBare(protocol.CmdCount))
	require.Equal(t, "0", p.Message)
	p = submit(t, d, protocol.NewBare(protocol.CmdLoad))
	require.Equal(t, protocol.PayloadOk, p.Type)
	p = submit(t, d, protocol.NewList(nil, nil, nil))
	require.Len(t, p.Items, 2)
	require.Equal(t, "second", p.Items[0].Entry.Value)
	require.Equal(t, []string{"work"}, p.Items[0].Entry.Tags)
	require.Equal(t, "h", p.Items[1].Entry.Pin)

	// 8. Quit stops the loop; later submissions are rejected.
	p = submit(t, d, protocol.NewBare(protocol.CmdQuit))
	require.Equal(t, protocol.PayloadStop, p.Type)
	<-d.Done()
	_, err = d.Submit(context.Background(), protocol.NewBare(protocol.CmdCount))
	require.ErrorIs(t, err, ErrStopped)
}

func TestSyncCapture(t *testing.T) {
	st := store.New()
	d := startDispatcher(t, Deps{Store: st})

	ctx := context.Background()
	require.NoError(t, d.Sync(ctx, "copied elsewhere"))

	// Captures share the queue, so a following command acts as a barrier.
	p := submit(t, d, protocol.NewBare(protocol.CmdCount))
	require.Equal(t, "1", p.Message)
	v, ok := st.Value(0)
	require.True(t, ok)
	require.Equal(t, "copied elsewhere", v)

	// The same content again bumps the counter instead of duplicating.
	require.NoError(t, d.Sync(ctx, "copied elsewhere"))
	p = submit(t, d, protocol.NewBare(protocol.CmdCount))
	require.Equal(t, "1", p.Message)
	e := st.Get(0)
	require.NotNil(t, e)
	require.Equal(t, uint64(2), e.AccessCounter)

	// Empty clipboard content is dropped.
	require.NoError(t, d.Sync(ctx, ""))
	p = submit(t, d, protocol.NewBare(protocol.CmdCount))
	require.Equal(t, "1", p.Message)
}

func TestRecorderSeesOnlyNewContent(t *testing.T) {
	rec := &captureLog{}
	ann := &announceLog{}
	d := startDispatcher(t, Deps{Journal: rec, Announcer: ann})

	submit(t, d, protocol.NewAdd("alpha"))
	submit(t, d, protocol.NewAdd("alpha"))
	require.NoError(t, d.Sync(context.Background(), "beta"))
	require.NoError(t, d.Sync(context.Background(), "beta"))
	submit(t, d, protocol.NewBare(protocol.CmdCount))

	sources, values := rec.snapshot()
	require.Equal(t, []string{"add", "sync"}, sources)
	require.Equal(t, []string{"alpha", "beta"}, values)
	require.Equal(t, []string{"alpha", "beta"}, ann.snapshot())
}

func TestJournalFailureDoesNotFailCommand(t *testing.T) {
	rec := &captureLog{fail: errors.New("journal closed")}
	d := startDispatcher(t, Deps{Journal: rec})

	p := submit(t, d, protocol.NewAdd("still stored"))
	require.Equal(t, protocol.PayloadOk, p.Type)
	p = submit(t, d, protocol.NewBare(protocol.CmdCount))
	require.Equal(t, "1", p.Message)
}

func TestInsertFromFile(t *testing.T) {
	clip := clipboard.NewMemory()
	st := store.New()
	d := startDispatcher(t, Deps{Store: st, Clipboard: clip})

	path := filepath.Join(t.TempDir(), "snippet.txt")
	require.NoError(t, os.WriteFile(path, []byte("file content\n"), 0600))

	p := submit(t, d, protocol.NewInsert(path))
	require.Equal(t, protocol.PayloadOk, p.Type)
	v, ok := st.Value(0)
	require.True(t, ok)
	require.Equal(t, "file content\n", v)
	cv, err := clip.Read()
	require.NoError(t, err)
	require.Equal(t, "file content\n", cv)

	p = submit(t, d, protocol.NewInsert(filepath.Join(t.TempDir(), "absent.txt")))
	require.Equal(t, protocol.PayloadMessage, p.Type)
	require.Contains(t, p.Message, "failed to read")
}

func TestNotFoundMessages(t *testing.T) {
	d := startDispatcher(t, Deps{})

	for _, cmd := range []protocol.Command{
		protocol.NewGet(3),
		protocol.NewSet(3),
		protocol.NewTag(3, "t"),
		protocol.NewUntag(3, "t"),
		protocol.NewPin(3, "a"),
		protocol.NewUnpin(3),
	} {
		p := submit(t, d, cmd)
		require.Equal(t, protocol.PayloadMessage, p.Type, "command %s", cmd.Type)
		require.Equal(t, "item at 3 not found", p.Message, "command %s", cmd.Type)
	}

	// Deleting a range that covers nothing is still ok.
	p := submit(t, d, protocol.NewDel(10, nil))
	require.Equal(t, protocol.PayloadOk, p.Type)
}

func TestLoadReportsMissingDB(t *testing.T) {
	d := startDispatcher(t, Deps{DB: persist.File{Path: filepath.Join(t.TempDir(), "absent.json")}})

	p := submit(t, d, protocol.NewBare(protocol.CmdLoad))
	require.Equal(t, protocol.PayloadMessage, p.Type)
	require.Contains(t, p.Message, "failed to load db")
}

func TestSubmitValidates(t *testing.T) {
	d := New(Deps{Store: store.New(), Clipboard: clipboard.NewMemory()})

	// Validation happens before queueing, so no loop is needed.
	_, err := d.Submit(context.Background(), protocol.Command{Type: "bogus"})
	require.Error(t, err)
	_, err = d.Submit(context.Background(), protocol.Command{Type: protocol.CmdAdd})
	require.Error(t, err)
}

func TestContextCancelStops(t *testing.T) {
	d := New(Deps{
		Store:     store.New(),
		Clipboard: clipboard.NewMemory(),
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	<-d.Done()

	_, err := d.Submit(context.Background(), protocol.NewBare(protocol.CmdCount))
	require.ErrorIs(t, err, ErrStopped)
	require.ErrorIs(t, d.Sync(context.Background(), "x"), ErrStopped)
}
