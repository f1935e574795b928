package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/clipd/internal/clipboard"
	"github.com/hpungsan/clipd/internal/config"
	"github.com/hpungsan/clipd/internal/dispatch"
	"github.com/hpungsan/clipd/internal/journal"
	"github.com/hpungsan/clipd/internal/persist"
	"github.com/hpungsan/clipd/internal/protocol"
	"github.com/hpungsan/clipd/internal/server"
	"github.com/hpungsan/clipd/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startDaemon boots a dispatcher with both listeners on ephemeral ports and
// writes a config file pointing at them. CLI invocations pick the daemon up
// through --config.
func startDaemon(t *testing.T) (string, *dispatch.Dispatcher) {
	t.Helper()
	log := discardLogger()
	d := dispatch.New(dispatch.Deps{
		Store:     store.New(),
		Clipboard: clipboard.NewMemory(),
		DB:        persist.File{Path: filepath.Join(t.TempDir(), "snapshot.json")},
		Log:       log,
	})
	ctx, cancel := context.WithCancel(context.Background())
	dispatchDone := make(chan error, 1)
	go func() { dispatchDone <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-dispatchDone
	})

	raw, err := server.NewRaw("127.0.0.1:0", d, log)
	if err != nil {
		t.Fatalf("raw listener: %v", err)
	}
	rawDone := make(chan error, 1)
	go func() { rawDone <- raw.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-rawDone
	})

	h := server.NewHTTP(server.HTTPConfig{
		Addr:       "127.0.0.1:0",
		Dispatcher: d,
		Version:    "test",
		Log:        log,
	})
	ts := httptest.NewServer(h.Handler())
	t.Cleanup(ts.Close)

	rawPort := raw.Addr().(*net.TCPAddr).Port
	httpPort := ts.Listener.Addr().(*net.TCPAddr).Port
	return writeConfig(t, rawPort, httpPort, ""), d
}

func writeConfig(t *testing.T, rawPort, httpPort int, journalPath string) string {
	t.Helper()
	cfg := map[string]any{
		"host":      "127.0.0.1",
		"raw_port":  rawPort,
		"http_port": httpPort,
		"db_path":   filepath.Join(t.TempDir(), "clipd.json"),
	}
	if journalPath != "" {
		cfg["journal_path"] = journalPath
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// runCLI executes one CLI invocation with stdout captured.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	app := newCLIApp()
	err := app.Run(append([]string{"clipd"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func TestCLIRoundTrip(t *testing.T) {
	cfgPath, _ := startDaemon(t)

	out, err := runCLI(t, "--config", cfgPath, "add", "alpha", "beta")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if out != "ok\n" {
		t.Errorf("add output = %q, want %q", out, "ok\n")
	}

	out, err = runCLI(t, "--config", cfgPath, "count")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if out != "1\n" {
		t.Errorf("count output = %q, want %q", out, "1\n")
	}

	out, err = runCLI(t, "--config", cfgPath, "get", "0")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != "alpha beta\n" {
		t.Errorf("get output = %q, want %q", out, "alpha beta\n")
	}

	out, err = runCLI(t, "--config", cfgPath, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.HasPrefix(out, "0: ") {
		t.Errorf("list output = %q, want position prefix", out)
	}
	if !strings.Contains(out, "alpha beta") {
		t.Errorf("list output = %q, want the stored value", out)
	}
}

func TestCLIInsert(t *testing.T) {
	cfgPath, _ := startDaemon(t)

	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("from a file"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "insert", path)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if out != "ok\n" {
		t.Errorf("insert output = %q, want %q", out, "ok\n")
	}

	out, err = runCLI(t, "--config", cfgPath, "get", "0")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != "from a file\n" {
		t.Errorf("get output = %q, want file contents", out)
	}
}

func TestCLIDeleteOutOfRange(t *testing.T) {
	cfgPath, _ := startDaemon(t)

	if _, err := runCLI(t, "--config", cfgPath, "add", "keep"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "del", "5", "9")
	if err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if out != "ok\n" {
		t.Errorf("del output = %q, want %q", out, "ok\n")
	}

	out, err = runCLI(t, "--config", cfgPath, "count")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if out != "1\n" {
		t.Errorf("count after no-op delete = %q, want %q", out, "1\n")
	}
}

func TestCLITagPinSelect(t *testing.T) {
	cfgPath, _ := startDaemon(t)

	for _, text := range []string{"alpha report", "beta note"} {
		if _, err := runCLI(t, "--config", cfgPath, "add", text); err != nil {
			t.Fatalf("add %q failed: %v", text, err)
		}
	}

	// Position 0 is the most recent entry.
	if _, err := runCLI(t, "--config", cfgPath, "tag", "0", "work"); err != nil {
		t.Fatalf("tag failed: %v", err)
	}
	if _, err := runCLI(t, "--config", cfgPath, "pin", "1", "a"); err != nil {
		t.Fatalf("pin failed: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "select", "--tag", "work")
	if err != nil {
		t.Fatalf("select by tag failed: %v", err)
	}
	if !strings.Contains(out, "beta note") {
		t.Errorf("select by tag output = %q, want %q", out, "beta note")
	}

	out, err = runCLI(t, "--config", cfgPath, "select", "--pin", "a")
	if err != nil {
		t.Fatalf("select by pin failed: %v", err)
	}
	if !strings.Contains(out, "alpha report") {
		t.Errorf("select by pin output = %q, want %q", out, "alpha report")
	}

	// No filters selects nothing.
	out, err = runCLI(t, "--config", cfgPath, "select")
	if err != nil {
		t.Fatalf("bare select failed: %v", err)
	}
	if out != "" {
		t.Errorf("bare select output = %q, want empty", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "tags")
	if err != nil {
		t.Fatalf("tags failed: %v", err)
	}
	if !strings.Contains(out, "work") {
		t.Errorf("tags output = %q, want %q", out, "work")
	}
}

func TestCLIJSONPayloads(t *testing.T) {
	cfgPath, _ := startDaemon(t)

	out, err := runCLI(t, "--config", cfgPath, "count", "--json")
	if err != nil {
		t.Fatalf("count --json failed: %v", err)
	}
	var p protocol.Payload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("parse payload: %v\noutput: %s", err, out)
	}
	if p.Type != protocol.PayloadMessage || p.Message != "0" {
		t.Errorf("count payload = %+v, want message %q", p, "0")
	}

	if _, err := runCLI(t, "--config", cfgPath, "add", "json entry"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	out, err = runCLI(t, "--config", cfgPath, "list", "--json")
	if err != nil {
		t.Fatalf("list --json failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("parse payload: %v\noutput: %s", err, out)
	}
	if p.Type != protocol.PayloadList {
		t.Errorf("list payload type = %q, want %q", p.Type, protocol.PayloadList)
	}
	if len(p.Items) != 1 || p.Items[0].Entry.Value != "json entry" {
		t.Errorf("list payload items = %+v, want the stored entry", p.Items)
	}
}

func TestCLIUnreachable(t *testing.T) {
	cfgPath := writeConfig(t, 1, 1, "")

	_, err := runCLI(t, "--config", cfgPath, "count")
	if err == nil {
		t.Fatal("expected error against a dead daemon")
	}
	if !strings.Contains(err.Error(), "UNAVAILABLE") {
		t.Errorf("error = %q, want the UNAVAILABLE code", err.Error())
	}
}

func TestCLIInvalidPosition(t *testing.T) {
	_, err := runCLI(t, "get", "abc")
	if err == nil {
		t.Fatal("expected error for a non-numeric position")
	}
	if !strings.Contains(err.Error(), `invalid position "abc"`) {
		t.Errorf("error = %q, want invalid position message", err.Error())
	}
}

func TestCLIArgValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"add without text", []string{"add"}, "add requires text"},
		{"del without range", []string{"del"}, "del requires FROM"},
		{"get without index", []string{"get"}, "get requires an index"},
		{"tag without tag", []string{"tag", "0"}, "tag requires an index and a tag"},
		{"pin without char", []string{"pin", "0"}, "pin requires an index and a single character"},
		{"insert without path", []string{"insert"}, "insert requires a file path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCLIHistory(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(journalPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	if err := j.Append("sync", "copied text"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Append("add", "typed text"); err != nil {
		t.Fatalf("append: %v", err)
	}
	j.Close()

	cfgPath := writeConfig(t, 1, 1, journalPath)

	out, err := runCLI(t, "--config", cfgPath, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{"copied text", "typed text", "sync", "add"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output = %q, want substring %q", out, want)
		}
	}

	out, err = runCLI(t, "--config", cfgPath, "history", "--source", "sync")
	if err != nil {
		t.Fatalf("history --source failed: %v", err)
	}
	if !strings.Contains(out, "copied text") || strings.Contains(out, "typed text") {
		t.Errorf("filtered history output = %q, want only sync captures", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "history", "--json")
	if err != nil {
		t.Fatalf("history --json failed: %v", err)
	}
	var captures []journal.Capture
	if err := json.Unmarshal([]byte(out), &captures); err != nil {
		t.Fatalf("parse captures: %v\noutput: %s", err, out)
	}
	if len(captures) != 2 {
		t.Errorf("got %d captures, want 2", len(captures))
	}
}

func TestCLIHistoryRequiresJournal(t *testing.T) {
	cfgPath := writeConfig(t, 1, 1, "")

	_, err := runCLI(t, "--config", cfgPath, "history")
	if err == nil {
		t.Fatal("expected error without journal_path")
	}
	if !strings.Contains(err.Error(), "journal_path") {
		t.Errorf("error = %q, want journal_path mention", err.Error())
	}
}

func TestCLIQuit(t *testing.T) {
	cfgPath, d := startDaemon(t)

	out, err := runCLI(t, "--config", cfgPath, "quit")
	if err != nil {
		t.Fatalf("quit failed: %v", err)
	}
	if out != "stop\n" {
		t.Errorf("quit output = %q, want %q", out, "stop\n")
	}

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after quit")
	}
}

// TestRunDaemonStartStop drives the full daemon bootstrap on ephemeral ports
// and checks that shutdown writes the snapshot.
func TestRunDaemonStartStop(t *testing.T) {
	interactive := false
	dbPath := filepath.Join(t.TempDir(), "snapshot.json")
	cfg := &config.Config{
		Host:           "127.0.0.1",
		RawPort:        0,
		HTTPPort:       0,
		Interactive:    &interactive,
		DBPath:         dbPath,
		PollIntervalMS: 100,
		PreviewLength:  64,
		LogLevel:       "error",
		LogFormat:      "text",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runDaemon(ctx, cfg, discardLogger()) }()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runDaemon returned %v, want nil on shutdown", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("snapshot not written on shutdown: %v", err)
	}
}
