// Package clipboard abstracts the system clipboard behind a small device
// interface so the daemon core never touches a global.
package clipboard

import (
	"sync"

	"github.com/atotto/clipboard"

	"github.com/hpungsan/clipd/internal/store"
)

// Device is a read/write clipboard capability.
type Device interface {
	Read() (string, error)
	Write(value string) error
}

// System is the real OS clipboard.
type System struct{}

func (System) Read() (string, error) {
	return clipboard.ReadAll()
}

func (System) Write(value string) error {
	return clipboard.WriteAll(value)
}

// Memory is an in-process clipboard for tests and headless runs.
type Memory struct {
	mu      sync.Mutex
	value   string
	readErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.value, nil
}

func (m *Memory) Write(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	return nil
}

// Set simulates a copy made by another program: it changes the held value
// without going through Write, so a Tracker wrapping this device will not
// see it as its own.
func (m *Memory) Set(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
}

// FailReads makes subsequent reads return err until called with nil.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Tracker wraps a device and remembers the hash of the last value the
// daemon itself wrote. The sync watcher uses it to tell daemon echoes
// apart from copies made elsewhere.
type Tracker struct {
	Device

	mu   sync.Mutex
	last [32]byte
	has  bool
}

func Track(d Device) *Tracker {
	return &Tracker{Device: d}
}

func (t *Tracker) Write(value string) error {
	if err := t.Device.Write(value); err != nil {
		return err
	}
	t.mu.Lock()
	t.last = store.ContentHash(value)
	t.has = true
	t.mu.Unlock()
	return nil
}

// Wrote reports whether hash matches the most recent successful Write.
func (t *Tracker) Wrote(hash [32]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.has && t.last == hash
}
