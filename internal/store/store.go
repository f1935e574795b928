// Package store implements the in-memory clipboard history: an ordered,
// deduplicated, taggable and pinnable list of text entries with positional
// addressing. Entries live in a single arena keyed by content hash, with an
// explicit ordered slice of hashes giving each entry its recency rank
// (position 0 = most recently touched).
//
// The dispatcher is the sole writer on the hot path; the store's own mutex
// exists for the out-of-band shutdown-persistence read.
package store

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/clipd/internal/errors"
)

// Store owns the entry arena and its recency order.
type Store struct {
	mu      sync.Mutex
	entries map[[32]byte]*Entry
	order   [][32]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{
		entries: make(map[[32]byte]*Entry),
	}
}

// position returns the recency index of h, or -1 when absent from the order.
func (s *Store) position(h [32]byte) int {
	for i, oh := range s.order {
		if oh == h {
			return i
		}
	}
	return -1
}

// Insert records a value. Known content moves to the front, its access
// counter incremented and timestamp refreshed, tags and pin untouched.
// Unseen content becomes a fresh entry at the front. Reports whether the
// content was new.
func (s *Store) Insert(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := ContentHash(value)
	now := time.Now()

	if e, ok := s.entries[h]; ok {
		if p := s.position(h); p > 0 {
			copy(s.order[1:p+1], s.order[:p])
			s.order[0] = h
		}
		e.AccessCounter++
		e.AccessedAt = now
		return false
	}

	s.entries[h] = &Entry{
		Value:         value,
		AccessedAt:    now,
		AccessCounter: 1,
	}
	s.order = slices.Insert(s.order, 0, h)
	return true
}

// Delete removes entries at positions [from, to). An out-of-range from is a
// no-op; to is clamped to the entry count. Returns the number of entries
// removed.
func (s *Store) Delete(from, to int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 || from >= len(s.order) {
		return 0
	}
	if to > len(s.order) {
		to = len(s.order)
	}
	if to <= from {
		return 0
	}

	for _, h := range s.order[from:to] {
		delete(s.entries, h)
	}
	removed := to - from
	s.order = slices.Delete(s.order, from, to)
	return removed
}

// Get returns a copy of the entry at index, or nil when out of range.
func (s *Store) Get(index int) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.at(index)
	if e == nil {
		return nil
	}
	c := e.clone()
	return &c
}

// Value returns the content at index.
func (s *Store) Value(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.at(index)
	if e == nil {
		return "", false
	}
	return e.Value, true
}

// at resolves a position to its live entry. Callers hold the lock.
func (s *Store) at(index int) *Entry {
	if index < 0 || index >= len(s.order) {
		return nil
	}
	return s.entries[s.order[index]]
}

// Range returns copies of the entries at positions [from, to), paired with
// their indices. A negative from is treated as 0 and a negative or
// oversized to as the entry count.
func (s *Store) Range(from, to int) []IndexedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 {
		from = 0
	}
	if to < 0 || to > len(s.order) {
		to = len(s.order)
	}

	var out []IndexedEntry
	for i := from; i < to; i++ {
		out = append(out, IndexedEntry{Index: i, Entry: s.at(i).clone()})
	}
	return out
}

// Select filters entries. A supplied pin takes precedence over all other
// filters and yields at most the single holder of that character. With no
// pin, entries must carry every requested tag (superset semantics) and, when
// substring is non-empty, contain it in their value; both filters compose.
// No filters at all selects nothing: an unfiltered select is deliberately
// empty rather than select-all.
func (s *Store) Select(pin string, tags []string, substring string) []IndexedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pin != "" {
		for i, h := range s.order {
			if e := s.entries[h]; e != nil && e.Pin == pin {
				return []IndexedEntry{{Index: i, Entry: e.clone()}}
			}
		}
		return nil
	}

	if len(tags) == 0 && substring == "" {
		return nil
	}

	var out []IndexedEntry
	for i, h := range s.order {
		e := s.entries[h]
		if e == nil {
			continue
		}
		if !e.hasAllTags(tags) {
			continue
		}
		if substring != "" && !strings.Contains(e.Value, substring) {
			continue
		}
		out = append(out, IndexedEntry{Index: i, Entry: e.clone()})
	}
	return out
}

// Tag adds tag to the entry at index. Reports whether the index was valid.
func (s *Store) Tag(index int, tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.at(index)
	if e == nil {
		return false
	}
	e.addTag(tag)
	return true
}

// Untag removes tag from the entry at index. A valid index reports true
// whether or not the tag was present.
func (s *Store) Untag(index int, tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.at(index)
	if e == nil {
		return false
	}
	e.removeTag(tag)
	return true
}

// Tags returns the sorted union of every entry's tags.
func (s *Store) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, e := range s.entries {
		for _, tag := range e.Tags {
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Pin assigns ch to the entry at index, first stripping it from any current
// holder so that at most one entry carries a given character. An invalid
// index changes nothing, including the current holder. Reports whether the
// index was valid.
func (s *Store) Pin(index int, ch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.at(index)
	if target == nil {
		return false
	}
	for _, e := range s.entries {
		if e.Pin == ch {
			e.Pin = ""
		}
	}
	target.Pin = ch
	return true
}

// Unpin clears any pin on the entry at index. Reports whether the index was
// valid.
func (s *Store) Unpin(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.at(index)
	if e == nil {
		return false
	}
	e.Pin = ""
	return true
}

// Len returns the entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Check verifies that the arena and the recency order agree: same
// cardinality, and every ordered hash resolving to an entry. A divergence is
// an invariant violation that callers must report rather than swallow.
func (s *Store) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) != len(s.order) {
		return errors.NewInvariant(fmt.Sprintf(
			"arena holds %d entries, order holds %d", len(s.entries), len(s.order)))
	}
	for i, h := range s.order {
		if s.entries[h] == nil {
			return errors.NewInvariant(fmt.Sprintf("order position %d has no entry", i))
		}
	}
	return nil
}

// Snapshot returns copies of all entries in recency order, most recent
// first. Used for persistence and safe to call outside the dispatcher.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.order))
	for _, h := range s.order {
		if e := s.entries[h]; e != nil {
			out = append(out, e.clone())
		}
	}
	return out
}

// Merge folds a persisted snapshot into the live store. Snapshot entries are
// walked most-recent-first: content already present has its counter,
// timestamp, tags, and pin replaced in place without moving position;
// unseen content is appended to the back, preserving snapshot order. A
// snapshot pin is dropped when another live entry already holds that
// character. Merging into an empty store reproduces the snapshot exactly.
// Returns the values that were new to the store, in snapshot order.
func (s *Store) Merge(snapshot []Entry) (added []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, se := range snapshot {
		h := ContentHash(se.Value)
		pin := se.Pin
		if pin != "" && s.pinHeldByOther(pin, h) {
			pin = ""
		}
		if e, ok := s.entries[h]; ok {
			e.AccessCounter = se.AccessCounter
			e.AccessedAt = se.AccessedAt
			e.Tags = slices.Clone(se.Tags)
			e.Pin = pin
			continue
		}
		c := se.clone()
		c.Pin = pin
		s.entries[h] = &c
		s.order = append(s.order, h)
		added = append(added, se.Value)
	}
	return added
}

// pinHeldByOther reports whether ch is pinned by an entry other than h.
// Callers hold the lock.
func (s *Store) pinHeldByOther(ch string, h [32]byte) bool {
	for eh, e := range s.entries {
		if eh != h && e.Pin == ch {
			return true
		}
	}
	return false
}
