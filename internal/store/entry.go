package store

import (
	"crypto/sha256"
	"slices"
	"time"
)

// Entry is one stored text item. Value doubles as the deduplication key
// via its content hash. Tags stay sorted and deduplicated; Pin holds a
// single character, or "" when the entry is unpinned.
type Entry struct {
	Value         string    `json:"value"`
	AccessedAt    time.Time `json:"accessed-at"`
	AccessCounter uint64    `json:"access-counter"`
	Tags          []string  `json:"tags,omitempty"`
	Pin           string    `json:"pin,omitempty"`
}

// IndexedEntry pairs an entry copy with its position at selection time.
// Position 0 is the most recently touched entry.
type IndexedEntry struct {
	Index int   `json:"index"`
	Entry Entry `json:"entry"`
}

// clone returns a deep copy so callers never hold references into the store.
func (e *Entry) clone() Entry {
	c := *e
	c.Tags = slices.Clone(e.Tags)
	return c
}

// hasTag reports whether tag is present.
func (e *Entry) hasTag(tag string) bool {
	_, found := slices.BinarySearch(e.Tags, tag)
	return found
}

// addTag inserts tag keeping Tags sorted; duplicates are ignored.
func (e *Entry) addTag(tag string) {
	i, found := slices.BinarySearch(e.Tags, tag)
	if found {
		return
	}
	e.Tags = slices.Insert(e.Tags, i, tag)
}

// removeTag deletes tag if present.
func (e *Entry) removeTag(tag string) {
	i, found := slices.BinarySearch(e.Tags, tag)
	if !found {
		return
	}
	e.Tags = slices.Delete(e.Tags, i, i+1)
}

// hasAllTags reports whether the entry's tag set is a superset of want.
func (e *Entry) hasAllTags(want []string) bool {
	for _, tag := range want {
		if !e.hasTag(tag) {
			return false
		}
	}
	return true
}

// ContentHash is the deduplication key for a value. The watcher uses the
// same definition for its change detection.
func ContentHash(value string) [32]byte {
	return sha256.Sum256([]byte(value))
}
