package model

import (
	"time"

	"github.com/Borislavv/go-ash-storage/scheduler"
)

// Entry is a cached object addressed by its path.
// It is immutable once inserted into the map; overwriting a path inserts a new Entry.
type Entry struct {
	key      *Key
	path     string
	value    Value
	cachedAt int64           // unix nano
	expiry   *scheduler.Task // nil when the entry never expires
}

func NewEntry(key *Key, path string, value Value) *Entry {
	return &Entry{
		key:      key,
		path:     path,
		value:    value,
		cachedAt: time.Now().UnixNano(),
	}
}

func (e *Entry) Key() *Key {
	if e == nil {
		return nil
	}
	return e.key
}

func (e *Entry) Path() string                { return e.path }
func (e *Entry) Value() Value                { return e.value }
func (e *Entry) CachedAt() int64             { return e.cachedAt }
func (e *Entry) Expiry() *scheduler.Task     { return e.expiry }
func (e *Entry) SetExpiry(t *scheduler.Task) { e.expiry = t }

// IsUnder reports whether the entry's path equals prefix or lies beneath it.
func (e *Entry) IsUnder(prefix string) bool {
	if prefix == "" {
		return true
	}
	if len(e.path) < len(prefix) || e.path[:len(prefix)] != prefix {
		return false
	}
	return len(e.path) == len(prefix) || e.path[len(prefix)] == '.'
}
