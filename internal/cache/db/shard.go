package db

import (
	"sync"
	"sync/atomic"

	"github.com/Borislavv/go-ash-storage/internal/cache/db/model"
)

// Shard is an independent segment of the sharded map.
// Its length is kept in an atomic so global readers can avoid locks.
type Shard struct {
	sync.RWMutex
	items map[uint64]*model.Entry

	id  uint64
	len int64 // number of items (atomic)
}

func NewShard(id uint64) *Shard {
	return &Shard{id: id, items: make(map[uint64]*model.Entry)}
}

func (sh *Shard) ID() uint64 { return sh.id }
func (sh *Shard) Len() int64 { return atomic.LoadInt64(&sh.len) }

// Set inserts or replaces a key and returns the replaced entry, if any.
func (sh *Shard) Set(key uint64, new *model.Entry) (old *model.Entry, lenDelta int64) {
	sh.Lock()
	old, hit := sh.items[key]
	sh.items[key] = new
	if !hit {
		lenDelta = 1
		atomic.AddInt64(&sh.len, 1)
	}
	sh.Unlock()
	return
}

// Get reads a value under a shared lock.
func (sh *Shard) Get(key uint64) (value *model.Entry, hit bool) {
	sh.RLock()
	value, hit = sh.items[key]
	sh.RUnlock()
	return
}

// Remove deletes a key under the write lock.
func (sh *Shard) Remove(key uint64) (old *model.Entry, hit bool) {
	sh.Lock()
	old, hit = sh.RemoveUnlocked(key)
	sh.Unlock()
	return
}

// RemoveIf deletes key only while it still maps to the given entry.
func (sh *Shard) RemoveIf(key uint64, entry *model.Entry) (hit bool) {
	sh.Lock()
	if cur, ok := sh.items[key]; ok && cur == entry {
		_, hit = sh.RemoveUnlocked(key)
	}
	sh.Unlock()
	return
}

// RemoveUnlocked deletes a key when the shard is already exclusively locked.
func (sh *Shard) RemoveUnlocked(key uint64) (old *model.Entry, hit bool) {
	if old, hit = sh.items[key]; hit {
		delete(sh.items, key)
		atomic.AddInt64(&sh.len, -1)
	}
	return
}

// RemoveWhere deletes every entry matching fn and returns them.
func (sh *Shard) RemoveWhere(fn func(*model.Entry) bool) (removed []*model.Entry) {
	if sh.Len() == 0 {
		return nil
	}
	sh.Lock()
	for k, v := range sh.items {
		if fn(v) {
			removed = append(removed, v)
			delete(sh.items, k)
		}
	}
	atomic.AddInt64(&sh.len, -int64(len(removed)))
	sh.Unlock()
	return
}

// Clear removes all entries and returns them.
func (sh *Shard) Clear() (removed []*model.Entry) {
	sh.Lock()
	removed = make([]*model.Entry, 0, len(sh.items))
	for _, v := range sh.items {
		removed = append(removed, v)
	}
	sh.items = make(map[uint64]*model.Entry)
	atomic.StoreInt64(&sh.len, 0)
	sh.Unlock()
	return
}

// Walk iterates entries under a shared lock. The callback must be lightweight.
func (sh *Shard) Walk(fn func(*model.Entry) bool) {
	sh.RLock()
	defer sh.RUnlock()
	for _, v := range sh.items {
		if !fn(v) {
			return
		}
	}
}
