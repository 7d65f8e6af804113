// Package db implements the sharded map behind the object cache.
// Keys are xxh3 hashes of paths; each shard has its own RWMutex and the global
// length is an atomic so it can be read without locks.
package db

import (
	"sync/atomic"

	"github.com/Borislavv/go-ash-storage/internal/cache/db/model"
)

const (
	NumOfShards = 1024
	shardMask   = NumOfShards - 1 // faster than division
)

// Map is a sharded concurrent map of cache entries.
type Map struct {
	len    int64 // aggregated number of items (atomic)
	shards [NumOfShards]*Shard
}

func NewMap() *Map {
	m := &Map{}
	for id := uint64(0); id < NumOfShards; id++ {
		m.shards[id] = NewShard(id)
	}
	return m
}

// Set inserts or replaces a value and returns the replaced entry.
func (m *Map) Set(key uint64, value *model.Entry) (old *model.Entry) {
	old, lenDelta := m.Shard(key).Set(key, value)
	if lenDelta != 0 {
		atomic.AddInt64(&m.len, lenDelta)
	}
	return old
}

func (m *Map) Get(key uint64) (value *model.Entry, ok bool) {
	return m.Shard(key).Get(key)
}

func (m *Map) Remove(key uint64) (old *model.Entry, hit bool) {
	if old, hit = m.Shard(key).Remove(key); hit {
		atomic.AddInt64(&m.len, -1)
	}
	return
}

// RemoveIf deletes key only while it still maps to entry, so a stale expiry
// never removes a newer value stored under the same path.
func (m *Map) RemoveIf(key uint64, entry *model.Entry) bool {
	if m.Shard(key).RemoveIf(key, entry) {
		atomic.AddInt64(&m.len, -1)
		return true
	}
	return false
}

// RemoveWhere deletes matching entries across all shards.
func (m *Map) RemoveWhere(fn func(*model.Entry) bool) (removed []*model.Entry) {
	m.WalkShards(func(_ uint64, shard *Shard) {
		if r := shard.RemoveWhere(fn); len(r) > 0 {
			atomic.AddInt64(&m.len, -int64(len(r)))
			removed = append(removed, r...)
		}
	})
	return
}

// WalkShards applies fn to all shards synchronously.
func (m *Map) WalkShards(fn func(key uint64, shard *Shard)) {
	for k, s := range m.shards {
		fn(uint64(k), s)
	}
}

// Clear wipes all shards and returns what was removed.
func (m *Map) Clear() (removed []*model.Entry) {
	m.WalkShards(func(_ uint64, shard *Shard) {
		if r := shard.Clear(); len(r) > 0 {
			atomic.AddInt64(&m.len, -int64(len(r)))
			removed = append(removed, r...)
		}
	})
	return
}

func (m *Map) Shard(key uint64) *Shard { return m.shards[key&shardMask] }
func (m *Map) Len() int64              { return atomic.LoadInt64(&m.len) }
