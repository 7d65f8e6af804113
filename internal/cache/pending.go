package cache

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Pending holds the changes awaiting the next flush: paths to write and paths to delete.
// A path is never in both sets; inserting into one removes it from the other.
// Every change remembers when it was made, so a batch replays them in that order.
type Pending struct {
	mu      sync.Mutex
	writes  map[string]any
	deletes map[string]struct{}
	seq     map[string]uint64
	next    uint64
}

// Batch is a drained snapshot of Pending.
type Batch struct {
	Writes  map[string]any
	Deletes map[string]struct{}
	seq     map[string]uint64
}

// Change is one pending write, or a delete when Delete is set.
type Change struct {
	Path   string
	Value  any
	Delete bool
}

func NewPending() *Pending {
	return &Pending{
		writes:  make(map[string]any),
		deletes: make(map[string]struct{}),
		seq:     make(map[string]uint64),
	}
}

func (p *Pending) PutWrite(path string, value any) {
	p.mu.Lock()
	delete(p.deletes, path)
	p.writes[path] = value
	p.touchUnlocked(path)
	p.mu.Unlock()
}

// PutDelete marks path for deletion. Pending writes at or beneath path are dropped,
// since the delete supersedes them.
func (p *Pending) PutDelete(path string) {
	prefix := path + "."

	p.mu.Lock()
	for w := range p.writes {
		if w == path || strings.HasPrefix(w, prefix) {
			delete(p.writes, w)
		}
	}
	p.deletes[path] = struct{}{}
	p.touchUnlocked(path)
	p.mu.Unlock()
}

// Discard forgets any pending change of the given paths.
func (p *Pending) Discard(paths ...string) {
	p.mu.Lock()
	for _, path := range paths {
		delete(p.writes, path)
		delete(p.deletes, path)
		delete(p.seq, path)
	}
	p.mu.Unlock()
}

// DiscardTree forgets pending changes of path and of every path beneath it.
func (p *Pending) DiscardTree(path string) {
	prefix := path + "."

	p.mu.Lock()
	for w := range p.writes {
		if w == path || strings.HasPrefix(w, prefix) {
			delete(p.writes, w)
		}
	}
	for d := range p.deletes {
		if d == path || strings.HasPrefix(d, prefix) {
			delete(p.deletes, d)
		}
	}
	for s := range p.seq {
		if s == path || strings.HasPrefix(s, prefix) {
			delete(p.seq, s)
		}
	}
	p.mu.Unlock()
}

func (p *Pending) Write(path string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.writes[path]
	return v, ok
}

func (p *Pending) IsDelete(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.deletes[path]
	return ok
}

func (p *Pending) Len() (writes, deletes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes), len(p.deletes)
}

func (p *Pending) IsEmpty() bool {
	w, d := p.Len()
	return w == 0 && d == 0
}

// Drain returns the current sets and replaces them with empty ones in one step.
// Changes made after Drain land in the next batch.
func (p *Pending) Drain() Batch {
	p.mu.Lock()
	b := Batch{Writes: p.writes, Deletes: p.deletes, seq: p.seq}
	p.writes = make(map[string]any)
	p.deletes = make(map[string]struct{})
	p.seq = make(map[string]uint64)
	p.mu.Unlock()
	return b
}

func (b Batch) IsEmpty() bool {
	return len(b.Writes) == 0 && len(b.Deletes) == 0
}

// WritePaths returns the paths to write in lexical order.
func (b Batch) WritePaths() []string {
	return slices.Sorted(maps.Keys(b.Writes))
}

// DeletePaths returns the paths to delete in lexical order.
func (b Batch) DeletePaths() []string {
	return slices.Sorted(maps.Keys(b.Deletes))
}

// Changes returns writes and deletes in the order they were made.
// A path changed twice appears once, at the position of its last change.
func (b Batch) Changes() []Change {
	out := make([]Change, 0, len(b.Writes)+len(b.Deletes))
	for path, v := range b.Writes {
		out = append(out, Change{Path: path, Value: v})
	}
	for path := range b.Deletes {
		out = append(out, Change{Path: path, Delete: true})
	}
	slices.SortFunc(out, func(x, y Change) int {
		if c := cmp.Compare(b.seq[x.Path], b.seq[y.Path]); c != 0 {
			return c
		}
		return strings.Compare(x.Path, y.Path)
	})
	return out
}

/**
 * Private API.
 */

func (p *Pending) touchUnlocked(path string) {
	p.next++
	p.seq[path] = p.next
}
