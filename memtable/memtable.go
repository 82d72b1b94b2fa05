// Package memtable implements the LSM tree's mutable, in-memory, ordered
// table. Adapted from the teacher's lsm/memtable package: a thin, mutex-
// guarded wrapper around an ordered structure, simplified to the single
// skip-list backend the spec requires (no pluggable btree/hashmap variants —
// the original source only ever used an OrderedDict).
package memtable

import "sync"

// Entry is a single key/value pair, used both to carry out a flush and to
// expose the memtable's contents for iteration.
type Entry struct {
	Key   string
	Value []byte
}

// MemTable is an ordered, in-memory key→value store with a size-triggered
// flush, as specified in §4.2.
type MemTable struct {
	mu       sync.RWMutex
	data     *skipList
	capacity int
}

// New creates an empty MemTable with the given maximum entry count (M_MAX).
func New(capacity int) *MemTable {
	return &MemTable{
		data:     newSkipList(16),
		capacity: capacity,
	}
}

// Put inserts or replaces key. If the resulting size exceeds the configured
// capacity, Put returns the full sorted entry list and resets the table to
// empty; otherwise it returns nil.
func (m *MemTable) Put(key string, value []byte) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data.put(key, value)

	if m.data.size > m.capacity {
		flushed := m.data.entries()
		m.data = newSkipList(16)
		return flushed
	}
	return nil
}

// Get performs a point lookup.
func (m *MemTable) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.get(key)
}

// Entries returns all entries currently held, in ascending key order. Used by
// the query executor's merged scan.
func (m *MemTable) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.entries()
}

// Size returns the number of entries currently held.
func (m *MemTable) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.size
}
