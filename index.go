package nsas

import (
	"sync"
	"sync/atomic"
)

// entryIndex binds a hashTable to its lruList under one mutex. The two
// containers must move in lockstep: aging out of the list removes the entry
// from the table, and every table insertion registers with the list. The
// binding happens here, by pointing the list's eviction hook at the table's
// remove, so the pair can never diverge.
//
// The list capacity is three times the table's bucket count, so that a full
// bucket chain is at most three probes on average before an unused entry
// ages out.
type entryIndex[T keyed] struct {
	mu    sync.Mutex
	table *hashTable[T]
	lru   *lruList[T]

	evicted atomic.Uint64
}

func newEntryIndex[T keyed](hashSize uint32) *entryIndex[T] {
	ix := &entryIndex[T]{table: newHashTable[T](hashSize)}
	ix.lru = newLruList[T](lruCapacityFactor*int(hashSize), func(evicted T) {
		ix.table.remove(evicted.key())
		ix.evicted.Add(1)
	})
	return ix
}

// getOrAdd returns the entry for key, constructing it via factory when
// absent. A created entry is registered with the lru list; a found entry is
// touched. Both happen under the index lock, as one step, so an entry
// reachable from the table is always reachable from the list.
func (ix *entryIndex[T]) getOrAdd(key hashKey, factory func() T) (T, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entry, created := ix.table.getOrAdd(key, factory)
	if created {
		ix.lru.add(entry)
	} else {
		ix.lru.touch(entry)
	}
	return entry, created
}

func (ix *entryIndex[T]) get(key hashKey) (T, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.table.get(key)
}

func (ix *entryIndex[T]) len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.table.len()
}

func (ix *entryIndex[T]) evictions() uint64 {
	return ix.evicted.Load()
}
