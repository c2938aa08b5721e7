package nsas

import (
	"fmt"
	"hash/maphash"
)

// hashTable is a bucket-chained associative store keyed by hashKey. The
// bucket count is fixed at construction; it is a capacity-planning parameter,
// not an adaptive one, so there is no resizing.
//
// The table performs no locking of its own. It is always owned by an
// entryIndex, whose single mutex covers the table and its paired lruList
// together.
type hashTable[T any] struct {
	seed    maphash.Seed
	buckets []*tableNode[T]
	count   int
}

type tableNode[T any] struct {
	key   hashKey
	value T
	next  *tableNode[T]
}

func newHashTable[T any](size uint32) *hashTable[T] {
	if size == 0 {
		panic(fmt.Sprintf("hashTable: %v", ErrZeroHashSize))
	}
	return &hashTable[T]{
		seed:    maphash.MakeSeed(),
		buckets: make([]*tableNode[T], size),
	}
}

func (t *hashTable[T]) bucket(key hashKey) int {
	return int(key.sum(t.seed) % uint64(len(t.buckets)))
}

func (t *hashTable[T]) get(key hashKey) (value T, found bool) {
	for node := t.buckets[t.bucket(key)]; node != nil; node = node.next {
		if node.key == key {
			return node.value, true
		}
	}
	return
}

// getOrAdd returns the entry for key, constructing it via factory when no
// entry exists. The returned flag is true when factory was called, so the
// caller knows whether the entry still needs registering with the lru list.
// This is the sole creation path into the table.
func (t *hashTable[T]) getOrAdd(key hashKey, factory func() T) (T, bool) {
	idx := t.bucket(key)
	for node := t.buckets[idx]; node != nil; node = node.next {
		if node.key == key {
			return node.value, false
		}
	}
	node := &tableNode[T]{
		key:   key,
		value: factory(),
		next:  t.buckets[idx],
	}
	t.buckets[idx] = node
	t.count++
	return node.value, true
}

// remove deletes the entry for key if present. Removing an absent key is a
// no-op; the eviction bridge relies on that.
func (t *hashTable[T]) remove(key hashKey) bool {
	idx := t.bucket(key)
	for node, prev := t.buckets[idx], (*tableNode[T])(nil); node != nil; node, prev = node.next, node {
		if node.key != key {
			continue
		}
		if prev == nil {
			t.buckets[idx] = node.next
		} else {
			prev.next = node.next
		}
		t.count--
		return true
	}
	return false
}

func (t *hashTable[T]) len() int {
	return t.count
}
