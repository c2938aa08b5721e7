package nsas

import (
	"container/list"
	"fmt"
)

// keyed is implemented by every entry type held in a hashTable/lruList pair.
type keyed interface {
	key() hashKey
}

// lruList is a bounded recency list. New entries go in at the hot end;
// when the list is over capacity the entry at the cold end is handed to the
// eviction hook and dropped. touch splices an entry back to the hot end in
// O(1) via the element index.
type lruList[T keyed] struct {
	capacity int
	onEvict  func(T)
	order    *list.List
	elems    map[hashKey]*list.Element
}

func newLruList[T keyed](capacity int, onEvict func(T)) *lruList[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("lruList: invalid capacity %d", capacity))
	}
	return &lruList[T]{
		capacity: capacity,
		onEvict:  onEvict,
		order:    list.New(),
		elems:    make(map[hashKey]*list.Element, capacity),
	}
}

// add inserts entry at the most-recently-used end, evicting from the
// least-recently-used end if the list is over capacity. The eviction hook
// runs synchronously, before the list's reference is dropped.
// Adding an entry that is already tracked is a contract violation.
func (l *lruList[T]) add(entry T) {
	k := entry.key()
	if _, tracked := l.elems[k]; tracked {
		panic(fmt.Sprintf("lruList: %v: %s", ErrEntryAlreadyTracked, k))
	}

	l.elems[k] = l.order.PushBack(entry)

	for l.order.Len() > l.capacity {
		cold := l.order.Front()
		evicted := cold.Value.(T)
		if l.onEvict != nil {
			l.onEvict(evicted)
		}
		delete(l.elems, evicted.key())
		l.order.Remove(cold)
	}
}

// touch moves an already-present entry to the most-recently-used end.
// Touching an entry the list does not hold is a contract violation.
func (l *lruList[T]) touch(entry T) {
	elem, tracked := l.elems[entry.key()]
	if !tracked {
		panic(fmt.Sprintf("lruList: %v: %s", ErrEntryNotTracked, entry.key()))
	}
	l.order.MoveToBack(elem)
}

func (l *lruList[T]) len() int {
	return l.order.Len()
}
