package nsas

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

type listEntry struct {
	k hashKey
}

func (e *listEntry) key() hashKey {
	return e.k
}

func entryFor(name string) *listEntry {
	return &listEntry{k: newHashKey(name, dns.ClassINET)}
}

func TestLruList_AddWithinCapacity(t *testing.T) {
	l := newLruList[*listEntry](3, nil)

	l.add(entryFor("a."))
	l.add(entryFor("b."))
	l.add(entryFor("c."))

	assert.Equal(t, 3, l.len())
}

func TestLruList_EvictsColdEnd(t *testing.T) {
	var evicted []string
	l := newLruList[*listEntry](3, func(e *listEntry) {
		evicted = append(evicted, e.k.name)
	})

	l.add(entryFor("a."))
	l.add(entryFor("b."))
	l.add(entryFor("c."))
	l.add(entryFor("d."))

	// a. was least recently used, so it goes first; size stays bounded.
	assert.Equal(t, []string{"a."}, evicted)
	assert.Equal(t, 3, l.len())
}

func TestLruList_TouchProtectsFromEviction(t *testing.T) {
	var evicted []string
	l := newLruList[*listEntry](3, func(e *listEntry) {
		evicted = append(evicted, e.k.name)
	})

	a := entryFor("a.")
	l.add(a)
	l.add(entryFor("b."))
	l.add(entryFor("c."))

	// Touching a. moves it to the hot end, so b. becomes the eviction victim.
	l.touch(a)
	l.add(entryFor("d."))

	assert.Equal(t, []string{"b."}, evicted)
}

func TestLruList_TouchAbsentEntryPanics(t *testing.T) {
	l := newLruList[*listEntry](3, nil)
	l.add(entryFor("a."))

	assert.PanicsWithValue(t, "lruList: entry is not tracked by the lru list: b./IN", func() {
		l.touch(entryFor("b."))
	})
}

func TestLruList_AddTrackedEntryPanics(t *testing.T) {
	l := newLruList[*listEntry](3, nil)
	a := entryFor("a.")
	l.add(a)

	assert.Panics(t, func() {
		l.add(a)
	})
}

func TestLruList_HookRunsBeforeReferenceDropped(t *testing.T) {
	var seen *listEntry
	l := newLruList[*listEntry](1, func(e *listEntry) {
		seen = e
	})

	a := entryFor("a.")
	l.add(a)
	l.add(entryFor("b."))

	assert.Same(t, a, seen)
	assert.Equal(t, 1, l.len())
}

func TestLruList_InvalidCapacityPanics(t *testing.T) {
	assert.Panics(t, func() {
		newLruList[*listEntry](0, nil)
	})
}
