package selection

import (
	"github.com/remoteshelf/shelf/pkg/catalog"
	"github.com/remoteshelf/shelf/pkg/remote"
)

// Item is one selected entry with its optional stat
type Item struct {
	Index int
	Entry catalog.Entry
	Stat  *remote.Stat
}

// Iter walks a selection in current order. Iteration does not mutate the
// selection and can be restarted by calling Iter() again.
type Iter struct {
	sel  Selection
	next int
}

// Iter returns a fresh iterator over the selection
func (s Selection) Iter() *Iter {
	return &Iter{sel: s}
}

// Next yields the next item, or false when the selection is exhausted
func (it *Iter) Next() (Item, bool) {
	if it.next >= len(it.sel.indices) {
		return Item{}, false
	}
	idx := it.sel.indices[it.next]
	it.next++

	item := Item{Index: idx, Entry: it.sel.cat.Entry(idx)}
	if it.sel.stats.populated {
		st := it.sel.stats.get(idx)
		item.Stat = &st
	}
	return item, true
}

// Items collects the whole selection into a slice
func (s Selection) Items() []Item {
	out := make([]Item, 0, len(s.indices))
	it := s.Iter()
	for item, ok := it.Next(); ok; item, ok = it.Next() {
		out = append(out, item)
	}
	return out
}
