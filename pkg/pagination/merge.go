package pagination

import (
	"cmp"
	"slices"
)

// Entity is an item with a composite identity: primary key first, secondary
// key breaking ties.
type Entity interface {
	CompositeKey() (primary, secondary string)
}

// CompareKeys orders entities by composite key, byte-wise.
func CompareKeys[E Entity](a, b E) int {
	ap, as := a.CompositeKey()
	bp, bs := b.CompositeKey()
	if c := cmp.Compare(ap, bp); c != 0 {
		return c
	}
	return cmp.Compare(as, bs)
}

// Merge flattens the present pages, sorts by composite key and drops
// entities whose key repeats. Empty slots count as empty pages. The first
// occurrence of a key, in page order, is kept.
func Merge[E Entity](pages BatchResult[[]E]) []E {
	size := 0
	for _, p := range pages {
		if p.Present {
			size += len(p.Value)
		}
	}

	merged := make([]E, 0, size)
	for _, p := range pages {
		if p.Present {
			merged = append(merged, p.Value...)
		}
	}

	slices.SortStableFunc(merged, CompareKeys[E])
	return slices.CompactFunc(merged, func(a, b E) bool {
		return CompareKeys(a, b) == 0
	})
}
