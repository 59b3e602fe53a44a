package pagination

import (
	"math"

	"github.com/akashgurava/deckterra/pkg/client"
)

// DefaultOverfetchRatio requests 20% more items than desired, since
// duplicates across page boundaries are removed after the merge.
const DefaultOverfetchRatio = 1.2

// Page is one offset/count window into the remote collection.
type Page struct {
	Offset uint32
	Count  uint32
}

// Plan computes the pages needed to cover totalDesired items with fixed
// size pages after applying the overfetch ratio. Every page is full except
// the last, which requests only the remainder (or a full page when the
// remainder is zero). Ratios below 1 or not finite are treated as 1, and
// the target is capped so every offset fits in a uint32.
func Plan(totalDesired, pageSize uint32, overfetchRatio float64) []Page {
	if totalDesired == 0 || pageSize == 0 {
		return nil
	}
	if math.IsNaN(overfetchRatio) || math.IsInf(overfetchRatio, 0) || overfetchRatio < 1 {
		overfetchRatio = 1
	}

	target := uint64(math.MaxUint32)
	if want := math.Ceil(float64(totalDesired) * overfetchRatio); want < math.MaxUint32 {
		target = uint64(want)
	}
	size := uint64(pageSize)
	pageCount := (target + size - 1) / size

	pages := make([]Page, 0, pageCount)
	for i := uint64(0); i < pageCount; i++ {
		count := size
		if i == pageCount-1 {
			if rem := target - (pageCount-1)*size; rem != 0 {
				count = rem
			}
		}
		pages = append(pages, Page{
			Offset: uint32(i * size),
			Count:  uint32(count),
		})
	}
	return pages
}

// Total returns the number of items requested across pages.
func Total(pages []Page) uint64 {
	var n uint64
	for _, p := range pages {
		n += uint64(p.Count)
	}
	return n
}

// Descriptors maps planned pages to request descriptors, in page order.
func Descriptors(pages []Page, build func(Page) client.Descriptor) []client.Descriptor {
	descriptors := make([]client.Descriptor, len(pages))
	for i, p := range pages {
		descriptors[i] = build(p)
	}
	return descriptors
}
