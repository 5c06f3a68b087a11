package residency

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Range is a half-open run [Start, End) of consecutive resident pages.
type Range struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Len returns the number of pages in the range.
func (r Range) Len() uint64 {
	return r.End - r.Start
}

// Map is a Result together with the set of resident page indices.
type Map struct {
	Result
	PageSize int

	resident *roaring64.Bitmap
}

func newMap(pageSize int) *Map {
	return &Map{
		PageSize: pageSize,
		resident: roaring64.New(),
	}
}

// fill records every resident entry of vec.
func (m *Map) fill(vec []byte) {
	for i, b := range vec {
		if b&1 != 0 {
			m.resident.Add(uint64(i))
		}
	}
	m.Cached = int64(m.resident.GetCardinality())
}

// Resident reports whether page is resident.
func (m *Map) Resident(page uint64) bool {
	return m.resident.Contains(page)
}

// Bitmap returns a copy of the resident page set.
func (m *Map) Bitmap() *roaring64.Bitmap {
	return m.resident.Clone()
}

// Ranges returns the resident pages collapsed into ascending runs.
func (m *Map) Ranges() []Range {
	var ranges []Range
	it := m.resident.Iterator()
	for it.HasNext() {
		page := it.Next()
		if n := len(ranges); n > 0 && ranges[n-1].End == page {
			ranges[n-1].End++
			continue
		}
		ranges = append(ranges, Range{Start: page, End: page + 1})
	}
	return ranges
}
