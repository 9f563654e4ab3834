package matrix

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/layout"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// Sellp is sliced ELL with padding. Rows are grouped into slices of sliceSize
// rows and each slice is stored as a small column-major ELL block whose
// length is a multiple of strideFactor.
type Sellp[V numeric.Value, I numeric.Index] struct {
	size         Dim
	sliceSize    int
	strideFactor int
	sliceLengths []int
	sliceSets    []int
	colIdxs      []I
	values       []V
}

// NewSellp allocates the storage described by sliceSets, which must hold the
// exclusive prefix sum of sliceLengths with the total in its last slot.
func NewSellp[V numeric.Value, I numeric.Index](size Dim, sliceSize, strideFactor int, sliceLengths, sliceSets []int) (*Sellp[V, I], error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	if sliceSize < 1 || strideFactor < 1 {
		return nil, fmt.Errorf("%w: slice size %d, stride factor %d", ErrBadLayout, sliceSize, strideFactor)
	}
	numSlices := layout.NumSlices(size.Rows, sliceSize)
	if len(sliceLengths) != numSlices || len(sliceSets) != numSlices+1 {
		return nil, fmt.Errorf("%w: %d slice lengths and %d slice sets for %d slices",
			ErrDimensionMismatch, len(sliceLengths), len(sliceSets), numSlices)
	}
	if sliceSets[0] != 0 {
		return nil, fmt.Errorf("%w: first slice set %d", ErrBadLayout, sliceSets[0])
	}
	for s := 0; s < numSlices; s++ {
		if sliceSets[s+1] != sliceSets[s]+sliceLengths[s] {
			return nil, fmt.Errorf("%w: slice %d", ErrNotMonotonic, s)
		}
		if sliceLengths[s]%strideFactor != 0 {
			return nil, fmt.Errorf("%w: slice %d length %d not a multiple of %d",
				ErrBadLayout, s, sliceLengths[s], strideFactor)
		}
	}
	l := layout.Sellp{SliceSize: sliceSize, SliceSets: sliceSets}
	n := l.StorageSize()
	return &Sellp[V, I]{
		size:         size,
		sliceSize:    sliceSize,
		strideFactor: strideFactor,
		sliceLengths: sliceLengths,
		sliceSets:    sliceSets,
		colIdxs:      make([]I, n),
		values:       make([]V, n),
	}, nil
}

func (m *Sellp[V, I]) Size() Dim { return m.size }
func (m *Sellp[V, I]) SliceSize() int { return m.sliceSize }
func (m *Sellp[V, I]) StrideFactor() int { return m.strideFactor }
func (m *Sellp[V, I]) SliceLengths() []int { return m.sliceLengths }
func (m *Sellp[V, I]) SliceSets() []int { return m.sliceSets }
func (m *Sellp[V, I]) ColIdxs() []I { return m.colIdxs }
func (m *Sellp[V, I]) Values() []V { return m.values }

// NumStored is the number of stored slots, padding included.
func (m *Sellp[V, I]) NumStored() int { return len(m.values) }

func (m *Sellp[V, I]) Layout() layout.Sellp {
	return layout.Sellp{SliceSize: m.sliceSize, SliceSets: m.sliceSets}
}
