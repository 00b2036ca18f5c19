package dom

import "sync"

// Observation band as fractions of the viewport height, measured from the
// top. A heading whose top lies inside the band is in view.
const (
	bandTop    = 0.10
	bandBottom = 0.20
)

// Disposer ends a subscription. Calling it more than once is harmless.
type Disposer func()

// Viewport tracks which observed heading is current as the host reports
// scroll positions of the scroll area.
type Viewport struct {
	mu      sync.Mutex
	next    uint64
	watches map[uint64]*watch
}

type watch struct {
	ids     []string
	fn      func(id string)
	current string
}

// NewViewport creates a viewport with no watches.
func NewViewport() *Viewport {
	return &Viewport{watches: make(map[uint64]*watch)}
}

// Observe watches ids, given in document order, and calls fn whenever the
// current heading among them changes.
func (v *Viewport) Observe(ids []string, fn func(id string)) Disposer {
	v.mu.Lock()
	v.next++
	key := v.next
	v.watches[key] = &watch{ids: append([]string(nil), ids...), fn: fn}
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.watches, key)
			v.mu.Unlock()
		})
	}
}

// Watching returns the number of live watches.
func (v *Viewport) Watching() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watches)
}

// Update recomputes the current heading of every watch. offsets maps heading
// ids to their top offset within the scroll area; ids without an offset are
// not laid out and are ignored.
func (v *Viewport) Update(scrollTop, height float64, offsets map[string]float64) {
	type change struct {
		fn func(string)
		id string
	}

	v.mu.Lock()
	var changes []change
	for _, w := range v.watches {
		id := pickCurrent(w.ids, scrollTop, height, offsets)
		if id == "" || id == w.current {
			continue
		}
		w.current = id
		changes = append(changes, change{fn: w.fn, id: id})
	}
	v.mu.Unlock()

	for _, c := range changes {
		c.fn(c.id)
	}
}

// pickCurrent returns the first heading inside the band or, failing that,
// the last heading already scrolled above it.
func pickCurrent(ids []string, scrollTop, height float64, offsets map[string]float64) string {
	top := scrollTop + height*bandTop
	bottom := scrollTop + height*bandBottom

	var passed string
	for _, id := range ids {
		off, ok := offsets[id]
		if !ok {
			continue
		}
		if off >= top && off <= bottom {
			return id
		}
		if off < top {
			passed = id
		}
	}
	return passed
}
