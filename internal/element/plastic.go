package element

import "sync"

// PlasticState is the internal variable set of a plastic element.
type PlasticState struct {
	Strain [3][3]float64 // plastic Green strain
	Shift  [3][3]float64 // kinematic hardening back stress
	Yields int           // number of committed steps that yielded
}

// PlasticCell owns the plastic state of one element. Evaluation only
// reads snapshots; Commit is reserved for the single writer that
// advances the state between time steps.
type PlasticCell struct {
	mu    sync.RWMutex
	state PlasticState
}

func NewPlasticCell() *PlasticCell {
	return &PlasticCell{}
}

// Snapshot returns a copy of the current state. A nil cell reads as the
// virgin state.
func (c *PlasticCell) Snapshot() PlasticState {
	if c == nil {
		return PlasticState{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Commit applies fn to the state under the write lock.
func (c *PlasticCell) Commit(fn func(*PlasticState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

func (c *PlasticCell) Reset() {
	c.Commit(func(s *PlasticState) { *s = PlasticState{} })
}

// Flat returns both tensors column-major, for reporting.
func (s PlasticState) Flat() (strain, shift []float64) {
	strain = make([]float64, 0, 9)
	shift = make([]float64, 0, 9)
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			strain = append(strain, s.Strain[r][c])
			shift = append(shift, s.Shift[r][c])
		}
	}
	return strain, shift
}
