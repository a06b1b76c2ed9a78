package schematic

import (
	"maps"
	"sync"
)

// PaletteIndex references an entry of the Palette that produced it.
type PaletteIndex uint32

// Palette interns block states for one load. Lookups may run concurrently with each other and
// with Intern; inserts are serialized.
type Palette struct {
	mu     sync.RWMutex
	states []BlockState
	index  map[string]PaletteIndex
}

func NewPalette() *Palette {
	return &Palette{index: make(map[string]PaletteIndex)}
}

// Intern returns the index of s, adding it if it has not been seen yet.
func (p *Palette) Intern(s BlockState) PaletteIndex {
	key := s.Key()
	p.mu.RLock()
	idx, ok := p.index[key]
	p.mu.RUnlock()
	if ok {
		return idx
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx = PaletteIndex(len(p.states))
	p.states = append(p.states, NewBlockState(s.Name, maps.Clone(s.Properties)))
	p.index[key] = idx
	return idx
}

func (p *Palette) Lookup(s BlockState) (PaletteIndex, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx, ok := p.index[s.Key()]
	return idx, ok
}

// State returns the state at idx. The returned value shares its property map with the palette
// and must not be modified.
func (p *Palette) State(idx PaletteIndex) (BlockState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(idx) >= len(p.states) {
		return BlockState{}, false
	}
	return p.states[idx], true
}

func (p *Palette) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.states)
}

// States returns a snapshot of the palette in index order.
func (p *Palette) States() []BlockState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]BlockState(nil), p.states...)
}
