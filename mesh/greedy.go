package mesh

import (
	"context"

	"github.com/willf/bitset"
)

// sweep emits the merged full-cube faces pointing in direction f, one slice at a time along f's
// axis. Each slice is turned into a mask of palette index + 1 (0 where no face is needed) and
// covered with maximal rectangles.
func (m *mesher) sweep(ctx context.Context, f Face, out quadSet) error {
	a := f.Axis()
	u, v := (a+1)%3, (a+2)%3
	nu, nv := m.hi[u]-m.lo[u], m.hi[v]-m.lo[v]
	mask := make([]uint32, nu*nv)
	done := bitset.New(uint(nu * nv))

	for s := m.lo[a]; s < m.hi[a]; s++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var c [3]int
		c[a] = s
		visible := false
		for j := range nv {
			for i := range nu {
				c[u], c[v] = m.lo[u]+i, m.lo[v]+j
				mask[j*nu+i] = m.cubeFace(c, f)
				visible = visible || mask[j*nu+i] != 0
			}
		}
		if !visible {
			continue
		}
		done.ClearAll()
		m.merge(f, s, nu, nv, mask, done, out)
	}
	return nil
}

// cubeFace returns the mask value of face f of cell c.
func (m *mesher) cubeFace(c [3]int, f Face) uint32 {
	idx, g := m.at(c)
	if g.Kind != KindCube {
		return 0
	}
	nIdx, n := m.at(step(c, f))
	if cubeFaceHidden(idx, f, nIdx, n) {
		return 0
	}
	return uint32(idx) + 1
}

func (m *mesher) merge(f Face, s, nu, nv int, mask []uint32, done *bitset.BitSet, out quadSet) {
	a := f.Axis()
	u, v := (a+1)%3, (a+2)%3
	plane := float32(s)
	if f.Positive() {
		plane++
	}
	free := func(k int, mat uint32) bool {
		return mask[k] == mat && !done.Test(uint(k))
	}

	for j := range nv {
		for i := 0; i < nu; {
			k := j*nu + i
			mat := mask[k]
			if mat == 0 || done.Test(uint(k)) {
				i++
				continue
			}
			w, h := 1, 1
			if m.greedy {
				for i+w < nu && free(k+w, mat) {
					w++
				}
			grow:
				for j+h < nv {
					for d := range w {
						if !free((j+h)*nu+i+d, mat) {
							break grow
						}
					}
					h++
				}
			}
			for dy := range h {
				for dx := range w {
					done.Set(uint((j+dy)*nu + i + dx))
				}
			}

			u0, v0 := float32(m.lo[u]+i), float32(m.lo[v]+j)
			idx := indexOf(mat)
			key := batchKey{material: idx, transparency: m.geom(idx).Transparency}
			out.add(key, rect(f, plane, u0, u0+float32(w), v0, v0+float32(h), tiledUV(float32(w), float32(h)), idx))
			i += w
		}
	}
}
