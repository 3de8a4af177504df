// Package lattice provides the lattice topologies the Hubbard model is
// sampled on. A lattice with L sites has 2L spin-orbitals: indices 0..L-1
// form the spin-up sector and L..2L-1 the spin-down sector, both mapping to
// the same physical sites.
package lattice

import (
	"slices"

	"github.com/pkg/errors"
)

// A Lattice answers the static topology queries of the Monte Carlo walker.
type Lattice interface {
	// NumSites returns the number of physical sites L.
	NumSites() int

	// SpinUpSite maps a spin-orbital index in [0, 2L) to its site index in
	// the spin-up sector.
	SpinUpSite(so int) int

	// Neighbors returns the spin-orbitals at hop distance dist from so,
	// in the same spin sector as so. Coincident neighbors within a shell are
	// deduplicated; shells at different distances are independent, so on a
	// tiny periodic lattice a wrapped long-range hop may land on the same
	// site as a short one and both terms count.
	Neighbors(so, dist int) []int

	// MaxDistance returns the largest supported hop distance.
	MaxDistance() int
}

const maxDistance = 3

// Chain is a periodic one-dimensional chain.
// The shell at distance X from site i is {i-X, i+X} modulo L.
type Chain struct {
	l  int
	nn [][][]int
}

// NewChain returns a periodic chain of l sites.
func NewChain(l int) (*Chain, error) {
	if l < 2 {
		return nil, errors.Errorf("chain length %d", l)
	}
	c := &Chain{l: l}
	c.nn = buildShells(l, func(s, dist int) []int {
		return []int{mod(s-dist, l), mod(s+dist, l)}
	})
	return c, nil
}

func (c *Chain) NumSites() int         { return c.l }
func (c *Chain) SpinUpSite(so int) int { return so % c.l }
func (c *Chain) MaxDistance() int      { return maxDistance }

func (c *Chain) Neighbors(so, dist int) []int {
	return sector(c.nn[dist-1][so%c.l], so, c.l)
}

// Square is a periodic two-dimensional square lattice of side*side sites.
// Shell 1 holds the axial nearest neighbors, shell 2 the diagonal neighbors,
// and shell 3 the axial neighbors at distance two.
type Square struct {
	side int
	l    int
	nn   [][][]int
}

// NewSquare returns a periodic square lattice with the given side length.
func NewSquare(side int) (*Square, error) {
	if side < 2 {
		return nil, errors.Errorf("square side %d", side)
	}
	s := &Square{side: side, l: side * side}

	shifts := [maxDistance][][2]int{
		{{-1, 0}, {1, 0}, {0, -1}, {0, 1}},
		{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}},
		{{-2, 0}, {2, 0}, {0, -2}, {0, 2}},
	}
	s.nn = buildShells(s.l, func(site, dist int) []int {
		y, x := site/side, site%side
		nbs := make([]int, 0, 4)
		for _, d := range shifts[dist-1] {
			nbs = append(nbs, mod(y+d[0], side)*side+mod(x+d[1], side))
		}
		return nbs
	})
	return s, nil
}

func (s *Square) NumSites() int         { return s.l }
func (s *Square) SpinUpSite(so int) int { return so % s.l }
func (s *Square) MaxDistance() int      { return maxDistance }

func (s *Square) Neighbors(so, dist int) []int {
	return sector(s.nn[dist-1][so%s.l], so, s.l)
}

// buildShells precomputes the deduplicated neighbor shells for every site and
// every distance class, in the spin-up sector.
func buildShells(l int, shell func(site, dist int) []int) [][][]int {
	nn := make([][][]int, maxDistance)
	for dist := 1; dist <= maxDistance; dist++ {
		nn[dist-1] = make([][]int, l)
		for s := 0; s < l; s++ {
			uniq := make([]int, 0, 4)
			for _, nb := range shell(s, dist) {
				if nb == s || slices.Contains(uniq, nb) {
					continue
				}
				uniq = append(uniq, nb)
			}
			nn[dist-1][s] = uniq
		}
	}
	return nn
}

// sector shifts an up-sector neighbor list into the sector of so.
func sector(up []int, so, l int) []int {
	if so < l {
		return up
	}
	down := make([]int, len(up))
	for i, s := range up {
		down[i] = s + l
	}
	return down
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
