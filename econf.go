package hubbardvmc

import (
	"math/rand/v2"

	"hubbardvmc/lattice"
)

// hop is a candidate move of one electron to a different site in the same
// spin sector.
type hop struct {
	k        int  // electron index
	kPos     int  // current spin-orbital of electron k
	l        int  // target spin-orbital
	possible bool // false if the target spin-orbital is occupied
}

// electronConf tracks the assignment of electrons to the 2L spin-orbitals.
// Exactly N electrons are placed and no two electrons share a spin-orbital.
type electronConf struct {
	lat lattice.Lattice
	rng *rand.Rand

	pos    []int // electron index -> spin-orbital
	occ    []int // spin-orbital -> 1 if occupied
	dblOcc int   // sites occupied in both spin sectors

	// nbs and ncnt hold per spin-orbital the neighbors ordered by distance
	// class, and the cumulative shell sizes, for uniform hop proposals.
	nbs  [][]int
	ncnt [][]int
}

func newElectronConf(lat lattice.Lattice, n int, rng *rand.Rand) *electronConf {
	c := &electronConf{
		lat: lat,
		rng: rng,
		pos: make([]int, n),
		occ: make([]int, 2*lat.NumSites()),
	}

	c.nbs = make([][]int, 2*lat.NumSites())
	c.ncnt = make([][]int, 2*lat.NumSites())
	for so := range c.nbs {
		cnt := make([]int, 0, lat.MaxDistance())
		for dist := 1; dist <= lat.MaxDistance(); dist++ {
			c.nbs[so] = append(c.nbs[so], lat.Neighbors(so, dist)...)
			cnt = append(cnt, len(c.nbs[so]))
		}
		c.ncnt[so] = cnt
	}

	c.distributeRandom()
	return c
}

// distributeRandom places ceil(N/2) electrons uniformly in the up sector and
// the rest in the down sector, without collisions.
func (c *electronConf) distributeRandom() {
	l := c.lat.NumSites()
	clear(c.occ)
	c.dblOcc = 0

	nUp := (len(c.pos) + 1) / 2
	up := c.rng.Perm(l)
	down := c.rng.Perm(l)
	for k := range c.pos {
		switch {
		case k < nUp:
			c.pos[k] = up[k]
		default:
			c.pos[k] = down[k-nUp] + l
		}
		c.occ[c.pos[k]] = 1
	}

	for i := 0; i < l; i++ {
		if c.occ[i] == 1 && c.occ[i+l] == 1 {
			c.dblOcc++
		}
	}
}

func (c *electronConf) n() int                { return len(c.pos) }
func (c *electronConf) electronPos(k int) int { return c.pos[k] }
func (c *electronConf) siteOcc(so int) int    { return c.occ[so] }
func (c *electronConf) doubleOcc() int        { return c.dblOcc }

// proposeHop draws a random electron and a uniform target among all its
// neighbors within maxDist. The draw order (electron, then neighbor) is fixed.
func (c *electronConf) proposeHop(maxDist int) hop {
	k := c.rng.IntN(len(c.pos))
	kPos := c.pos[k]
	nn := c.nbs[kPos][:c.ncnt[kPos][maxDist-1]]
	l := nn[c.rng.IntN(len(nn))]
	return hop{k: k, kPos: kPos, l: l, possible: c.occ[l] == 0}
}

// doHop commits an accepted hop and maintains the double-occupancy count.
func (c *electronConf) doHop(h hop) {
	c.occ[h.kPos] = 0
	c.occ[h.l] = 1
	c.pos[h.k] = h.l

	l := c.lat.NumSites()
	if c.occ[otherSector(h.kPos, l)] == 1 {
		c.dblOcc--
	}
	if c.occ[otherSector(h.l, l)] == 1 {
		c.dblOcc++
	}
}

// otherSector returns the spin-orbital of the opposite spin sector on the
// same site.
func otherSector(so, l int) int {
	if so < l {
		return so + l
	}
	return so - l
}
