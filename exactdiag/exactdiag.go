// Package exactdiag computes ground state energies of small Hubbard clusters
// by exact diagonalization, as an independent reference for Monte Carlo
// results.
package exactdiag

import (
	"math/bits"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"hubbardvmc/lattice"
)

// maxSites bounds the cluster size; the sector dimension grows as binomial
// coefficients in L and exact diagonalization is only meant for validation.
const maxSites = 10

// GroundEnergy returns the ground state energy of the Hubbard Hamiltonian on
// lat in the sector with nUp spin-up and nDown spin-down electrons, with
// nearest-neighbor hopping amplitude t and on-site interaction u.
func GroundEnergy(lat lattice.Lattice, nUp, nDown int, t, u float64) (float64, error) {
	h, err := Hamiltonian(lat, nUp, nDown, t, u)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}

	eigvals, eigvecs := tensor.Zeros(1), tensor.Zeros(1)
	var bufs [7]*tensor.Dense
	for i := range bufs {
		bufs[i] = tensor.Zeros(1)
	}
	if err := tensor.Arnoldi(eigvals, eigvecs, h, 1, bufs); err != nil {
		return 0, errors.Wrap(err, "")
	}
	return float64(real(eigvals.At(0))), nil
}

// Hamiltonian builds the dense Hamiltonian of the fixed (nUp, nDown) sector
// by explicit enumeration of the occupation basis. Basis states are indexed
// as iUp*len(downStates)+iDown, with each sector state a bitmask over sites.
func Hamiltonian(lat lattice.Lattice, nUp, nDown int, t, u float64) (*tensor.Dense, error) {
	l := lat.NumSites()
	if l > maxSites {
		return nil, errors.Errorf("%d sites", l)
	}
	if nUp < 0 || nUp > l || nDown < 0 || nDown > l || nUp+nDown == 0 {
		return nil, errors.Errorf("%d up, %d down electrons on %d sites", nUp, nDown, l)
	}

	upStates := sectorStates(l, nUp)
	downStates := sectorStates(l, nDown)
	upIndex := stateIndex(upStates)
	downIndex := stateIndex(downStates)
	dim := len(upStates) * len(downStates)
	h := tensor.Zeros(dim, dim)

	// Each nearest-neighbor bond once.
	bonds := make([][2]int, 0, 2*l)
	for s := 0; s < l; s++ {
		for _, nb := range lat.Neighbors(s, 1) {
			if nb > s {
				bonds = append(bonds, [2]int{s, nb})
			}
		}
	}

	add := func(row, col int, v float64) {
		h.SetAt([]int{row, col}, h.At(row, col)+complex(float32(v), 0))
	}

	for iu, up := range upStates {
		for id, down := range downStates {
			row := iu*len(downStates) + id

			if dbl := bits.OnesCount(uint(up & down)); dbl > 0 {
				add(row, row, u*float64(dbl))
			}

			for _, b := range bonds {
				for _, dir := range [2][2]int{{b[0], b[1]}, {b[1], b[0]}} {
					from, to := dir[0], dir[1]

					if up&(1<<from) != 0 && up&(1<<to) == 0 {
						next := up&^(1<<from) | 1<<to
						col := upIndex[next]*len(downStates) + id
						add(row, col, -t*hopSign(up, from, to))
					}
					if down&(1<<from) != 0 && down&(1<<to) == 0 {
						next := down&^(1<<from) | 1<<to
						col := iu*len(downStates) + downIndex[next]
						add(row, col, -t*hopSign(down, from, to))
					}
				}
			}
		}
	}

	return h, nil
}

// sectorStates enumerates the bitmasks over l sites with n bits set, in
// increasing order.
func sectorStates(l, n int) []int {
	states := make([]int, 0)
	for s := 0; s < 1<<l; s++ {
		if bits.OnesCount(uint(s)) == n {
			states = append(states, s)
		}
	}
	return states
}

func stateIndex(states []int) map[int]int {
	idx := make(map[int]int, len(states))
	for i, s := range states {
		idx[s] = i
	}
	return idx
}

// hopSign is the Jordan-Wigner sign of moving one fermion between two modes
// of the same sector: the parity of the occupied modes strictly between them.
func hopSign(mask, from, to int) float64 {
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}
	between := mask & (1<<hi - 1) &^ (1<<(lo+1) - 1)
	if bits.OnesCount(uint(between))%2 == 1 {
		return -1
	}
	return 1
}
