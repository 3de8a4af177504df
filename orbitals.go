package hubbardvmc

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"hubbardvmc/lattice"
)

// TightBindingOrbitals returns the 2L x (nUp+nDown) orbital matrix whose
// columns are the lowest eigenvectors of the nearest-neighbor hopping matrix.
// The first nUp columns live on the up-sector rows, the remaining nDown
// columns on the down-sector rows. This is the free trial determinant the
// Jastrow factor is multiplied onto.
func TightBindingOrbitals(lat lattice.Lattice, nUp, nDown int) (*mat.Dense, error) {
	l := lat.NumSites()
	if nUp < 0 || nDown < 0 || nUp > l || nDown > l || nUp+nDown == 0 {
		return nil, errors.Errorf("%d up, %d down electrons on %d sites", nUp, nDown, l)
	}

	h := mat.NewSymDense(l, nil)
	for s := 0; s < l; s++ {
		for _, nb := range lat.Neighbors(s, 1) {
			h.SetSym(s, nb, -1)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(h, true); !ok {
		return nil, errors.Errorf("eigendecomposition failed")
	}
	// EigenSym sorts eigenvalues in ascending order, so the leading columns
	// are the lowest orbitals.
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	m := mat.NewDense(2*l, nUp+nDown, nil)
	for s := 0; s < l; s++ {
		for c := 0; c < nUp; c++ {
			m.Set(s, c, vecs.At(s, c))
		}
		for c := 0; c < nDown; c++ {
			m.Set(l+s, nUp+c, vecs.At(s, c))
		}
	}
	return m, nil
}
