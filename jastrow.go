package hubbardvmc

import (
	"github.com/pkg/errors"
)

// Jastrow is the L x L table of pairwise correlation exponents v(i, j).
// The table is fixed for the lifetime of a walker.
type Jastrow struct {
	l int
	v []float64
}

// NewJastrow returns a zero table over l sites.
func NewJastrow(l int) *Jastrow {
	return &Jastrow{l: l, v: make([]float64, l*l)}
}

// At returns v(a, b). Spin-orbital indices are reduced to physical sites.
func (j *Jastrow) At(a, b int) float64 {
	return j.v[(a%j.l)*j.l+b%j.l]
}

// Set assigns v(a, b) = x.
func (j *Jastrow) Set(a, b int, x float64) {
	j.v[(a%j.l)*j.l+b%j.l] = x
}

// NumSites returns the number of sites the table covers.
func (j *Jastrow) NumSites() int { return j.l }

// DistanceJastrow builds a translation-invariant table on the ring metric:
// v(i, j) = params[d] with d the ring distance between sites i and j.
// params[0] is the on-site exponent and params must cover distances up to l/2.
func DistanceJastrow(l int, params []float64) (*Jastrow, error) {
	if l < 2 {
		return nil, errors.Errorf("%d sites", l)
	}
	if len(params) < l/2+1 {
		return nil, errors.Errorf("%d parameters for %d sites, need %d", len(params), l, l/2+1)
	}

	j := NewJastrow(l)
	for a := 0; a < l; a++ {
		for b := 0; b < l; b++ {
			d := a - b
			if d < 0 {
				d = -d
			}
			if l-d < d {
				d = l - d
			}
			j.Set(a, b, params[d])
		}
	}
	return j, nil
}
