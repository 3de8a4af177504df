package exactdiag

import (
	"fmt"
	"math"
	"testing"

	"hubbardvmc"
	"hubbardvmc/lattice"
)

func TestGroundEnergy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		l     int
		nUp   int
		nDown int
		hop   float64
		u     float64
		e     float64
	}{
		// Two-site Hubbard at half filling: E0 = (U - sqrt(U^2 + 16 t^2)) / 2.
		{l: 2, nUp: 1, nDown: 1, hop: 1, u: 4, e: 2 - 2*math.Sqrt2},
		{l: 2, nUp: 1, nDown: 1, hop: 1, u: 0, e: -2},
		// Free electrons on a 4-ring, one per spin in the k = 0 orbital.
		{l: 4, nUp: 1, nDown: 1, hop: 1, u: 0, e: -4},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d_%.0f", test.l, test.nUp, test.nDown, test.u), func(t *testing.T) {
			t.Parallel()
			lat, err := lattice.NewChain(test.l)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			e, err := GroundEnergy(lat, test.nUp, test.nDown, test.hop, test.u)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if math.Abs(e-test.e) > 1e-3 {
				t.Fatalf("%f, expected %f", e, test.e)
			}
		})
	}
}

func TestVMCMatchesExactGroundState(t *testing.T) {
	t.Parallel()
	// At U = 0 the tight-binding determinant is the exact ground state, so
	// the VMC local energy equals the exact ground energy at every
	// configuration along the walk.
	lat, err := lattice.NewChain(4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m, err := hubbardvmc.TightBindingOrbitals(lat, 1, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	walker, err := hubbardvmc.New(hubbardvmc.Config{
		Seed:           5,
		Lattice:        lat,
		Orbitals:       m,
		Jastrow:        hubbardvmc.NewJastrow(4),
		Electrons:      2,
		MaxHopDistance: 1,
		Hopping:        []float64{1},
		RecalcInterval: 8,
		Verify:         true,
	})
	if err != nil {
		t.Fatalf("%+v", err)
	}

	exact, err := GroundEnergy(lat, 1, 1, 1, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	walker.Equilibrate(32)
	for i := 0; i < 32; i++ {
		walker.Sweep()
		got := walker.LocalEnergy() * float64(lat.NumSites())
		if math.Abs(got-exact) > 1e-3 {
			t.Fatalf("%f, expected %f", got, exact)
		}
	}
}
