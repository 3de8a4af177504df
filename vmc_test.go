package hubbardvmc

import (
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	"hubbardvmc/lattice"
)

// newChainWalker builds a walker on a periodic chain with tight-binding
// orbitals and verification enabled.
func newChainWalker(t *testing.T, l, n int, jastrowParams []float64, u float64) *Walker {
	t.Helper()
	lat, err := lattice.NewChain(l)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m, err := TightBindingOrbitals(lat, (n+1)/2, n/2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	v := NewJastrow(l)
	if jastrowParams != nil {
		v, err = DistanceJastrow(l, jastrowParams)
		if err != nil {
			t.Fatalf("%+v", err)
		}
	}

	wk, err := New(Config{
		Seed:           1,
		Lattice:        lat,
		Orbitals:       m,
		Jastrow:        v,
		Electrons:      n,
		MaxHopDistance: 1,
		Hopping:        []float64{1},
		Interaction:    u,
		RecalcInterval: 16,
		Verify:         true,
	})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return wk
}

func TestNewToyLattice(t *testing.T) {
	t.Parallel()
	lat, err := lattice.NewChain(2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m := mat.NewDense(4, 1, []float64{2, 1, 0, 0})
	wk, err := New(Config{
		Seed:           3,
		Lattice:        lat,
		Orbitals:       m,
		Jastrow:        NewJastrow(2),
		Electrons:      1,
		MaxHopDistance: 1,
		Hopping:        []float64{1},
		RecalcInterval: 4,
		Verify:         true,
	})
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// W(k_pos, k) = 1 is an identity of W = M D^-1.
	pos := wk.econf.electronPos(0)
	if got := wk.w.At(pos, 0); math.Abs(got-1) > 1e-12 {
		t.Fatalf("%f, expected 1", got)
	}
	// T is all ones for a zero Jastrow table.
	for i, ti := range wk.Correlation() {
		if ti != 1 {
			t.Fatalf("T[%d] = %f, expected 1", i, ti)
		}
	}
}

func TestAcceptanceProbability(t *testing.T) {
	t.Parallel()
	tests := []struct {
		orbitals []float64
		pos      int
		p        float64
	}{
		// With v = 0, R = 1 and p = W(l, 0)^2 = (M[l] / M[pos])^2.
		{orbitals: []float64{2, 1, 0, 0}, pos: 0, p: 0.25},
		{orbitals: []float64{2, 1, 0, 0}, pos: 1, p: 4},
	}
	for _, test := range tests {
		lat, err := lattice.NewChain(2)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		wk, err := New(Config{
			Seed:           3,
			Lattice:        lat,
			Orbitals:       mat.NewDense(4, 1, test.orbitals),
			Jastrow:        NewJastrow(2),
			Electrons:      1,
			MaxHopDistance: 1,
			Hopping:        []float64{1},
			RecalcInterval: 4,
		})
		if err != nil {
			t.Fatalf("%+v", err)
		}

		// Force the electron position and rebuild the derived state.
		wk.econf.pos[0] = test.pos
		clear(wk.econf.occ)
		wk.econf.occ[test.pos] = 1
		wk.econf.dblOcc = 0
		w, ok := wk.calcNewW()
		if !ok {
			t.Fatalf("singular")
		}
		wk.w = w
		wk.tvec = wk.calcNewT()

		target := 1 - test.pos
		r := wk.jastrowRatio(target, test.pos)
		if r != 1 {
			t.Fatalf("%f, expected 1", r)
		}
		p := r * r * wk.w.At(target, 0) * wk.w.At(target, 0)
		if math.Abs(p-test.p) > 1e-12 {
			t.Fatalf("%f, expected %f", p, test.p)
		}
	}
}

func TestIncrementalMatchesRecompute(t *testing.T) {
	t.Parallel()
	// Verify is on, so every incremental update is additionally self-checked
	// inside the walker.
	wk := newChainWalker(t, 8, 4, []float64{0.5, -0.2, -0.1, -0.05, -0.02}, 4)
	for i := 0; i < 50; i++ {
		wk.Sweep()
	}

	chkW, ok := wk.calcNewW()
	if !ok {
		t.Fatalf("singular")
	}
	rows, cols := wk.w.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !reconciled(wk.w.At(i, j), chkW.At(i, j), wTolerance) {
				t.Fatalf("W(%d,%d) = %g, recomputed %g", i, j, wk.w.At(i, j), chkW.At(i, j))
			}
		}
	}
	chkT := wk.calcNewT()
	for i, ti := range wk.tvec {
		if !reconciled(ti, chkT[i], tTolerance) {
			t.Fatalf("T[%d] = %g, recomputed %g", i, ti, chkT[i])
		}
	}
}

func TestRecomputeDeterministic(t *testing.T) {
	t.Parallel()
	wk := newChainWalker(t, 8, 4, []float64{0.5, -0.2, -0.1, -0.05, -0.02}, 4)
	for i := 0; i < 5; i++ {
		wk.Sweep()
	}

	w1, ok1 := wk.calcNewW()
	w2, ok2 := wk.calcNewW()
	if !ok1 || !ok2 {
		t.Fatalf("singular")
	}
	if !mat.Equal(w1, w2) {
		t.Fatalf("recomputations differ")
	}
	if t1, t2 := wk.calcNewT(), wk.calcNewT(); !slices.Equal(t1, t2) {
		t.Fatalf("%v, expected %v", t1, t2)
	}
}

func TestEquilibrateCounter(t *testing.T) {
	t.Parallel()
	wk := newChainWalker(t, 8, 4, nil, 0)
	wk.Equilibrate(5)
	wk.Sweep()
	if wk.Sweeps() != 1 {
		t.Fatalf("%d, expected 1", wk.Sweeps())
	}
}

func TestEnergyRelabelInvariance(t *testing.T) {
	t.Parallel()
	wk := newChainWalker(t, 8, 4, []float64{0.5, -0.2, -0.1, -0.05, -0.02}, 4)
	for i := 0; i < 10; i++ {
		wk.Sweep()
	}
	e1 := wk.LocalEnergy()

	// Relabel electrons; the occupation is unchanged.
	slices.Reverse(wk.econf.pos)
	w, ok := wk.calcNewW()
	if !ok {
		t.Fatalf("singular")
	}
	wk.w = w
	e2 := wk.LocalEnergy()

	if math.Abs(e1-e2) > 1e-9 {
		t.Fatalf("%f, expected %f", e2, e1)
	}
}

func TestSiteOccupation(t *testing.T) {
	t.Parallel()
	wk := newChainWalker(t, 8, 4, []float64{0.5, -0.2, -0.1, -0.05, -0.02}, 4)
	for i := 0; i < 10; i++ {
		wk.Sweep()
	}

	var total, double int
	for i := 0; i < 8; i++ {
		occ := wk.SiteOccupation(i)
		if occ < 0 || occ > 2 {
			t.Fatalf("site %d occupation %d", i, occ)
		}
		total += occ
		if occ == 2 {
			double++
		}
	}
	if total != wk.Electrons() {
		t.Fatalf("%d, expected %d", total, wk.Electrons())
	}
	if double != wk.DoubleOccupancy() {
		t.Fatalf("%d, expected %d", double, wk.DoubleOccupancy())
	}
}

func TestRingTightBinding(t *testing.T) {
	t.Parallel()
	// A 4-site ring with one electron per spin in the uniform orbital is the
	// exact U = 0 ground state: every feasible hop has p = W(l,k)^2 = 1 and
	// the local energy is the constant tight-binding value.
	wk := newChainWalker(t, 4, 2, nil, 0)
	for sweep := 0; sweep < 20; sweep++ {
		for k := 0; k < wk.Electrons(); k++ {
			kPos := wk.econf.electronPos(k)
			for _, l := range wk.lat.Neighbors(kPos, 1) {
				if wk.econf.siteOcc(l) != 0 {
					continue
				}
				r := wk.jastrowRatio(l, kPos)
				if math.Abs(r-1) > 1e-12 {
					t.Fatalf("%g, expected 1", r)
				}
				p := r * r * wk.w.At(l, k) * wk.w.At(l, k)
				if math.Abs(p-1) > 1e-9 {
					t.Fatalf("%g, expected 1", p)
				}
			}
		}

		if e := wk.LocalEnergy() * 4; math.Abs(e-(-4)) > 1e-9 {
			t.Fatalf("%f, expected %f", e, -4.0)
		}
		wk.Sweep()
	}
}
