// Package hubbardvmc implements a variational Monte Carlo sampler for the
// Hubbard model with a Slater-Jastrow trial wavefunction.
//
// References:
//   - C. Gros, Physics of projected wavefunctions, Annals of Physics 189, 53 (1989).
package hubbardvmc

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"hubbardvmc/lattice"
)

// Config configures a Walker.
type Config struct {
	// Seed seeds the walker's exclusively owned random source.
	Seed uint64
	// Lattice is the topology the walk runs on. The walker takes ownership.
	Lattice lattice.Lattice
	// Orbitals is the 2L x N single-particle orbital matrix M.
	Orbitals *mat.Dense
	// Jastrow is the L x L pairwise correlation table v.
	Jastrow *Jastrow
	// Electrons is the number of electrons N. Hops conserve spin, so
	// ceil(N/2) electrons stay in the up sector for the whole walk.
	Electrons int
	// MaxHopDistance bounds proposed hops to neighbor shells 1..MaxHopDistance.
	MaxHopDistance int
	// Hopping holds the hopping amplitude t[X-1] for each neighbor distance
	// class X entering the kinetic energy.
	Hopping []float64
	// Interaction is the on-site interaction strength U.
	Interaction float64
	// RecalcInterval is the number of incremental W/T updates after which the
	// next update recomputes both from scratch, bounding floating-point drift.
	RecalcInterval int
	// Verify cross-checks every incremental update against a recomputation
	// and panics on a tolerance violation. Meant for tests and debugging; the
	// production path never executes the check.
	Verify bool
}

// A Walker performs the Metropolis walk over electron configurations weighted
// by the trial wavefunction, and maintains the ratio matrix W = M D^-1 and
// the correlation vector T needed by the acceptance test and the local energy
// estimator.
//
// A Walker is not safe for concurrent use. Horizontal scaling is done by
// running independent walkers, each with its own seed.
type Walker struct {
	rng *rand.Rand
	lat lattice.Lattice

	m *mat.Dense // orbital matrix, 2L x N
	v *Jastrow
	t []float64 // hopping amplitudes per distance class
	u float64   // on-site interaction

	maxHopDist int
	econf      *electronConf

	w    *mat.Dense // ratio matrix W, 2L x N
	tvec []float64  // correlation vector T, length L

	sweeps         int
	recalcInterval int
	sinceRecalc    int
	verify         bool

	// scratch for the rank-one W update
	colK    []float64
	rowDiff []float64
}

// maxCondition is the LU condition number above which the determinant
// submatrix D is treated as singular.
const maxCondition = 1e14

// New builds a walker and computes the initial W and T. The initial electron
// configuration is resampled until D is invertible, which is expected to
// succeed quickly for any trial wavefunction with nonzero overlap with
// typical configurations.
func New(cfg Config) (*Walker, error) {
	if cfg.Lattice == nil {
		return nil, errors.Errorf("nil lattice")
	}
	l := cfg.Lattice.NumSites()
	if cfg.Electrons <= 0 || (cfg.Electrons+1)/2 > l {
		return nil, errors.Errorf("%d electrons on %d sites", cfg.Electrons, l)
	}
	if cfg.Orbitals == nil {
		return nil, errors.Errorf("nil orbital matrix")
	}
	if r, c := cfg.Orbitals.Dims(); r != 2*l || c != cfg.Electrons {
		return nil, errors.Errorf("orbital matrix %dx%d, expected %dx%d", r, c, 2*l, cfg.Electrons)
	}
	if cfg.Jastrow == nil || cfg.Jastrow.NumSites() != l {
		return nil, errors.Errorf("jastrow table does not cover %d sites", l)
	}
	if cfg.MaxHopDistance < 1 || cfg.MaxHopDistance > cfg.Lattice.MaxDistance() {
		return nil, errors.Errorf("max hop distance %d", cfg.MaxHopDistance)
	}
	if len(cfg.Hopping) < 1 || len(cfg.Hopping) > cfg.Lattice.MaxDistance() {
		return nil, errors.Errorf("%d hopping amplitudes", len(cfg.Hopping))
	}
	if cfg.RecalcInterval < 1 {
		return nil, errors.Errorf("recalc interval %d", cfg.RecalcInterval)
	}

	wk := &Walker{
		rng:            rand.New(rand.NewPCG(cfg.Seed, 1)),
		lat:            cfg.Lattice,
		m:              cfg.Orbitals,
		v:              cfg.Jastrow,
		t:              cfg.Hopping,
		u:              cfg.Interaction,
		maxHopDist:     cfg.MaxHopDistance,
		recalcInterval: cfg.RecalcInterval,
		verify:         cfg.Verify,
		colK:           make([]float64, 2*l),
		rowDiff:        make([]float64, cfg.Electrons),
	}
	wk.econf = newElectronConf(wk.lat, cfg.Electrons, wk.rng)

	for {
		w, ok := wk.calcNewW()
		if ok {
			wk.w = w
			break
		}
		wk.econf.distributeRandom()
	}
	wk.tvec = wk.calcNewT()

	return wk, nil
}

// Step performs one Metropolis trial move and reports whether it was accepted.
func (wk *Walker) Step() bool {
	ph := wk.econf.proposeHop(wk.maxHopDist)
	if !ph.possible {
		return false
	}

	r := wk.jastrowRatio(ph.l, ph.kPos)
	p := r * r * wk.w.At(ph.l, ph.k) * wk.w.At(ph.l, ph.k)

	// The acceptance draw happens only when p < 1, keeping the draw sequence
	// deterministic for a fixed seed.
	if p >= 1 || wk.rng.Float64() < p {
		wk.econf.doHop(ph)
		wk.updateWT(ph)
		return true
	}
	return false
}

// Sweep performs one Metropolis step per electron and advances the sweep
// counter.
func (wk *Walker) Sweep() {
	for s := 0; s < wk.econf.n(); s++ {
		wk.Step()
	}
	wk.sweeps++
}

// Equilibrate runs n sweeps without advancing the sweep counter, so that
// thermalization is discarded from measurement statistics.
func (wk *Walker) Equilibrate(n int) {
	for i := 0; i < n; i++ {
		wk.Sweep()
	}
	wk.sweeps -= n
}

// Sweeps returns the number of completed measurement sweeps.
func (wk *Walker) Sweeps() int { return wk.sweeps }

// LocalEnergy returns the local energy sample at the current configuration,
// normalized by the number of lattice sites. It does not mutate the walker.
func (wk *Walker) LocalEnergy() float64 {
	var kin float64
	for k := 0; k < wk.econf.n(); k++ {
		kPos := wk.econf.electronPos(k)

		for x := 1; x <= len(wk.t); x++ {
			if wk.t[x-1] == 0 {
				continue
			}
			var sum float64
			for _, l := range wk.lat.Neighbors(kPos, x) {
				if wk.econf.siteOcc(l) != 0 {
					continue
				}
				sum += wk.jastrowRatio(l, kPos) * wk.w.At(l, k)
			}
			kin -= wk.t[x-1] * sum
		}
	}

	return (kin + wk.u*float64(wk.econf.doubleOcc())) / float64(wk.lat.NumSites())
}

// Electrons returns the electron count N.
func (wk *Walker) Electrons() int { return wk.econf.n() }

// DoubleOccupancy returns the number of doubly occupied sites.
func (wk *Walker) DoubleOccupancy() int { return wk.econf.doubleOcc() }

// SiteOccupation returns the total occupation of site i over both spin
// sectors.
func (wk *Walker) SiteOccupation(i int) int {
	return wk.econf.siteOcc(i) + wk.econf.siteOcc(i+wk.lat.NumSites())
}

// RatioMatrix returns the maintained ratio matrix W = M D^-1.
// The returned matrix is owned by the walker and must not be modified.
func (wk *Walker) RatioMatrix() *mat.Dense { return wk.w }

// Correlation returns the maintained correlation vector T.
// The returned slice is owned by the walker and must not be modified.
func (wk *Walker) Correlation() []float64 { return wk.tvec }

// jastrowRatio is the Jastrow amplitude ratio for a hop from spin-orbital
// kPos to spin-orbital l.
func (wk *Walker) jastrowRatio(l, kPos int) float64 {
	return wk.tvec[wk.lat.SpinUpSite(l)] / wk.tvec[wk.lat.SpinUpSite(kPos)] *
		math.Exp(wk.v.At(0, 0)-wk.v.At(l, kPos))
}

// updateWT refreshes W and T after an accepted hop. Incremental updates are
// cheap but accumulate floating-point error, so every RecalcInterval updates
// both objects are recomputed from the configuration instead.
func (wk *Walker) updateWT(ph hop) {
	if wk.sinceRecalc >= wk.recalcInterval {
		w, ok := wk.calcNewW()
		if !ok {
			panic(fmt.Sprintf("determinant submatrix singular at sweep %d", wk.sweeps))
		}
		wk.w = w
		wk.tvec = wk.calcNewT()
		wk.sinceRecalc = 0
		return
	}

	wk.updateW(ph)
	if wk.verify {
		wk.verifyW()
	}
	wk.updateT(ph)
	if wk.verify {
		wk.verifyT()
	}
	wk.sinceRecalc++
}

// updateW applies W' = W - (W[:,k] / W(l,k)) (W[l,:] - W[kPos,:]), the
// Sherman-Morrison style correction of M D^-1 for a single-row change of D.
func (wk *Walker) updateW(ph hop) {
	rows, cols := wk.w.Dims()
	for i := 0; i < rows; i++ {
		wk.colK[i] = wk.w.At(i, ph.k)
	}
	for j := 0; j < cols; j++ {
		wk.rowDiff[j] = wk.w.At(ph.l, j) - wk.w.At(ph.kPos, j)
	}
	wlk := wk.colK[ph.l]

	for i := 0; i < rows; i++ {
		f := wk.colK[i] / wlk
		for j := 0; j < cols; j++ {
			wk.w.Set(i, j, wk.w.At(i, j)-f*wk.rowDiff[j])
		}
	}
}

// updateT applies T'[i] = T[i] exp(v(i, site(l)) - v(i, site(kPos))),
// reflecting the change in total occupation of the two sites.
func (wk *Walker) updateT(ph hop) {
	siteL := wk.lat.SpinUpSite(ph.l)
	siteK := wk.lat.SpinUpSite(ph.kPos)
	for i := range wk.tvec {
		wk.tvec[i] *= math.Exp(wk.v.At(i, siteL) - wk.v.At(i, siteK))
	}
}

// calcD returns the determinant submatrix: the rows of M at the electrons'
// current spin-orbitals.
func (wk *Walker) calcD() *mat.Dense {
	n := wk.econf.n()
	d := mat.NewDense(n, n, nil)
	for k := 0; k < n; k++ {
		d.SetRow(k, mat.Row(nil, wk.econf.electronPos(k), wk.m))
	}
	return d
}

// calcNewW recomputes W = M D^-1 from scratch via an LU decomposition.
// ok is false when D is not invertible.
func (wk *Walker) calcNewW() (w *mat.Dense, ok bool) {
	n := wk.econf.n()
	var lu mat.LU
	lu.Factorize(wk.calcD())
	if cond := lu.Cond(); math.IsNaN(cond) || cond > maxCondition {
		return nil, false
	}

	dinv := mat.NewDense(n, n, nil)
	if err := lu.SolveTo(dinv, false, eye(n)); err != nil {
		if _, isCond := err.(mat.Condition); !isCond {
			return nil, false
		}
	}

	w = mat.NewDense(2*wk.lat.NumSites(), n, nil)
	w.Mul(wk.m, dinv)
	return w, true
}

// calcNewT recomputes T[i] = exp(sum_j v(i, j) n(j)) from scratch, with n(j)
// the total occupation of site j.
func (wk *Walker) calcNewT() []float64 {
	l := wk.lat.NumSites()
	tvec := make([]float64, l)
	for i := 0; i < l; i++ {
		var sum float64
		for j := 0; j < l; j++ {
			sum += wk.v.At(i, j) * float64(wk.econf.siteOcc(j)+wk.econf.siteOcc(j+l))
		}
		tvec[i] = math.Exp(sum)
	}
	return tvec
}

// Verification tolerances: 1% relative on W, 0.1% on T. Entry pairs whose
// magnitudes sum below smallValue are treated as reconciled, avoiding
// division-by-near-zero false failures.
const (
	wTolerance = 0.01
	tTolerance = 0.001
	smallValue = 0.001
)

func (wk *Walker) verifyW() {
	chk, ok := wk.calcNewW()
	if !ok {
		panic("determinant submatrix singular during verification")
	}
	rows, cols := wk.w.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a, b := wk.w.At(i, j), chk.At(i, j)
			if !reconciled(a, b, wTolerance) {
				panic(fmt.Sprintf("ratio matrix drift at (%d,%d): %g, recomputed %g, %d updates since recompute",
					i, j, a, b, wk.sinceRecalc+1))
			}
		}
	}
}

func (wk *Walker) verifyT() {
	chk := wk.calcNewT()
	for i, a := range wk.tvec {
		if !reconciled(a, chk[i], tTolerance) {
			panic(fmt.Sprintf("correlation vector drift at %d: %g, recomputed %g, %d updates since recompute",
				i, a, chk[i], wk.sinceRecalc+1))
		}
	}
}

func reconciled(a, b, tol float64) bool {
	if math.Abs(a)+math.Abs(b) < smallValue {
		return true
	}
	r := a / b
	return r > 1-tol && r < 1+tol
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
