// Command run samples the ground state energy of a Hubbard chain with
// variational Monte Carlo and prints the measurement statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"hubbardvmc"
	"hubbardvmc/lattice"
	"hubbardvmc/obs"
)

var (
	runDir    = flag.String("d", filepath.Join("runs", "hubbard"), "run directory")
	sites     = flag.Int("l", 10, "number of chain sites")
	electrons = flag.Int("n", 6, "number of electrons")
	uInt      = flag.Float64("u", 4, "on-site interaction U in units of t")
	gutz      = flag.Float64("g", 0.5, "on-site Jastrow exponent suppressing double occupancy")
	sweeps    = flag.Int("sweeps", 4096, "measurement sweeps")
	equil     = flag.Int("equil", 512, "equilibration sweeps")
	seed      = flag.Uint64("seed", 1, "random seed")
	verify    = flag.Bool("verify", false, "cross-check every incremental W/T update")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	store, err := obs.Open(filepath.Join(*runDir, "samples.db"))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer store.Close()

	lat, err := lattice.NewChain(*sites)
	if err != nil {
		return errors.Wrap(err, "")
	}
	nUp, nDown := (*electrons+1)/2, *electrons/2
	m, err := hubbardvmc.TightBindingOrbitals(lat, nUp, nDown)
	if err != nil {
		return errors.Wrap(err, "")
	}

	// Gutzwiller-like Jastrow: only the on-site exponent is nonzero.
	params := make([]float64, *sites/2+1)
	params[0] = -*gutz
	v, err := hubbardvmc.DistanceJastrow(*sites, params)
	if err != nil {
		return errors.Wrap(err, "")
	}

	walker, err := hubbardvmc.New(hubbardvmc.Config{
		Seed:           *seed,
		Lattice:        lat,
		Orbitals:       m,
		Jastrow:        v,
		Electrons:      *electrons,
		MaxHopDistance: 1,
		Hopping:        []float64{1},
		Interaction:    *uInt,
		RecalcInterval: 64,
		Verify:         *verify,
	})
	if err != nil {
		return errors.Wrap(err, "")
	}

	walker.Equilibrate(*equil)
	run := fmt.Sprintf("L%d_N%d_U%g_g%g_seed%d", *sites, *electrons, *uInt, *gutz, *seed)
	for i := 0; i < *sweeps; i++ {
		walker.Sweep()
		smp := obs.Sample{
			Sweep:  walker.Sweeps(),
			Energy: walker.LocalEnergy(),
			DblOcc: walker.DoubleOccupancy(),
		}
		if err := store.Add(run, smp); err != nil {
			return errors.Wrap(err, "")
		}
	}

	stats, err := store.Stats(run, 32)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("run,samples,energy,error,dblocc\n")
	fmt.Printf("%s,%d,%f,%f,%f\n", run, stats.Samples, stats.Energy, stats.EnergyErr, stats.DblOcc)
	return nil
}
