// Package obs stores per-sweep Monte Carlo measurement samples and computes
// their statistics.
package obs

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

const tableSamples = "samples"

// Store is a sqlite-backed store of measurement samples, keyed by run name
// and sweep number. Re-adding a (run, sweep) pair overwrites the sample, so
// interrupted runs can be resumed.
type Store struct {
	Path string

	db *sql.DB
}

// Open opens or creates the store at dbPath.
func Open(dbPath string) (*Store, error) {
	s := &Store{Path: dbPath}
	var err error
	s.db, err = sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(s.db); err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run TEXT, sweep INTEGER, energy REAL, dblocc INTEGER, PRIMARY KEY (run, sweep)) STRICT`, tableSamples)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Sample is one per-sweep measurement.
type Sample struct {
	Sweep  int
	Energy float64
	DblOcc int
}

// Add records a sample for the run.
func (s *Store) Add(run string, smp Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (run, sweep, energy, dblocc) VALUES (?, ?, ?, ?)`, tableSamples)
	if _, err := s.db.ExecContext(ctx, sqlStr, run, smp.Sweep, smp.Energy, smp.DblOcc); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Samples returns the run's samples ordered by sweep.
func (s *Store) Samples(run string) ([]Sample, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 48*time.Hour)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT sweep, energy, dblocc FROM %s WHERE run=? ORDER BY sweep`, tableSamples)
	rows, err := s.db.QueryContext(ctx, sqlStr, run)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	samples := make([]Sample, 0)
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(&smp.Sweep, &smp.Energy, &smp.DblOcc); err != nil {
			return nil, errors.Wrap(err, "")
		}
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return samples, nil
}

// Stats summarizes the samples of a run.
type Stats struct {
	Samples   int
	Energy    float64 // mean local energy
	EnergyErr float64 // standard error of the energy from binning
	DblOcc    float64 // mean double occupancy
}

// Stats computes the run's summary. numBins controls the binning analysis of
// the energy standard error: successive sweeps are correlated, and averaging
// within bins before taking the variance removes most of that bias.
func (s *Store) Stats(run string, numBins int) (Stats, error) {
	samples, err := s.Samples(run)
	if err != nil {
		return Stats{}, errors.Wrap(err, "")
	}
	if len(samples) == 0 {
		return Stats{}, nil
	}

	energies := make([]float64, len(samples))
	var dblOcc float64
	for i, smp := range samples {
		energies[i] = smp.Energy
		dblOcc += float64(smp.DblOcc)
	}

	st := Stats{Samples: len(samples), DblOcc: dblOcc / float64(len(samples))}
	st.Energy, st.EnergyErr = binStats(energies, numBins)
	return st, nil
}

func binStats(xs []float64, numBins int) (mean, stderr float64) {
	mean = stat.Mean(xs, nil)
	if numBins < 2 || len(xs) < 2*numBins {
		return mean, 0
	}

	size := len(xs) / numBins
	binMeans := make([]float64, 0, numBins)
	for b := 0; b < numBins; b++ {
		binMeans = append(binMeans, stat.Mean(xs[b*size:(b+1)*size], nil))
	}
	stderr = math.Sqrt(stat.Variance(binMeans, nil) / float64(numBins))
	return mean, stderr
}
