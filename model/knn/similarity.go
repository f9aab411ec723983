// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package knn

import (
	"context"
	"math"
	"time"

	"github.com/gorse-io/cf/base/log"
	"github.com/gorse-io/cf/common/parallel"
	"github.com/gorse-io/cf/config"
	"github.com/gorse-io/cf/dataset"
	"github.com/juju/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// ErrInsufficientSamples means fewer than two common items.
	ErrInsufficientSamples = errors.ConstError("insufficient samples")
	// ErrDegenerate means the correlation is undefined, e.g. a constant vector.
	ErrDegenerate = errors.ConstError("degenerate correlation input")
	// ErrInsignificant means the p-value did not pass the significance level.
	ErrInsignificant = errors.ConstError("insignificant correlation")
)

// Pearson computes the Pearson correlation coefficient of x and y and its
// two-sided p-value under the null hypothesis of zero correlation. With two
// samples the coefficient is ±1 and the p-value is 1.
func Pearson(x, y []float64) (r, p float64, err error) {
	if len(x) != len(y) {
		return 0, 0, errors.NotValidf("vectors of length %d and %d", len(x), len(y))
	}
	n := len(x)
	if n < 2 {
		return 0, 0, ErrInsufficientSamples
	}
	r = stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, 0, ErrDegenerate
	}
	r = max(-1, min(1, r))
	if n == 2 {
		return r, 1, nil
	}
	if math.Abs(r) == 1 {
		return r, 0, nil
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/((1-r)*(1+r)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(math.Abs(t))
	return r, min(p, 1), nil
}

// SimilarityMatrix is the symmetric user-by-user similarity with unit diagonal.
// Zero means no usable correlation.
type SimilarityMatrix struct {
	sym *mat.SymDense
}

func newSimilarityMatrix(n int) *SimilarityMatrix {
	if n == 0 {
		return &SimilarityMatrix{}
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, 1)
	}
	return &SimilarityMatrix{sym: sym}
}

// Len returns the number of users.
func (m *SimilarityMatrix) Len() int {
	if m.sym == nil {
		return 0
	}
	return m.sym.SymmetricDim()
}

// At returns the similarity between users i and j.
func (m *SimilarityMatrix) At(i, j int32) float64 {
	return m.sym.At(int(i), int(j))
}

func (m *SimilarityMatrix) set(i, j int32, v float64) {
	if i != j {
		m.sym.SetSym(int(i), int(j), v)
	}
}

// SimilarityStats counts the pairs resolved to zero by each cause.
type SimilarityStats struct {
	Pairs         int64
	Insufficient  int64
	Degenerate    int64
	Insignificant int64
}

// SimilarityEngine builds similarity matrices from a rating store.
type SimilarityEngine struct {
	nonNegative       bool
	significanceLevel float64
	numJobs           int
	verbose           bool
}

func NewSimilarityEngine(cfg *config.CFConfig) *SimilarityEngine {
	return &SimilarityEngine{
		nonNegative:       cfg.NonNegative(),
		significanceLevel: cfg.SignificanceLevel,
		numJobs:           cfg.NumJobs,
		verbose:           cfg.Verbose,
	}
}

// Compute returns the similarity of users i and j. A non-nil error explains
// why the similarity is zero; it is never fatal.
func (e *SimilarityEngine) Compute(store *dataset.RatingStore, i, j int32) (float64, error) {
	common := store.CommonItems(i, j)
	if len(common) < 2 {
		return 0, ErrInsufficientSamples
	}
	x := make([]float64, len(common))
	y := make([]float64, len(common))
	for k, item := range common {
		x[k], _ = store.Score(i, item)
		y[k], _ = store.Score(j, item)
	}
	r, p, err := Pearson(x, y)
	if err != nil {
		return 0, err
	}
	if p >= e.significanceLevel {
		return 0, ErrInsignificant
	}
	if e.nonNegative {
		r = max(0, r)
	}
	return r, nil
}

// Build computes the similarity of every user pair. Row i owns the pairs
// (i, j) for j > i, so each cell is written by exactly one worker.
func (e *SimilarityEngine) Build(ctx context.Context, store *dataset.RatingStore) (*SimilarityMatrix, SimilarityStats, error) {
	start := time.Now()
	n := store.CountUsers()
	matrix := newSimilarityMatrix(n)
	var pairs, insufficient, degenerate, insignificant atomic.Int64
	err := parallel.Parallel(ctx, n, e.numJobs, func(_, row int) error {
		i := int32(row)
		for j := i + 1; j < int32(n); j++ {
			sim, err := e.Compute(store, i, j)
			switch {
			case err == nil:
			case errors.Is(err, ErrInsufficientSamples):
				insufficient.Inc()
			case errors.Is(err, ErrDegenerate):
				degenerate.Inc()
			case errors.Is(err, ErrInsignificant):
				insignificant.Inc()
			default:
				degenerate.Inc()
			}
			if err != nil && e.verbose {
				catalog := store.Catalog()
				log.Logger().Info("similarity resolved to zero",
					zap.String("user_a", catalog.Users().ToName(i)),
					zap.String("user_b", catalog.Users().ToName(j)),
					zap.Error(err))
			}
			matrix.set(i, j, sim)
			pairs.Inc()
		}
		return nil
	})
	if err != nil {
		return nil, SimilarityStats{}, errors.Trace(err)
	}
	stats := SimilarityStats{
		Pairs:         pairs.Load(),
		Insufficient:  insufficient.Load(),
		Degenerate:    degenerate.Load(),
		Insignificant: insignificant.Load(),
	}
	BuildSimilaritySeconds.Set(time.Since(start).Seconds())
	SimilarityPairsTotal.WithLabelValues(LabelComputed).Add(float64(stats.Pairs - stats.Insufficient - stats.Degenerate - stats.Insignificant))
	SimilarityPairsTotal.WithLabelValues(LabelInsufficient).Add(float64(stats.Insufficient))
	SimilarityPairsTotal.WithLabelValues(LabelDegenerate).Add(float64(stats.Degenerate))
	SimilarityPairsTotal.WithLabelValues(LabelInsignificant).Add(float64(stats.Insignificant))
	log.Logger().Info("build similarity matrix",
		zap.Int("n_users", n),
		zap.Int64("n_pairs", stats.Pairs),
		zap.Int64("n_insufficient", stats.Insufficient),
		zap.Int64("n_degenerate", stats.Degenerate),
		zap.Int64("n_insignificant", stats.Insignificant),
		zap.Duration("used_time", time.Since(start)))
	return matrix, stats, nil
}
