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
	"math/rand"
	"os"
	"testing"

	"github.com/gorse-io/cf/base/log"
	"github.com/gorse-io/cf/config"
	"github.com/gorse-io/cf/dataset"
	"github.com/jaswdr/faker"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	log.CloseLogger()
	os.Exit(m.Run())
}

func TestPearson(t *testing.T) {
	r, p, err := Pearson([]float64{1, 2, 3}, []float64{1, 3, 2})
	assert.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-12)
	assert.InDelta(t, 2.0/3.0, p, 1e-9)

	r, p, err = Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5})
	assert.NoError(t, err)
	assert.InDelta(t, 0.8, r, 1e-12)
	assert.InDelta(t, 0.104088, p, 1e-5)

	r, p, err = Pearson([]float64{1, 2, 3, 4, 5, 6}, []float64{5, 6, 3, 4, 1, 2})
	assert.NoError(t, err)
	assert.InDelta(t, -0.828571, r, 1e-6)
	assert.InDelta(t, 0.041563, p, 1e-5)

	r, p, err = Pearson([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	assert.NoError(t, err)
	assert.InDelta(t, 1, r, 1e-12)
	assert.Less(t, p, 1e-6)
}

func TestPearsonEdgeCases(t *testing.T) {
	// two samples always correlate perfectly
	r, p, err := Pearson([]float64{1, 2}, []float64{4, 3})
	assert.NoError(t, err)
	assert.InDelta(t, -1, r, 1e-12)
	assert.Equal(t, 1.0, p)

	_, _, err = Pearson([]float64{1}, []float64{2})
	assert.ErrorIs(t, err, ErrInsufficientSamples)
	_, _, err = Pearson(nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
	_, _, err = Pearson([]float64{3, 3, 3}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDegenerate)
	_, _, err = Pearson([]float64{1, 2}, []float64{1, 2, 3})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func newStore(t *testing.T, users, items []string, ratings map[string]float64) *dataset.RatingStore {
	catalog, err := dataset.NewCatalog(users, items)
	assert.NoError(t, err)
	pairs, err := dataset.ParseRatings(ratings)
	assert.NoError(t, err)
	store, err := dataset.NewRatingStore(catalog, pairs)
	assert.NoError(t, err)
	return store
}

func newSyntheticStore(t *testing.T, seed int64, numUsers, numItems int) *dataset.RatingStore {
	table := dataset.Synthesize(faker.NewWithSeed(rand.NewSource(seed)), numUsers, numItems, 0.5, 5)
	store, err := table.Build()
	assert.NoError(t, err)
	return store
}

func TestSimilarityEngine(t *testing.T) {
	store := newStore(t,
		[]string{"a", "b", "c", "d", "e", "f"},
		[]string{"1", "2", "3", "4", "5", "6"},
		map[string]float64{
			// a and b agree on three items
			"a_1": 1, "a_2": 2, "a_3": 3,
			"b_1": 1, "b_2": 2, "b_3": 3, "b_4": 4,
			// c disagrees with e on six items
			"c_1": 1, "c_2": 2, "c_3": 3, "c_4": 4, "c_5": 5, "c_6": 6,
			"e_1": 5, "e_2": 6, "e_3": 3, "e_4": 4, "e_5": 1, "e_6": 2,
			// d is constant
			"d_1": 3, "d_2": 3, "d_3": 3,
			// f shares a single item with a
			"f_1": 2,
		})
	cfg := config.GetDefaultConfig().CF
	engine := NewSimilarityEngine(&cfg)
	sims, stats, err := engine.Build(context.Background(), store)
	assert.NoError(t, err)
	assert.Equal(t, 6, sims.Len())
	assert.Equal(t, int64(15), stats.Pairs)

	assert.InDelta(t, 1, sims.At(0, 1), 1e-9)
	assert.InDelta(t, -0.828571, sims.At(2, 4), 1e-6)
	// constant vector
	assert.Zero(t, sims.At(0, 3))
	// single common item
	assert.Zero(t, sims.At(0, 5))
	// perfect agreement over three items passes the test
	sim, err := engine.Compute(store, 0, 2)
	assert.InDelta(t, 1, sim, 1e-9)
	assert.NoError(t, err)
	sim, err = engine.Compute(store, 0, 5)
	assert.Zero(t, sim)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
	sim, err = engine.Compute(store, 0, 3)
	assert.Zero(t, sim)
	assert.ErrorIs(t, err, ErrDegenerate)
	assert.Greater(t, stats.Degenerate, int64(0))
	assert.Greater(t, stats.Insufficient, int64(0))

	for i := int32(0); i < 6; i++ {
		assert.Equal(t, 1.0, sims.At(i, i))
		for j := int32(0); j < 6; j++ {
			assert.Equal(t, sims.At(i, j), sims.At(j, i))
		}
	}

	// negative correlations are clamped
	cfg.Similarity = config.SimilarityPearsonPositive
	sims, _, err = NewSimilarityEngine(&cfg).Build(context.Background(), store)
	assert.NoError(t, err)
	assert.Zero(t, sims.At(2, 4))
	assert.InDelta(t, 1, sims.At(0, 1), 1e-9)
}

func TestSimilaritySignificance(t *testing.T) {
	store := newStore(t,
		[]string{"a", "b"},
		[]string{"1", "2", "3", "4", "5"},
		map[string]float64{
			"a_1": 1, "a_2": 2, "a_3": 3, "a_4": 4, "a_5": 5,
			"b_1": 2, "b_2": 1, "b_3": 4, "b_4": 3, "b_5": 5,
		})
	cfg := config.GetDefaultConfig().CF
	sim, err := NewSimilarityEngine(&cfg).Compute(store, 0, 1)
	assert.Zero(t, sim)
	assert.ErrorIs(t, err, ErrInsignificant)

	cfg.SignificanceLevel = 0.2
	sim, err = NewSimilarityEngine(&cfg).Compute(store, 0, 1)
	assert.NoError(t, err)
	assert.InDelta(t, 0.8, sim, 1e-9)
}

func TestSimilarityProperties(t *testing.T) {
	store := newSyntheticStore(t, 0, 40, 30)
	for _, similarity := range []string{config.SimilarityPearson, config.SimilarityPearsonPositive} {
		cfg := config.GetDefaultConfig().CF
		cfg.Similarity = similarity
		sims, _, err := NewSimilarityEngine(&cfg).Build(context.Background(), store)
		assert.NoError(t, err)
		for i := int32(0); i < int32(store.CountUsers()); i++ {
			assert.Equal(t, 1.0, sims.At(i, i))
			for j := int32(0); j < int32(store.CountUsers()); j++ {
				sim := sims.At(i, j)
				assert.Equal(t, sim, sims.At(j, i))
				assert.False(t, math.IsNaN(sim))
				assert.LessOrEqual(t, sim, 1.0)
				if similarity == config.SimilarityPearsonPositive {
					assert.GreaterOrEqual(t, sim, 0.0)
				} else {
					assert.GreaterOrEqual(t, sim, -1.0)
				}
				if i != j && store.CountCommonItems(i, j) < 2 {
					assert.Zero(t, sim)
				}
			}
		}
	}
}

func TestSimilarityParallel(t *testing.T) {
	store := newSyntheticStore(t, 1, 50, 40)
	cfg := config.GetDefaultConfig().CF
	sequential, sequentialStats, err := NewSimilarityEngine(&cfg).Build(context.Background(), store)
	assert.NoError(t, err)
	cfg.NumJobs = 4
	concurrent, concurrentStats, err := NewSimilarityEngine(&cfg).Build(context.Background(), store)
	assert.NoError(t, err)
	assert.Equal(t, sequentialStats, concurrentStats)
	for i := int32(0); i < 50; i++ {
		for j := int32(0); j < 50; j++ {
			assert.Equal(t, sequential.At(i, j), concurrent.At(i, j))
		}
	}
}

func TestSimilarityEmpty(t *testing.T) {
	store := newStore(t, nil, nil, nil)
	cfg := config.GetDefaultConfig().CF
	sims, stats, err := NewSimilarityEngine(&cfg).Build(context.Background(), store)
	assert.NoError(t, err)
	assert.Equal(t, 0, sims.Len())
	assert.Zero(t, stats.Pairs)
}

func TestSimilarityCancel(t *testing.T) {
	store := newSyntheticStore(t, 2, 10, 10)
	cfg := config.GetDefaultConfig().CF
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewSimilarityEngine(&cfg).Build(ctx, store)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimilarityVerbose(t *testing.T) {
	store := newStore(t, []string{"a", "b", "c"}, []string{"x", "y", "z"}, map[string]float64{
		"a_x": 1, "a_y": 2, "a_z": 3,
		"b_x": 3, "b_y": 3, "b_z": 3,
		"c_x": 1,
	})
	for _, verbose := range []bool{false, true} {
		core, logs := observer.New(zap.InfoLevel)
		restore := log.ReplaceLogger(zap.New(core))
		cfg := config.GetDefaultConfig().CF
		cfg.Verbose = verbose
		_, stats, err := NewSimilarityEngine(&cfg).Build(context.Background(), store)
		restore()
		assert.NoError(t, err)
		assert.Equal(t, int64(1), stats.Degenerate)
		assert.Equal(t, int64(2), stats.Insufficient)
		entries := logs.FilterMessage("similarity resolved to zero")
		if !verbose {
			assert.Zero(t, entries.Len())
			continue
		}
		assert.Equal(t, 3, entries.Len())
		assert.Equal(t, 1, entries.FilterField(zap.String("user_a", "a")).
			FilterField(zap.String("user_b", "b")).Len())
	}
}
