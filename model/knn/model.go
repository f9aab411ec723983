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
	"time"

	"github.com/gorse-io/cf/base/log"
	"github.com/gorse-io/cf/config"
	"github.com/gorse-io/cf/dataset"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Progress receives the number of finished predictions.
type Progress interface {
	Add(n int) error
}

// Result of a batch. A pair appears in at most one of the two maps.
type Result struct {
	Scores map[dataset.Pair]float64
	Errors map[dataset.Pair]error
}

// Neighbor is a user ranked by similarity to another user.
type Neighbor struct {
	User       string
	Similarity float64
}

type cacheKey struct {
	version           uint64
	nonNegative       bool
	significanceLevel float64
}

// UserBased is user-based collaborative filtering over an immutable rating
// store. Every batch rebuilds the similarity matrix unless the cache is
// enabled, in which case a matrix is reused while the rating table version
// and similarity policy match.
type UserBased struct {
	config   config.CFConfig
	store    *dataset.RatingStore
	engine   *SimilarityEngine
	cache    *ttlcache.Cache[cacheKey, *SimilarityMatrix]
	progress Progress
}

// NewUserBased builds a model from identifier lists and a rating table keyed
// by "user_item" composite keys.
func NewUserBased(users, items []string, ratings map[string]float64, cfg config.CFConfig) (*UserBased, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	catalog, err := dataset.NewCatalog(users, items)
	if err != nil {
		return nil, errors.Trace(err)
	}
	pairs, err := dataset.ParseRatings(ratings)
	if err != nil {
		return nil, errors.Trace(err)
	}
	store, err := dataset.NewRatingStore(catalog, pairs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewUserBasedFromStore(store, cfg)
}

// NewUserBasedFromStore builds a model on an existing rating store.
func NewUserBasedFromStore(store *dataset.RatingStore, cfg config.CFConfig) (*UserBased, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	m := &UserBased{
		config: cfg,
		store:  store,
		engine: NewSimilarityEngine(&cfg),
	}
	if cfg.EnableCache {
		m.cache = ttlcache.New[cacheKey, *SimilarityMatrix](
			ttlcache.WithTTL[cacheKey, *SimilarityMatrix](cfg.CacheTTL),
			ttlcache.WithDisableTouchOnHit[cacheKey, *SimilarityMatrix](),
		)
	}
	return m, nil
}

func (m *UserBased) Store() *dataset.RatingStore {
	return m.store
}

// SetProgress sets a receiver of prediction progress. Every requested pair
// is reported once, skipped pairs included. Nil disables reporting.
func (m *UserBased) SetProgress(progress Progress) {
	m.progress = progress
}

// Similarity returns the similarity matrix of the current batch.
func (m *UserBased) Similarity(ctx context.Context) (*SimilarityMatrix, error) {
	key := cacheKey{
		version:           m.store.Version(),
		nonNegative:       m.config.NonNegative(),
		significanceLevel: m.config.SignificanceLevel,
	}
	if m.cache != nil {
		if item := m.cache.Get(key); item != nil {
			SimilarityCacheHitsTotal.Inc()
			log.Logger().Debug("reuse cached similarity matrix", zap.Uint64("version", key.version))
			return item.Value(), nil
		}
	}
	sims, _, err := m.engine.Build(ctx, m.store)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if m.cache != nil {
		m.cache.Set(key, sims, ttlcache.DefaultTTL)
	}
	return sims, nil
}

// Complete predicts every unrated pair.
func (m *UserBased) Complete(ctx context.Context) (*Result, error) {
	sims, err := m.Similarity(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.complete(ctx, sims, m.store.Unrated(), 0)
}

// CompleteFor predicts the requested pairs. Pairs already rated are skipped.
// A pair naming an unknown user or item fails the whole call.
func (m *UserBased) CompleteFor(ctx context.Context, pairs []dataset.Pair) (*Result, error) {
	sims, err := m.Similarity(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	catalog := m.store.Catalog()
	targets := make([]dataset.IndexPair, 0, len(pairs))
	for _, pair := range pairs {
		indexPair, err := catalog.ToIndexPair(pair)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if m.store.IsUnrated(indexPair) {
			targets = append(targets, indexPair)
		}
	}
	return m.complete(ctx, sims, targets, len(pairs)-len(targets))
}

// CompleteForKeys is CompleteFor with "user_item" composite keys.
func (m *UserBased) CompleteForKeys(ctx context.Context, keys []string) (*Result, error) {
	pairs, err := dataset.ParsePairs(keys)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.CompleteFor(ctx, pairs)
}

func (m *UserBased) complete(ctx context.Context, sims *SimilarityMatrix, targets []dataset.IndexPair, skipped int) (*Result, error) {
	start := time.Now()
	catalog := m.store.Catalog()
	predictor := NewPredictor(m.store, sims, &m.config)
	result := &Result{
		Scores: make(map[dataset.Pair]float64),
		Errors: make(map[dataset.Pair]error),
	}
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		pair := catalog.ToPair(target)
		if score, err := predictor.Predict(target.User, target.Item); err != nil {
			result.Errors[pair] = err
		} else {
			result.Scores[pair] = score
		}
		if m.progress != nil {
			_ = m.progress.Add(1)
		}
	}
	if m.progress != nil && skipped > 0 {
		_ = m.progress.Add(skipped)
	}
	CompleteSeconds.Set(time.Since(start).Seconds())
	PredictionsTotal.WithLabelValues(LabelPredicted).Add(float64(len(result.Scores)))
	PredictionsTotal.WithLabelValues(LabelFailed).Add(float64(len(result.Errors)))
	PredictionsTotal.WithLabelValues(LabelSkipped).Add(float64(skipped))
	log.Logger().Info("complete ratings",
		zap.Int("n_targets", len(targets)),
		zap.Int("n_predicted", len(result.Scores)),
		zap.Int("n_failed", len(result.Errors)),
		zap.Int("n_skipped", skipped),
		zap.Duration("used_time", time.Since(start)))
	return result, nil
}

// Neighbors returns up to n other users ranked by absolute similarity to
// user. Users without usable correlation are left out.
func (m *UserBased) Neighbors(ctx context.Context, user string, n int) ([]Neighbor, error) {
	if n < 0 {
		return nil, errors.NotValidf("number of neighbors %d", n)
	}
	catalog := m.store.Catalog()
	userIndex := catalog.Users().ToNumber(user)
	if userIndex == dataset.NotId {
		return nil, errors.NotFoundf("user %q", user)
	}
	sims, err := m.Similarity(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	predictor := NewPredictor(m.store, sims, &m.config)
	neighbors := make([]Neighbor, 0, n)
	for _, v := range predictor.Ranking(userIndex) {
		if len(neighbors) >= n {
			break
		}
		sim := sims.At(userIndex, v)
		if v == userIndex || sim == 0 {
			continue
		}
		neighbors = append(neighbors, Neighbor{User: catalog.Users().ToName(v), Similarity: sim})
	}
	return neighbors, nil
}
