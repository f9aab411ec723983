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
	"cmp"
	"math"
	"slices"

	"github.com/gorse-io/cf/config"
	"github.com/gorse-io/cf/dataset"
	"github.com/juju/errors"
)

// ErrColdStart means the target user has no rating history.
const ErrColdStart = errors.ConstError("cold start")

// Predictor estimates unrated scores from the most similar users. It caches
// one ranking per target user and is not safe for concurrent use.
type Predictor struct {
	store          *dataset.RatingStore
	sims           *SimilarityMatrix
	numNeighbors   int
	neighborWeight float64
	rankings       [][]int32
}

func NewPredictor(store *dataset.RatingStore, sims *SimilarityMatrix, cfg *config.CFConfig) *Predictor {
	return &Predictor{
		store:          store,
		sims:           sims,
		numNeighbors:   cfg.NumNeighbors,
		neighborWeight: cfg.NeighborWeight,
		rankings:       make([][]int32, store.CountUsers()),
	}
}

// Ranking returns all users, the target included, ordered by descending
// absolute similarity to user. Ties are broken by ascending user index.
func (p *Predictor) Ranking(user int32) []int32 {
	if p.rankings[user] != nil {
		return p.rankings[user]
	}
	ranking := make([]int32, p.store.CountUsers())
	for i := range ranking {
		ranking[i] = int32(i)
	}
	slices.SortStableFunc(ranking, func(a, b int32) int {
		return cmp.Compare(math.Abs(p.sims.At(user, b)), math.Abs(p.sims.At(user, a)))
	})
	p.rankings[user] = ranking
	return ranking
}

// Predict estimates the score of user for item. The first numNeighbors users
// in the ranking who rated item contribute a similarity-weighted average,
// blended with the user's mean rating. Without contributing weight the mean
// alone is returned. A user without ratings fails with ErrColdStart.
func (p *Predictor) Predict(user, item int32) (float64, error) {
	mean, ok := p.store.Mean(user)
	if !ok {
		catalog := p.store.Catalog()
		return 0, errors.Annotatef(ErrColdStart, "predict %s: user has no rating history",
			catalog.ToPair(dataset.IndexPair{User: user, Item: item}))
	}
	weightedSum, weightSum := 0.0, 0.0
	numNeighbors := 0
	for _, neighbor := range p.Ranking(user) {
		if numNeighbors >= p.numNeighbors {
			break
		}
		score, ok := p.store.Score(neighbor, item)
		if !ok {
			continue
		}
		sim := p.sims.At(user, neighbor)
		weightedSum += sim * score
		weightSum += math.Abs(sim)
		numNeighbors++
	}
	if weightSum > 0 {
		return p.neighborWeight*(weightedSum/weightSum) + (1-p.neighborWeight)*mean, nil
	}
	return mean, nil
}
