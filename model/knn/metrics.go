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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelComputed      = "computed"
	LabelInsufficient  = "insufficient"
	LabelDegenerate    = "degenerate"
	LabelInsignificant = "insignificant"

	LabelPredicted = "predicted"
	LabelFailed    = "failed"
	LabelSkipped   = "skipped"
)

var (
	BuildSimilaritySeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gorse_cf",
		Subsystem: "knn",
		Name:      "build_similarity_seconds",
	})
	SimilarityPairsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gorse_cf",
		Subsystem: "knn",
		Name:      "similarity_pairs_total",
	}, []string{"result"})
	SimilarityCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gorse_cf",
		Subsystem: "knn",
		Name:      "similarity_cache_hits_total",
	})
	CompleteSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gorse_cf",
		Subsystem: "knn",
		Name:      "complete_seconds",
	})
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gorse_cf",
		Subsystem: "knn",
		Name:      "predictions_total",
	}, []string{"result"})
)
