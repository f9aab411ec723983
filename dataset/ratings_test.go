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
package dataset

import (
	"math"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *RatingStore {
	catalog, err := NewCatalog([]string{"a", "b", "c", "d"}, []string{"x", "y", "z"})
	assert.NoError(t, err)
	store, err := NewRatingStore(catalog, map[Pair]float64{
		{"a", "x"}: 5, {"a", "y"}: 4, {"a", "z"}: 3,
		{"b", "x"}: 1, {"b", "z"}: 2,
		{"c", "y"}: 4,
	})
	assert.NoError(t, err)
	return store
}

func TestRatingStore(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, 4, store.CountUsers())
	assert.Equal(t, 3, store.CountItems())
	assert.Equal(t, 6, store.CountRatings())

	assert.True(t, store.Contains(0, 0))
	assert.False(t, store.Contains(1, 1))
	score, ok := store.Score(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 2.0, score)
	_, ok = store.Score(3, 0)
	assert.False(t, ok)

	assert.Equal(t, []int32{0, 1, 2}, store.UserItems(0))
	assert.Equal(t, []int32{0, 2}, store.UserItems(1))
	assert.Empty(t, store.UserItems(3))

	mean, ok := store.Mean(0)
	assert.True(t, ok)
	assert.Equal(t, 4.0, mean)
	mean, ok = store.Mean(1)
	assert.True(t, ok)
	assert.Equal(t, 1.5, mean)
	_, ok = store.Mean(3)
	assert.False(t, ok)

	assert.Equal(t, []int32{0, 2}, store.CommonItems(0, 1))
	assert.Equal(t, []int32{0, 2}, store.CommonItems(1, 0))
	assert.Equal(t, []int32{1}, store.CommonItems(0, 2))
	assert.Empty(t, store.CommonItems(1, 2))
	assert.Empty(t, store.CommonItems(0, 3))
	assert.Equal(t, 2, store.CountCommonItems(0, 1))
	assert.Equal(t, 0, store.CountCommonItems(2, 3))
}

func TestRatingStoreUnrated(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, 4*3-6, store.CountUnrated())
	assert.Equal(t, []IndexPair{
		{1, 1},
		{2, 0}, {2, 2},
		{3, 0}, {3, 1}, {3, 2},
	}, store.Unrated())
	for u := int32(0); u < 4; u++ {
		for i := int32(0); i < 3; i++ {
			assert.Equal(t, !store.Contains(u, i), store.IsUnrated(IndexPair{u, i}))
		}
	}
	assert.False(t, store.IsUnrated(IndexPair{10, 0}))

	// callers cannot reorder the stored set
	unrated := store.Unrated()
	unrated[0], unrated[5] = unrated[5], unrated[0]
	assert.Equal(t, IndexPair{1, 1}, store.Unrated()[0])
	assert.Equal(t, IndexPair{3, 2}, store.Unrated()[5])
}

func TestRatingStoreVersion(t *testing.T) {
	a, b := newTestStore(t), newTestStore(t)
	assert.Equal(t, a.Version(), b.Version())

	catalog, err := NewCatalog([]string{"a", "b", "c", "d"}, []string{"x", "y", "z"})
	assert.NoError(t, err)
	c, err := NewRatingStore(catalog, map[Pair]float64{
		{"a", "x"}: 5, {"a", "y"}: 4, {"a", "z"}: 3,
		{"b", "x"}: 1, {"b", "z"}: 2,
		{"c", "y"}: 4.5,
	})
	assert.NoError(t, err)
	assert.NotEqual(t, a.Version(), c.Version())
}

func TestRatingStoreInvalid(t *testing.T) {
	catalog, err := NewCatalog([]string{"a"}, []string{"x"})
	assert.NoError(t, err)
	_, err = NewRatingStore(catalog, map[Pair]float64{{"b", "x"}: 1})
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = NewRatingStore(catalog, map[Pair]float64{{"a", "y"}: 1})
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = NewRatingStore(catalog, map[Pair]float64{{"a", "x"}: math.NaN()})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestRatingStoreEmpty(t *testing.T) {
	catalog, err := NewCatalog([]string{"a", "b"}, []string{"x"})
	assert.NoError(t, err)
	store, err := NewRatingStore(catalog, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, store.CountRatings())
	assert.Equal(t, []IndexPair{{0, 0}, {1, 0}}, store.Unrated())
	_, ok := store.Mean(0)
	assert.False(t, ok)
}
