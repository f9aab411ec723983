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
	"encoding/binary"
	"math"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
)

// RatingStore is an immutable sparse rating table over a catalog. Absence of
// a cell means unrated, never a zero score.
type RatingStore struct {
	catalog   *Catalog
	scores    map[IndexPair]float64
	userItems [][]int32        // items rated by each user, ascending
	userSets  []*bitset.BitSet // same as userItems, as membership sets
	means     []float64
	hasMean   []bool
	unrated   mapset.Set[IndexPair]
	unratedAt []IndexPair // unrated pairs in user-major order
	version   uint64
}

// NewRatingStore indexes ratings through the catalog. Ratings that reference
// unknown identifiers or carry a non-finite score are rejected.
func NewRatingStore(catalog *Catalog, ratings map[Pair]float64) (*RatingStore, error) {
	numUsers, numItems := catalog.CountUsers(), catalog.CountItems()
	s := &RatingStore{
		catalog:   catalog,
		scores:    make(map[IndexPair]float64, len(ratings)),
		userItems: make([][]int32, numUsers),
		userSets:  make([]*bitset.BitSet, numUsers),
		means:     make([]float64, numUsers),
		hasMean:   make([]bool, numUsers),
	}
	for i := range s.userSets {
		s.userSets[i] = bitset.New(uint(numItems))
	}
	for pair, score := range ratings {
		indexPair, err := catalog.ToIndexPair(pair)
		if err != nil {
			return nil, errors.NewNotValid(err, "rating references unknown identifier")
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, errors.NotValidf("score %v of pair %s", score, pair)
		}
		s.scores[indexPair] = score
		s.userItems[indexPair.User] = append(s.userItems[indexPair.User], indexPair.Item)
		s.userSets[indexPair.User].Set(uint(indexPair.Item))
	}
	// means are summed in item order so that they do not depend on map order
	for u, items := range s.userItems {
		slices.Sort(items)
		if len(items) == 0 {
			continue
		}
		sum := 0.0
		for _, i := range items {
			sum += s.scores[IndexPair{User: int32(u), Item: i}]
		}
		s.means[u] = sum / float64(len(items))
		s.hasMean[u] = true
	}
	// unrated pairs
	s.unrated = mapset.NewThreadUnsafeSetWithSize[IndexPair](numUsers*numItems - len(s.scores))
	s.unratedAt = make([]IndexPair, 0, numUsers*numItems-len(s.scores))
	for u := 0; u < numUsers; u++ {
		for i := 0; i < numItems; i++ {
			if !s.userSets[u].Test(uint(i)) {
				pair := IndexPair{User: int32(u), Item: int32(i)}
				s.unrated.Add(pair)
				s.unratedAt = append(s.unratedAt, pair)
			}
		}
	}
	s.version = s.fingerprint()
	return s, nil
}

func (s *RatingStore) fingerprint() uint64 {
	digest := xxhash.New()
	buf := make([]byte, 0, 16)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.catalog.CountUsers()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.catalog.CountItems()))
	_, _ = digest.Write(buf)
	for u, items := range s.userItems {
		for _, i := range items {
			buf = buf[:0]
			buf = binary.LittleEndian.AppendUint32(buf, uint32(u))
			buf = binary.LittleEndian.AppendUint32(buf, uint32(i))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.scores[IndexPair{User: int32(u), Item: i}]))
			_, _ = digest.Write(buf)
		}
	}
	return digest.Sum64()
}

func (s *RatingStore) Catalog() *Catalog {
	return s.catalog
}

func (s *RatingStore) CountUsers() int {
	return len(s.userItems)
}

func (s *RatingStore) CountItems() int {
	return s.catalog.CountItems()
}

func (s *RatingStore) CountRatings() int {
	return len(s.scores)
}

// Version fingerprints the table content. Equal tables have equal versions.
func (s *RatingStore) Version() uint64 {
	return s.version
}

// Contains reports whether user has rated item.
func (s *RatingStore) Contains(user, item int32) bool {
	_, ok := s.scores[IndexPair{User: user, Item: item}]
	return ok
}

// Score returns the known score of a pair.
func (s *RatingStore) Score(user, item int32) (float64, bool) {
	score, ok := s.scores[IndexPair{User: user, Item: item}]
	return score, ok
}

// UserItems returns items rated by user in ascending order. The slice must
// not be modified.
func (s *RatingStore) UserItems(user int32) []int32 {
	return s.userItems[user]
}

// Mean returns the mean rating of user. The second value is false for a user
// without ratings.
func (s *RatingStore) Mean(user int32) (float64, bool) {
	return s.means[user], s.hasMean[user]
}

// CommonItems returns items rated by both users in ascending order.
func (s *RatingStore) CommonItems(i, j int32) []int32 {
	common := s.userSets[i].Intersection(s.userSets[j])
	items := make([]int32, 0, common.Count())
	for item, ok := common.NextSet(0); ok; item, ok = common.NextSet(item + 1) {
		items = append(items, int32(item))
	}
	return items
}

// CountCommonItems returns the number of items rated by both users.
func (s *RatingStore) CountCommonItems(i, j int32) int {
	return int(s.userSets[i].IntersectionCardinality(s.userSets[j]))
}

// IsUnrated reports whether a pair is a prediction target.
func (s *RatingStore) IsUnrated(p IndexPair) bool {
	return s.unrated.Contains(p)
}

// Unrated returns a copy of every unrated pair in user-major order.
func (s *RatingStore) Unrated() []IndexPair {
	return slices.Clone(s.unratedAt)
}

func (s *RatingStore) CountUnrated() int {
	return len(s.unratedAt)
}
