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
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// Separator joins user and item in a composite key such as "alice_42".
const Separator = "_"

// Pair addresses a rating cell by user and item identifiers.
type Pair struct {
	User string
	Item string
}

// ValidateIdentifier rejects identifiers that cannot round-trip through a
// composite key.
func ValidateIdentifier(id string) error {
	if strings.Contains(id, Separator) {
		return errors.NotValidf("identifier %q contains %q", id, Separator)
	}
	return nil
}

func (p Pair) String() string {
	return p.User + Separator + p.Item
}

// ParsePair splits a composite "user_item" key. The key must contain exactly
// one separator.
func ParsePair(key string) (Pair, error) {
	parts := strings.Split(key, Separator)
	if len(parts) != 2 {
		return Pair{}, errors.NotValidf("composite key %q", key)
	}
	return Pair{User: parts[0], Item: parts[1]}, nil
}

// ParsePairs parses a list of composite keys.
func ParsePairs(keys []string) ([]Pair, error) {
	pairs := make([]Pair, 0, len(keys))
	for _, key := range keys {
		pair, err := ParsePair(key)
		if err != nil {
			return nil, errors.Trace(err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// ParseRatings converts a rating table keyed by composite keys.
func ParseRatings(ratings map[string]float64) (map[Pair]float64, error) {
	parsed := make(map[Pair]float64, len(ratings))
	for key, score := range ratings {
		pair, err := ParsePair(key)
		if err != nil {
			return nil, errors.Trace(err)
		}
		parsed[pair] = score
	}
	return parsed, nil
}

// IndexPair addresses a rating cell by dense indices.
type IndexPair struct {
	User int32
	Item int32
}

func (p IndexPair) String() string {
	return fmt.Sprintf("%d%s%d", p.User, Separator, p.Item)
}
