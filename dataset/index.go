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
	"github.com/juju/errors"
)

// NotId represents an ID doesn't exist.
const NotId = int32(-1)

// Index manages the map between sparse names and dense indices. A sparse name
// is a user ID or item ID. The dense index is its position in the list the
// index was built from.
type Index struct {
	numbers map[string]int32 // sparse ID -> dense index
	names   []string         // dense index -> sparse ID
}

// NewIndex builds an index over names. Order defines the dense index and a
// repeated name is an error.
func NewIndex(names []string) (*Index, error) {
	idx := &Index{
		numbers: make(map[string]int32, len(names)),
		names:   make([]string, 0, len(names)),
	}
	for _, name := range names {
		if _, exist := idx.numbers[name]; exist {
			return nil, errors.AlreadyExistsf("identifier %q", name)
		}
		idx.numbers[name] = int32(len(idx.names))
		idx.names = append(idx.names, name)
	}
	return idx, nil
}

// Len returns the number of indexed names.
func (idx *Index) Len() int32 {
	if idx == nil {
		return 0
	}
	return int32(len(idx.names))
}

// ToNumber converts a sparse ID to a dense index.
func (idx *Index) ToNumber(name string) int32 {
	if denseId, exist := idx.numbers[name]; exist {
		return denseId
	}
	return NotId
}

// ToName converts a dense index to a sparse ID.
func (idx *Index) ToName(index int32) string {
	return idx.names[index]
}

// GetNames returns all names in current index.
func (idx *Index) GetNames() []string {
	return idx.names
}
