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

// Catalog is the bijection between user/item identifiers and dense indices.
type Catalog struct {
	users *Index
	items *Index
}

func NewCatalog(users, items []string) (*Catalog, error) {
	userIndex, err := NewIndex(users)
	if err != nil {
		return nil, errors.Annotate(err, "users")
	}
	itemIndex, err := NewIndex(items)
	if err != nil {
		return nil, errors.Annotate(err, "items")
	}
	return &Catalog{users: userIndex, items: itemIndex}, nil
}

func (c *Catalog) Users() *Index {
	return c.users
}

func (c *Catalog) Items() *Index {
	return c.items
}

func (c *Catalog) CountUsers() int {
	return int(c.users.Len())
}

func (c *Catalog) CountItems() int {
	return int(c.items.Len())
}

// ToIndexPair resolves both identifiers of a pair. Missing identifiers are
// reported as not found.
func (c *Catalog) ToIndexPair(p Pair) (IndexPair, error) {
	userIndex := c.users.ToNumber(p.User)
	if userIndex == NotId {
		return IndexPair{}, errors.NotFoundf("user %q in pair %s", p.User, p)
	}
	itemIndex := c.items.ToNumber(p.Item)
	if itemIndex == NotId {
		return IndexPair{}, errors.NotFoundf("item %q in pair %s", p.Item, p)
	}
	return IndexPair{User: userIndex, Item: itemIndex}, nil
}

// ToPair converts an index pair back to identifiers.
func (c *Catalog) ToPair(p IndexPair) Pair {
	return Pair{User: c.users.ToName(p.User), Item: c.items.ToName(p.Item)}
}
