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
	"strconv"

	"github.com/jaswdr/faker"
)

// Synthesize generates a random rating table of numUsers users and numItems
// items. Each cell is rated with probability density and scores are drawn
// uniformly from [0, maxScore] with two decimals.
func Synthesize(fake faker.Faker, numUsers, numItems int, density, maxScore float64) *Table {
	table := NewTable()
	for u := 0; u < numUsers; u++ {
		table.AddUser("u" + strconv.Itoa(u))
	}
	for i := 0; i < numItems; i++ {
		table.AddItem("i" + strconv.Itoa(i))
	}
	threshold := int(density * 10000)
	maxCents := int(maxScore * 100)
	for _, user := range table.Users {
		for _, item := range table.Items {
			if fake.IntBetween(0, 9999) >= threshold {
				continue
			}
			table.Add(user, item, float64(fake.IntBetween(0, maxCents))/100)
		}
	}
	return table
}
