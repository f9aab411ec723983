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
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/gorse-io/cf/base/log"
	"github.com/gorse-io/cf/dataset"
	"github.com/gorse-io/cf/storage"
	"github.com/jaswdr/faker"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const batchSize = 1000

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random sparse rating table",
	Long: `Generate a random sparse rating table.

Ratings are written as user, item and score rows to CSV or to a SQL
database. Both formats only carry rated cells, so users and items without
any rating are not written and do not exist when the table is read back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		numUsers, _ := cmd.Flags().GetInt("users")
		numItems, _ := cmd.Flags().GetInt("items")
		density, _ := cmd.Flags().GetFloat64("density")
		maxScore, _ := cmd.Flags().GetFloat64("max-score")
		seed, _ := cmd.Flags().GetInt64("seed")
		if numUsers < 0 || numItems < 0 {
			return errors.NotValidf("%d users and %d items", numUsers, numItems)
		}
		if density < 0 || density > 1 {
			return errors.NotValidf("density %v", density)
		}
		table := dataset.Synthesize(faker.NewWithSeed(rand.NewSource(seed)), numUsers, numItems, density, maxScore)
		log.Logger().Info("generate ratings",
			zap.Int("n_users", numUsers),
			zap.Int("n_items", numItems),
			zap.Int("n_ratings", len(table.Ratings)))

		if dsn, _ := cmd.Flags().GetString("database"); dsn != "" {
			tablePrefix, _ := cmd.Flags().GetString("table-prefix")
			database, err := storage.Open(dsn, tablePrefix)
			if err != nil {
				return errors.Trace(err)
			}
			defer database.Close()
			if err = database.Init(cmd.Context()); err != nil {
				return errors.Trace(err)
			}
			ratings := make([]storage.Rating, 0, len(table.Ratings))
			for pair, score := range table.Ratings {
				ratings = append(ratings, storage.Rating{UserId: pair.User, ItemId: pair.Item, Rating: score})
			}
			for _, chunk := range lo.Chunk(ratings, batchSize) {
				if err = database.BatchInsertRatings(cmd.Context(), chunk); err != nil {
					return errors.Trace(err)
				}
			}
			return nil
		}

		out := cmd.OutOrStdout()
		if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
			file, err := os.Create(csvPath)
			if err != nil {
				return errors.Trace(err)
			}
			defer file.Close()
			out = file
		}
		sep, _ := cmd.Flags().GetString("sep")
		for _, user := range table.Users {
			for _, item := range table.Items {
				score, ok := table.Ratings[dataset.Pair{User: user, Item: item}]
				if !ok {
					continue
				}
				if _, err := fmt.Fprintln(out, strings.Join([]string{
					dataset.Escape(user), dataset.Escape(item), strconv.FormatFloat(score, 'f', -1, 64),
				}, sep)); err != nil {
					return errors.Trace(err)
				}
			}
		}
		return nil
	},
}

func init() {
	generateCommand.Flags().Int("users", 100, "number of users")
	generateCommand.Flags().Int("items", 100, "number of items")
	generateCommand.Flags().Float64("density", 0.1, "fraction of rated pairs")
	generateCommand.Flags().Float64("max-score", 5, "maximum score")
	generateCommand.Flags().Int64("seed", 0, "random seed")
	generateCommand.Flags().String("csv", "", "output file, stdout if empty")
	generateCommand.Flags().String("sep", ",", "column separator of the output file")
	generateCommand.Flags().String("database", "", "rating database (mysql://, postgres:// or sqlite://)")
	generateCommand.Flags().String("table-prefix", "", "table prefix of the rating database")
	generateCommand.MarkFlagsMutuallyExclusive("csv", "database")
	rootCommand.AddCommand(generateCommand)
}
