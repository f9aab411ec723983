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
	"strconv"

	"github.com/gorse-io/cf/model/knn"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var neighborsCommand = &cobra.Command{
	Use:   "neighbors USER",
	Short: "List the users most similar to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		store, err := loadStore(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		m, err := knn.NewUserBasedFromStore(store, cfg.CF)
		if err != nil {
			return errors.Trace(err)
		}
		n, _ := cmd.Flags().GetInt("n")
		neighbors, err := m.Neighbors(cmd.Context(), args[0], n)
		if err != nil {
			return errors.Trace(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("user", "similarity")
		if err = table.Bulk(lo.Map(neighbors, func(neighbor knn.Neighbor, _ int) []string {
			return []string{neighbor.User, strconv.FormatFloat(neighbor.Similarity, 'f', 6, 64)}
		})); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(table.Render())
	},
}

func init() {
	addSourceFlags(neighborsCommand)
	neighborsCommand.Flags().IntP("n", "n", 10, "number of neighbors")
	rootCommand.AddCommand(neighborsCommand)
}
