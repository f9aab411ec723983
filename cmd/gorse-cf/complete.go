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
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gorse-io/cf/dataset"
	"github.com/gorse-io/cf/model/knn"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
)

var completeCommand = &cobra.Command{
	Use:   "complete",
	Short: "Predict unrated user-item pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != formatTable && format != formatCSV {
			return errors.NotValidf("format %q", format)
		}
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

		keys, _ := cmd.Flags().GetStringSlice("pairs")
		total := store.CountUnrated()
		if len(keys) > 0 {
			total = len(keys)
		}
		if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
			bar := progressbar.Default(int64(total), "predict")
			defer bar.Finish()
			m.SetProgress(bar)
		}
		var result *knn.Result
		if len(keys) > 0 {
			result, err = m.CompleteForKeys(cmd.Context(), keys)
		} else {
			result, err = m.Complete(cmd.Context())
		}
		if err != nil {
			return errors.Trace(err)
		}

		out := cmd.OutOrStdout()
		if outputPath, _ := cmd.Flags().GetString("output"); outputPath != "" {
			file, err := os.Create(outputPath)
			if err != nil {
				return errors.Trace(err)
			}
			defer file.Close()
			out = file
		}
		sep, _ := cmd.Flags().GetString("sep")
		return writeResult(out, result, format, sep)
	},
}

func init() {
	addSourceFlags(completeCommand)
	completeCommand.Flags().StringSlice("pairs", nil, "pairs to predict as user_item, all unrated pairs if empty")
	completeCommand.Flags().StringP("output", "o", "", "output file, stdout if empty")
	completeCommand.Flags().String("format", formatTable, "output format (table or csv)")
	completeCommand.Flags().Bool("progress", false, "show prediction progress")
	rootCommand.AddCommand(completeCommand)
}

// writeResult prints one row per pair in ascending pair order. Failed pairs
// carry the error in place of a score.
func writeResult(w io.Writer, result *knn.Result, format, sep string) error {
	pairs := append(lo.Keys(result.Scores), lo.Keys(result.Errors)...)
	slices.SortFunc(pairs, func(a, b dataset.Pair) int {
		if c := strings.Compare(a.User, b.User); c != 0 {
			return c
		}
		return strings.Compare(a.Item, b.Item)
	})
	rows := lo.Map(pairs, func(pair dataset.Pair, _ int) []string {
		if score, ok := result.Scores[pair]; ok {
			return []string{pair.User, pair.Item, strconv.FormatFloat(score, 'f', -1, 64), ""}
		}
		return []string{pair.User, pair.Item, "", result.Errors[pair].Error()}
	})
	switch format {
	case formatCSV:
		if _, err := fmt.Fprintln(w, strings.Join([]string{"user_id", "item_id", "score", "error"}, sep)); err != nil {
			return errors.Trace(err)
		}
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, strings.Join(lo.Map(row, func(field string, _ int) string {
				return dataset.Escape(field)
			}), sep)); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	default:
		table := tablewriter.NewWriter(w)
		table.Header("user", "item", "score", "error")
		if err := table.Bulk(rows); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(table.Render())
	}
}
