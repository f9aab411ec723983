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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorse-io/cf/base/log"
	"github.com/gorse-io/cf/cmd/version"
	"github.com/gorse-io/cf/config"
	"github.com/gorse-io/cf/dataset"
	"github.com/gorse-io/cf/storage"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "gorse-cf",
	Short: "User-based collaborative filtering for sparse rating tables.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetLogger(cmd.Flags())
	},
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Print(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.Flags().BoolP("version", "v", false, "gorse-cf version")
	rootCommand.AddCommand(versionCommand)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCommand.ExecuteContext(ctx); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	return config.LoadConfig(configPath)
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("csv", "", "rating file with user, item and score columns")
	cmd.Flags().String("sep", ",", "column separator of the rating file")
	cmd.Flags().Bool("header", false, "skip the first line of the rating file")
	cmd.Flags().String("database", "", "rating database (mysql://, postgres:// or sqlite://)")
	cmd.Flags().String("table-prefix", "", "table prefix of the rating database")
	cmd.MarkFlagsMutuallyExclusive("csv", "database")
	cmd.MarkFlagsOneRequired("csv", "database")
}

// loadStore reads ratings from the source selected by flags.
func loadStore(cmd *cobra.Command) (*dataset.RatingStore, error) {
	var table *dataset.Table
	if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
		sep, _ := cmd.Flags().GetString("sep")
		header, _ := cmd.Flags().GetBool("header")
		file, err := os.Open(csvPath)
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer file.Close()
		if table, err = dataset.LoadCSV(file, sep, header); err != nil {
			return nil, errors.Annotatef(err, "load %s", csvPath)
		}
	} else {
		dsn, _ := cmd.Flags().GetString("database")
		tablePrefix, _ := cmd.Flags().GetString("table-prefix")
		database, err := storage.Open(dsn, tablePrefix)
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer database.Close()
		if table, err = database.LoadRatings(cmd.Context()); err != nil {
			return nil, errors.Trace(err)
		}
	}
	store, err := table.Build()
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load ratings",
		zap.Int("n_users", store.CountUsers()),
		zap.Int("n_items", store.CountItems()),
		zap.Int("n_ratings", store.CountRatings()))
	return store, nil
}
