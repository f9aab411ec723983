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
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	SimilarityPearson         = "pearson"
	SimilarityPearsonPositive = "pearson+"

	MethodUserBased = "user_based"
)

// Config is the configuration for a collaborative filtering run.
type Config struct {
	CF CFConfig `mapstructure:"cf"`
}

// CFConfig holds the policy of the similarity and prediction engine.
type CFConfig struct {
	Similarity        string        `mapstructure:"similarity" validate:"oneof=pearson pearson+"`
	Method            string        `mapstructure:"method" validate:"required"`
	NumNeighbors      int           `mapstructure:"num_neighbors" validate:"gt=0"`
	SignificanceLevel float64       `mapstructure:"significance_level" validate:"gt=0,lte=1"`
	NeighborWeight    float64       `mapstructure:"neighbor_weight" validate:"gte=0,lte=1"`
	NumJobs           int           `mapstructure:"num_jobs" validate:"gt=0"`
	Verbose           bool          `mapstructure:"verbose"`
	EnableCache       bool          `mapstructure:"enable_cache"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		CF: CFConfig{
			Similarity:        SimilarityPearson,
			Method:            MethodUserBased,
			NumNeighbors:      3,
			SignificanceLevel: 0.1,
			NeighborWeight:    0.5,
			NumJobs:           1,
			CacheTTL:          time.Hour,
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	viper.SetDefault("cf.similarity", defaultConfig.CF.Similarity)
	viper.SetDefault("cf.method", defaultConfig.CF.Method)
	viper.SetDefault("cf.num_neighbors", defaultConfig.CF.NumNeighbors)
	viper.SetDefault("cf.significance_level", defaultConfig.CF.SignificanceLevel)
	viper.SetDefault("cf.neighbor_weight", defaultConfig.CF.NeighborWeight)
	viper.SetDefault("cf.num_jobs", defaultConfig.CF.NumJobs)
	viper.SetDefault("cf.verbose", defaultConfig.CF.Verbose)
	viper.SetDefault("cf.enable_cache", defaultConfig.CF.EnableCache)
	viper.SetDefault("cf.cache_ttl", defaultConfig.CF.CacheTTL)
}

func bindEnv() {
	viper.SetEnvPrefix("GORSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// LoadConfig loads configuration from a TOML, YAML or JSON file. Defaults and
// GORSE_CF_* environment variables fill whatever the file leaves out. An empty
// path yields defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	viper.Reset()
	setDefault()
	bindEnv()
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	return config.CF.Validate()
}

// Validate checks ranges and selectors. A method other than user_based is
// reported as not supported; every other violation as not valid.
func (c *CFConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return errors.NotValidf("value of `%s` (%v) in config violates `%s`", fe.Field(), fe.Value(), fe.Tag())
		}
		return errors.NotValidf("config: %v", err)
	}
	if c.Method != MethodUserBased {
		return errors.NotSupportedf("method %q (only %q)", c.Method, MethodUserBased)
	}
	return nil
}

// NonNegative reports whether negative correlations are clamped to zero.
func (c *CFConfig) NonNegative() bool {
	return c.Similarity == SimilarityPearsonPositive
}
