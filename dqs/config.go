// Copyright 2025 The DQCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dqs

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dqchecker/dqcore"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// RunnerConfig holds everything a scan run needs: the metadata store, the
// scanned data source and engine tuning. The mapstructure tags are used by
// Viper to unmarshal the data.
type RunnerConfig struct {
	Store      dqcore.StoreConfig `mapstructure:"store"`
	DataSource DataSourceConfig   `mapstructure:"data_source"`
	Scan       ScanConfig         `mapstructure:"scan"`

	// ArchiveDir enables per-run execution records when set.
	ArchiveDir string `mapstructure:"archive_dir"`
	// ChecksFile switches the check source from the store to a local file.
	ChecksFile string `mapstructure:"checks_file"`

	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DataSourceConfig addresses the warehouse being scanned. Properties are
// passed through to the scan engine untouched.
type DataSourceConfig struct {
	Name       string            `mapstructure:"name"`
	Properties map[string]string `mapstructure:"properties"`
}

type ScanConfig struct {
	Binary        string        `mapstructure:"binary"`
	Timeout       time.Duration `mapstructure:"timeout"`
	DefaultSchema string        `mapstructure:"default_schema"`
	ResultWriters int           `mapstructure:"result_writers" validate:"omitempty,min=1,max=64"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configFile falls back to dqscan.yaml in ./configs or the working
// directory; a missing file is fine then, defaults and DQSCAN_* environment
// variables still apply.
func LoadConfig(configFile string) (*RunnerConfig, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.path", "dqcore.db")
	v.SetDefault("scan.binary", "soda")
	v.SetDefault("scan.timeout", "30m")
	v.SetDefault("scan.result_writers", 4)
	v.SetDefault("log_level", "info")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("dqscan")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.SetEnvPrefix("DQSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configFile == "" {
			// Config file not found; rely on defaults and env vars
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg RunnerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SlogLevel maps the configured log level string onto a slog level.
func (c *RunnerConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
