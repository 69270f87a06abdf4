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

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dqchecker/dqcore"
	"github.com/dqchecker/dqcore/dqs"
	"github.com/dqchecker/dqcore/stores"
	"github.com/spf13/cobra"
)

// exitCode is the process exit code for outcomes that are not command
// errors, like a completed run with failing checks.
var exitCode int

func ExitCode() int {
	return exitCode
}

func loadConfig(cmd *cobra.Command) (*dqs.RunnerConfig, error) {
	configFile, _ := cmd.Flags().GetString("config")
	return dqs.LoadConfig(configFile)
}

func newLogger(cfg *dqs.RunnerConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

func openStore(cfg *dqs.RunnerConfig, logger *slog.Logger) (stores.MetadataStore, error) {
	return dqs.NewMetadataStore(&cfg.Store, logger)
}

// buildScope turns the --suite and --table flags into an execution scope.
// A table may be schema-qualified as "schema.table".
func buildScope(suiteID int64, table string) dqcore.ExecutionScope {
	scope := dqcore.ExecutionScope{SuiteID: suiteID}
	if table != "" {
		if i := strings.Index(table, "."); i > 0 {
			scope.Schema = table[:i]
			scope.Table = table[i+1:]
		} else {
			scope.Table = table
		}
	}
	return scope
}

// openCheckSource returns the configured check source and the default schema
// for compilation. The closer is non-nil when the source holds a store
// connection.
func openCheckSource(cfg *dqs.RunnerConfig, logger *slog.Logger) (dqcore.CheckSource, string, io.Closer, error) {
	if cfg.ChecksFile != "" {
		fileSource, err := dqcore.NewFileCheckSource(cfg.ChecksFile)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to load checks file: %w", err)
		}
		schema := cfg.Scan.DefaultSchema
		if schema == "" {
			schema = fileSource.DefaultSchema()
		}
		return fileSource, schema, nil, nil
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, "", nil, err
	}
	return store, cfg.Scan.DefaultSchema, store, nil
}

func printRejections(w io.Writer, rejected []dqcore.RejectedCheck) {
	for _, r := range rejected {
		var checkID int64
		if r.Check != nil {
			checkID = r.Check.ID
		}
		for _, v := range r.Violations {
			fmt.Fprintf(w, "check %d: %s\n", checkID, v.String())
		}
	}
}
