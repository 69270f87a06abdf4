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
	"context"
	"fmt"
	"time"

	"github.com/dqchecker/dqcore"
	"github.com/spf13/cobra"
)

// ValidateCmd represents the validate command
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate check definitions",
	Long: `Load checks for a scope and report every definition violation.
Exit code 1 signals that at least one check was rejected.`,
	RunE: runValidate,
}

var (
	validateSuiteFlag int64
	validateTableFlag string
)

func init() {
	ValidateCmd.Flags().Int64Var(&validateSuiteFlag, "suite", 0, "Suite id to validate")
	ValidateCmd.Flags().StringVar(&validateTableFlag, "table", "", "Restrict to one table (schema.table)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	source, _, closer, err := openCheckSource(cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checks, err := source.LoadChecks(ctx, buildScope(validateSuiteFlag, validateTableFlag))
	if err != nil {
		return fmt.Errorf("failed to load checks: %w", err)
	}

	valid, rejected := dqcore.ValidateChecks(checks)
	printRejections(cmd.OutOrStdout(), rejected)
	fmt.Printf("%d checks loaded, %d valid, %d rejected\n", len(checks), len(valid), len(rejected))

	if len(rejected) > 0 {
		exitCode = 1
	}
	return nil
}
