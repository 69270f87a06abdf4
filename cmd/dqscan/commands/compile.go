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

// CompileCmd represents the compile command
var CompileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print the generated scan spec without executing it",
	Long: `Load checks for a scope, validate them and print the compiled scan
spec to stdout. Rejected checks are reported on stderr.`,
	RunE: runCompile,
}

var (
	compileSuiteFlag int64
	compileTableFlag string
)

func init() {
	CompileCmd.Flags().Int64Var(&compileSuiteFlag, "suite", 0, "Suite id to compile")
	CompileCmd.Flags().StringVar(&compileTableFlag, "table", "", "Restrict to one table (schema.table)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	source, defaultSchema, closer, err := openCheckSource(cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checks, err := source.LoadChecks(ctx, buildScope(compileSuiteFlag, compileTableFlag))
	if err != nil {
		return fmt.Errorf("failed to load checks: %w", err)
	}

	valid, rejected := dqcore.ValidateChecks(checks)
	printRejections(cmd.ErrOrStderr(), rejected)
	if len(valid) == 0 {
		return fmt.Errorf("no valid checks for scope (loaded %d, rejected %d)", len(checks), len(rejected))
	}

	spec, err := dqcore.CompileChecks(valid, dqcore.CompilerOptions{DefaultSchema: defaultSchema})
	if err != nil {
		return err
	}

	fmt.Print(spec.Render())
	return nil
}
