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
	"os"
	"os/signal"
	"syscall"

	"github.com/dqchecker/dqcore"
	"github.com/dqchecker/dqcore/soda"
	"github.com/spf13/cobra"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute checks and record the attempt",
	Long: `Execute checks for a scope against the configured data source.

The attempt is recorded in the metadata store before the scan starts and
settled as completed or failed afterwards. Exit code 0 means completed with
every check passing, 1 means completed with failing checks, 2 means the
attempt failed or could not start.`,
	RunE: runRun,
}

var (
	runSuiteFlag int64
	runTableFlag string
	runRunIDFlag string
)

func init() {
	RunCmd.Flags().Int64Var(&runSuiteFlag, "suite", 0, "Suite id to execute")
	RunCmd.Flags().StringVar(&runTableFlag, "table", "", "Restrict execution to one table (schema.table)")
	RunCmd.Flags().StringVar(&runRunIDFlag, "run-id", "", "Use a fixed run id instead of a generated one")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.DataSource.Name == "" {
		return fmt.Errorf("data_source.name is required to run a scan")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var source dqcore.CheckSource = store
	defaultSchema := cfg.Scan.DefaultSchema
	if cfg.ChecksFile != "" {
		fileSource, err := dqcore.NewFileCheckSource(cfg.ChecksFile)
		if err != nil {
			return fmt.Errorf("failed to load checks file: %w", err)
		}
		source = fileSource
		if defaultSchema == "" {
			defaultSchema = fileSource.DefaultSchema()
		}
	}

	var archive *dqcore.ExecutionArchive
	if cfg.ArchiveDir != "" {
		archive = dqcore.NewExecutionArchive(cfg.ArchiveDir, logger)
	}

	invoker := soda.NewCLIInvoker(soda.InvokerOptions{
		Binary:  cfg.Scan.Binary,
		Timeout: cfg.Scan.Timeout,
	}, logger)

	orchestrator := dqcore.NewOrchestrator(source, store, store, invoker, archive, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := dqcore.ConnectionDescriptor{
		DataSourceName: cfg.DataSource.Name,
		Properties:     cfg.DataSource.Properties,
	}

	attempt, err := orchestrator.Execute(ctx, buildScope(runSuiteFlag, runTableFlag), conn, dqcore.ExecuteOptions{
		RunID:         runRunIDFlag,
		DefaultSchema: defaultSchema,
		ResultWriters: cfg.Scan.ResultWriters,
	})
	if err != nil {
		return err
	}

	printAttempt(attempt)

	if attempt.Status == dqcore.StatusFailed {
		return fmt.Errorf("execution %s failed: %s", attempt.RunID, attempt.ErrorMessage)
	}
	if attempt.HasFailures {
		exitCode = 1
	}
	return nil
}

func printAttempt(attempt *dqcore.ExecutionAttempt) {
	fmt.Printf("Run:    %s\n", attempt.RunID)
	fmt.Printf("Scope:  %s\n", attempt.Scope.String())
	fmt.Printf("Status: %s\n", attempt.Status)
	if attempt.Counts != nil {
		fmt.Printf("Checks: %d total, %d passed, %d failed, %d warned\n",
			attempt.Counts.Total, attempt.Counts.Passed, attempt.Counts.Failed, attempt.Counts.Warned)
	}
}
