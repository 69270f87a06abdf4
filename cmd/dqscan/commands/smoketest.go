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

// SmokeTestCmd represents the smoketest command
var SmokeTestCmd = &cobra.Command{
	Use:   "smoketest",
	Short: "Probe scan engine auth methods against the data source",
	Long: `Run a minimal connectivity scan once per supported auth method and
report which ones can reach the warehouse.`,
	RunE: runSmokeTest,
}

func runSmokeTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.DataSource.Name == "" {
		return fmt.Errorf("data_source.name is required to run a smoke test")
	}

	invoker := soda.NewCLIInvoker(soda.InvokerOptions{
		Binary:  cfg.Scan.Binary,
		Timeout: cfg.Scan.Timeout,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := soda.SmokeTest(ctx, invoker, dqcore.ConnectionDescriptor{
		DataSourceName: cfg.DataSource.Name,
		Properties:     cfg.DataSource.Properties,
	})
	if err != nil {
		return err
	}

	working := 0
	for _, probe := range results {
		status := "FAIL"
		if probe.OK {
			status = "OK"
			working++
		}
		fmt.Printf("%-4s %-18s %s", status, probe.Method, probe.Description)
		if probe.Detail != "" {
			fmt.Printf(" (%s)", probe.Detail)
		}
		fmt.Println()
	}

	if working == 0 {
		return fmt.Errorf("no auth method worked")
	}
	fmt.Printf("%d of %d auth methods working\n", working, len(results))
	return nil
}
