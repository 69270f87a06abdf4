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

package main

import (
	"fmt"
	"os"

	"github.com/dqchecker/dqcore/cmd/dqscan/commands"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dqscan",
	Short: "Data quality scan runner",
	Long: `dqscan compiles data quality checks into scan engine specs, runs them
against a warehouse and records every execution in a metadata store.

Examples:
  dqscan run --suite 12            # Execute suite 12
  dqscan run --table dbo.orders    # Execute all checks on one table
  dqscan compile --suite 12        # Print the generated spec without scanning
  dqscan validate                  # Validate check definitions
  dqscan init                      # Create metadata store tables
  dqscan import --file checks.yml  # Load a checks file into the store
  dqscan ping                      # Check metadata store connectivity
  dqscan smoketest                 # Probe scan engine auth methods`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.CompileCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.PingCmd)
	rootCmd.AddCommand(commands.SmokeTestCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(commands.ExitCode())
}
