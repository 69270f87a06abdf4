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

// ImportCmd represents the import command
var ImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a checks file into the metadata store",
	Long: `Read a checks file, validate every definition and insert the valid
ones into the metadata store. Rejected checks are reported and skipped.`,
	RunE: runImport,
}

var importFileFlag string

func init() {
	ImportCmd.Flags().StringVar(&importFileFlag, "file", "", "Checks file to import")
	ImportCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	checksFile, err := dqcore.LoadChecksFile(importFileFlag)
	if err != nil {
		return fmt.Errorf("failed to load checks file: %w", err)
	}

	var checks []*dqcore.Check
	for _, suite := range checksFile.Suites {
		checks = append(checks, suite.Checks...)
	}

	valid, rejected := dqcore.ValidateChecks(checks)
	printRejections(cmd.ErrOrStderr(), rejected)
	if len(valid) == 0 {
		return fmt.Errorf("no valid checks to import (loaded %d, rejected %d)", len(checks), len(rejected))
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	imported := 0
	for _, check := range valid {
		if err := store.SaveCheck(ctx, check); err != nil {
			return fmt.Errorf("imported %d of %d checks: %w", imported, len(valid), err)
		}
		imported++
	}

	fmt.Printf("%d checks imported, %d rejected\n", imported, len(rejected))
	return nil
}
