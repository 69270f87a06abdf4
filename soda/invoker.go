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

package soda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dqchecker/dqcore"
)

// InvokerOptions tunes the CLI invoker.
type InvokerOptions struct {
	// Binary is the scan executable, "soda" when empty.
	Binary string
	// WorkDir is where per-scan scratch directories are created; the system
	// temp directory when empty.
	WorkDir string
	// Timeout bounds one scan, no bound when zero.
	Timeout time.Duration
}

// CLIInvoker runs scans by shelling out to the Soda CLI. Each invocation
// writes the configuration and checks files into a scratch directory, runs
// "soda scan" and reads back the results file.
type CLIInvoker struct {
	binary  string
	workDir string
	timeout time.Duration
	logger  *slog.Logger
}

func NewCLIInvoker(opts InvokerOptions, logger *slog.Logger) *CLIInvoker {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	binary := opts.Binary
	if binary == "" {
		binary = "soda"
	}

	return &CLIInvoker{
		binary:  binary,
		workDir: opts.WorkDir,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// Invoke executes one scan. A non-zero exit with a readable results file is
// not an invocation error: failed checks exit non-zero too, and the payload
// carries the authoritative error flag. Only a missing results file or a
// cancelled context surfaces as an error.
func (i *CLIInvoker) Invoke(ctx context.Context, spec *dqcore.ExecutableSpec, conn dqcore.ConnectionDescriptor) (*dqcore.ScanOutput, error) {
	configYAML, err := RenderConfig(conn)
	if err != nil {
		return nil, err
	}

	scanDir, err := os.MkdirTemp(i.workDir, "dqscan_")
	if err != nil {
		return nil, fmt.Errorf("failed to create scan directory: %w", err)
	}
	defer os.RemoveAll(scanDir)

	configPath := filepath.Join(scanDir, "configuration.yml")
	checksPath := filepath.Join(scanDir, "checks.yml")
	resultsPath := filepath.Join(scanDir, "results.json")

	// configuration holds credentials, keep it owner-only
	if err := os.WriteFile(configPath, []byte(configYAML), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write soda configuration: %w", err)
	}
	if err := os.WriteFile(checksPath, []byte(spec.Render()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write checks file: %w", err)
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, i.binary,
		"scan",
		"-d", conn.DataSourceName,
		"-c", configPath,
		"-srf", resultsPath,
		checksPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	i.logger.Info("invoking scan engine",
		"binary", i.binary,
		"data_source", conn.DataSourceName,
		"checks", spec.CheckCount())

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	logs := stdout.String()
	if errOutput := stderr.String(); errOutput != "" {
		if logs != "" {
			logs = fmt.Sprintf("[STDERR]:\n%s\n[STDOUT]:\n%s", errOutput, logs)
		} else {
			logs = fmt.Sprintf("[STDERR]:\n%s", errOutput)
		}
	}

	raw, readErr := readScanResults(resultsPath)
	if readErr != nil {
		if runErr != nil {
			i.logger.Error("scan engine produced no results",
				"error", runErr.Error(),
				"logs", logs)
			return nil, fmt.Errorf("scan engine exited with error and produced no results: %w", runErr)
		}
		return nil, readErr
	}

	if runErr != nil {
		i.logger.Debug("scan engine exited non-zero", "error", runErr.Error())
	}

	return &dqcore.ScanOutput{
		RawResults: raw,
		RawLogs:    logs,
		HasErrors:  scanHasErrors(raw),
	}, nil
}

func readScanResults(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan results: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scan results: %w", err)
	}
	return raw, nil
}

// scanHasErrors reads the engine's own error flag out of the results
// payload.
func scanHasErrors(raw interface{}) bool {
	resultMap, ok := raw.(map[string]interface{})
	if !ok {
		return false
	}
	hasErrors, ok := resultMap["hasErrors"].(bool)
	return ok && hasErrors
}
