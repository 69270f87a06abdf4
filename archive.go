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

package dqcore

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ExecutionRecord is the archived snapshot of one finished attempt,
// including the raw engine output that the ledger does not keep.
type ExecutionRecord struct {
	RunID          string          `json:"run_id"`
	ExecutionLogID int64           `json:"execution_log_id"`
	Scope          string          `json:"scope"`
	Status         ExecutionStatus `json:"status"`
	Timestamp      time.Time       `json:"timestamp"`
	Summary        OutcomeCounts   `json:"summary"`
	ScanResults    interface{}     `json:"scan_results,omitempty"`
	ScanLogs       string          `json:"scan_logs,omitempty"`
	GeneratedSpec  string          `json:"generated_spec,omitempty"`
}

// ExecutionArchive writes execution records as one JSON file per run under
// a base directory.
type ExecutionArchive struct {
	dir    string
	logger *slog.Logger
}

// NewExecutionArchive returns an archive rooted at dir. The directory is
// created on first write.
func NewExecutionArchive(dir string, logger *slog.Logger) *ExecutionArchive {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ExecutionArchive{dir: dir, logger: logger}
}

// Write stores the record as execution_<run_id>.json and returns the path.
func (a *ExecutionArchive) Write(record *ExecutionRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("execution record is nil")
	}
	if record.RunID == "" {
		return "", fmt.Errorf("execution record has no run id")
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution record: %w", err)
	}

	path := filepath.Join(a.dir, fmt.Sprintf("execution_%s.json", record.RunID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write execution record: %w", err)
	}

	a.logger.Debug("execution record written", "path", path, "bytes", len(data))
	return path, nil
}
