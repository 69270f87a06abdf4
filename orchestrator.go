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
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// CheckSource loads check definitions for a scope, in a stable order chosen
// by the source, with disabled checks already filtered out.
type CheckSource interface {
	LoadChecks(ctx context.Context, scope ExecutionScope) ([]*Check, error)
}

// LedgerSink persists execution attempts. CreateAttempt assigns the
// attempt's ExecutionLogID; UpdateAttempt writes the terminal state.
type LedgerSink interface {
	CreateAttempt(ctx context.Context, attempt *ExecutionAttempt) error
	UpdateAttempt(ctx context.Context, attempt *ExecutionAttempt) error
}

// ResultSink persists one result per call. Writes are independent of each
// other; a failed write affects only its own result.
type ResultSink interface {
	PersistResult(ctx context.Context, runID string, executionLogID int64, result *CheckResult) error
}

// NewRunID returns a short correlation token for one execution attempt.
func NewRunID() string {
	return uuid.NewString()[:8]
}

// ExecuteOptions tunes a single orchestrated execution.
type ExecuteOptions struct {
	// RunID overrides the generated correlation token.
	RunID string
	// DefaultSchema is passed to the compiler for schema-prefix elision.
	DefaultSchema string
	// ResultWriters bounds concurrent result writes, minimum 1.
	ResultWriters int
}

// Orchestrator sequences one execution attempt: load checks, validate,
// compile, invoke the scan engine, reconcile its output, persist results,
// and settle the ledger entry.
type Orchestrator struct {
	source  CheckSource
	ledger  LedgerSink
	results ResultSink
	invoker ScanInvoker
	archive *ExecutionArchive
	logger  *slog.Logger
}

// NewOrchestrator wires an orchestrator. archive may be nil to disable
// execution record archiving.
func NewOrchestrator(source CheckSource, ledger LedgerSink, results ResultSink,
	invoker ScanInvoker, archive *ExecutionArchive, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Orchestrator{
		source:  source,
		ledger:  ledger,
		results: results,
		invoker: invoker,
		archive: archive,
		logger:  logger,
	}
}

// Execute runs one attempt for scope against the store described by conn.
//
// Failures inside the pipeline settle the attempt as failed and return it
// with a nil error; callers read the outcome off the attempt. A non-nil
// error is returned only when the attempt could not be created at all, when
// the ledger rejects the terminal update, or when ctx is cancelled. In the
// cancellation case the attempt is left running for an external reaper to
// reconcile, never forced into a fabricated terminal state.
func (o *Orchestrator) Execute(ctx context.Context, scope ExecutionScope, conn ConnectionDescriptor, opts ExecuteOptions) (*ExecutionAttempt, error) {
	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}

	attempt := NewExecutionAttempt(runID, scope)
	if err := o.ledger.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create execution log: %w", err)
	}

	o.logger.Info("execution started",
		"run_id", runID,
		"execution_log_id", attempt.ExecutionLogID,
		"scope", scope.String())

	checks, err := o.source.LoadChecks(ctx, scope)
	if err != nil {
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		return o.failAttempt(ctx, attempt, fmt.Sprintf("failed to load checks: %v", err), nil)
	}

	valid, rejected := ValidateChecks(checks)
	for _, r := range rejected {
		var checkID int64
		if r.Check != nil {
			checkID = r.Check.ID
		}
		o.logger.Warn("check excluded from run",
			"run_id", runID,
			"check_id", checkID,
			"violations", joinViolations(r.Violations))
	}
	if len(valid) == 0 {
		message := fmt.Sprintf("no valid checks to execute for scope %s (loaded %d, rejected %d)",
			scope, len(checks), len(rejected))
		return o.failAttempt(ctx, attempt, message, nil)
	}

	spec, err := CompileChecks(valid, CompilerOptions{DefaultSchema: opts.DefaultSchema})
	if err != nil {
		return o.failAttempt(ctx, attempt, fmt.Sprintf("failed to compile checks: %v", err), nil)
	}
	attempt.GeneratedSpec = spec.Render()

	o.logger.Debug("spec compiled",
		"run_id", runID,
		"checks", spec.CheckCount(),
		"spec_bytes", len(attempt.GeneratedSpec))

	output, err := o.invoker.Invoke(ctx, spec, conn)
	if err != nil {
		if ctx.Err() != nil {
			// host cancellation, not an engine failure: leave the attempt
			// running so the reaper can tell it apart from a real failure
			return attempt, ctx.Err()
		}
		return o.failAttempt(ctx, attempt, fmt.Sprintf("scan invocation failed: %v", err), nil)
	}

	results, skippedEntries, err := ReconcileScanResults(output.RawResults)
	if err != nil {
		return o.failAttempt(ctx, attempt, fmt.Sprintf("failed to reconcile scan results: %v", err), nil)
	}
	if skippedEntries > 0 {
		o.logger.Warn("skipped malformed scan result entries",
			"run_id", runID,
			"skipped", skippedEntries)
	}

	persisted := o.persistResults(ctx, attempt, results, opts.ResultWriters)
	counts := CountOutcomes(persisted)

	if output.HasErrors {
		if err := attempt.Fail("scan engine reported errors, see scan logs", &counts); err != nil {
			return attempt, err
		}
	} else {
		if err := attempt.Complete(counts); err != nil {
			return attempt, err
		}
	}

	if err := o.ledger.UpdateAttempt(ctx, attempt); err != nil {
		return attempt, fmt.Errorf("failed to update execution log: %w", err)
	}

	o.archiveAttempt(attempt, output, counts)

	o.logger.Info("execution finished",
		"run_id", runID,
		"status", string(attempt.Status),
		"total", counts.Total,
		"passed", counts.Passed,
		"failed", counts.Failed,
		"warned", counts.Warned)

	return attempt, nil
}

// persistResults writes results through the sink with bounded concurrency
// and returns the subset that was actually persisted; only those feed the
// attempt's final counts.
func (o *Orchestrator) persistResults(ctx context.Context, attempt *ExecutionAttempt, results []CheckResult, writers int) []CheckResult {
	if len(results) == 0 {
		return nil
	}

	persisted := make([]bool, len(results))
	pool := NewTaskPool(writers, o.logger)
	for i := range results {
		pool.Submit(fmt.Sprintf("%s/result_%d", attempt.RunID, i), func() error {
			if err := o.results.PersistResult(ctx, attempt.RunID, attempt.ExecutionLogID, &results[i]); err != nil {
				return fmt.Errorf("failed to persist result %q: %w", results[i].CheckName, err)
			}
			persisted[i] = true
			return nil
		})
	}

	if errs := pool.Wait(); len(errs) > 0 {
		o.logger.Warn("some results were not persisted",
			"run_id", attempt.RunID,
			"failed_writes", len(errs))
	}

	kept := make([]CheckResult, 0, len(results))
	for i, ok := range persisted {
		if ok {
			kept = append(kept, results[i])
		}
	}
	return kept
}

func (o *Orchestrator) failAttempt(ctx context.Context, attempt *ExecutionAttempt, message string, counts *OutcomeCounts) (*ExecutionAttempt, error) {
	o.logger.Error("execution failed", "run_id", attempt.RunID, "error", message)

	if err := attempt.Fail(message, counts); err != nil {
		return attempt, err
	}
	if err := o.ledger.UpdateAttempt(ctx, attempt); err != nil {
		return attempt, fmt.Errorf("failed to update execution log: %w", err)
	}
	return attempt, nil
}

func (o *Orchestrator) archiveAttempt(attempt *ExecutionAttempt, output *ScanOutput, counts OutcomeCounts) {
	if o.archive == nil {
		return
	}

	path, err := o.archive.Write(&ExecutionRecord{
		RunID:          attempt.RunID,
		ExecutionLogID: attempt.ExecutionLogID,
		Scope:          attempt.Scope.String(),
		Status:         attempt.Status,
		Timestamp:      attempt.UpdatedAt,
		Summary:        counts,
		ScanResults:    output.RawResults,
		ScanLogs:       output.RawLogs,
		GeneratedSpec:  attempt.GeneratedSpec,
	})
	if err != nil {
		o.logger.Warn("failed to archive execution record",
			"run_id", attempt.RunID,
			"error", err.Error())
		return
	}
	o.logger.Debug("execution record archived", "run_id", attempt.RunID, "path", path)
}

func joinViolations(violations []CheckViolation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}
