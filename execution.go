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
	"errors"
	"fmt"
	"time"
)

// ExecutionStatus is the lifecycle state of an execution attempt.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// ErrAttemptTerminal is returned when a terminal attempt is transitioned
// again. completed and failed are final; there is no way out of either.
var ErrAttemptTerminal = errors.New("execution attempt is already in a terminal state")

// ExecutionScope selects which checks an attempt runs: all checks of a suite,
// or the checks of a single table.
type ExecutionScope struct {
	SuiteID int64
	Schema  string
	Table   string
}

func (s ExecutionScope) String() string {
	if s.SuiteID > 0 {
		return fmt.Sprintf("suite:%d", s.SuiteID)
	}
	if s.Table != "" {
		if s.Schema != "" {
			return "table:" + s.Schema + "." + s.Table
		}
		return "table:" + s.Table
	}
	return "all"
}

// executionType is the ledger's classification of an attempt.
func (s ExecutionScope) executionType() string {
	if s.SuiteID > 0 {
		return "suite"
	}
	if s.Table != "" {
		return "table"
	}
	return "adhoc"
}

// ExecutionAttempt is one run's ledger entry. It starts running and is
// mutated exactly once, at the terminal transition. Counts stay nil until a
// terminal state computes them.
type ExecutionAttempt struct {
	ExecutionLogID int64
	RunID          string
	Scope          ExecutionScope
	ExecutionType  string
	Status         ExecutionStatus
	Counts         *OutcomeCounts
	HasFailures    bool
	ErrorMessage   string
	GeneratedSpec  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewExecutionAttempt creates a running attempt for runID and scope.
func NewExecutionAttempt(runID string, scope ExecutionScope) *ExecutionAttempt {
	now := time.Now().UTC()
	return &ExecutionAttempt{
		RunID:         runID,
		Scope:         scope,
		ExecutionType: scope.executionType(),
		Status:        StatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Terminal reports whether the attempt reached completed or failed.
func (a *ExecutionAttempt) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}

// Complete transitions the attempt to completed with the given counts.
func (a *ExecutionAttempt) Complete(counts OutcomeCounts) error {
	if a.Terminal() {
		return ErrAttemptTerminal
	}

	a.Status = StatusCompleted
	a.Counts = &counts
	a.HasFailures = counts.Failed > 0
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail transitions the attempt to failed. Counts may be nil: an attempt that
// never produced results keeps them unset, while an engine-error attempt
// whose results were still persisted records what it measured.
func (a *ExecutionAttempt) Fail(message string, counts *OutcomeCounts) error {
	if a.Terminal() {
		return ErrAttemptTerminal
	}

	a.Status = StatusFailed
	a.ErrorMessage = message
	a.Counts = counts
	if counts != nil {
		a.HasFailures = counts.Failed > 0
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}
