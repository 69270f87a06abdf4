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

package stores

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dqchecker/dqcore"
)

// ClickhouseMetadataStore keeps the metadata catalog in ClickHouse. Updates
// never rewrite rows: the execution log is a ReplacingMergeTree and every
// state change appends a new version keyed by execution_log_id, with
// updated_at as the version column.
type ClickhouseMetadataStore struct {
	cnn    driver.Conn
	logger *slog.Logger
}

func NewClickhouseMetadataStore(cnn driver.Conn, logger *slog.Logger) MetadataStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ClickhouseMetadataStore{
		cnn:    cnn,
		logger: logger,
	}
}

var clickhouseSchema = []string{
	`create table if not exists dq_checks (
		check_id Int64,
		suite_id Nullable(Int64),
		check_name String,
		metric LowCardinality(String),
		schema_name Nullable(String),
		table_name String,
		column_name Nullable(String),
		filter_condition Nullable(String),
		fail_operator Nullable(String),
		fail_threshold Nullable(Float64),
		warn_operator Nullable(String),
		warn_threshold Nullable(Float64),
		freshness_column Nullable(String),
		freshness_value Nullable(Int64),
		freshness_unit Nullable(String),
		schema_spec Nullable(String),
		reference_table Nullable(String),
		reference_column Nullable(String),
		reference_query Nullable(String),
		scalar_query_a Nullable(String),
		scalar_query_b Nullable(String),
		scalar_operator Nullable(String),
		scalar_tolerance Nullable(Float64),
		scalar_tolerance_kind Nullable(String),
		custom_sql Nullable(String),
		is_enabled Bool,
		created_at DateTime64(3)
	) engine = ReplacingMergeTree(created_at)
	order by check_id`,
	`create table if not exists dq_execution_logs (
		execution_log_id Int64,
		run_id String,
		suite_id Nullable(Int64),
		execution_type LowCardinality(String),
		execution_status LowCardinality(String),
		total_checks Nullable(Int32),
		checks_passed Nullable(Int32),
		checks_failed Nullable(Int32),
		checks_warned Nullable(Int32),
		has_failures Bool,
		error_message Nullable(String),
		generated_yaml Nullable(String),
		created_at DateTime64(3),
		updated_at DateTime64(3)
	) engine = ReplacingMergeTree(updated_at)
	order by execution_log_id`,
	`create table if not exists dq_results (
		run_id String,
		execution_log_id Int64,
		check_id Nullable(Int64),
		check_name String,
		check_outcome LowCardinality(String),
		check_value Nullable(Float64),
		created_at DateTime64(3)
	) engine = MergeTree
	order by (run_id, created_at)`,
}

func (s *ClickhouseMetadataStore) InitSchema(ctx context.Context) error {
	for _, statement := range clickhouseSchema {
		if err := s.cnn.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	s.logger.Debug("metadata schema initialized", "store", "clickhouse")
	return nil
}

func (s *ClickhouseMetadataStore) LoadChecks(ctx context.Context, scope dqcore.ExecutionScope) ([]*dqcore.Check, error) {
	query := `select ` + checkColumns + `
	from dq_checks final
	where is_enabled = true`

	var args []interface{}
	if scope.SuiteID != 0 {
		query += " and suite_id = ?"
		args = append(args, scope.SuiteID)
	}
	if scope.Table != "" {
		query += " and table_name = ?"
		args = append(args, scope.Table)
		if scope.Schema != "" {
			query += " and schema_name = ?"
			args = append(args, scope.Schema)
		}
	}
	query += " order by check_id"

	rows, err := s.cnn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dq_checks: %w", err)
	}
	defer rows.Close()

	var checks []*dqcore.Check
	for rows.Next() {
		var (
			id         int64
			suiteID    *int64
			name       string
			metric     string
			schemaName *string
			tableName  string
			columnName *string
			filter     *string

			failOp        *string
			failThreshold *float64
			warnOp        *string
			warnThreshold *float64

			freshnessColumn *string
			freshnessValue  *int64
			freshnessUnit   *string

			schemaSpec *string

			referenceTable  *string
			referenceColumn *string
			referenceQuery  *string

			scalarQueryA        *string
			scalarQueryB        *string
			scalarOperator      *string
			scalarTolerance     *float64
			scalarToleranceKind *string

			customSQL *string
			enabled   bool
		)
		if err := rows.Scan(
			&id, &suiteID, &name, &metric, &schemaName, &tableName, &columnName,
			&filter, &failOp, &failThreshold, &warnOp, &warnThreshold,
			&freshnessColumn, &freshnessValue, &freshnessUnit, &schemaSpec,
			&referenceTable, &referenceColumn, &referenceQuery,
			&scalarQueryA, &scalarQueryB, &scalarOperator, &scalarTolerance, &scalarToleranceKind,
			&customSQL, &enabled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan check row: %w", err)
		}

		r := checkRow{
			id:         id,
			suiteID:    chNullInt64(suiteID),
			name:       name,
			metric:     metric,
			schemaName: chNullString(schemaName),
			tableName:  tableName,
			columnName: chNullString(columnName),
			filter:     chNullString(filter),

			failOp:        chNullString(failOp),
			failThreshold: chNullFloat64(failThreshold),
			warnOp:        chNullString(warnOp),
			warnThreshold: chNullFloat64(warnThreshold),

			freshnessColumn: chNullString(freshnessColumn),
			freshnessValue:  chNullInt64(freshnessValue),
			freshnessUnit:   chNullString(freshnessUnit),

			schemaSpec: chNullString(schemaSpec),

			referenceTable:  chNullString(referenceTable),
			referenceColumn: chNullString(referenceColumn),
			referenceQuery:  chNullString(referenceQuery),

			scalarQueryA:        chNullString(scalarQueryA),
			scalarQueryB:        chNullString(scalarQueryB),
			scalarOperator:      chNullString(scalarOperator),
			scalarTolerance:     chNullFloat64(scalarTolerance),
			scalarToleranceKind: chNullString(scalarToleranceKind),

			customSQL: chNullString(customSQL),
			enabled:   enabled,
		}

		check, err := r.toCheck()
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	return checks, nil
}

func (s *ClickhouseMetadataStore) SaveCheck(ctx context.Context, check *dqcore.Check) error {
	schemaSpec, err := encodeSchemaSpec(check.Schema)
	if err != nil {
		return err
	}

	query := `
	insert into dq_checks (` + checkColumns + `, created_at)
	values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := append(chInsertArgs(check, schemaSpec), time.Now().UTC())
	if err := s.cnn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert check %d: %w", check.ID, err)
	}
	return nil
}

// CreateAttempt assigns the log id client-side; ClickHouse has no
// auto-increment to lean on.
func (s *ClickhouseMetadataStore) CreateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
	attempt.ExecutionLogID = time.Now().UnixNano()

	if err := s.insertAttemptVersion(ctx, attempt, attempt.CreatedAt); err != nil {
		attempt.ExecutionLogID = 0
		return fmt.Errorf("failed to insert execution log: %w", err)
	}
	return nil
}

// UpdateAttempt appends a new version row; ReplacingMergeTree folds older
// versions away on merge.
func (s *ClickhouseMetadataStore) UpdateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
	if attempt.ExecutionLogID == 0 {
		return fmt.Errorf("execution log id is not set")
	}

	if err := s.insertAttemptVersion(ctx, attempt, attempt.UpdatedAt); err != nil {
		return fmt.Errorf("failed to update execution log: %w", err)
	}
	return nil
}

func (s *ClickhouseMetadataStore) insertAttemptVersion(ctx context.Context, attempt *dqcore.ExecutionAttempt, updatedAt time.Time) error {
	query := `
	insert into dq_execution_logs (execution_log_id, run_id, suite_id, execution_type, execution_status,
		total_checks, checks_passed, checks_failed, checks_warned, has_failures,
		error_message, generated_yaml, created_at, updated_at)
	values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return s.cnn.Exec(ctx, query,
		attempt.ExecutionLogID,
		attempt.RunID,
		chInt64(attempt.Scope.SuiteID),
		attempt.ExecutionType,
		string(attempt.Status),
		chCount(attempt.Counts, func(c dqcore.OutcomeCounts) int { return c.Total }),
		chCount(attempt.Counts, func(c dqcore.OutcomeCounts) int { return c.Passed }),
		chCount(attempt.Counts, func(c dqcore.OutcomeCounts) int { return c.Failed }),
		chCount(attempt.Counts, func(c dqcore.OutcomeCounts) int { return c.Warned }),
		attempt.HasFailures,
		chString(attempt.ErrorMessage),
		chString(attempt.GeneratedSpec),
		attempt.CreatedAt,
		updatedAt,
	)
}

func (s *ClickhouseMetadataStore) PersistResult(ctx context.Context, runID string, executionLogID int64, result *dqcore.CheckResult) error {
	query := `
	insert into dq_results (run_id, execution_log_id, check_id, check_name, check_outcome, check_value, created_at)
	values (?, ?, ?, ?, ?, ?, ?)`

	err := s.cnn.Exec(ctx, query,
		runID,
		executionLogID,
		result.CheckID,
		result.CheckName,
		string(result.Outcome),
		result.MeasuredValue,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert check result: %w", err)
	}

	return nil
}

func (s *ClickhouseMetadataStore) Ping(ctx context.Context) (string, error) {
	if err := s.cnn.Ping(ctx); err != nil {
		return "", err
	}

	serverVersion, err := s.cnn.ServerVersion()
	if err != nil {
		return "", err
	}
	return serverVersion.String(), nil
}

func (s *ClickhouseMetadataStore) Close() error {
	return s.cnn.Close()
}

// chInsertArgs mirrors checkArgs with pointer-typed nullables, which the
// native protocol expects.
func chInsertArgs(check *dqcore.Check, schemaSpec sql.NullString) []interface{} {
	var failOp, warnOp *string
	var failVal, warnVal *float64
	if check.Fail != nil {
		failOp = chString(string(check.Fail.Operator))
		v := check.Fail.Value
		failVal = &v
	}
	if check.Warn != nil {
		warnOp = chString(string(check.Warn.Operator))
		v := check.Warn.Value
		warnVal = &v
	}

	var freshColumn, freshUnit *string
	var freshValue *int64
	if check.Freshness != nil {
		freshColumn = chString(check.Freshness.DateColumn)
		v := check.Freshness.Value
		freshValue = &v
		freshUnit = chString(string(check.Freshness.Unit))
	}

	var refTable, refColumn, refQuery *string
	if check.Reference != nil {
		refTable = chString(check.Reference.Table)
		refColumn = chString(check.Reference.Column)
		refQuery = chString(check.Reference.Query)
	}

	var scalarA, scalarB, scalarOp, scalarKind *string
	var scalarTolerance *float64
	if check.ScalarComparison != nil {
		scalarA = chString(check.ScalarComparison.QueryA)
		scalarB = chString(check.ScalarComparison.QueryB)
		scalarOp = chString(string(check.ScalarComparison.Operator))
		if check.ScalarComparison.Tolerance != nil {
			v := *check.ScalarComparison.Tolerance
			scalarTolerance = &v
			scalarKind = chString(string(check.ScalarComparison.ToleranceKind))
		}
	}

	var customSQL *string
	if check.CustomSQL != nil {
		customSQL = chString(check.CustomSQL.Query)
	}

	var spec *string
	if schemaSpec.Valid {
		spec = &schemaSpec.String
	}

	return []interface{}{
		check.ID,
		chInt64(check.SuiteID),
		check.Name,
		string(check.Metric),
		chString(check.SchemaName),
		check.TableName,
		chString(check.ColumnName),
		chString(check.Filter),
		failOp, failVal, warnOp, warnVal,
		freshColumn, freshValue, freshUnit,
		spec,
		refTable, refColumn, refQuery,
		scalarA, scalarB, scalarOp, scalarTolerance, scalarKind,
		customSQL,
		check.Enabled,
	}
}

func chString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func chInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func chCount(counts *dqcore.OutcomeCounts, pick func(dqcore.OutcomeCounts) int) *int32 {
	if counts == nil {
		return nil
	}
	v := int32(pick(*counts))
	return &v
}

func chNullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func chNullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func chNullFloat64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
