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

	"github.com/dqchecker/dqcore"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteMetadataStore keeps the metadata catalog in a local sqlite file,
// suitable for single-host setups and tests.
type SqliteMetadataStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSqliteMetadataStore(db *sql.DB, logger *slog.Logger) MetadataStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &SqliteMetadataStore{db: db, logger: logger}
}

var sqliteSchema = []string{
	`create table if not exists dq_checks (
		check_id integer primary key,
		suite_id integer,
		check_name text not null,
		metric text not null,
		schema_name text,
		table_name text not null,
		column_name text,
		filter_condition text,
		fail_operator text,
		fail_threshold real,
		warn_operator text,
		warn_threshold real,
		freshness_column text,
		freshness_value integer,
		freshness_unit text,
		schema_spec text,
		reference_table text,
		reference_column text,
		reference_query text,
		scalar_query_a text,
		scalar_query_b text,
		scalar_operator text,
		scalar_tolerance real,
		scalar_tolerance_kind text,
		custom_sql text,
		is_enabled integer not null default 1,
		created_at datetime not null default current_timestamp
	)`,
	`create table if not exists dq_execution_logs (
		execution_log_id integer primary key autoincrement,
		run_id text not null,
		suite_id integer,
		execution_type text not null default 'suite',
		execution_status text not null default 'running',
		total_checks integer,
		checks_passed integer,
		checks_failed integer,
		checks_warned integer,
		has_failures integer not null default 0,
		error_message text,
		generated_yaml text,
		created_at datetime not null default current_timestamp,
		updated_at datetime
	)`,
	`create table if not exists dq_results (
		result_id integer primary key autoincrement,
		run_id text not null,
		execution_log_id integer not null,
		check_id integer,
		check_name text not null,
		check_outcome text not null,
		check_value real,
		created_at datetime not null default current_timestamp
	)`,
	`create index if not exists idx_dq_execution_logs_run_id on dq_execution_logs (run_id)`,
	`create index if not exists idx_dq_results_run_id on dq_results (run_id)`,
}

func (s *SqliteMetadataStore) InitSchema(ctx context.Context) error {
	for _, statement := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	s.logger.Debug("metadata schema initialized", "store", "sqlite")
	return nil
}

func (s *SqliteMetadataStore) LoadChecks(ctx context.Context, scope dqcore.ExecutionScope) ([]*dqcore.Check, error) {
	query := `select ` + checkColumns + `
	from dq_checks
	where is_enabled = 1`

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

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dq_checks: %w", err)
	}

	return collectChecks(rows)
}

func (s *SqliteMetadataStore) SaveCheck(ctx context.Context, check *dqcore.Check) error {
	schemaSpec, err := encodeSchemaSpec(check.Schema)
	if err != nil {
		return err
	}

	query := `
	insert into dq_checks (` + checkColumns + `)
	values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, checkArgs(check, schemaSpec)...); err != nil {
		return fmt.Errorf("failed to insert check %d: %w", check.ID, err)
	}
	return nil
}

func (s *SqliteMetadataStore) CreateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
	query := `
	insert into dq_execution_logs (run_id, suite_id, execution_type, execution_status, has_failures, created_at)
	values (?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		attempt.RunID,
		nullInt64(attempt.Scope.SuiteID),
		attempt.ExecutionType,
		string(attempt.Status),
		attempt.HasFailures,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read execution log id: %w", err)
	}
	attempt.ExecutionLogID = id

	return nil
}

func (s *SqliteMetadataStore) UpdateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
	query := `
	update dq_execution_logs
	set execution_status = ?,
		total_checks = ?,
		checks_passed = ?,
		checks_failed = ?,
		checks_warned = ?,
		has_failures = ?,
		error_message = ?,
		generated_yaml = ?,
		updated_at = ?
	where execution_log_id = ?`

	counts := splitCounts(attempt.Counts)
	result, err := s.db.ExecContext(ctx, query,
		string(attempt.Status),
		counts.total,
		counts.passed,
		counts.failed,
		counts.warned,
		attempt.HasFailures,
		nullString(attempt.ErrorMessage),
		nullString(attempt.GeneratedSpec),
		attempt.UpdatedAt,
		attempt.ExecutionLogID,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution log: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("execution log %d not found", attempt.ExecutionLogID)
	}

	return nil
}

func (s *SqliteMetadataStore) PersistResult(ctx context.Context, runID string, executionLogID int64, result *dqcore.CheckResult) error {
	query := `
	insert into dq_results (run_id, execution_log_id, check_id, check_name, check_outcome, check_value, created_at)
	values (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		runID,
		executionLogID,
		nullInt64Ptr(result.CheckID),
		result.CheckName,
		string(result.Outcome),
		nullFloat64Ptr(result.MeasuredValue),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert check result: %w", err)
	}

	return nil
}

func (s *SqliteMetadataStore) Ping(ctx context.Context) (string, error) {
	var version string
	if err := s.db.QueryRowContext(ctx, "select sqlite_version()").Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func (s *SqliteMetadataStore) Close() error {
	return s.db.Close()
}
