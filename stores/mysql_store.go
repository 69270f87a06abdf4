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
	_ "github.com/go-sql-driver/mysql"
)

type MysqlMetadataStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewMysqlMetadataStore(db *sql.DB, logger *slog.Logger) MetadataStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &MysqlMetadataStore{db: db, logger: logger}
}

var mysqlSchema = []string{
	`create table if not exists dq_checks (
		check_id bigint primary key,
		suite_id bigint,
		check_name varchar(500) not null,
		metric varchar(50) not null,
		schema_name varchar(255),
		table_name varchar(255) not null,
		column_name varchar(255),
		filter_condition text,
		fail_operator varchar(2),
		fail_threshold double,
		warn_operator varchar(2),
		warn_threshold double,
		freshness_column varchar(255),
		freshness_value bigint,
		freshness_unit varchar(10),
		schema_spec text,
		reference_table varchar(255),
		reference_column varchar(255),
		reference_query text,
		scalar_query_a text,
		scalar_query_b text,
		scalar_operator varchar(2),
		scalar_tolerance double,
		scalar_tolerance_kind varchar(10),
		custom_sql text,
		is_enabled tinyint(1) not null default 1,
		created_at datetime(6) not null default current_timestamp(6)
	)`,
	`create table if not exists dq_execution_logs (
		execution_log_id bigint auto_increment primary key,
		run_id varchar(50) not null,
		suite_id bigint,
		execution_type varchar(20) not null default 'suite',
		execution_status varchar(20) not null default 'running',
		total_checks int,
		checks_passed int,
		checks_failed int,
		checks_warned int,
		has_failures tinyint(1) not null default 0,
		error_message text,
		generated_yaml mediumtext,
		created_at datetime(6) not null default current_timestamp(6),
		updated_at datetime(6),
		index idx_dq_execution_logs_run_id (run_id)
	)`,
	`create table if not exists dq_results (
		result_id bigint auto_increment primary key,
		run_id varchar(50) not null,
		execution_log_id bigint not null,
		check_id bigint,
		check_name varchar(500) not null,
		check_outcome varchar(20) not null,
		check_value decimal(18,4),
		created_at datetime(6) not null default current_timestamp(6),
		index idx_dq_results_run_id (run_id)
	)`,
}

func (s *MysqlMetadataStore) InitSchema(ctx context.Context) error {
	for _, statement := range mysqlSchema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	s.logger.Debug("metadata schema initialized", "store", "mysql")
	return nil
}

func (s *MysqlMetadataStore) LoadChecks(ctx context.Context, scope dqcore.ExecutionScope) ([]*dqcore.Check, error) {
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

func (s *MysqlMetadataStore) SaveCheck(ctx context.Context, check *dqcore.Check) error {
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

func (s *MysqlMetadataStore) CreateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
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

func (s *MysqlMetadataStore) UpdateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
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

func (s *MysqlMetadataStore) PersistResult(ctx context.Context, runID string, executionLogID int64, result *dqcore.CheckResult) error {
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

func (s *MysqlMetadataStore) Ping(ctx context.Context) (string, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *MysqlMetadataStore) Close() error {
	return s.db.Close()
}
