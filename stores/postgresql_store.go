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
	_ "github.com/lib/pq"
)

type PostgresqlMetadataStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresqlMetadataStore(db *sql.DB, logger *slog.Logger) MetadataStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &PostgresqlMetadataStore{db: db, logger: logger}
}

var postgresqlSchema = []string{
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
		fail_threshold double precision,
		warn_operator varchar(2),
		warn_threshold double precision,
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
		scalar_tolerance double precision,
		scalar_tolerance_kind varchar(10),
		custom_sql text,
		is_enabled boolean not null default true,
		created_at timestamptz not null default now()
	)`,
	`create table if not exists dq_execution_logs (
		execution_log_id bigserial primary key,
		run_id varchar(50) not null,
		suite_id bigint,
		execution_type varchar(20) not null default 'suite',
		execution_status varchar(20) not null default 'running',
		total_checks int,
		checks_passed int,
		checks_failed int,
		checks_warned int,
		has_failures boolean not null default false,
		error_message text,
		generated_yaml text,
		created_at timestamptz not null default now(),
		updated_at timestamptz
	)`,
	`create table if not exists dq_results (
		result_id bigserial primary key,
		run_id varchar(50) not null,
		execution_log_id bigint not null,
		check_id bigint,
		check_name varchar(500) not null,
		check_outcome varchar(20) not null,
		check_value numeric(18,4),
		created_at timestamptz not null default now()
	)`,
	`create index if not exists idx_dq_execution_logs_run_id on dq_execution_logs (run_id)`,
	`create index if not exists idx_dq_results_run_id on dq_results (run_id)`,
}

func (s *PostgresqlMetadataStore) InitSchema(ctx context.Context) error {
	for _, statement := range postgresqlSchema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	s.logger.Debug("metadata schema initialized", "store", "postgresql")
	return nil
}

func (s *PostgresqlMetadataStore) LoadChecks(ctx context.Context, scope dqcore.ExecutionScope) ([]*dqcore.Check, error) {
	query := `select ` + checkColumns + `
	from dq_checks
	where is_enabled = true`

	var args []interface{}
	if scope.SuiteID != 0 {
		args = append(args, scope.SuiteID)
		query += fmt.Sprintf(" and suite_id = $%d", len(args))
	}
	if scope.Table != "" {
		args = append(args, scope.Table)
		query += fmt.Sprintf(" and table_name = $%d", len(args))
		if scope.Schema != "" {
			args = append(args, scope.Schema)
			query += fmt.Sprintf(" and schema_name = $%d", len(args))
		}
	}
	query += " order by check_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dq_checks: %w", err)
	}

	return collectChecks(rows)
}

func (s *PostgresqlMetadataStore) SaveCheck(ctx context.Context, check *dqcore.Check) error {
	schemaSpec, err := encodeSchemaSpec(check.Schema)
	if err != nil {
		return err
	}

	query := `
	insert into dq_checks (` + checkColumns + `)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	if _, err := s.db.ExecContext(ctx, query, checkArgs(check, schemaSpec)...); err != nil {
		return fmt.Errorf("failed to insert check %d: %w", check.ID, err)
	}
	return nil
}

func (s *PostgresqlMetadataStore) CreateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
	query := `
	insert into dq_execution_logs (run_id, suite_id, execution_type, execution_status, has_failures, created_at)
	values ($1, $2, $3, $4, $5, $6)
	returning execution_log_id`

	err := s.db.QueryRowContext(ctx, query,
		attempt.RunID,
		nullInt64(attempt.Scope.SuiteID),
		attempt.ExecutionType,
		string(attempt.Status),
		attempt.HasFailures,
		attempt.CreatedAt,
	).Scan(&attempt.ExecutionLogID)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	return nil
}

func (s *PostgresqlMetadataStore) UpdateAttempt(ctx context.Context, attempt *dqcore.ExecutionAttempt) error {
	query := `
	update dq_execution_logs
	set execution_status = $1,
		total_checks = $2,
		checks_passed = $3,
		checks_failed = $4,
		checks_warned = $5,
		has_failures = $6,
		error_message = $7,
		generated_yaml = $8,
		updated_at = $9
	where execution_log_id = $10`

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

func (s *PostgresqlMetadataStore) PersistResult(ctx context.Context, runID string, executionLogID int64, result *dqcore.CheckResult) error {
	query := `
	insert into dq_results (run_id, execution_log_id, check_id, check_name, check_outcome, check_value, created_at)
	values ($1, $2, $3, $4, $5, $6, $7)`

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

func (s *PostgresqlMetadataStore) Ping(ctx context.Context) (string, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *PostgresqlMetadataStore) Close() error {
	return s.db.Close()
}
