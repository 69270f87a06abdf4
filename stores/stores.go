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
	"encoding/json"
	"fmt"

	"github.com/dqchecker/dqcore"
)

// MetadataStore is the persistence boundary for check definitions,
// execution logs and check results.
type MetadataStore interface {
	dqcore.CheckSource
	dqcore.LedgerSink
	dqcore.ResultSink

	// SaveCheck inserts one check definition, keeping the caller-assigned id.
	SaveCheck(ctx context.Context, check *dqcore.Check) error

	// InitSchema creates the store's tables when they do not exist yet.
	InitSchema(ctx context.Context) error
	Ping(ctx context.Context) (string, error)
	Close() error
}

// checkColumns is the shared select list; scanCheck expects exactly this
// column order.
const checkColumns = `check_id, suite_id, check_name, metric, schema_name, table_name, column_name,
	filter_condition, fail_operator, fail_threshold, warn_operator, warn_threshold,
	freshness_column, freshness_value, freshness_unit, schema_spec,
	reference_table, reference_column, reference_query,
	scalar_query_a, scalar_query_b, scalar_operator, scalar_tolerance, scalar_tolerance_kind,
	custom_sql, is_enabled`

type checkRow struct {
	id         int64
	suiteID    sql.NullInt64
	name       string
	metric     string
	schemaName sql.NullString
	tableName  string
	columnName sql.NullString
	filter     sql.NullString

	failOp        sql.NullString
	failThreshold sql.NullFloat64
	warnOp        sql.NullString
	warnThreshold sql.NullFloat64

	freshnessColumn sql.NullString
	freshnessValue  sql.NullInt64
	freshnessUnit   sql.NullString

	schemaSpec sql.NullString

	referenceTable  sql.NullString
	referenceColumn sql.NullString
	referenceQuery  sql.NullString

	scalarQueryA        sql.NullString
	scalarQueryB        sql.NullString
	scalarOperator      sql.NullString
	scalarTolerance     sql.NullFloat64
	scalarToleranceKind sql.NullString

	customSQL sql.NullString
	enabled   bool
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheck(row rowScanner) (*dqcore.Check, error) {
	var r checkRow
	if err := row.Scan(
		&r.id, &r.suiteID, &r.name, &r.metric, &r.schemaName, &r.tableName, &r.columnName,
		&r.filter, &r.failOp, &r.failThreshold, &r.warnOp, &r.warnThreshold,
		&r.freshnessColumn, &r.freshnessValue, &r.freshnessUnit, &r.schemaSpec,
		&r.referenceTable, &r.referenceColumn, &r.referenceQuery,
		&r.scalarQueryA, &r.scalarQueryB, &r.scalarOperator, &r.scalarTolerance, &r.scalarToleranceKind,
		&r.customSQL, &r.enabled,
	); err != nil {
		return nil, err
	}
	return r.toCheck()
}

func collectChecks(rows *sql.Rows) ([]*dqcore.Check, error) {
	defer rows.Close()

	var checks []*dqcore.Check
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check row: %w", err)
		}
		checks = append(checks, check)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	return checks, nil
}

// toCheck maps a raw row onto a check definition. Stored "==" operators are
// normalized to "=" here so downstream code never sees the double-equals
// spelling.
func (r *checkRow) toCheck() (*dqcore.Check, error) {
	check := &dqcore.Check{
		ID:         r.id,
		SuiteID:    r.suiteID.Int64,
		Name:       r.name,
		Metric:     dqcore.MetricKind(r.metric),
		SchemaName: r.schemaName.String,
		TableName:  r.tableName,
		ColumnName: r.columnName.String,
		Filter:     r.filter.String,
		Enabled:    r.enabled,
	}

	if r.failOp.Valid {
		check.Fail = &dqcore.Threshold{
			Operator: dqcore.NormalizeOp(r.failOp.String),
			Value:    r.failThreshold.Float64,
		}
	}
	if r.warnOp.Valid {
		check.Warn = &dqcore.Threshold{
			Operator: dqcore.NormalizeOp(r.warnOp.String),
			Value:    r.warnThreshold.Float64,
		}
	}

	if r.freshnessColumn.Valid {
		check.Freshness = &dqcore.FreshnessSpec{
			DateColumn: r.freshnessColumn.String,
			Value:      r.freshnessValue.Int64,
			Unit:       dqcore.FreshnessUnit(r.freshnessUnit.String),
		}
	}

	if r.schemaSpec.Valid && r.schemaSpec.String != "" {
		var spec dqcore.SchemaSpec
		if err := json.Unmarshal([]byte(r.schemaSpec.String), &spec); err != nil {
			return nil, fmt.Errorf("failed to decode schema spec for check %d: %w", r.id, err)
		}
		check.Schema = &spec
	}

	if r.referenceTable.Valid {
		check.Reference = &dqcore.ReferenceSpec{
			Table:  r.referenceTable.String,
			Column: r.referenceColumn.String,
			Query:  r.referenceQuery.String,
		}
	}

	if r.scalarQueryA.Valid {
		spec := &dqcore.ScalarComparisonSpec{
			QueryA:   r.scalarQueryA.String,
			QueryB:   r.scalarQueryB.String,
			Operator: dqcore.NormalizeOp(r.scalarOperator.String),
		}
		if r.scalarTolerance.Valid {
			tolerance := r.scalarTolerance.Float64
			spec.Tolerance = &tolerance
			spec.ToleranceKind = dqcore.ToleranceKind(r.scalarToleranceKind.String)
		}
		check.ScalarComparison = spec
	}

	if r.customSQL.Valid && r.customSQL.String != "" {
		check.CustomSQL = &dqcore.CustomSQLSpec{Query: r.customSQL.String}
	}

	return check, nil
}

// encodeSchemaSpec serializes the schema payload for the schema_spec column.
func encodeSchemaSpec(spec *dqcore.SchemaSpec) (sql.NullString, error) {
	if spec == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode schema spec: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64Ptr(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// checkArgs flattens a check into insert arguments matching checkColumns
// order. The schema payload is passed in pre-encoded so the caller decides
// how to surface encoding failures.
func checkArgs(check *dqcore.Check, schemaSpec sql.NullString) []interface{} {
	var failOp, warnOp sql.NullString
	var failVal, warnVal sql.NullFloat64
	if check.Fail != nil {
		failOp = nullString(string(check.Fail.Operator))
		failVal = sql.NullFloat64{Float64: check.Fail.Value, Valid: true}
	}
	if check.Warn != nil {
		warnOp = nullString(string(check.Warn.Operator))
		warnVal = sql.NullFloat64{Float64: check.Warn.Value, Valid: true}
	}

	var freshColumn, freshUnit sql.NullString
	var freshValue sql.NullInt64
	if check.Freshness != nil {
		freshColumn = nullString(check.Freshness.DateColumn)
		freshValue = sql.NullInt64{Int64: check.Freshness.Value, Valid: true}
		freshUnit = nullString(string(check.Freshness.Unit))
	}

	var refTable, refColumn, refQuery sql.NullString
	if check.Reference != nil {
		refTable = nullString(check.Reference.Table)
		refColumn = nullString(check.Reference.Column)
		refQuery = nullString(check.Reference.Query)
	}

	var scalarA, scalarB, scalarOp, scalarKind sql.NullString
	var scalarTolerance sql.NullFloat64
	if check.ScalarComparison != nil {
		scalarA = nullString(check.ScalarComparison.QueryA)
		scalarB = nullString(check.ScalarComparison.QueryB)
		scalarOp = nullString(string(check.ScalarComparison.Operator))
		if check.ScalarComparison.Tolerance != nil {
			scalarTolerance = sql.NullFloat64{Float64: *check.ScalarComparison.Tolerance, Valid: true}
			scalarKind = nullString(string(check.ScalarComparison.ToleranceKind))
		}
	}

	var customSQL sql.NullString
	if check.CustomSQL != nil {
		customSQL = nullString(check.CustomSQL.Query)
	}

	return []interface{}{
		check.ID,
		nullInt64(check.SuiteID),
		check.Name,
		string(check.Metric),
		nullString(check.SchemaName),
		check.TableName,
		nullString(check.ColumnName),
		nullString(check.Filter),
		failOp, failVal, warnOp, warnVal,
		freshColumn, freshValue, freshUnit,
		schemaSpec,
		refTable, refColumn, refQuery,
		scalarA, scalarB, scalarOp, scalarTolerance, scalarKind,
		customSQL,
		check.Enabled,
	}
}

type countValues struct {
	total  sql.NullInt64
	passed sql.NullInt64
	failed sql.NullInt64
	warned sql.NullInt64
}

func splitCounts(counts *dqcore.OutcomeCounts) countValues {
	if counts == nil {
		return countValues{}
	}
	return countValues{
		total:  sql.NullInt64{Int64: int64(counts.Total), Valid: true},
		passed: sql.NullInt64{Int64: int64(counts.Passed), Valid: true},
		failed: sql.NullInt64{Int64: int64(counts.Failed), Valid: true},
		warned: sql.NullInt64{Int64: int64(counts.Warned), Valid: true},
	}
}
