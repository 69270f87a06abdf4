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

import "strings"

// MetricKind identifies the kind of measurement a check performs.
type MetricKind string

const (
	MetricRowCount         MetricKind = "row_count"
	MetricMissingCount     MetricKind = "missing_count"
	MetricMissingPercent   MetricKind = "missing_percent"
	MetricDuplicateCount   MetricKind = "duplicate_count"
	MetricDuplicatePercent MetricKind = "duplicate_percent"
	MetricMin              MetricKind = "min"
	MetricMax              MetricKind = "max"
	MetricAvg              MetricKind = "avg"
	MetricSum              MetricKind = "sum"
	MetricInvalidCount     MetricKind = "invalid_count"
	MetricInvalidPercent   MetricKind = "invalid_percent"
	MetricValidCount       MetricKind = "valid_count"
	MetricAvgLength        MetricKind = "avg_length"
	MetricMinLength        MetricKind = "min_length"
	MetricFreshness        MetricKind = "freshness"
	MetricSchema           MetricKind = "schema"
	MetricReference        MetricKind = "reference"
	MetricScalarComparison MetricKind = "scalar_comparison"
	MetricCustomSQL        MetricKind = "custom_sql"
	MetricUserDefined      MetricKind = "user_defined"
)

var knownMetrics = map[MetricKind]bool{
	MetricRowCount:         true,
	MetricMissingCount:     true,
	MetricMissingPercent:   true,
	MetricDuplicateCount:   true,
	MetricDuplicatePercent: true,
	MetricMin:              true,
	MetricMax:              true,
	MetricAvg:              true,
	MetricSum:              true,
	MetricInvalidCount:     true,
	MetricInvalidPercent:   true,
	MetricValidCount:       true,
	MetricAvgLength:        true,
	MetricMinLength:        true,
	MetricFreshness:        true,
	MetricSchema:           true,
	MetricReference:        true,
	MetricScalarComparison: true,
	MetricCustomSQL:        true,
	MetricUserDefined:      true,
}

// Metrics that operate on the table as a whole; a column makes no sense for them.
// user_defined carries its own SQL and is treated the same way as custom_sql.
var tableScopedMetrics = map[MetricKind]bool{
	MetricRowCount:         true,
	MetricFreshness:        true,
	MetricSchema:           true,
	MetricScalarComparison: true,
	MetricCustomSQL:        true,
	MetricUserDefined:      true,
}

// Metrics rendered as a plain "metric(column) / metric:" line with warn/fail
// threshold lines underneath. All other kinds have specialized fragment shapes.
var standardMetrics = map[MetricKind]bool{
	MetricRowCount:         true,
	MetricMissingCount:     true,
	MetricMissingPercent:   true,
	MetricDuplicateCount:   true,
	MetricDuplicatePercent: true,
	MetricMin:              true,
	MetricMax:              true,
	MetricAvg:              true,
	MetricSum:              true,
	MetricInvalidCount:     true,
	MetricInvalidPercent:   true,
	MetricValidCount:       true,
	MetricAvgLength:        true,
	MetricMinLength:        true,
}

// KnownMetric reports whether kind belongs to the closed metric set.
func KnownMetric(kind MetricKind) bool {
	return knownMetrics[kind]
}

// ColumnScoped reports whether checks of this kind measure a single column.
func ColumnScoped(kind MetricKind) bool {
	return knownMetrics[kind] && !tableScopedMetrics[kind]
}

// ComparisonOp is a threshold comparison operator.
type ComparisonOp string

const (
	OpGreater      ComparisonOp = ">"
	OpGreaterEqual ComparisonOp = ">="
	OpLess         ComparisonOp = "<"
	OpLessEqual    ComparisonOp = "<="
	OpEqual        ComparisonOp = "="
	OpNotEqual     ComparisonOp = "!="
)

var comparisonOps = map[ComparisonOp]bool{
	OpGreater:      true,
	OpGreaterEqual: true,
	OpLess:         true,
	OpLessEqual:    true,
	OpEqual:        true,
	OpNotEqual:     true,
}

// NormalizeOp maps the stored "==" spelling onto "=" and trims whitespace.
// The scan engine only understands the single-equals form.
func NormalizeOp(op string) ComparisonOp {
	trimmed := ComparisonOp(strings.TrimSpace(op))
	if trimmed == "==" {
		return OpEqual
	}
	return trimmed
}

// ValidOp reports whether op is one of the supported comparison operators.
func ValidOp(op ComparisonOp) bool {
	return comparisonOps[op]
}

// Threshold is one half of a check's warn/fail pair.
type Threshold struct {
	Operator ComparisonOp `yaml:"operator" json:"operator"`
	Value    float64      `yaml:"value" json:"value"`
}

// FreshnessUnit is the time unit of a freshness threshold.
type FreshnessUnit string

const (
	UnitSecond FreshnessUnit = "second"
	UnitMinute FreshnessUnit = "minute"
	UnitHour   FreshnessUnit = "hour"
	UnitDay    FreshnessUnit = "day"
)

// suffix returns the compact unit form the scan engine expects, e.g. "1d".
func (u FreshnessUnit) suffix() string {
	switch u {
	case UnitSecond:
		return "s"
	case UnitMinute:
		return "m"
	case UnitHour:
		return "h"
	case UnitDay:
		return "d"
	}
	return ""
}

// FreshnessSpec configures a freshness check: how stale the newest value of
// DateColumn may be before the check fails.
type FreshnessSpec struct {
	DateColumn string        `yaml:"column" json:"column"`
	Value      int64         `yaml:"value" json:"value"`
	Unit       FreshnessUnit `yaml:"unit" json:"unit"`
}

// SchemaSpec configures a schema check. Each aspect (missing required column,
// present forbidden column, wrong column type) can independently be enforced
// at warn or fail severity; with no flags set, present aspects fail.
type SchemaSpec struct {
	RequiredColumns  []string          `yaml:"required_columns,omitempty" json:"required_columns,omitempty"`
	ForbiddenColumns []string          `yaml:"forbidden_columns,omitempty" json:"forbidden_columns,omitempty"`
	ColumnTypes      map[string]string `yaml:"column_types,omitempty" json:"column_types,omitempty"`

	FailOnMissing   bool `yaml:"fail_on_missing,omitempty" json:"fail_on_missing,omitempty"`
	WarnOnMissing   bool `yaml:"warn_on_missing,omitempty" json:"warn_on_missing,omitempty"`
	FailOnForbidden bool `yaml:"fail_on_forbidden,omitempty" json:"fail_on_forbidden,omitempty"`
	WarnOnForbidden bool `yaml:"warn_on_forbidden,omitempty" json:"warn_on_forbidden,omitempty"`
	FailOnWrongType bool `yaml:"fail_on_wrong_type,omitempty" json:"fail_on_wrong_type,omitempty"`
	WarnOnWrongType bool `yaml:"warn_on_wrong_type,omitempty" json:"warn_on_wrong_type,omitempty"`
}

func (s *SchemaSpec) hasFlags() bool {
	return s.FailOnMissing || s.WarnOnMissing ||
		s.FailOnForbidden || s.WarnOnForbidden ||
		s.FailOnWrongType || s.WarnOnWrongType
}

// ReferenceSpec configures a referential-integrity check: values of the
// check's column must exist in Table.Column. Query, when set, replaces the
// generated lookup with caller-supplied SQL returning the violating rows.
type ReferenceSpec struct {
	Table  string `yaml:"table" json:"table"`
	Column string `yaml:"column" json:"column"`
	Query  string `yaml:"query,omitempty" json:"query,omitempty"`
}

// ToleranceKind selects how a scalar comparison tolerance is interpreted.
type ToleranceKind string

const (
	ToleranceAbsolute   ToleranceKind = "absolute"
	TolerancePercentage ToleranceKind = "percentage"
)

// ScalarComparisonSpec configures a check comparing two scalar query results.
// Tolerance applies to the = and != operators only and is carried into the
// generated comparison SQL; the scan engine evaluates it, not this library.
type ScalarComparisonSpec struct {
	QueryA        string        `yaml:"query_a" json:"query_a"`
	QueryB        string        `yaml:"query_b" json:"query_b"`
	Operator      ComparisonOp  `yaml:"operator" json:"operator"`
	Tolerance     *float64      `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	ToleranceKind ToleranceKind `yaml:"tolerance_kind,omitempty" json:"tolerance_kind,omitempty"`
}

// CustomSQLSpec carries the user-supplied SQL of a custom_sql or user_defined
// check. The query must return a single numeric value, compared against the
// check's fail threshold (or "= 0" when no threshold is set).
type CustomSQLSpec struct {
	Query string `yaml:"query" json:"query"`
}

// Check is a single data-quality rule definition.
type Check struct {
	ID      int64      `yaml:"id" json:"check_id"`
	SuiteID int64      `yaml:"suite_id,omitempty" json:"suite_id,omitempty"`
	Name    string     `yaml:"name" json:"check_name"`
	Metric  MetricKind `yaml:"metric" json:"metric"`

	SchemaName string `yaml:"schema,omitempty" json:"schema_name,omitempty"`
	TableName  string `yaml:"table" json:"table_name"`
	ColumnName string `yaml:"column,omitempty" json:"column_name,omitempty"`

	Filter string `yaml:"filter,omitempty" json:"filter_condition,omitempty"`

	Fail *Threshold `yaml:"fail,omitempty" json:"fail,omitempty"`
	Warn *Threshold `yaml:"warn,omitempty" json:"warn,omitempty"`

	Enabled bool `yaml:"enabled" json:"is_enabled"`

	Freshness        *FreshnessSpec        `yaml:"freshness,omitempty" json:"freshness,omitempty"`
	Schema           *SchemaSpec           `yaml:"schema_check,omitempty" json:"schema_check,omitempty"`
	Reference        *ReferenceSpec        `yaml:"reference,omitempty" json:"reference,omitempty"`
	ScalarComparison *ScalarComparisonSpec `yaml:"scalar_comparison,omitempty" json:"scalar_comparison,omitempty"`
	CustomSQL        *CustomSQLSpec        `yaml:"custom_sql,omitempty" json:"custom_sql,omitempty"`
}

// QualifiedTable returns "schema.table", or just the table name when no
// schema is set.
func (c *Check) QualifiedTable() string {
	if c.SchemaName == "" {
		return c.TableName
	}
	return c.SchemaName + "." + c.TableName
}
