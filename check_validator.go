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
	"fmt"
	"math"
	"strings"
)

// CheckViolation is one rule violation found while validating a check.
type CheckViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v CheckViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidateCheck validates a single check definition and returns every
// violation found rather than stopping at the first. A nil or empty return
// means the check is valid.
func ValidateCheck(check *Check) []CheckViolation {
	if check == nil {
		return []CheckViolation{{Field: "check", Message: "check is nil"}}
	}

	var violations []CheckViolation
	add := func(field, format string, args ...interface{}) {
		violations = append(violations, CheckViolation{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if !KnownMetric(check.Metric) {
		add("metric", "unknown metric kind: %q", check.Metric)
		return violations
	}

	if strings.TrimSpace(check.Name) == "" {
		add("name", "check name is required")
	}
	if strings.TrimSpace(check.TableName) == "" {
		add("table", "table name is required")
	}

	column := strings.TrimSpace(check.ColumnName)
	if ColumnScoped(check.Metric) {
		if column == "" {
			add("column", "metric %s requires a column", check.Metric)
		}
	} else if column != "" {
		add("column", "metric %s operates on the whole table, column must not be set", check.Metric)
	}

	// Filter narrows the scanned rows; kinds that embed their own full SQL
	// (and schema, which inspects structure) have nowhere to apply it.
	if strings.TrimSpace(check.Filter) != "" && !standardMetrics[check.Metric] && check.Metric != MetricFreshness {
		add("filter", "filter is not supported for metric %s", check.Metric)
	}

	validatePayload(check, add)
	validateThresholds(check, add)

	return violations
}

// ValidateChecks partitions checks into valid and rejected ones, preserving
// input order within both groups.
func ValidateChecks(checks []*Check) (valid []*Check, rejected []RejectedCheck) {
	for _, check := range checks {
		if violations := ValidateCheck(check); len(violations) > 0 {
			rejected = append(rejected, RejectedCheck{Check: check, Violations: violations})
			continue
		}
		valid = append(valid, check)
	}
	return valid, rejected
}

// RejectedCheck pairs an invalid check with the violations that excluded it.
type RejectedCheck struct {
	Check      *Check
	Violations []CheckViolation
}

func validatePayload(check *Check, add func(field, format string, args ...interface{})) {
	type payload struct {
		field   string
		present bool
	}
	payloads := []payload{
		{"freshness", check.Freshness != nil},
		{"schema_check", check.Schema != nil},
		{"reference", check.Reference != nil},
		{"scalar_comparison", check.ScalarComparison != nil},
		{"custom_sql", check.CustomSQL != nil},
	}

	required := ""
	switch check.Metric {
	case MetricFreshness:
		required = "freshness"
	case MetricSchema:
		required = "schema_check"
	case MetricReference:
		required = "reference"
	case MetricScalarComparison:
		required = "scalar_comparison"
	case MetricCustomSQL, MetricUserDefined:
		required = "custom_sql"
	}

	for _, p := range payloads {
		if p.field == required && !p.present {
			add(p.field, "metric %s requires the %s payload", check.Metric, p.field)
		}
		if p.field != required && p.present {
			add(p.field, "payload %s is not allowed for metric %s", p.field, check.Metric)
		}
	}

	switch {
	case check.Metric == MetricFreshness && check.Freshness != nil:
		f := check.Freshness
		if strings.TrimSpace(f.DateColumn) == "" {
			add("freshness.column", "date column is required")
		}
		if f.Value <= 0 {
			add("freshness.value", "threshold value must be a positive integer, got %d", f.Value)
		}
		if f.Unit.suffix() == "" {
			add("freshness.unit", "unknown unit %q, expected one of second, minute, hour, day", f.Unit)
		}

	case check.Metric == MetricSchema && check.Schema != nil:
		s := check.Schema
		if len(s.RequiredColumns) == 0 && len(s.ForbiddenColumns) == 0 && len(s.ColumnTypes) == 0 {
			add("schema_check", "at least one of required_columns, forbidden_columns, column_types must be set")
		}

	case check.Metric == MetricReference && check.Reference != nil:
		r := check.Reference
		if strings.TrimSpace(r.Table) == "" {
			add("reference.table", "reference table is required")
		}
		if strings.TrimSpace(r.Column) == "" {
			add("reference.column", "reference column is required")
		}

	case check.Metric == MetricScalarComparison && check.ScalarComparison != nil:
		s := check.ScalarComparison
		if strings.TrimSpace(s.QueryA) == "" {
			add("scalar_comparison.query_a", "query_a is required")
		}
		if strings.TrimSpace(s.QueryB) == "" {
			add("scalar_comparison.query_b", "query_b is required")
		}
		if s.Operator != "" && !ValidOp(NormalizeOp(string(s.Operator))) {
			add("scalar_comparison.operator", "unsupported comparison operator: %q", s.Operator)
		}
		if s.Tolerance != nil {
			if !isFinite(*s.Tolerance) || *s.Tolerance < 0 {
				add("scalar_comparison.tolerance", "tolerance must be a non-negative finite number")
			}
			if s.ToleranceKind != ToleranceAbsolute && s.ToleranceKind != TolerancePercentage {
				add("scalar_comparison.tolerance_kind", "unknown tolerance kind %q, expected absolute or percentage", s.ToleranceKind)
			}
		}

	case (check.Metric == MetricCustomSQL || check.Metric == MetricUserDefined) && check.CustomSQL != nil:
		if strings.TrimSpace(check.CustomSQL.Query) == "" {
			add("custom_sql.query", "query is required")
		}
	}
}

func validateThresholds(check *Check, add func(field, format string, args ...interface{})) {
	// Standard metrics are evaluated purely through the warn/fail pair;
	// specialized kinds carry their pass/fail semantics in the payload and the
	// pair stays optional (custom_sql consumes fail when present).
	if standardMetrics[check.Metric] && check.Fail == nil && check.Warn == nil {
		add("thresholds", "at least one of fail or warn threshold is required for metric %s", check.Metric)
	}

	pair := []struct {
		field     string
		threshold *Threshold
	}{
		{"fail", check.Fail},
		{"warn", check.Warn},
	}
	for _, p := range pair {
		if p.threshold == nil {
			continue
		}
		if !ValidOp(NormalizeOp(string(p.threshold.Operator))) {
			add(p.field, "unsupported comparison operator: %q", p.threshold.Operator)
		}
		if !isFinite(p.threshold.Value) {
			add(p.field, "threshold value must be a finite number")
		}
	}
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
