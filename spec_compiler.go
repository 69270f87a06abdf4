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
	"sort"
	"strconv"
	"strings"
)

// CompilerOptions carries the connection context the compiler needs. Nothing
// here is read from ambient state; the caller passes it explicitly.
type CompilerOptions struct {
	// DefaultSchema is the schema already selected by the scan connection.
	// Tables in it are named without a schema prefix. Empty disables elision.
	DefaultSchema string
}

// RuleFragment is the compiled form of one check: the spec lines emitted for
// it, tagged with the check's identity.
type RuleFragment struct {
	CheckID int64
	Lines   []string
}

// SpecBlock groups the fragments of all checks sharing one (schema, table).
type SpecBlock struct {
	Schema     string
	Table      string
	Identifier string
	Fragments  []RuleFragment
}

// ExecutableSpec is the compiled rule specification handed to the scan
// engine. It is immutable once produced and consumed once per attempt.
type ExecutableSpec struct {
	Blocks []SpecBlock
}

// CheckCount returns the number of rule fragments across all blocks.
func (s *ExecutableSpec) CheckCount() int {
	n := 0
	for _, block := range s.Blocks {
		n += len(block.Fragments)
	}
	return n
}

// Render produces the textual specification. Output is deterministic: the
// same spec renders to byte-identical text.
func (s *ExecutableSpec) Render() string {
	if len(s.Blocks) == 0 {
		return "# no checks\n"
	}

	var b strings.Builder
	for i, block := range s.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("checks for " + block.Identifier + ":\n")
		for _, fragment := range block.Fragments {
			for _, line := range fragment.Lines {
				b.WriteString(line + "\n")
			}
		}
	}
	return b.String()
}

// CompileChecks compiles validated checks into an executable spec. Checks are
// grouped by (schema, table) in first-appearance order; within a group the
// caller's ordering is preserved. Checks must have passed ValidateCheck; a
// metric without a fragment shape here is a hard error, not a skip.
func CompileChecks(checks []*Check, opts CompilerOptions) (*ExecutableSpec, error) {
	spec := &ExecutableSpec{}
	blockIndex := map[string]int{}

	for _, check := range checks {
		fragment, err := compileFragment(check)
		if err != nil {
			return nil, err
		}

		key := check.SchemaName + "\x00" + check.TableName
		idx, ok := blockIndex[key]
		if !ok {
			idx = len(spec.Blocks)
			blockIndex[key] = idx
			spec.Blocks = append(spec.Blocks, SpecBlock{
				Schema:     check.SchemaName,
				Table:      check.TableName,
				Identifier: tableIdentifier(check.SchemaName, check.TableName, opts.DefaultSchema),
			})
		}
		spec.Blocks[idx].Fragments = append(spec.Blocks[idx].Fragments, RuleFragment{
			CheckID: check.ID,
			Lines:   fragment,
		})
	}

	return spec, nil
}

// tableIdentifier builds the block header target. Table names containing
// spaces or hyphens are quoted as-is; otherwise the schema prefix is applied
// unless it matches the connection's default schema.
func tableIdentifier(schema, table, defaultSchema string) string {
	if strings.ContainsAny(table, " -") {
		return `"` + table + `"`
	}
	if schema != "" && schema == defaultSchema {
		return table
	}
	if schema != "" && !strings.Contains(table, ".") {
		return schema + "." + table
	}
	return table
}

func compileFragment(check *Check) ([]string, error) {
	switch {
	case standardMetrics[check.Metric]:
		return compileStandard(check), nil
	case check.Metric == MetricFreshness:
		return compileFreshness(check), nil
	case check.Metric == MetricSchema:
		return compileSchema(check), nil
	case check.Metric == MetricReference:
		return compileReference(check), nil
	case check.Metric == MetricScalarComparison:
		return compileScalarComparison(check), nil
	case check.Metric == MetricCustomSQL || check.Metric == MetricUserDefined:
		return compileCustomSQL(check), nil
	}
	return nil, fmt.Errorf("no fragment shape for metric %q (check %d)", check.Metric, check.ID)
}

func compileStandard(check *Check) []string {
	var lines []string

	column := strings.TrimSpace(check.ColumnName)
	if column != "" && ColumnScoped(check.Metric) {
		lines = append(lines, fmt.Sprintf("  - %s(%s):", check.Metric, column))
	} else {
		lines = append(lines, fmt.Sprintf("  - %s:", check.Metric))
	}

	lines = append(lines, nameLine(check))
	lines = append(lines, thresholdLines(check)...)
	lines = append(lines, filterLines(check)...)

	return lines
}

func compileFreshness(check *Check) []string {
	f := check.Freshness
	lines := []string{
		fmt.Sprintf("  - freshness(%s) < %d%s:", f.DateColumn, f.Value, f.Unit.suffix()),
		nameLine(check),
	}
	lines = append(lines, filterLines(check)...)
	return lines
}

func compileSchema(check *Check) []string {
	s := check.Schema
	lines := []string{"  - schema:", nameLine(check)}

	// With no severity flags at all, present aspects fail.
	failMissing, warnMissing := s.FailOnMissing, s.WarnOnMissing
	failForbidden, warnForbidden := s.FailOnForbidden, s.WarnOnForbidden
	failWrongType, warnWrongType := s.FailOnWrongType, s.WarnOnWrongType
	if !s.hasFlags() {
		failMissing, failForbidden, failWrongType = true, true, true
	}

	lines = append(lines, schemaSeverityLines(s, "fail", failMissing, failForbidden, failWrongType)...)
	lines = append(lines, schemaSeverityLines(s, "warn", warnMissing, warnForbidden, warnWrongType)...)

	return lines
}

func schemaSeverityLines(s *SchemaSpec, severity string, missing, forbidden, wrongType bool) []string {
	var lines []string
	appendHeader := func() {
		if len(lines) == 0 {
			lines = append(lines, fmt.Sprintf("      %s:", severity))
		}
	}

	if missing && len(s.RequiredColumns) > 0 {
		appendHeader()
		lines = append(lines, "        when required column missing:")
		for _, col := range s.RequiredColumns {
			lines = append(lines, "          - "+col)
		}
	}
	if forbidden && len(s.ForbiddenColumns) > 0 {
		appendHeader()
		lines = append(lines, "        when forbidden column present:")
		for _, col := range s.ForbiddenColumns {
			lines = append(lines, "          - "+col)
		}
	}
	if wrongType && len(s.ColumnTypes) > 0 {
		appendHeader()
		lines = append(lines, "        when wrong column type:")
		columns := make([]string, 0, len(s.ColumnTypes))
		for col := range s.ColumnTypes {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		for _, col := range columns {
			lines = append(lines, fmt.Sprintf("          %s: %s", col, s.ColumnTypes[col]))
		}
	}

	return lines
}

func compileReference(check *Check) []string {
	r := check.Reference
	lines := []string{"  - failed rows:", nameLine(check), "      fail query: |"}

	if strings.TrimSpace(r.Query) != "" {
		for _, sqlLine := range strings.Split(strings.TrimSpace(r.Query), "\n") {
			lines = append(lines, "        "+sqlLine)
		}
		return lines
	}

	sourceFQN := check.QualifiedTable()
	refFQN := r.Table
	if !strings.Contains(refFQN, ".") && check.SchemaName != "" {
		refFQN = check.SchemaName + "." + refFQN
	}

	lines = append(lines,
		fmt.Sprintf("        SELECT * FROM %s", sourceFQN),
		fmt.Sprintf("        WHERE %s IS NOT NULL", check.ColumnName),
		fmt.Sprintf("          AND %s NOT IN (", check.ColumnName),
		fmt.Sprintf("            SELECT %s FROM %s", r.Column, refFQN),
		"          )",
	)
	return lines
}

func compileScalarComparison(check *Check) []string {
	s := check.ScalarComparison

	lines := []string{
		"  - failed rows:",
		nameLine(check),
		"      fail query: |",
		"        WITH comparison AS (",
		"          SELECT",
		fmt.Sprintf("            (%s) AS query_a,", strings.TrimSpace(s.QueryA)),
		fmt.Sprintf("            (%s) AS query_b", strings.TrimSpace(s.QueryB)),
		"        )",
		"        SELECT query_a, query_b, query_a - query_b AS difference",
		"        FROM comparison",
		"        WHERE " + scalarFailPredicate(s),
	}
	return lines
}

// scalarFailPredicate inverts the expected comparison: the generated query
// returns rows exactly when the comparison does not hold. Tolerance widens
// the equality band for = and != and is ignored for ordering operators.
func scalarFailPredicate(s *ScalarComparisonSpec) string {
	op := NormalizeOp(string(s.Operator))
	if op == "" {
		op = OpEqual
	}

	if s.Tolerance != nil && (op == OpEqual || op == OpNotEqual) {
		bound := formatNumber(*s.Tolerance)
		if s.ToleranceKind == TolerancePercentage {
			bound = fmt.Sprintf("ABS(query_a) * %s / 100.0", bound)
		}
		if op == OpEqual {
			return fmt.Sprintf("ABS(query_a - query_b) > %s", bound)
		}
		return fmt.Sprintf("ABS(query_a - query_b) <= %s", bound)
	}

	switch op {
	case OpEqual:
		return "query_a != query_b"
	case OpNotEqual:
		return "query_a = query_b"
	case OpGreater:
		return "query_a <= query_b"
	case OpGreaterEqual:
		return "query_a < query_b"
	case OpLess:
		return "query_a >= query_b"
	case OpLessEqual:
		return "query_a > query_b"
	}
	return "query_a != query_b"
}

func compileCustomSQL(check *Check) []string {
	metricName := SafeMetricName(check.Name)
	if metricName == "" {
		metricName = fmt.Sprintf("custom_metric_%d", check.ID)
	}

	head := fmt.Sprintf("  - %s = 0:", metricName)
	if check.Fail != nil {
		head = fmt.Sprintf("  - %s %s %s:", metricName,
			NormalizeOp(string(check.Fail.Operator)), formatNumber(check.Fail.Value))
	}

	lines := []string{head, nameLine(check), fmt.Sprintf("      %s query: |", metricName)}
	for _, sqlLine := range strings.Split(strings.TrimSpace(check.CustomSQL.Query), "\n") {
		lines = append(lines, "        "+sqlLine)
	}
	return lines
}

func nameLine(check *Check) string {
	return fmt.Sprintf("      name: %s", yamlQuote(MarkCheckName(check.Name, check.ID)))
}

func thresholdLines(check *Check) []string {
	var lines []string
	if check.Warn != nil {
		lines = append(lines, fmt.Sprintf("      warn: when %s %s",
			NormalizeOp(string(check.Warn.Operator)), formatNumber(check.Warn.Value)))
	}
	if check.Fail != nil {
		lines = append(lines, fmt.Sprintf("      fail: when %s %s",
			NormalizeOp(string(check.Fail.Operator)), formatNumber(check.Fail.Value)))
	}
	return lines
}

func filterLines(check *Check) []string {
	filter := strings.TrimSpace(check.Filter)
	if filter == "" {
		return nil
	}
	return []string{"      filter: " + yamlScalar(filter)}
}

var yamlSpecialChars = ":#{}[]&*!|>@`%"

// yamlScalar makes a value safe as an inline scalar in the generated spec,
// quoting when it contains characters the spec parser treats specially.
func yamlScalar(value string) string {
	needsQuoting := strings.ContainsAny(value, yamlSpecialChars) ||
		strings.Contains(value, "\n") ||
		strings.HasPrefix(value, "'") || strings.HasPrefix(value, `"`) ||
		strings.HasPrefix(value, " ") || strings.HasSuffix(value, " ")
	if needsQuoting {
		return yamlQuote(value)
	}
	return value
}

func yamlQuote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	return `"` + escaped + `"`
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
