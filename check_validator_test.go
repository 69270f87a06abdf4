package dqcore

import (
	"math"
	"reflect"
	"sort"
	"testing"
)

func violationFields(violations []CheckViolation) []string {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	sort.Strings(fields)
	return fields
}

func TestValidateCheck(t *testing.T) {
	tolerance := 5.0
	negativeTolerance := -1.0

	tests := []struct {
		name           string
		check          *Check
		expectedFields []string
	}{
		{
			name: "valid row count check",
			check: &Check{
				ID: 1, Name: "orders row count", Metric: MetricRowCount,
				TableName: "orders",
				Fail:      &Threshold{Operator: OpLess, Value: 1},
			},
		},
		{
			name: "valid column check with warn only",
			check: &Check{
				ID: 2, Name: "email missing", Metric: MetricMissingCount,
				TableName: "customers", ColumnName: "email",
				Warn: &Threshold{Operator: OpGreater, Value: 10},
			},
		},
		{
			name: "valid column check with filter",
			check: &Check{
				ID: 3, Name: "active dup orders", Metric: MetricDuplicateCount,
				TableName: "orders", ColumnName: "order_id",
				Filter: "status = 'active'",
				Fail:   &Threshold{Operator: OpGreater, Value: 0},
			},
		},
		{
			name:           "nil check",
			check:          nil,
			expectedFields: []string{"check"},
		},
		{
			name: "unknown metric short-circuits",
			check: &Check{
				ID: 4, Name: "", Metric: "bogus", TableName: "",
			},
			expectedFields: []string{"metric"},
		},
		{
			name: "missing name and table",
			check: &Check{
				ID: 5, Metric: MetricRowCount,
				Fail: &Threshold{Operator: OpLess, Value: 1},
			},
			expectedFields: []string{"name", "table"},
		},
		{
			name: "column metric without column",
			check: &Check{
				ID: 6, Name: "x", Metric: MetricMissingCount, TableName: "t",
				Fail: &Threshold{Operator: OpGreater, Value: 0},
			},
			expectedFields: []string{"column"},
		},
		{
			name: "table metric with column",
			check: &Check{
				ID: 7, Name: "x", Metric: MetricRowCount, TableName: "t",
				ColumnName: "c",
				Fail:       &Threshold{Operator: OpLess, Value: 1},
			},
			expectedFields: []string{"column"},
		},
		{
			name: "filter not supported for custom sql",
			check: &Check{
				ID: 8, Name: "x", Metric: MetricCustomSQL, TableName: "t",
				Filter:    "1 = 1",
				CustomSQL: &CustomSQLSpec{Query: "select 0"},
			},
			expectedFields: []string{"filter"},
		},
		{
			name: "filter allowed for freshness",
			check: &Check{
				ID: 9, Name: "fresh", Metric: MetricFreshness, TableName: "t",
				Filter:    "region = 'eu'",
				Freshness: &FreshnessSpec{DateColumn: "created_at", Value: 1, Unit: UnitDay},
			},
		},
		{
			name: "freshness payload missing",
			check: &Check{
				ID: 10, Name: "fresh", Metric: MetricFreshness, TableName: "t",
			},
			expectedFields: []string{"freshness"},
		},
		{
			name: "freshness payload invalid",
			check: &Check{
				ID: 11, Name: "fresh", Metric: MetricFreshness, TableName: "t",
				Freshness: &FreshnessSpec{DateColumn: "", Value: 0, Unit: "fortnight"},
			},
			expectedFields: []string{"freshness.column", "freshness.unit", "freshness.value"},
		},
		{
			name: "schema payload with no aspects",
			check: &Check{
				ID: 12, Name: "drift", Metric: MetricSchema, TableName: "t",
				Schema: &SchemaSpec{},
			},
			expectedFields: []string{"schema_check"},
		},
		{
			name: "valid schema check",
			check: &Check{
				ID: 13, Name: "drift", Metric: MetricSchema, TableName: "t",
				Schema: &SchemaSpec{RequiredColumns: []string{"id"}},
			},
		},
		{
			name: "reference payload incomplete",
			check: &Check{
				ID: 14, Name: "fk", Metric: MetricReference, TableName: "orders",
				ColumnName: "customer_id",
				Reference:  &ReferenceSpec{},
			},
			expectedFields: []string{"reference.column", "reference.table"},
		},
		{
			name: "valid reference check",
			check: &Check{
				ID: 15, Name: "fk", Metric: MetricReference, TableName: "orders",
				ColumnName: "customer_id",
				Reference:  &ReferenceSpec{Table: "customers", Column: "id"},
			},
		},
		{
			name: "scalar comparison queries missing",
			check: &Check{
				ID: 16, Name: "recon", Metric: MetricScalarComparison, TableName: "t",
				ScalarComparison: &ScalarComparisonSpec{Operator: OpEqual},
			},
			expectedFields: []string{"scalar_comparison.query_a", "scalar_comparison.query_b"},
		},
		{
			name: "scalar comparison bad operator and tolerance",
			check: &Check{
				ID: 17, Name: "recon", Metric: MetricScalarComparison, TableName: "t",
				ScalarComparison: &ScalarComparisonSpec{
					QueryA:    "select 1",
					QueryB:    "select 2",
					Operator:  "~=",
					Tolerance: &negativeTolerance,
				},
			},
			expectedFields: []string{
				"scalar_comparison.operator",
				"scalar_comparison.tolerance",
				"scalar_comparison.tolerance_kind",
			},
		},
		{
			name: "valid scalar comparison with tolerance",
			check: &Check{
				ID: 18, Name: "recon", Metric: MetricScalarComparison, TableName: "t",
				ScalarComparison: &ScalarComparisonSpec{
					QueryA:        "select count(*) from a",
					QueryB:        "select count(*) from b",
					Operator:      OpEqual,
					Tolerance:     &tolerance,
					ToleranceKind: TolerancePercentage,
				},
			},
		},
		{
			name: "custom sql empty query",
			check: &Check{
				ID: 19, Name: "custom", Metric: MetricCustomSQL, TableName: "t",
				CustomSQL: &CustomSQLSpec{Query: "   "},
			},
			expectedFields: []string{"custom_sql.query"},
		},
		{
			name: "payload on wrong metric",
			check: &Check{
				ID: 20, Name: "x", Metric: MetricRowCount, TableName: "t",
				Fail:      &Threshold{Operator: OpLess, Value: 1},
				Freshness: &FreshnessSpec{DateColumn: "c", Value: 1, Unit: UnitDay},
			},
			expectedFields: []string{"freshness"},
		},
		{
			name: "standard metric without thresholds",
			check: &Check{
				ID: 21, Name: "x", Metric: MetricAvg, TableName: "t", ColumnName: "c",
			},
			expectedFields: []string{"thresholds"},
		},
		{
			name: "user defined needs no thresholds",
			check: &Check{
				ID: 22, Name: "x", Metric: MetricUserDefined, TableName: "t",
				CustomSQL: &CustomSQLSpec{Query: "select count(*) from t where amount < 0"},
			},
		},
		{
			name: "bad fail operator",
			check: &Check{
				ID: 23, Name: "x", Metric: MetricRowCount, TableName: "t",
				Fail: &Threshold{Operator: "<<", Value: 1},
			},
			expectedFields: []string{"fail"},
		},
		{
			name: "non-finite warn value",
			check: &Check{
				ID: 24, Name: "x", Metric: MetricRowCount, TableName: "t",
				Fail: &Threshold{Operator: OpLess, Value: 1},
				Warn: &Threshold{Operator: OpLess, Value: math.NaN()},
			},
			expectedFields: []string{"warn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := ValidateCheck(tt.check)

			if len(tt.expectedFields) == 0 {
				if len(violations) != 0 {
					t.Errorf("ValidateCheck() = %v, expected no violations", violations)
				}
				return
			}

			fields := violationFields(violations)
			if !reflect.DeepEqual(fields, tt.expectedFields) {
				t.Errorf("ValidateCheck() violation fields = %v, expected %v", fields, tt.expectedFields)
			}
		})
	}
}

func TestValidateChecks(t *testing.T) {
	valid1 := &Check{ID: 1, Name: "a", Metric: MetricRowCount, TableName: "t1",
		Fail: &Threshold{Operator: OpLess, Value: 1}}
	invalid := &Check{ID: 2, Name: "", Metric: MetricRowCount, TableName: "t1",
		Fail: &Threshold{Operator: OpLess, Value: 1}}
	valid2 := &Check{ID: 3, Name: "b", Metric: MetricMissingCount, TableName: "t2", ColumnName: "c",
		Warn: &Threshold{Operator: OpGreater, Value: 0}}

	valid, rejected := ValidateChecks([]*Check{valid1, invalid, valid2, nil})

	if len(valid) != 2 {
		t.Fatalf("ValidateChecks() valid = %d checks, expected 2", len(valid))
	}
	if valid[0].ID != 1 || valid[1].ID != 3 {
		t.Errorf("ValidateChecks() valid order = [%d, %d], expected [1, 3]", valid[0].ID, valid[1].ID)
	}

	if len(rejected) != 2 {
		t.Fatalf("ValidateChecks() rejected = %d checks, expected 2", len(rejected))
	}
	if rejected[0].Check != invalid {
		t.Errorf("ValidateChecks() first rejected check = %+v, expected the unnamed check", rejected[0].Check)
	}
	if len(rejected[0].Violations) == 0 || len(rejected[1].Violations) == 0 {
		t.Error("ValidateChecks() rejected entries must carry violations")
	}
	if rejected[1].Check != nil {
		t.Errorf("ValidateChecks() second rejected check = %+v, expected nil", rejected[1].Check)
	}
}

func TestValidateChecksEmpty(t *testing.T) {
	valid, rejected := ValidateChecks(nil)
	if len(valid) != 0 || len(rejected) != 0 {
		t.Errorf("ValidateChecks(nil) = %d valid, %d rejected, expected none", len(valid), len(rejected))
	}
}
