package stores

import (
	"database/sql"
	"reflect"
	"strings"
	"testing"

	"github.com/dqchecker/dqcore"
)

func TestCheckRowToCheck(t *testing.T) {
	row := checkRow{
		id:            7,
		suiteID:       sql.NullInt64{Int64: 3, Valid: true},
		name:          "orders volume",
		metric:        "row_count",
		schemaName:    sql.NullString{String: "dbo", Valid: true},
		tableName:     "orders",
		failOp:        sql.NullString{String: "==", Valid: true},
		failThreshold: sql.NullFloat64{Float64: 100, Valid: true},
		warnOp:        sql.NullString{String: "<", Valid: true},
		warnThreshold: sql.NullFloat64{Float64: 200, Valid: true},
		enabled:       true,
	}

	check, err := row.toCheck()
	if err != nil {
		t.Fatalf("toCheck() unexpected error: %v", err)
	}

	if check.ID != 7 || check.SuiteID != 3 {
		t.Errorf("ids = (%d, %d), expected (7, 3)", check.ID, check.SuiteID)
	}
	if check.Metric != dqcore.MetricRowCount || check.SchemaName != "dbo" || check.TableName != "orders" {
		t.Errorf("check = %+v", check)
	}

	// stored double-equals comes back as the single-equals operator
	if !reflect.DeepEqual(check.Fail, &dqcore.Threshold{Operator: dqcore.OpEqual, Value: 100}) {
		t.Errorf("Fail = %+v, expected = 100", check.Fail)
	}
	if !reflect.DeepEqual(check.Warn, &dqcore.Threshold{Operator: dqcore.OpLess, Value: 200}) {
		t.Errorf("Warn = %+v, expected < 200", check.Warn)
	}
}

func TestCheckRowToCheckPayloads(t *testing.T) {
	tests := []struct {
		name     string
		row      checkRow
		verify   func(t *testing.T, check *dqcore.Check)
		wantErr  bool
	}{
		{
			name: "freshness columns",
			row: checkRow{
				id: 1, name: "orders fresh", metric: "freshness", tableName: "orders",
				freshnessColumn: sql.NullString{String: "created_at", Valid: true},
				freshnessValue:  sql.NullInt64{Int64: 2, Valid: true},
				freshnessUnit:   sql.NullString{String: "hour", Valid: true},
				enabled:         true,
			},
			verify: func(t *testing.T, check *dqcore.Check) {
				expected := &dqcore.FreshnessSpec{DateColumn: "created_at", Value: 2, Unit: dqcore.UnitHour}
				if !reflect.DeepEqual(check.Freshness, expected) {
					t.Errorf("Freshness = %+v, expected %+v", check.Freshness, expected)
				}
			},
		},
		{
			name: "schema spec json",
			row: checkRow{
				id: 2, name: "orders shape", metric: "schema", tableName: "orders",
				schemaSpec: sql.NullString{String: `{"required_columns":["id","name"],"warn_on_missing":true}`, Valid: true},
				enabled:    true,
			},
			verify: func(t *testing.T, check *dqcore.Check) {
				if check.Schema == nil || !check.Schema.WarnOnMissing {
					t.Fatalf("Schema = %+v", check.Schema)
				}
				if !reflect.DeepEqual(check.Schema.RequiredColumns, []string{"id", "name"}) {
					t.Errorf("RequiredColumns = %v", check.Schema.RequiredColumns)
				}
			},
		},
		{
			name: "invalid schema spec json",
			row: checkRow{
				id: 9, name: "broken", metric: "schema", tableName: "orders",
				schemaSpec: sql.NullString{String: "{nope", Valid: true},
				enabled:    true,
			},
			wantErr: true,
		},
		{
			name: "scalar comparison with tolerance",
			row: checkRow{
				id: 3, name: "totals agree", metric: "scalar_comparison", tableName: "orders",
				scalarQueryA:        sql.NullString{String: "select sum(a) from t1", Valid: true},
				scalarQueryB:        sql.NullString{String: "select sum(b) from t2", Valid: true},
				scalarOperator:      sql.NullString{String: "==", Valid: true},
				scalarTolerance:     sql.NullFloat64{Float64: 2.5, Valid: true},
				scalarToleranceKind: sql.NullString{String: "percentage", Valid: true},
				enabled:             true,
			},
			verify: func(t *testing.T, check *dqcore.Check) {
				spec := check.ScalarComparison
				if spec == nil || spec.Operator != dqcore.OpEqual {
					t.Fatalf("ScalarComparison = %+v", spec)
				}
				if spec.Tolerance == nil || *spec.Tolerance != 2.5 || spec.ToleranceKind != dqcore.TolerancePercentage {
					t.Errorf("tolerance = %+v (%s)", spec.Tolerance, spec.ToleranceKind)
				}
			},
		},
		{
			name: "scalar comparison without tolerance",
			row: checkRow{
				id: 4, name: "counts agree", metric: "scalar_comparison", tableName: "orders",
				scalarQueryA:   sql.NullString{String: "select count(*) from t1", Valid: true},
				scalarQueryB:   sql.NullString{String: "select count(*) from t2", Valid: true},
				scalarOperator: sql.NullString{String: "=", Valid: true},
				enabled:        true,
			},
			verify: func(t *testing.T, check *dqcore.Check) {
				if check.ScalarComparison == nil || check.ScalarComparison.Tolerance != nil {
					t.Errorf("ScalarComparison = %+v, expected no tolerance", check.ScalarComparison)
				}
			},
		},
		{
			name: "reference and custom sql",
			row: checkRow{
				id: 5, name: "orders reference", metric: "reference", tableName: "orders",
				columnName:      sql.NullString{String: "customer_id", Valid: true},
				referenceTable:  sql.NullString{String: "customers", Valid: true},
				referenceColumn: sql.NullString{String: "id", Valid: true},
				customSQL:       sql.NullString{String: "select 1", Valid: true},
				enabled:         true,
			},
			verify: func(t *testing.T, check *dqcore.Check) {
				if check.Reference == nil || check.Reference.Table != "customers" || check.Reference.Column != "id" {
					t.Errorf("Reference = %+v", check.Reference)
				}
				if check.CustomSQL == nil || check.CustomSQL.Query != "select 1" {
					t.Errorf("CustomSQL = %+v", check.CustomSQL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := tt.row.toCheck()

			if tt.wantErr {
				if err == nil {
					t.Error("toCheck() expected error but got none")
				} else if !strings.Contains(err.Error(), "failed to decode schema spec for check 9") {
					t.Errorf("toCheck() error = %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("toCheck() unexpected error: %v", err)
			}
			tt.verify(t, check)
		})
	}
}

func TestEncodeSchemaSpec(t *testing.T) {
	encoded, err := encodeSchemaSpec(nil)
	if err != nil {
		t.Fatalf("encodeSchemaSpec(nil) unexpected error: %v", err)
	}
	if encoded.Valid {
		t.Errorf("encodeSchemaSpec(nil) = %+v, expected invalid", encoded)
	}

	encoded, err = encodeSchemaSpec(&dqcore.SchemaSpec{RequiredColumns: []string{"id"}})
	if err != nil {
		t.Fatalf("encodeSchemaSpec() unexpected error: %v", err)
	}
	if !encoded.Valid || !strings.Contains(encoded.String, `"required_columns":["id"]`) {
		t.Errorf("encodeSchemaSpec() = %q", encoded.String)
	}
}

func TestCheckArgs(t *testing.T) {
	check := &dqcore.Check{
		ID:         5,
		SuiteID:    2,
		Name:       "fare average",
		Metric:     dqcore.MetricAvg,
		SchemaName: "dbo",
		TableName:  "trips",
		ColumnName: "fare_amount",
		Fail:       &dqcore.Threshold{Operator: dqcore.OpGreater, Value: 50},
		Enabled:    true,
	}

	args := checkArgs(check, sql.NullString{})
	if len(args) != 26 {
		t.Fatalf("got %d args, expected 26", len(args))
	}

	if args[0] != int64(5) {
		t.Errorf("args[0] = %v, expected check id 5", args[0])
	}
	if args[2] != "fare average" || args[3] != "avg" {
		t.Errorf("args[2:4] = %v %v", args[2], args[3])
	}
	if suiteID := args[1].(sql.NullInt64); !suiteID.Valid || suiteID.Int64 != 2 {
		t.Errorf("args[1] = %+v, expected suite id 2", args[1])
	}
	if failOp := args[8].(sql.NullString); failOp.String != ">" {
		t.Errorf("args[8] = %+v, expected fail operator", args[8])
	}
	if warnOp := args[10].(sql.NullString); warnOp.Valid {
		t.Errorf("args[10] = %+v, expected unset warn operator", args[10])
	}
	if args[25] != true {
		t.Errorf("args[25] = %v, expected is_enabled", args[25])
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("").Valid || !nullString("x").Valid {
		t.Error("nullString validity is wrong")
	}

	// zero means unset for suite ids
	if nullInt64(0).Valid || !nullInt64(5).Valid {
		t.Error("nullInt64 validity is wrong")
	}

	if nullInt64Ptr(nil).Valid {
		t.Error("nullInt64Ptr(nil) must be invalid")
	}
	id := int64(9)
	if v := nullInt64Ptr(&id); !v.Valid || v.Int64 != 9 {
		t.Errorf("nullInt64Ptr(&9) = %+v", v)
	}

	if nullFloat64Ptr(nil).Valid {
		t.Error("nullFloat64Ptr(nil) must be invalid")
	}
	f := 9.5
	if v := nullFloat64Ptr(&f); !v.Valid || v.Float64 != 9.5 {
		t.Errorf("nullFloat64Ptr(&9.5) = %+v", v)
	}
}

func TestSplitCounts(t *testing.T) {
	empty := splitCounts(nil)
	if empty.total.Valid || empty.passed.Valid || empty.failed.Valid || empty.warned.Valid {
		t.Errorf("splitCounts(nil) = %+v, expected all invalid", empty)
	}

	counts := splitCounts(&dqcore.OutcomeCounts{Total: 5, Passed: 3, Failed: 1, Warned: 1})
	if counts.total.Int64 != 5 || counts.passed.Int64 != 3 || counts.failed.Int64 != 1 || counts.warned.Int64 != 1 {
		t.Errorf("splitCounts() = %+v", counts)
	}
	if !counts.total.Valid {
		t.Error("splitCounts() produced invalid values for non-nil counts")
	}
}
