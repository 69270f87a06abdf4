package dqcore

import (
	"encoding/json"
	"testing"
)

func TestReconcileScanResults(t *testing.T) {
	tests := []struct {
		name            string
		rawResults      interface{}
		expectedResults int
		expectedSkipped int
		expectError     bool
	}{
		{
			name: "plain list of entries",
			rawResults: []interface{}{
				map[string]interface{}{"name": "a [check_id:1]", "outcome": "pass"},
				map[string]interface{}{"name": "b [check_id:2]", "outcome": "fail"},
			},
			expectedResults: 2,
		},
		{
			name: "object with checks field",
			rawResults: map[string]interface{}{
				"hasErrors": false,
				"checks": []interface{}{
					map[string]interface{}{"name": "a [check_id:1]", "outcome": "pass"},
				},
			},
			expectedResults: 1,
		},
		{
			name:            "object without checks field",
			rawResults:      map[string]interface{}{"hasErrors": true},
			expectedResults: 0,
		},
		{
			name: "malformed entries skipped",
			rawResults: []interface{}{
				"not an object",
				map[string]interface{}{"outcome": "pass"},
				map[string]interface{}{"name": "ok [check_id:3]", "outcome": "pass"},
			},
			expectedResults: 1,
			expectedSkipped: 2,
		},
		{
			name: "checks field is not a list",
			rawResults: map[string]interface{}{
				"checks": "oops",
			},
			expectError: true,
		},
		{
			name:        "results not iterable",
			rawResults:  "garbage",
			expectError: true,
		},
		{
			name:            "empty list",
			rawResults:      []interface{}{},
			expectedResults: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, skipped, err := ReconcileScanResults(tt.rawResults)

			if tt.expectError {
				if err == nil {
					t.Errorf("ReconcileScanResults() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("ReconcileScanResults() unexpected error: %v", err)
				return
			}

			if len(results) != tt.expectedResults {
				t.Errorf("ReconcileScanResults() = %d results, expected %d", len(results), tt.expectedResults)
			}
			if skipped != tt.expectedSkipped {
				t.Errorf("ReconcileScanResults() skipped = %d, expected %d", skipped, tt.expectedSkipped)
			}
		})
	}
}

func TestReconcileScanResultsFields(t *testing.T) {
	raw := map[string]interface{}{
		"checks": []interface{}{
			map[string]interface{}{
				"name":    "orders volume [check_id:42]",
				"outcome": "fail",
				"diagnostics": map[string]interface{}{
					"value": 3.0,
					"fail":  map[string]interface{}{"lessThan": 10.0},
					"warn":  map[string]interface{}{"lessThan": 100.0},
				},
			},
		},
	}

	results, skipped, err := ReconcileScanResults(raw)
	if err != nil {
		t.Fatalf("ReconcileScanResults() unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("ReconcileScanResults() skipped = %d, expected 0", skipped)
	}
	if len(results) != 1 {
		t.Fatalf("ReconcileScanResults() = %d results, expected 1", len(results))
	}

	result := results[0]
	if result.CheckID == nil || *result.CheckID != 42 {
		t.Errorf("CheckID = %v, expected 42", result.CheckID)
	}
	if result.CheckName != "orders volume [check_id:42]" {
		t.Errorf("CheckName = %q", result.CheckName)
	}
	if result.Outcome != OutcomeFail {
		t.Errorf("Outcome = %s, expected fail", result.Outcome)
	}
	if result.MeasuredValue == nil || *result.MeasuredValue != 3.0 {
		t.Errorf("MeasuredValue = %v, expected 3.0", result.MeasuredValue)
	}
	if result.FailThreshold == nil || *result.FailThreshold != 10.0 {
		t.Errorf("FailThreshold = %v, expected 10.0", result.FailThreshold)
	}
	if result.WarnThreshold == nil || *result.WarnThreshold != 100.0 {
		t.Errorf("WarnThreshold = %v, expected 100.0", result.WarnThreshold)
	}
}

func TestReconcileScanResultsDefaults(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{
			"name":    "no marker here",
			"outcome": "error",
			"value":   "17.5",
		},
	}

	results, _, err := ReconcileScanResults(raw)
	if err != nil {
		t.Fatalf("ReconcileScanResults() unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ReconcileScanResults() = %d results, expected 1", len(results))
	}

	result := results[0]
	if result.CheckID != nil {
		t.Errorf("CheckID = %v, expected nil without marker", *result.CheckID)
	}
	if result.Outcome != OutcomeUnknown {
		t.Errorf("Outcome = %s, expected unknown for unrecognized state", result.Outcome)
	}
	// top-level value is the fallback when diagnostics are absent
	if result.MeasuredValue == nil || *result.MeasuredValue != 17.5 {
		t.Errorf("MeasuredValue = %v, expected 17.5", result.MeasuredValue)
	}
	if result.FailThreshold != nil || result.WarnThreshold != nil {
		t.Error("thresholds must stay nil without diagnostics")
	}
}

func TestReconcileScanResultsFromJSON(t *testing.T) {
	payload := `{
		"definitionName": "dq_checker_scan_abc123",
		"hasErrors": false,
		"checks": [
			{"name": "a [check_id:1]", "outcome": "PASS"},
			{"name": "b [check_id:2]", "outcome": " warn "},
			{"name": "c [check_id:3]", "outcome": 5}
		]
	}`

	var raw interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}

	results, skipped, err := ReconcileScanResults(raw)
	if err != nil {
		t.Fatalf("ReconcileScanResults() unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, expected 0", skipped)
	}

	outcomes := []Outcome{OutcomePass, OutcomeWarn, OutcomeUnknown}
	for i, expected := range outcomes {
		if results[i].Outcome != expected {
			t.Errorf("results[%d].Outcome = %s, expected %s", i, results[i].Outcome, expected)
		}
	}
}

func TestThresholdFieldShape(t *testing.T) {
	tests := []struct {
		name        string
		diagnostics map[string]interface{}
		expected    *float64
	}{
		{
			name: "single entry map",
			diagnostics: map[string]interface{}{
				"fail": map[string]interface{}{"greaterThan": 100.0},
			},
			expected: floatPtr(100.0),
		},
		{
			name: "two entry map is ambiguous",
			diagnostics: map[string]interface{}{
				"fail": map[string]interface{}{"greaterThan": 100.0, "lessThan": 1.0},
			},
		},
		{
			name: "threshold is not a map",
			diagnostics: map[string]interface{}{
				"fail": 100.0,
			},
		},
		{
			name:        "nil diagnostics",
			diagnostics: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := thresholdField(tt.diagnostics, "fail")
			if (got == nil) != (tt.expected == nil) {
				t.Errorf("thresholdField() = %v, expected %v", got, tt.expected)
				return
			}
			if got != nil && *got != *tt.expected {
				t.Errorf("thresholdField() = %v, expected %v", *got, *tt.expected)
			}
		})
	}
}

func TestCountOutcomes(t *testing.T) {
	results := []CheckResult{
		{Outcome: OutcomePass},
		{Outcome: OutcomePass},
		{Outcome: OutcomeFail},
		{Outcome: OutcomeWarn},
		{Outcome: OutcomeUnknown},
		{Outcome: Outcome("weird")},
	}

	counts := CountOutcomes(results)
	expected := OutcomeCounts{Total: 6, Passed: 2, Failed: 1, Warned: 1, Unknown: 2}
	if counts != expected {
		t.Errorf("CountOutcomes() = %+v, expected %+v", counts, expected)
	}

	empty := CountOutcomes(nil)
	if empty != (OutcomeCounts{}) {
		t.Errorf("CountOutcomes(nil) = %+v, expected zero counts", empty)
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
