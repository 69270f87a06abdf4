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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Outcome is a check's folded result state.
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeFail    Outcome = "fail"
	OutcomeWarn    Outcome = "warn"
	OutcomeUnknown Outcome = "unknown"
)

// CheckResult is one check's measured outcome within one execution attempt.
// CheckID is nil when the engine output carried no recoverable identity
// marker; the result is still recorded.
type CheckResult struct {
	CheckID       *int64   `json:"check_id"`
	CheckName     string   `json:"check_name"`
	Outcome       Outcome  `json:"outcome"`
	MeasuredValue *float64 `json:"value,omitempty"`
	FailThreshold *float64 `json:"fail_threshold,omitempty"`
	WarnThreshold *float64 `json:"warn_threshold,omitempty"`
}

// OutcomeCounts aggregates results for an attempt. Unknown covers outcomes
// the engine reported as error or in a shape this library does not fold.
type OutcomeCounts struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Warned  int `json:"warned"`
	Unknown int `json:"unknown"`
}

// CountOutcomes tallies results by outcome.
func CountOutcomes(results []CheckResult) OutcomeCounts {
	counts := OutcomeCounts{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case OutcomePass:
			counts.Passed++
		case OutcomeFail:
			counts.Failed++
		case OutcomeWarn:
			counts.Warned++
		default:
			counts.Unknown++
		}
	}
	return counts
}

// ReconcileScanResults turns the scan engine's semi-structured output into
// typed results, in engine order. The engine is an untrusted boundary: every
// optional field defaults rather than fails, and a malformed entry is skipped
// and counted, never fatal. The only error case is rawResults not being
// list-shaped at all (neither a result list nor an object carrying one under
// "checks"), which indicates a broken invoker contract.
func ReconcileScanResults(rawResults interface{}) ([]CheckResult, int, error) {
	entries, err := resultEntries(rawResults)
	if err != nil {
		return nil, 0, err
	}

	results := make([]CheckResult, 0, len(entries))
	skipped := 0

	for _, rawEntry := range entries {
		entry, ok := rawEntry.(map[string]interface{})
		if !ok {
			skipped++
			continue
		}

		name, ok := entry["name"].(string)
		if !ok {
			skipped++
			continue
		}

		result := CheckResult{
			CheckName: name,
			Outcome:   foldOutcome(entry["outcome"]),
		}
		if id, found := ExtractCheckID(name); found {
			result.CheckID = &id
		}

		diagnostics, _ := entry["diagnostics"].(map[string]interface{})
		if value := numericField(diagnostics, entry, "value"); value != nil {
			result.MeasuredValue = value
		}
		result.FailThreshold = thresholdField(diagnostics, "fail")
		result.WarnThreshold = thresholdField(diagnostics, "warn")

		results = append(results, result)
	}

	return results, skipped, nil
}

func resultEntries(rawResults interface{}) ([]interface{}, error) {
	switch raw := rawResults.(type) {
	case []interface{}:
		return raw, nil
	case map[string]interface{}:
		checks, ok := raw["checks"]
		if !ok {
			return nil, nil
		}
		entries, ok := checks.([]interface{})
		if !ok {
			return nil, fmt.Errorf("scan results field \"checks\" is not a list")
		}
		return entries, nil
	}
	return nil, fmt.Errorf("scan results are not iterable: %T", rawResults)
}

func foldOutcome(raw interface{}) Outcome {
	s, ok := raw.(string)
	if !ok {
		return OutcomeUnknown
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass":
		return OutcomePass
	case "fail":
		return OutcomeFail
	case "warn":
		return OutcomeWarn
	}
	return OutcomeUnknown
}

// numericField reads key from the diagnostics sub-object first, falling back
// to the entry's top-level field.
func numericField(diagnostics, entry map[string]interface{}, key string) *float64 {
	if diagnostics != nil {
		if value := toNumber(diagnostics[key]); value != nil {
			return value
		}
	}
	if entry != nil {
		return toNumber(entry[key])
	}
	return nil
}

// thresholdField extracts a threshold from a diagnostics key holding a
// one-entry {operator: threshold} map. The operator is not re-validated
// against the originating check here.
func thresholdField(diagnostics map[string]interface{}, key string) *float64 {
	if diagnostics == nil {
		return nil
	}
	m, ok := diagnostics[key].(map[string]interface{})
	if !ok || len(m) != 1 {
		return nil
	}
	for _, raw := range m {
		return toNumber(raw)
	}
	return nil
}

func toNumber(raw interface{}) *float64 {
	switch v := raw.(type) {
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	case int32:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case uint64:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f
		}
	}
	return nil
}
