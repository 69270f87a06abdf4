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
	"regexp"
	"strconv"
	"strings"
)

// CheckExpression is the parsed form of a compact check expression such as
// "avg(fare_amount) <= 10" or "row_count". It is a convenience input format
// for file-based check definitions; the expression's threshold becomes the
// check's fail threshold.
type CheckExpression struct {
	Metric    MetricKind
	Column    string
	Threshold *Threshold
}

var (
	thresholdRegex    = regexp.MustCompile(`^([<>=!]+)\s*(.+)$`)
	expressionRegex   = regexp.MustCompile(`^(\w+)(?:\((.*?)\))?\s*([<>=!]+)\s*(.+)$`)
	metricOnlyRegex   = regexp.MustCompile(`^(\w+)(?:\((.*?)\))?$`)
	safeMetricPattern = regexp.MustCompile(`[^a-zA-Z0-9_]+`)
	underscoreRuns    = regexp.MustCompile(`_+`)
)

// ParseThreshold parses a compact threshold expression of the form
// "<operator> <number>", e.g. "> 100" or "<= 99.9". The "==" spelling is
// normalized to "=".
func ParseThreshold(expression string) (*Threshold, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty threshold expression")
	}

	matches := thresholdRegex.FindStringSubmatch(expression)
	if matches == nil {
		return nil, fmt.Errorf("invalid threshold expression: %s", expression)
	}

	op := NormalizeOp(matches[1])
	if !ValidOp(op) {
		return nil, fmt.Errorf("unsupported comparison operator: %s", matches[1])
	}

	value, err := parseNumeric(matches[2])
	if err != nil {
		return nil, fmt.Errorf("failed to parse threshold value: %w", err)
	}

	return &Threshold{Operator: op, Value: value}, nil
}

// ParseCheckExpression parses a compact check expression. Three forms are
// accepted:
//
//	metric(column) <op> <number>
//	metric <op> <number>
//	metric(column)
//
// The third form carries no threshold; the caller must supply one separately.
func ParseCheckExpression(expression string) (*CheckExpression, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty check expression")
	}

	if matches := expressionRegex.FindStringSubmatch(expression); matches != nil {
		op := NormalizeOp(matches[3])
		if !ValidOp(op) {
			return nil, fmt.Errorf("unsupported comparison operator: %s", matches[3])
		}

		value, err := parseNumeric(matches[4])
		if err != nil {
			return nil, fmt.Errorf("failed to parse threshold value: %w", err)
		}

		return &CheckExpression{
			Metric:    MetricKind(matches[1]),
			Column:    strings.TrimSpace(matches[2]),
			Threshold: &Threshold{Operator: op, Value: value},
		}, nil
	}

	if matches := metricOnlyRegex.FindStringSubmatch(expression); matches != nil {
		return &CheckExpression{
			Metric: MetricKind(matches[1]),
			Column: strings.TrimSpace(matches[2]),
		}, nil
	}

	return nil, fmt.Errorf("invalid check expression format: %s", expression)
}

func parseNumeric(valueStr string) (float64, error) {
	valueStr = strings.TrimSpace(valueStr)
	if valueStr == "" {
		return 0, fmt.Errorf("empty value")
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", valueStr)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("not a finite number: %s", valueStr)
	}

	return value, nil
}

// SafeMetricName collapses a display name into an identifier usable as a
// metric name in the generated spec: lowercase, non-alphanumeric runs
// replaced by single underscores.
func SafeMetricName(name string) string {
	safe := safeMetricPattern.ReplaceAllString(strings.ToLower(name), "_")
	safe = underscoreRuns.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}
