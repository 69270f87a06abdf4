package dqcore

import (
	"reflect"
	"testing"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		expected    *Threshold
		expectError bool
	}{
		{
			name:       "greater than",
			expression: "> 100",
			expected:   &Threshold{Operator: OpGreater, Value: 100},
		},
		{
			name:       "less than or equal with float",
			expression: "<= 99.9",
			expected:   &Threshold{Operator: OpLessEqual, Value: 99.9},
		},
		{
			name:       "double equals normalized to single",
			expression: "== 5",
			expected:   &Threshold{Operator: OpEqual, Value: 5},
		},
		{
			name:       "single equals",
			expression: "= 0",
			expected:   &Threshold{Operator: OpEqual, Value: 0},
		},
		{
			name:       "not equal",
			expression: "!= 1",
			expected:   &Threshold{Operator: OpNotEqual, Value: 1},
		},
		{
			name:       "no space before value",
			expression: ">100",
			expected:   &Threshold{Operator: OpGreater, Value: 100},
		},
		{
			name:       "surrounding whitespace",
			expression: "  < 3  ",
			expected:   &Threshold{Operator: OpLess, Value: 3},
		},
		{
			name:       "negative value",
			expression: ">= -5.5",
			expected:   &Threshold{Operator: OpGreaterEqual, Value: -5.5},
		},
		{
			name:        "empty expression",
			expression:  "",
			expectError: true,
		},
		{
			name:        "value only",
			expression:  "100",
			expectError: true,
		},
		{
			name:        "unsupported operator",
			expression:  "<> 5",
			expectError: true,
		},
		{
			name:        "value is not a number",
			expression:  "> abc",
			expectError: true,
		},
		{
			name:        "infinite value",
			expression:  "> inf",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseThreshold(tt.expression)

			if tt.expectError {
				if err == nil {
					t.Errorf("ParseThreshold() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("ParseThreshold() unexpected error: %v", err)
				return
			}

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseThreshold() = %+v, expected %+v", result, tt.expected)
			}
		})
	}
}

func TestParseCheckExpression(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		expected    *CheckExpression
		expectError bool
	}{
		{
			name:       "metric with column and threshold",
			expression: "missing_count(email) < 5",
			expected: &CheckExpression{
				Metric:    MetricMissingCount,
				Column:    "email",
				Threshold: &Threshold{Operator: OpLess, Value: 5},
			},
		},
		{
			name:       "table metric with threshold",
			expression: "row_count > 100",
			expected: &CheckExpression{
				Metric:    MetricRowCount,
				Threshold: &Threshold{Operator: OpGreater, Value: 100},
			},
		},
		{
			name:       "metric only",
			expression: "row_count",
			expected: &CheckExpression{
				Metric: MetricRowCount,
			},
		},
		{
			name:       "metric with column only",
			expression: "duplicate_count(order_id)",
			expected: &CheckExpression{
				Metric: MetricDuplicateCount,
				Column: "order_id",
			},
		},
		{
			name:       "double equals normalized",
			expression: "avg(fare_amount) == 10",
			expected: &CheckExpression{
				Metric:    MetricAvg,
				Column:    "fare_amount",
				Threshold: &Threshold{Operator: OpEqual, Value: 10},
			},
		},
		{
			name:       "column with surrounding spaces",
			expression: "max( price ) > 0",
			expected: &CheckExpression{
				Metric:    MetricMax,
				Column:    "price",
				Threshold: &Threshold{Operator: OpGreater, Value: 0},
			},
		},
		{
			name:       "large threshold value",
			expression: "sum(amount) <= 10000000",
			expected: &CheckExpression{
				Metric:    MetricSum,
				Column:    "amount",
				Threshold: &Threshold{Operator: OpLessEqual, Value: 10000000},
			},
		},
		{
			name:        "empty expression",
			expression:  "",
			expectError: true,
		},
		{
			name:        "invalid format",
			expression:  "invalid expression format",
			expectError: true,
		},
		{
			name:        "unsupported operator",
			expression:  "avg(x) <> 5",
			expectError: true,
		},
		{
			name:        "threshold is not a number",
			expression:  "avg(x) > high",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseCheckExpression(tt.expression)

			if tt.expectError {
				if err == nil {
					t.Errorf("ParseCheckExpression() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("ParseCheckExpression() unexpected error: %v", err)
				return
			}

			if result.Metric != tt.expected.Metric {
				t.Errorf("Metric = %s, expected %s", result.Metric, tt.expected.Metric)
			}
			if result.Column != tt.expected.Column {
				t.Errorf("Column = %q, expected %q", result.Column, tt.expected.Column)
			}
			if !reflect.DeepEqual(result.Threshold, tt.expected.Threshold) {
				t.Errorf("Threshold = %+v, expected %+v", result.Threshold, tt.expected.Threshold)
			}
		})
	}
}

func TestSafeMetricName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "spaces become underscores",
			input:    "Orders Row Count",
			expected: "orders_row_count",
		},
		{
			name:     "punctuation runs collapse",
			input:    "daily % check!!",
			expected: "daily_check",
		},
		{
			name:     "leading and trailing separators trimmed",
			input:    "--weird--name--",
			expected: "weird_name",
		},
		{
			name:     "already safe",
			input:    "already_safe_name",
			expected: "already_safe_name",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SafeMetricName(tt.input)
			if result != tt.expected {
				t.Errorf("SafeMetricName() = %q, expected %q", result, tt.expected)
			}
		})
	}
}
