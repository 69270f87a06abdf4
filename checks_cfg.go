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
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChecksFile is a file-backed catalog of check suites, an alternative to
// keeping definitions in a metadata store.
type ChecksFile struct {
	Version       string       `yaml:"version"`
	DefaultSchema string       `yaml:"default_schema,omitempty"`
	Suites        []CheckSuite `yaml:"suites"`
}

type CheckSuite struct {
	ID     int64    `yaml:"id"`
	Name   string   `yaml:"name,omitempty"`
	Checks []*Check `yaml:"checks"`
}

// UnmarshalYAML accepts a threshold either as a mapping with operator and
// value keys or as a compact expression string like "< 5".
func (t *Threshold) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseThreshold(node.Value)
		if err != nil {
			return err
		}
		*t = *parsed
		return nil
	}

	type plain Threshold
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = Threshold(p)
	return nil
}

// UnmarshalYAML fills a check from its file form. An omitted enabled flag
// defaults to true, and the expr shorthand ("missing_count(email) < 5")
// expands into metric, column and fail threshold unless those are given
// explicitly.
func (c *Check) UnmarshalYAML(node *yaml.Node) error {
	type fileCheck struct {
		ID      int64      `yaml:"id"`
		Name    string     `yaml:"name"`
		Metric  MetricKind `yaml:"metric"`
		Expr    string     `yaml:"expr"`
		Schema  string     `yaml:"schema"`
		Table   string     `yaml:"table"`
		Column  string     `yaml:"column"`
		Filter  string     `yaml:"filter"`
		Fail    *Threshold `yaml:"fail"`
		Warn    *Threshold `yaml:"warn"`
		Enabled *bool      `yaml:"enabled"`

		Freshness        *FreshnessSpec        `yaml:"freshness"`
		SchemaCheck      *SchemaSpec           `yaml:"schema_check"`
		Reference        *ReferenceSpec        `yaml:"reference"`
		ScalarComparison *ScalarComparisonSpec `yaml:"scalar_comparison"`
		CustomSQL        *CustomSQLSpec        `yaml:"custom_sql"`
	}

	var f fileCheck
	if err := node.Decode(&f); err != nil {
		return err
	}

	c.ID = f.ID
	c.Name = f.Name
	c.Metric = f.Metric
	c.SchemaName = f.Schema
	c.TableName = f.Table
	c.ColumnName = f.Column
	c.Filter = f.Filter
	c.Fail = f.Fail
	c.Warn = f.Warn
	c.Enabled = f.Enabled == nil || *f.Enabled
	c.Freshness = f.Freshness
	c.Schema = f.SchemaCheck
	c.Reference = f.Reference
	c.ScalarComparison = f.ScalarComparison
	c.CustomSQL = f.CustomSQL

	if f.Expr != "" {
		parsed, err := ParseCheckExpression(f.Expr)
		if err != nil {
			return fmt.Errorf("failed to parse check expression %q: %w", f.Expr, err)
		}
		if c.Metric == "" {
			c.Metric = parsed.Metric
		}
		if c.ColumnName == "" {
			c.ColumnName = parsed.Column
		}
		if c.Fail == nil {
			c.Fail = parsed.Threshold
		}
	}

	return nil
}

// LoadChecksFile reads and decodes a checks file. Checks without an explicit
// id are assigned one past the highest id in the file, so markers stay
// unambiguous within a single load.
func LoadChecksFile(fileName string) (*ChecksFile, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg ChecksFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode checks file: %w", err)
	}

	cfg.assignIDs()
	return &cfg, nil
}

func (f *ChecksFile) assignIDs() {
	var next int64
	for _, suite := range f.Suites {
		for _, check := range suite.Checks {
			if check.ID > next {
				next = check.ID
			}
		}
	}

	for si := range f.Suites {
		suite := &f.Suites[si]
		for _, check := range suite.Checks {
			check.SuiteID = suite.ID
			if check.ID == 0 {
				next++
				check.ID = next
			}
		}
	}
}

// FileCheckSource serves checks from a loaded checks file, preserving file
// order and skipping disabled entries.
type FileCheckSource struct {
	cfg *ChecksFile
}

func NewFileCheckSource(fileName string) (*FileCheckSource, error) {
	cfg, err := LoadChecksFile(fileName)
	if err != nil {
		return nil, err
	}
	return &FileCheckSource{cfg: cfg}, nil
}

// DefaultSchema returns the file's default_schema value, for compiler
// schema-prefix elision.
func (s *FileCheckSource) DefaultSchema() string {
	return s.cfg.DefaultSchema
}

func (s *FileCheckSource) LoadChecks(ctx context.Context, scope ExecutionScope) ([]*Check, error) {
	var out []*Check
	for _, suite := range s.cfg.Suites {
		if scope.SuiteID != 0 && suite.ID != scope.SuiteID {
			continue
		}
		for _, check := range suite.Checks {
			if !check.Enabled {
				continue
			}
			if !scopeMatchesTable(scope, check) {
				continue
			}
			out = append(out, check)
		}
	}
	return out, nil
}

func scopeMatchesTable(scope ExecutionScope, check *Check) bool {
	if scope.Table == "" {
		return true
	}
	if check.TableName != scope.Table {
		return false
	}
	return scope.Schema == "" || check.SchemaName == scope.Schema
}
