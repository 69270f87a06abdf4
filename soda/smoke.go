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

package soda

import (
	"context"
	"fmt"

	"github.com/dqchecker/dqcore"
)

// SmokeResult is the outcome of probing one auth method.
type SmokeResult struct {
	Method      AuthMethod `json:"method"`
	Description string     `json:"description"`
	OK          bool       `json:"ok"`
	Detail      string     `json:"detail,omitempty"`
}

// SmokeTest probes every auth method with a minimal row-count scan against
// INFORMATION_SCHEMA.TABLES and reports which ones can reach the warehouse.
// The methods are tried in recommendation order; all of them are attempted
// even after one succeeds.
func SmokeTest(ctx context.Context, invoker dqcore.ScanInvoker, conn dqcore.ConnectionDescriptor) ([]SmokeResult, error) {
	spec, err := probeSpec()
	if err != nil {
		return nil, err
	}

	results := make([]SmokeResult, 0, len(AuthMethods))
	for _, candidate := range AuthMethods {
		probe := SmokeResult{
			Method:      candidate.Method,
			Description: candidate.Description,
		}

		output, err := invoker.Invoke(ctx, spec, withAuthMethod(conn, candidate.Method))
		switch {
		case err != nil:
			probe.Detail = err.Error()
		case output.HasErrors:
			probe.Detail = "scan engine reported errors"
		default:
			probe.OK = true
			if reconciled, _, rerr := dqcore.ReconcileScanResults(output.RawResults); rerr == nil && len(reconciled) > 0 {
				probe.Detail = fmt.Sprintf("probe check outcome: %s", reconciled[0].Outcome)
			}
		}

		results = append(results, probe)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	return results, nil
}

// probeSpec compiles the one-check connectivity spec: the scan fails when
// INFORMATION_SCHEMA.TABLES comes back empty, which on any live warehouse
// it never does.
func probeSpec() (*dqcore.ExecutableSpec, error) {
	check := &dqcore.Check{
		ID:         1,
		Name:       "connectivity probe",
		Metric:     dqcore.MetricRowCount,
		SchemaName: "INFORMATION_SCHEMA",
		TableName:  "TABLES",
		Fail:       &dqcore.Threshold{Operator: dqcore.OpLess, Value: 1},
		Enabled:    true,
	}

	return dqcore.CompileChecks([]*dqcore.Check{check}, dqcore.CompilerOptions{})
}

func withAuthMethod(conn dqcore.ConnectionDescriptor, method AuthMethod) dqcore.ConnectionDescriptor {
	props := make(map[string]string, len(conn.Properties)+1)
	for k, v := range conn.Properties {
		props[k] = v
	}
	props["auth_method"] = string(method)

	return dqcore.ConnectionDescriptor{
		DataSourceName: conn.DataSourceName,
		Properties:     props,
	}
}
