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

import "context"

// ConnectionDescriptor tells a ScanInvoker how to reach the target data
// store. This package passes it through without interpreting it; the
// properties' meaning belongs to the invoker implementation.
type ConnectionDescriptor struct {
	// DataSourceName is the logical name the scan engine runs against.
	DataSourceName string
	Properties     map[string]string
}

// ScanOutput is what a scan engine invocation produced. RawResults is the
// engine's semi-structured output, handed as-is to the reconciler. HasErrors
// reports engine-level errors, a distinct failure class from individual
// check failures.
type ScanOutput struct {
	RawResults interface{}
	RawLogs    string
	HasErrors  bool
}

// ScanInvoker runs a compiled spec against a data store through an external
// scan engine. An error return means the invocation itself failed (engine
// unreachable, auth failure, timeout); engine-reported check errors come
// back as HasErrors on the output instead.
type ScanInvoker interface {
	Invoke(ctx context.Context, spec *ExecutableSpec, conn ConnectionDescriptor) (*ScanOutput, error)
}
