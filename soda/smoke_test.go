package soda

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dqchecker/dqcore"
)

type probeInvoker struct {
	methods  []string
	outputs  map[AuthMethod]*dqcore.ScanOutput
	errs     map[AuthMethod]error
	gotSpec  *dqcore.ExecutableSpec
	onInvoke func()
}

func (p *probeInvoker) Invoke(ctx context.Context, spec *dqcore.ExecutableSpec, conn dqcore.ConnectionDescriptor) (*dqcore.ScanOutput, error) {
	method := AuthMethod(conn.Properties["auth_method"])
	p.methods = append(p.methods, string(method))
	p.gotSpec = spec

	if p.onInvoke != nil {
		p.onInvoke()
	}
	if err := p.errs[method]; err != nil {
		return nil, err
	}
	if output := p.outputs[method]; output != nil {
		return output, nil
	}
	return &dqcore.ScanOutput{RawResults: []interface{}{}}, nil
}

func probePassOutput() *dqcore.ScanOutput {
	return &dqcore.ScanOutput{
		RawResults: map[string]interface{}{
			"checks": []interface{}{
				map[string]interface{}{
					"name":    dqcore.MarkCheckName("connectivity probe", 1),
					"outcome": "pass",
				},
			},
		},
	}
}

func TestSmokeTest(t *testing.T) {
	invoker := &probeInvoker{
		outputs: map[AuthMethod]*dqcore.ScanOutput{
			AuthSqlserverSPN: probePassOutput(),
			AuthFabricSPN:    {RawResults: map[string]interface{}{}, HasErrors: true},
		},
		errs: map[AuthMethod]error{
			AuthFabricSpark: errors.New("login failed"),
		},
	}

	conn := dqcore.ConnectionDescriptor{
		DataSourceName: "warehouse",
		Properties:     map[string]string{"host": "localhost"},
	}

	results, err := SmokeTest(context.Background(), invoker, conn)
	if err != nil {
		t.Fatalf("SmokeTest() unexpected error: %v", err)
	}
	if len(results) != len(AuthMethods) {
		t.Fatalf("got %d results, expected %d", len(results), len(AuthMethods))
	}

	// probes run in recommendation order
	for i, candidate := range AuthMethods {
		if invoker.methods[i] != string(candidate.Method) {
			t.Errorf("probe %d used %s, expected %s", i, invoker.methods[i], candidate.Method)
		}
		if results[i].Method != candidate.Method || results[i].Description != candidate.Description {
			t.Errorf("results[%d] = %+v, expected %s", i, results[i], candidate.Method)
		}
	}

	if !results[0].OK || results[0].Detail != "probe check outcome: pass" {
		t.Errorf("sqlserver_spn probe = %+v, expected OK with outcome detail", results[0])
	}
	if results[1].OK || results[1].Detail != "scan engine reported errors" {
		t.Errorf("fabric_spn probe = %+v, expected engine error detail", results[1])
	}
	if results[2].OK || results[2].Detail != "login failed" {
		t.Errorf("fabric_spark probe = %+v, expected invocation error detail", results[2])
	}
	if !results[3].OK || results[3].Detail != "" {
		t.Errorf("sqlserver_trusted probe = %+v, expected OK without detail", results[3])
	}

	// the caller's descriptor is cloned per probe, never mutated
	if _, found := conn.Properties["auth_method"]; found {
		t.Error("SmokeTest() mutated the caller's connection properties")
	}

	rendered := invoker.gotSpec.Render()
	if !strings.Contains(rendered, "checks for INFORMATION_SCHEMA.TABLES:") {
		t.Errorf("probe spec targets the wrong table:\n%s", rendered)
	}
	if !strings.Contains(rendered, "[check_id:1]") {
		t.Errorf("probe spec has no identity marker:\n%s", rendered)
	}
}

func TestSmokeTestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invoker := &probeInvoker{onInvoke: cancel}

	results, err := SmokeTest(ctx, invoker, dqcore.ConnectionDescriptor{DataSourceName: "warehouse"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SmokeTest() error = %v, expected context.Canceled", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after cancellation, expected the finished probe only", len(results))
	}
}
