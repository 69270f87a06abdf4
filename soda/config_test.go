package soda

import (
	"strings"
	"testing"

	"github.com/dqchecker/dqcore"
)

func renderFor(t *testing.T, props map[string]string) string {
	t.Helper()

	rendered, err := RenderConfig(dqcore.ConnectionDescriptor{
		DataSourceName: "warehouse",
		Properties:     props,
	})
	if err != nil {
		t.Fatalf("RenderConfig() unexpected error: %v", err)
	}
	return rendered
}

func TestRenderConfigAuthMethods(t *testing.T) {
	baseProps := func(method AuthMethod) map[string]string {
		return map[string]string{
			"auth_method":   string(method),
			"host":          "warehouse.example.com",
			"database":      "analytics",
			"schema":        "dbo",
			"client_id":     "client-id",
			"client_secret": "s3cret",
		}
	}

	tests := []struct {
		name     string
		method   AuthMethod
		contains []string
		absent   []string
	}{
		{
			name:   "sqlserver service principal",
			method: AuthSqlserverSPN,
			contains: []string{
				"data_source warehouse:",
				"type: sqlserver",
				`port: "1433"`,
				"authentication: ActiveDirectoryServicePrincipal",
				"username: client-id",
				"password: s3cret",
				"trust_server_certificate: false",
				"encrypt: true",
				"driver: ODBC Driver 18 for SQL Server",
			},
			absent: []string{"client_id:", "trusted_connection:"},
		},
		{
			name:   "fabric service principal",
			method: AuthFabricSPN,
			contains: []string{
				"type: fabric",
				"authentication: activedirectoryserviceprincipal",
				"client_id: client-id",
				"client_secret: s3cret",
			},
			absent: []string{"port:", "username:", "password:", "trust_server_certificate:"},
		},
		{
			name:   "fabric managed identity",
			method: AuthFabricSpark,
			contains: []string{
				"type: fabric",
				"authentication: fabricspark",
			},
			absent: []string{"client_id:", "client_secret:", "username:", "port:"},
		},
		{
			name:   "sqlserver trusted connection",
			method: AuthSqlserverTrusted,
			contains: []string{
				"type: sqlserver",
				`port: "1433"`,
				"trusted_connection: true",
			},
			absent: []string{"authentication:", "username:", "password:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := renderFor(t, baseProps(tt.method))

			for _, fragment := range tt.contains {
				if !strings.Contains(rendered, fragment) {
					t.Errorf("rendered config is missing %q:\n%s", fragment, rendered)
				}
			}
			for _, fragment := range tt.absent {
				if strings.Contains(rendered, fragment) {
					t.Errorf("rendered config must not contain %q:\n%s", fragment, rendered)
				}
			}
		})
	}
}

func TestRenderConfigDefaults(t *testing.T) {
	// no auth_method falls back to the sqlserver service principal
	rendered := renderFor(t, map[string]string{"host": "h"})
	if !strings.Contains(rendered, "authentication: ActiveDirectoryServicePrincipal") {
		t.Errorf("default method not applied:\n%s", rendered)
	}

	rendered = renderFor(t, map[string]string{"port": "10001"})
	if !strings.Contains(rendered, `port: "10001"`) {
		t.Errorf("port override not applied:\n%s", rendered)
	}

	rendered = renderFor(t, map[string]string{"driver": "ODBC Driver 17 for SQL Server"})
	if !strings.Contains(rendered, "driver: ODBC Driver 17 for SQL Server") {
		t.Errorf("driver override not applied:\n%s", rendered)
	}
}

func TestRenderConfigErrors(t *testing.T) {
	_, err := RenderConfig(dqcore.ConnectionDescriptor{})
	if err == nil || !strings.Contains(err.Error(), "data source name is required") {
		t.Errorf("RenderConfig() error = %v, expected missing name error", err)
	}

	_, err = RenderConfig(dqcore.ConnectionDescriptor{
		DataSourceName: "warehouse",
		Properties:     map[string]string{"auth_method": "bogus"},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown auth method: bogus") {
		t.Errorf("RenderConfig() error = %v, expected unknown method error", err)
	}
}

func TestAuthMethodsOrder(t *testing.T) {
	expected := []AuthMethod{AuthSqlserverSPN, AuthFabricSPN, AuthFabricSpark, AuthSqlserverTrusted}

	if len(AuthMethods) != len(expected) {
		t.Fatalf("got %d auth methods, expected %d", len(AuthMethods), len(expected))
	}
	for i, method := range expected {
		if AuthMethods[i].Method != method {
			t.Errorf("AuthMethods[%d] = %s, expected %s", i, AuthMethods[i].Method, method)
		}
	}
}
