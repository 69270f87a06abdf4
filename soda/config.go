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

// Package soda runs compiled specs through the Soda Core CLI and maps its
// connection model onto the opaque ConnectionDescriptor.
package soda

import (
	"fmt"

	"github.com/dqchecker/dqcore"
	"gopkg.in/yaml.v3"
)

// AuthMethod selects how the generated data source configuration
// authenticates against the warehouse.
type AuthMethod string

const (
	// AuthSqlserverSPN is the sqlserver driver with a service principal,
	// the most reliable method in practice.
	AuthSqlserverSPN AuthMethod = "sqlserver_spn"
	// AuthFabricSPN is the fabric driver with a service principal.
	AuthFabricSPN AuthMethod = "fabric_spn"
	// AuthFabricSpark is the fabric driver with a managed identity.
	AuthFabricSpark AuthMethod = "fabric_spark"
	// AuthSqlserverTrusted is the sqlserver driver with a trusted connection.
	AuthSqlserverTrusted AuthMethod = "sqlserver_trusted"
)

// AuthMethods lists the supported methods in recommendation order.
var AuthMethods = []struct {
	Method      AuthMethod
	Description string
}{
	{AuthSqlserverSPN, "sqlserver + service principal"},
	{AuthFabricSPN, "fabric + service principal"},
	{AuthFabricSpark, "fabric + managed identity"},
	{AuthSqlserverTrusted, "sqlserver + trusted connection"},
}

const defaultDriver = "ODBC Driver 18 for SQL Server"

type dataSourceConfig struct {
	Type                   string `yaml:"type"`
	Driver                 string `yaml:"driver,omitempty"`
	Host                   string `yaml:"host,omitempty"`
	Port                   string `yaml:"port,omitempty"`
	Database               string `yaml:"database,omitempty"`
	Schema                 string `yaml:"schema,omitempty"`
	Authentication         string `yaml:"authentication,omitempty"`
	Username               string `yaml:"username,omitempty"`
	Password               string `yaml:"password,omitempty"`
	ClientID               string `yaml:"client_id,omitempty"`
	ClientSecret           string `yaml:"client_secret,omitempty"`
	TrustedConnection      bool   `yaml:"trusted_connection,omitempty"`
	Encrypt                bool   `yaml:"encrypt,omitempty"`
	TrustServerCertificate *bool  `yaml:"trust_server_certificate,omitempty"`
}

// RenderConfig produces the engine's connection configuration YAML for conn.
// Recognized property keys: auth_method, host, port, database, schema,
// driver, client_id, client_secret. Unset auth_method falls back to the
// service principal sqlserver method.
func RenderConfig(conn dqcore.ConnectionDescriptor) (string, error) {
	if conn.DataSourceName == "" {
		return "", fmt.Errorf("data source name is required")
	}

	method := AuthMethod(conn.Properties["auth_method"])
	if method == "" {
		method = AuthSqlserverSPN
	}

	cfg, err := buildDataSource(method, conn.Properties)
	if err != nil {
		return "", err
	}

	doc := map[string]dataSourceConfig{
		"data_source " + conn.DataSourceName: cfg,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal soda configuration: %w", err)
	}

	return string(data), nil
}

func buildDataSource(method AuthMethod, props map[string]string) (dataSourceConfig, error) {
	driver := props["driver"]
	if driver == "" {
		driver = defaultDriver
	}
	port := props["port"]
	if port == "" {
		port = "1433"
	}

	base := dataSourceConfig{
		Driver:   driver,
		Host:     props["host"],
		Database: props["database"],
		Schema:   props["schema"],
		Encrypt:  true,
	}

	switch method {
	case AuthSqlserverSPN:
		base.Type = "sqlserver"
		base.Port = port
		base.Authentication = "ActiveDirectoryServicePrincipal"
		base.Username = props["client_id"]
		base.Password = props["client_secret"]
		noTrust := false
		base.TrustServerCertificate = &noTrust
	case AuthFabricSPN:
		base.Type = "fabric"
		base.Authentication = "activedirectoryserviceprincipal"
		base.ClientID = props["client_id"]
		base.ClientSecret = props["client_secret"]
	case AuthFabricSpark:
		base.Type = "fabric"
		base.Authentication = "fabricspark"
	case AuthSqlserverTrusted:
		base.Type = "sqlserver"
		base.Port = port
		base.TrustedConnection = true
	default:
		return dataSourceConfig{}, fmt.Errorf("unknown auth method: %s", method)
	}

	return base, nil
}
