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

type StoreType string

const (
	StoreTypePostgresql StoreType = "postgresql"
	StoreTypeMysql      StoreType = "mysql"
	StoreTypeClickhouse StoreType = "clickhouse"
	StoreTypeSqlite     StoreType = "sqlite"
)

// StoreConfig describes the metadata store that keeps check definitions,
// execution logs and results. It is unrelated to the scanned data source,
// which is addressed through ConnectionDescriptor.
type StoreConfig struct {
	Type     StoreType `yaml:"type" mapstructure:"type" validate:"required,oneof=postgresql mysql clickhouse sqlite"`
	Host     string    `yaml:"host,omitempty" mapstructure:"host"`
	Port     int       `yaml:"port,omitempty" mapstructure:"port"`
	Username string    `yaml:"username,omitempty" mapstructure:"username"`
	Password string    `yaml:"password,omitempty" mapstructure:"password"`
	Database string    `yaml:"database,omitempty" mapstructure:"database"`
	// Path is the database file location, sqlite only.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
	// PoolSize bounds open and idle connections where the driver supports it.
	PoolSize int `yaml:"pool_size,omitempty" mapstructure:"pool_size"`
}
