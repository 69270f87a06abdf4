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

package dqs

import (
	"fmt"
	"log/slog"

	"github.com/dqchecker/dqcore"
	"github.com/dqchecker/dqcore/cnn"
	"github.com/dqchecker/dqcore/stores"
)

const (
	Version = "v0.1.0"
)

func GetDqCoreLibVersion() string {
	return Version
}

func NewMetadataStore(storeCfg *dqcore.StoreConfig, logger *slog.Logger) (stores.MetadataStore, error) {
	switch storeCfg.Type {
	case dqcore.StoreTypePostgresql:
		connection, err := cnn.NewPostgresqlConnection(*storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql connection: %w", err)
		}
		return stores.NewPostgresqlMetadataStore(connection, logger), nil
	case dqcore.StoreTypeMysql:
		connection, err := cnn.NewMysqlConnection(*storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql connection: %w", err)
		}
		return stores.NewMysqlMetadataStore(connection, logger), nil
	case dqcore.StoreTypeClickhouse:
		connection, err := cnn.NewClickhouseConnection(*storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
		}
		return stores.NewClickhouseMetadataStore(connection, logger), nil
	case dqcore.StoreTypeSqlite:
		connection, err := cnn.NewSqliteConnection(*storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite connection: %w", err)
		}
		return stores.NewSqliteMetadataStore(connection, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
