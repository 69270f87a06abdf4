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

package cnn

import (
	"database/sql"
	"fmt"

	"github.com/dqchecker/dqcore"
	_ "github.com/lib/pq"
)

func NewPostgresqlConnection(storeCfg dqcore.StoreConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		storeCfg.Host, storeCfg.Port, storeCfg.Username, storeCfg.Password, storeCfg.Database)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if storeCfg.PoolSize > 0 {
		db.SetMaxOpenConns(storeCfg.PoolSize)
		db.SetMaxIdleConns(storeCfg.PoolSize)
	}

	return db, nil
}
