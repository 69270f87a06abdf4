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
	_ "github.com/go-sql-driver/mysql"
)

func NewMysqlConnection(storeCfg dqcore.StoreConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		storeCfg.Username, storeCfg.Password, storeCfg.Host, storeCfg.Port, storeCfg.Database)
	db, err := sql.Open("mysql", connStr)
	if err != nil {
		return nil, err
	}

	poolSize := storeCfg.PoolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	return db, nil
}
