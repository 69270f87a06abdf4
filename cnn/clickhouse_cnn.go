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
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dqchecker/dqcore"
)

func NewClickhouseConnection(storeCfg dqcore.StoreConfig) (driver.Conn, error) {
	addr := storeCfg.Host
	if storeCfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", storeCfg.Host, storeCfg.Port)
	}

	poolSize := storeCfg.PoolSize
	if poolSize <= 0 {
		poolSize = 32
	}

	cnn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: storeCfg.Database,
			Username: storeCfg.Username,
			Password: storeCfg.Password,
		},
		MaxOpenConns: poolSize,
		MaxIdleConns: poolSize,
		//TLS: &tls.Config{
		//	InsecureSkipVerify: true,
		//},
	})
	return cnn, err
}
