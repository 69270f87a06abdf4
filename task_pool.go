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

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// TaskPool runs independent tasks with bounded concurrency. Failed tasks are
// collected, not propagated; the pool keeps going.
type TaskPool struct {
	slots  chan struct{}
	logger *slog.Logger
	wg     sync.WaitGroup
	mu     sync.Mutex
	failed []error
}

func NewTaskPool(size int, logger *slog.Logger) *TaskPool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &TaskPool{
		slots:  make(chan struct{}, size),
		logger: logger,
	}
}

func (p *TaskPool) Submit(id string, task func() error) {
	p.wg.Add(1)
	go func() {
		p.slots <- struct{}{}
		defer func() {
			<-p.slots
			p.wg.Done()
		}()

		p.logger.Debug("running task", "task_id", id)
		startTime := time.Now()
		if err := task(); err != nil {
			p.logger.Error("task failed", "task_id", id, "error", err.Error())
			p.mu.Lock()
			p.failed = append(p.failed, err)
			p.mu.Unlock()
			return
		}
		p.logger.Debug("task done", "task_id", id, "elapsed_ms", time.Since(startTime).Milliseconds())
	}()
}

// Wait blocks until every submitted task finished and returns the errors of
// the ones that failed.
func (p *TaskPool) Wait() []error {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	errs := make([]error, len(p.failed))
	copy(errs, p.failed)
	return errs
}
