// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ner

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Pooled bounds the number of concurrent Recognize calls on a detector.
type Pooled struct {
	model    Model
	sem      *semaphore.Weighted
	poolSize int
	logger   *zap.Logger
}

// NewPooled wraps model. poolSize 0 means one slot per CPU.
func NewPooled(model Model, poolSize int, logger *zap.Logger) *Pooled {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	logger.Debug("Detector pool created", zap.Int("poolSize", poolSize))
	return &Pooled{
		model:    model,
		sem:      semaphore.NewWeighted(int64(poolSize)),
		poolSize: poolSize,
		logger:   logger,
	}
}

// Recognize waits for a free slot, then runs the wrapped detector.
func (p *Pooled) Recognize(ctx context.Context, texts []string) ([][]Entity, error) {
	// Acquire semaphore slot (blocks if all slots are busy)
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring detector slot: %w", err)
	}
	defer p.sem.Release(1)
	return p.model.Recognize(ctx, texts)
}

// PoolSize returns the number of concurrent slots.
func (p *Pooled) PoolSize() int { return p.poolSize }

// Close closes the wrapped detector.
func (p *Pooled) Close() error {
	return p.model.Close()
}
