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
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ Model = (*Hybrid)(nil)

// Hybrid runs several detectors concurrently and merges their output into a
// single non-overlapping list per text.
type Hybrid struct {
	models []Model
	logger *zap.Logger
}

// NewHybrid combines models. Earlier models take precedence when two
// entities cover exactly the same range with the same score.
func NewHybrid(logger *zap.Logger, models ...Model) *Hybrid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hybrid{models: models, logger: logger.Named("hybrid-ner")}
}

// Recognize implements Model.
func (h *Hybrid) Recognize(ctx context.Context, texts []string) ([][]Entity, error) {
	outputs := make([][][]Entity, len(h.models))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range h.models {
		g.Go(func() error {
			res, err := m.Recognize(gctx, texts)
			if err != nil {
				return fmt.Errorf("detector %d: %w", i, err)
			}
			outputs[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([][]Entity, len(texts))
	for t := range texts {
		var all []Entity
		for _, out := range outputs {
			if t < len(out) {
				all = append(all, out[t]...)
			}
		}
		results[t] = mergeEntities(all)
	}

	h.logger.Debug("Hybrid NER completed",
		zap.Int("detectors", len(h.models)),
		zap.Int("num_texts", len(texts)),
		zap.Int("total_entities", countEntities(results)))
	return results, nil
}

// Close closes every wrapped detector.
func (h *Hybrid) Close() error {
	return closeAll(h.models)
}

// mergeEntities orders entities by start and resolves overlaps: the longer
// entity wins, then the higher score.
func mergeEntities(all []Entity) []Entity {
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start == all[j].Start {
			if all[i].End == all[j].End {
				return all[i].Score > all[j].Score
			}
			return all[i].End > all[j].End
		}
		return all[i].Start < all[j].Start
	})
	chosen := make([]Entity, 0, len(all))
	for _, e := range all {
		if len(chosen) == 0 {
			chosen = append(chosen, e)
			continue
		}
		last := chosen[len(chosen)-1]
		if e.Start < last.End {
			if prefer(e, last) {
				chosen[len(chosen)-1] = e
			}
			continue
		}
		chosen = append(chosen, e)
	}
	return chosen
}

func prefer(a, b Entity) bool {
	la, lb := a.End-a.Start, b.End-b.Start
	if la != lb {
		return la > lb
	}
	return a.Score > b.Score
}
