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

package annotator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/antflydb/annotator/pkg/annotator/lib/ner"
	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheTypeDetection = "detection"

var _ ner.Model = (*DetectionCache)(nil)

// textKey identifies the output of one detector set for one text.
type textKey struct {
	sum  uint64
	size int
}

func (k textKey) String() string { return fmt.Sprintf("%016x/%d", k.sum, k.size) }

// DetectionCache remembers detector output per document text, so reopening a
// file or resubmitting the same text skips detection. Texts missing from the
// cache are sent to the detector together in one call.
type DetectionCache struct {
	model     ner.Model
	detectors string
	entries   *ttlcache.Cache[textKey, []ner.Entity]
	inflight  singleflight.Group
	logger    *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	shared atomic.Uint64
}

// DetectionCacheStats counts texts served from the cache and texts detected.
// Shared counts detector calls joined by a concurrent identical request.
type DetectionCacheStats struct {
	Detectors string `json:"detectors"`
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Shared    uint64 `json:"shared"`
}

// NewDetectionCache wraps model, named by its detector set, so that its
// output for a text is reused for ttl. Closing the cache closes model.
func NewDetectionCache(model ner.Model, detectors string, ttl time.Duration, logger *zap.Logger) *DetectionCache {
	entries := ttlcache.New(
		ttlcache.WithTTL[textKey, []ner.Entity](ttl),
		ttlcache.WithDisableTouchOnHit[textKey, []ner.Entity](),
	)
	go entries.Start()
	return &DetectionCache{
		model:     model,
		detectors: detectors,
		entries:   entries,
		logger:    logger,
	}
}

func (dc *DetectionCache) keyOf(text string) textKey {
	d := xxhash.New()
	_, _ = d.WriteString(dc.detectors)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(text)
	return textKey{sum: d.Sum64(), size: len(text)}
}

// Recognize implements ner.Model.
func (dc *DetectionCache) Recognize(ctx context.Context, texts []string) ([][]ner.Entity, error) {
	results := make([][]ner.Entity, len(texts))
	keys := make([]textKey, len(texts))
	var missing []int
	for i, text := range texts {
		keys[i] = dc.keyOf(text)
		if item := dc.entries.Get(keys[i]); item != nil {
			results[i] = slices.Clone(item.Value())
			dc.hits.Add(1)
			RecordCacheHit(cacheTypeDetection)
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return results, nil
	}

	batch := make([]string, len(missing))
	var flight strings.Builder
	for j, i := range missing {
		batch[j] = texts[i]
		dc.misses.Add(1)
		RecordCacheMiss(cacheTypeDetection)
		flight.WriteString(keys[i].String())
		flight.WriteByte(';')
	}

	v, err, shared := dc.inflight.Do(flight.String(), func() (any, error) {
		start := time.Now()
		detected, err := dc.model.Recognize(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(detected) != len(batch) {
			return nil, fmt.Errorf("detector %s returned %d results for %d texts", dc.detectors, len(detected), len(batch))
		}
		for j, i := range missing {
			dc.entries.Set(keys[i], detected[j], ttlcache.DefaultTTL)
		}
		dc.logger.Debug("Detected uncached texts",
			zap.Int("detected", len(batch)),
			zap.Int("cached", len(texts)-len(batch)),
			zap.Duration("duration", time.Since(start)))
		return detected, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		dc.shared.Add(1)
	}

	detected := v.([][]ner.Entity)
	for j, i := range missing {
		results[i] = slices.Clone(detected[j])
	}
	return results, nil
}

// Stats returns the counters of the cache.
func (dc *DetectionCache) Stats() DetectionCacheStats {
	return DetectionCacheStats{
		Detectors: dc.detectors,
		Entries:   dc.entries.Len(),
		Hits:      dc.hits.Load(),
		Misses:    dc.misses.Load(),
		Shared:    dc.shared.Load(),
	}
}

// Close stops the cache and closes the wrapped detector.
func (dc *DetectionCache) Close() error {
	stats := dc.Stats()
	dc.entries.Stop()
	dc.logger.Info("Detection cache closed",
		zap.String("detectors", stats.Detectors),
		zap.Uint64("hits", stats.Hits),
		zap.Uint64("misses", stats.Misses),
		zap.Uint64("shared", stats.Shared))
	return dc.model.Close()
}
