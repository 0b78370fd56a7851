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

// Package ner holds the entity detectors that propose the initial entity
// list for a document. Detectors are opaque: they see raw text and return
// labeled character ranges, which the pipeline then aligns to tokens.
package ner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"go.uber.org/zap"
)

// Entity represents a named entity found in text.
type Entity struct {
	// Text is the entity text (e.g., "John Smith")
	Text string `json:"text"`
	// Label is the entity type (e.g., "PERSON", "ORG", "GPE")
	Label string `json:"label"`
	// Start is the byte offset where the entity begins
	Start int `json:"start"`
	// End is the byte offset where the entity ends (exclusive)
	End int `json:"end"`
	// Score is the confidence score (0.0 to 1.0)
	Score float32 `json:"score"`
	// Source names the detector that produced the entity
	Source string `json:"source,omitempty"`
}

// Model defines the interface for entity detectors.
type Model interface {
	// Recognize extracts named entities from the given texts.
	// Returns a slice of entities for each input text.
	Recognize(ctx context.Context, texts []string) ([][]Entity, error)

	// Close releases any resources held by the model.
	Close() error
}

// Names of the available detectors.
const (
	NameProse     = "prose"
	NameGazetteer = "gazetteer"
)

// Config selects and configures detectors.
type Config struct {
	// Detectors lists detector names; more than one yields a Hybrid.
	Detectors []string
	// Gazetteer maps a label to the terms that carry it.
	Gazetteer map[string][]string
	// Logger for logging (nil = no logging)
	Logger *zap.Logger
}

// New builds the detector described by cfg.
func New(cfg Config) (Model, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	names := cfg.Detectors
	if len(names) == 0 {
		names = []string{NameProse}
	}

	models := make([]Model, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case NameProse:
			models = append(models, ProseNER{})
		case NameGazetteer:
			g, err := NewGazetteer(cfg.Gazetteer)
			if err != nil {
				return nil, fmt.Errorf("building gazetteer: %w", err)
			}
			logger.Info("Gazetteer loaded", zap.Int("terms", g.Len()))
			models = append(models, g)
		default:
			return nil, fmt.Errorf("unknown detector %q", name)
		}
	}
	if len(models) == 1 {
		return models[0], nil
	}
	return NewHybrid(logger, models...), nil
}

// ToCandidates converts detector output into alignment candidates with
// normalized labels. Entities whose label normalizes to "" are dropped.
func ToCandidates(entities []Entity) []spans.Candidate {
	out := make([]spans.Candidate, 0, len(entities))
	for _, e := range entities {
		label := NormalizeLabel(e.Label)
		if label == "" {
			continue
		}
		out = append(out, spans.Candidate{Label: label, Start: e.Start, End: e.End})
	}
	return out
}

// NormalizeLabel normalizes detector labels to the label set used by the
// highlighter.
// Examples:
//   - "B-PER" -> "PERSON"
//   - "I-ORGANIZATION" -> "ORG"
//   - "LOCATION" -> "LOC"
//   - "O" -> "" (outside)
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "O" || label == "" {
		return ""
	}

	// Remove BIO prefix if present (B-, I-, E-, S-)
	if len(label) >= 2 && label[1] == '-' {
		label = label[2:]
	}

	label = strings.ToUpper(label)
	switch label {
	case "PER", "PEOPLE":
		return "PERSON"
	case "ORGANIZATION", "ORGANISATION", "COMPANY":
		return "ORG"
	case "LOCATION", "PLACE":
		return "LOC"
	case "MISCELLANEOUS":
		return "MISC"
	default:
		return label
	}
}

func closeAll(models []Model) error {
	var errs []error
	for _, m := range models {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// countEntities counts the total number of entities across all texts.
func countEntities(results [][]Entity) int {
	count := 0
	for _, entities := range results {
		count += len(entities)
	}
	return count
}
