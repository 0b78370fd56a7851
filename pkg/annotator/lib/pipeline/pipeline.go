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

// Package pipeline ties the tokenizer, the entity detector and the tag
// codec together. A Document moves between two authoritative states: after
// detection or an entity edit the entity list is authoritative and the tag
// table is re-encoded from it; after a table edit the table is authoritative
// and the entity list is decoded from it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antflydb/annotator/pkg/annotator/lib/bracket"
	"github.com/antflydb/annotator/pkg/annotator/lib/highlight"
	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/antflydb/annotator/pkg/annotator/lib/ner"
	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"github.com/antflydb/annotator/pkg/annotator/lib/tokenize"
	"go.uber.org/zap"
)

var (
	// ErrDocumentTooLarge is returned when a document exceeds the
	// configured model token budget.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrInvalidEntity is returned for an entity index outside the list or
	// a blank label.
	ErrInvalidEntity = errors.New("invalid entity")
)

// Document is the state of one annotated text.
type Document struct {
	Text     string
	Tokens   []spans.Token
	Entities []spans.EntitySpan
	Table    []iob.Row
	// Labels is the label set offered for the document, in first-use order.
	Labels []string
	// Issues holds the non-fatal diagnostics of the transition that
	// produced this document.
	Issues []error
}

// HTML renders the document's highlighted text.
func (d *Document) HTML() string {
	return highlight.HTML(d.Text, d.Entities)
}

// Config configures a Pipeline.
type Config struct {
	// Tokenizer splits text into tokens (nil = whitespace tokenizer)
	Tokenizer tokenize.Tokenizer
	// Detector proposes entities (nil = no detection)
	Detector ner.Model
	// Counter measures documents against MaxDocumentTokens
	Counter tokenize.Counter
	// MaxDocumentTokens rejects larger documents (0 = unlimited)
	MaxDocumentTokens int
	// Logger for logging (nil = no logging)
	Logger *zap.Logger
}

// Pipeline is safe for concurrent use when its tokenizer and detector are.
type Pipeline struct {
	tokenizer tokenize.Tokenizer
	detector  ner.Model
	counter   tokenize.Counter
	maxTokens int
	logger    *zap.Logger
}

// New creates a pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if cfg.MaxDocumentTokens < 0 {
		return nil, fmt.Errorf("max document tokens must not be negative, got %d", cfg.MaxDocumentTokens)
	}
	if cfg.MaxDocumentTokens > 0 && cfg.Counter == nil {
		return nil, errors.New("a token counter is required when max document tokens is set")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tk := cfg.Tokenizer
	if tk == nil {
		tk = tokenize.Whitespace{}
	}
	return &Pipeline{
		tokenizer: tk,
		detector:  cfg.Detector,
		counter:   cfg.Counter,
		maxTokens: cfg.MaxDocumentTokens,
		logger:    logger.Named("pipeline"),
	}, nil
}

func (p *Pipeline) checkSize(text string) error {
	if p.maxTokens == 0 {
		return nil
	}
	if n := p.counter.CountTokens(text); n > p.maxTokens {
		return fmt.Errorf("%w: %d tokens, limit is %d", ErrDocumentTooLarge, n, p.maxTokens)
	}
	return nil
}

// Tokenize splits text with the configured tokenizer after checking the
// document budget.
func (p *Pipeline) Tokenize(text string) ([]spans.Token, error) {
	if err := p.checkSize(text); err != nil {
		return nil, err
	}
	tokens, err := p.tokenizer.Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}
	return tokens, nil
}

// Process tokenizes text, runs the detector and aligns its output to the
// tokens. Detector spans that do not resolve to tokens, or that collide with
// an earlier span, are dropped and reported in Document.Issues.
func (p *Pipeline) Process(ctx context.Context, text string) (*Document, error) {
	tokens, err := p.Tokenize(text)
	if err != nil {
		return nil, err
	}

	var candidates []spans.Candidate
	if p.detector != nil && strings.TrimSpace(text) != "" {
		res, err := p.detector.Recognize(ctx, []string{text})
		if err != nil {
			return nil, fmt.Errorf("detecting entities: %w", err)
		}
		if len(res) > 0 {
			candidates = ner.ToCandidates(res[0])
		}
	}

	entities, dropped := spans.Align(text, tokens, candidates)
	if len(dropped) > 0 {
		p.logger.Debug("Dropped detector spans",
			zap.Int("dropped", len(dropped)),
			zap.Int("kept", len(entities)),
			zap.Errors("reasons", dropped))
	}

	doc := p.encode(text, tokens, entities, nil)
	doc.Issues = append(dropped, doc.Issues...)
	p.logger.Debug("Processed document",
		zap.Int("tokens", len(tokens)),
		zap.Int("entities", len(entities)))
	return doc, nil
}

// FromBracket builds a document from bracket-annotated text, bypassing the
// detector. The document text is the markup-free text produced by the parser.
func (p *Pipeline) FromBracket(annotated string) (*Document, error) {
	if err := p.checkSize(annotated); err != nil {
		return nil, err
	}
	parsed, issues := bracket.Parse(annotated)
	if len(issues) > 0 {
		p.logger.Warn("Ignored bracket markup", zap.Errors("reasons", issues))
	}
	doc := p.encode(parsed.Text, parsed.Tokens, parsed.Entities, parsed.Labels)
	doc.Issues = append(issues, doc.Issues...)
	return doc, nil
}

// ApplyTable decodes an edited table against the tokens the table was
// produced from. Malformed cells and a row count mismatch are reported in
// Document.Issues. The stored table keeps the edited rows, cut or padded with
// O rows to one row per token.
func (p *Pipeline) ApplyTable(text string, tokens []spans.Token, rows []iob.Row, labels []string) *Document {
	entities, issues := iob.DecodeSource(text, rows, tokens)
	if len(issues) > 0 {
		p.logger.Debug("Decoded table with issues",
			zap.Int("rows", len(rows)),
			zap.Errors("issues", issues))
	}
	return &Document{
		Text:     text,
		Tokens:   tokens,
		Entities: entities,
		Table:    fitTable(rows, tokens),
		Labels:   mergeLabels(labels, entities),
		Issues:   issues,
	}
}

func fitTable(rows []iob.Row, tokens []spans.Token) []iob.Row {
	table := make([]iob.Row, len(tokens))
	n := copy(table, rows)
	for i := n; i < len(tokens); i++ {
		table[i] = iob.NewRow(tokens[i].Text)
	}
	return table
}

// AddEntity resolves [start, end) to tokens and inserts the entity, which
// snaps to the resolved token boundaries. Spans that do not resolve fail
// with spans.ErrBoundaryResolution and overlapping spans with
// spans.ErrOverlap; doc is never modified.
func (p *Pipeline) AddEntity(doc *Document, start, end int, label string) (*Document, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrInvalidEntity)
	}
	entity, err := spans.NewEntity(doc.Text, doc.Tokens, start, end, label)
	if err != nil {
		return nil, err
	}
	entities, err := spans.Insert(doc.Entities, entity)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Added entity",
		zap.String("label", label),
		zap.Int("start", entity.Start),
		zap.Int("end", entity.End))
	return p.encode(doc.Text, doc.Tokens, entities, doc.Labels), nil
}

// Relabel changes the label of the entity at index.
func (p *Pipeline) Relabel(doc *Document, index int, label string) (*Document, error) {
	label = strings.TrimSpace(label)
	if index < 0 || index >= len(doc.Entities) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrInvalidEntity, index, len(doc.Entities))
	}
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrInvalidEntity)
	}
	entities := spans.Clone(doc.Entities)
	entities[index].Label = label
	return p.encode(doc.Text, doc.Tokens, entities, doc.Labels), nil
}

// Remove deletes the entity at index.
func (p *Pipeline) Remove(doc *Document, index int) (*Document, error) {
	if index < 0 || index >= len(doc.Entities) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrInvalidEntity, index, len(doc.Entities))
	}
	entities := make([]spans.EntitySpan, 0, len(doc.Entities)-1)
	entities = append(entities, doc.Entities[:index]...)
	entities = append(entities, doc.Entities[index+1:]...)
	return p.encode(doc.Text, doc.Tokens, entities, doc.Labels), nil
}

func (p *Pipeline) encode(text string, tokens []spans.Token, entities []spans.EntitySpan, labels []string) *Document {
	rows, issues := iob.Encode(tokens, entities)
	if len(issues) > 0 {
		p.logger.Warn("Encoded table with issues", zap.Errors("issues", issues))
	}
	return &Document{
		Text:     text,
		Tokens:   tokens,
		Entities: entities,
		Table:    rows,
		Labels:   mergeLabels(labels, entities),
		Issues:   issues,
	}
}

func mergeLabels(labels []string, entities []spans.EntitySpan) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, e := range entities {
		if !seen[e.Label] {
			seen[e.Label] = true
			out = append(out, e.Label)
		}
	}
	return out
}
