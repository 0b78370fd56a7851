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
	"slices"
	"sort"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/unicode/norm"
)

var _ Model = (*Gazetteer)(nil)

// Gazetteer labels every whole-word occurrence of a known term. Matching is
// ASCII case-insensitive and leftmost-longest, so "New York City" wins over
// "New York" when both are listed. Terms and text are both compared in NFC;
// reported offsets are into the text as given.
type Gazetteer struct {
	ac       ahocorasick.AhoCorasick
	patterns []string
	labels   []string // label per pattern
}

// NewGazetteer builds a gazetteer from a label to terms map. Terms are
// NFC-normalized and trimmed; a term listed under several labels keeps the
// alphabetically first label.
func NewGazetteer(terms map[string][]string) (*Gazetteer, error) {
	g := &Gazetteer{}
	index := make(map[string]int)

	labels := make([]string, 0, len(terms))
	for label := range terms {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	for _, label := range labels {
		norml := NormalizeLabel(label)
		if norml == "" {
			continue
		}
		for _, term := range terms[label] {
			pattern := norm.NFC.String(strings.TrimSpace(term))
			if pattern == "" {
				continue
			}
			key := strings.ToLower(pattern)
			if _, exists := index[key]; exists {
				continue
			}
			index[key] = len(g.patterns)
			g.patterns = append(g.patterns, pattern)
			g.labels = append(g.labels, norml)
		}
	}

	if len(g.patterns) > 0 {
		builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
			AsciiCaseInsensitive: true,
			MatchOnlyWholeWords:  true,
			MatchKind:            ahocorasick.LeftMostLongestMatch,
		})
		g.ac = builder.Build(g.patterns)
	}
	return g, nil
}

// Len returns the number of distinct terms.
func (g *Gazetteer) Len() int { return len(g.patterns) }

// Recognize implements Model.
func (g *Gazetteer) Recognize(ctx context.Context, texts []string) ([][]Entity, error) {
	results := make([][]Entity, len(texts))
	if len(g.patterns) == 0 {
		return results, nil
	}
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		normalized, offsets := nfcWithOffsets(text)
		for _, m := range g.ac.FindAll(normalized) {
			start, end := offsets.original(m.Start(), m.End())
			results[i] = append(results[i], Entity{
				Text:   text[start:end],
				Label:  g.labels[m.Pattern()],
				Start:  start,
				End:    end,
				Score:  1,
				Source: NameGazetteer,
			})
		}
	}
	return results, nil
}

// Close implements Model.
func (g *Gazetteer) Close() error { return nil }

// segmentOffsets pairs the start of each normalization segment in the NFC
// text with its start in the original text, plus a final pair for the ends.
type segmentOffsets []segmentOffset

type segmentOffset struct{ norm, orig int }

// original maps a [start, end) range of the NFC text to the original text,
// widening to whole segments.
func (so segmentOffsets) original(start, end int) (int, int) {
	if so == nil {
		return start, end
	}
	i := sort.Search(len(so), func(i int) bool { return so[i].norm > start }) - 1
	j := sort.Search(len(so), func(j int) bool { return so[j].norm >= end })
	return so[max(i, 0)].orig, so[min(j, len(so)-1)].orig
}

// nfcWithOffsets returns text in NFC. Offsets are nil when text already is.
func nfcWithOffsets(text string) (string, segmentOffsets) {
	if norm.NFC.IsNormalString(text) {
		return text, nil
	}
	var (
		it      norm.Iter
		b       strings.Builder
		offsets segmentOffsets
	)
	b.Grow(len(text))
	it.InitString(norm.NFC, text)
	for !it.Done() {
		offsets = append(offsets, segmentOffset{norm: b.Len(), orig: it.Pos()})
		b.Write(it.Next())
	}
	offsets = append(offsets, segmentOffset{norm: b.Len(), orig: len(text)})
	return b.String(), offsets
}
