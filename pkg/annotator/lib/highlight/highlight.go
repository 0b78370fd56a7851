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

// Package highlight projects an entity list back onto its source text.
//
// Every renderer is built on Segments, which partitions the text so each
// byte appears exactly once, either as literal text or inside one entity.
package highlight

import (
	"fmt"
	"html"
	"strings"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
)

// Segment is one piece of the partition.
type Segment struct {
	Text   string
	Start  int
	End    int
	Entity bool
	Label  string
}

// Segments partitions text around entities. Entities are ordered by start
// offset first; offsets are clamped to the text, and an entity that begins
// inside an already emitted one is skipped so the partition stays exact.
func Segments(text string, entities []spans.EntitySpan) []Segment {
	ordered := spans.Clone(entities)
	spans.Sort(ordered)

	var out []Segment
	cursor := 0
	for _, e := range ordered {
		start, end := clamp(e.Start, len(text)), clamp(e.End, len(text))
		if start < cursor || start >= end {
			continue
		}
		if start > cursor {
			out = append(out, Segment{Text: text[cursor:start], Start: cursor, End: start})
		}
		out = append(out, Segment{Text: text[start:end], Start: start, End: end, Entity: true, Label: e.Label})
		cursor = end
	}
	if cursor < len(text) {
		out = append(out, Segment{Text: text[cursor:], Start: cursor, End: len(text)})
	}
	return out
}

func clamp(v, n int) int {
	return max(0, min(v, n))
}

// DefaultColor is used for labels without an entry in Colors.
const DefaultColor = "#ddd"

// Colors maps well-known labels to their highlight color.
var Colors = map[string]string{
	"PERSON":   "#aa9cfc",
	"ORG":      "#7aecec",
	"GPE":      "#feca57",
	"LOC":      "#ff9ff3",
	"DATE":     "#bfe1d9",
	"TIME":     "#bfe1d9",
	"MONEY":    "#e4e7d2",
	"PERCENT":  "#e4e7d2",
	"CARDINAL": "#e4e7d2",
	"ORDINAL":  "#e4e7d2",
}

// ColorFor returns the highlight color of label.
func ColorFor(label string) string {
	if c, ok := Colors[label]; ok {
		return c
	}
	return DefaultColor
}

const markFormat = `<mark style="background-color: %s; padding: 2px 4px; margin: 0 2px; border-radius: 3px;">` +
	`%s <span style="font-size: 0.8em; font-weight: bold;">(%s)</span></mark>`

// HTML renders text with each entity wrapped in a colored <mark> element
// followed by its label. All text is HTML-escaped.
func HTML(text string, entities []spans.EntitySpan) string {
	var b strings.Builder
	for _, s := range Segments(text, entities) {
		if !s.Entity {
			b.WriteString(html.EscapeString(s.Text))
			continue
		}
		fmt.Fprintf(&b, markFormat, ColorFor(s.Label), html.EscapeString(s.Text), html.EscapeString(s.Label))
	}
	return b.String()
}
