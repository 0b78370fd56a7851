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

// Package spans defines tokens and entity spans over a source text and the
// mapping between character offsets and token indices.
//
// All offsets are byte offsets into the source string, so text[Start:End]
// always yields the covered text.
package spans

import "sort"

// Token is the smallest unit of text with a stable offset range.
type Token struct {
	// Text is the token text; len(Text) == End-Start.
	Text string `json:"text"`
	// Index is the position of the token in its document.
	Index int `json:"idx"`
	// Start is the byte offset where the token begins.
	Start int `json:"start_char"`
	// End is the byte offset where the token ends (exclusive).
	End int `json:"end_char"`
	// SpaceAfter reports whether whitespace follows the token.
	SpaceAfter bool `json:"has_trailing_space"`
}

// EntitySpan is a labeled, contiguous run of tokens.
type EntitySpan struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	// Start and End are byte offsets into the source text, End exclusive.
	Start int `json:"start"`
	End   int `json:"end"`
	// StartToken and EndToken delimit the covered tokens, EndToken exclusive.
	StartToken int `json:"start_token"`
	EndToken   int `json:"end_token"`
}

// Overlaps reports whether the two spans share at least one character.
func (e EntitySpan) Overlaps(other EntitySpan) bool {
	return e.Start < other.End && other.Start < e.End
}

// TokenCount returns the number of tokens covered by the span.
func (e EntitySpan) TokenCount() int {
	return e.EndToken - e.StartToken
}

// Sort orders entities by start offset, keeping the relative order of ties.
func Sort(entities []EntitySpan) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Start < entities[j].Start
	})
}

// Clone returns a copy of the entity list.
func Clone(entities []EntitySpan) []EntitySpan {
	if entities == nil {
		return nil
	}
	out := make([]EntitySpan, len(entities))
	copy(out, entities)
	return out
}

// Reindex sets every token's Index to its position in the slice.
func Reindex(tokens []Token) {
	for i := range tokens {
		tokens[i].Index = i
	}
}

// Slice returns text[start:end] with the bounds clamped to the text.
func Slice(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	return text[start:end]
}
