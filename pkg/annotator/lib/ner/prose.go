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
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

var _ Model = ProseNER{}

// ProseNER runs prose's averaged-perceptron entity extractor. prose reports
// entity text only, so each entity is located in the source by matching its
// words in order, allowing only whitespace between them.
type ProseNER struct{}

// Recognize implements Model.
func (ProseNER) Recognize(ctx context.Context, texts []string) ([][]Entity, error) {
	results := make([][]Entity, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		doc, err := prose.NewDocument(text)
		if err != nil {
			return nil, fmt.Errorf("running prose on text %d: %w", i, err)
		}

		cursor := 0
		for _, ent := range doc.Entities() {
			start, end, ok := locate(text, cursor, strings.Fields(ent.Text))
			if !ok {
				continue
			}
			results[i] = append(results[i], Entity{
				Text:   text[start:end],
				Label:  ent.Label,
				Start:  start,
				End:    end,
				Score:  1,
				Source: NameProse,
			})
			cursor = end
		}
	}
	return results, nil
}

// Close implements Model.
func (ProseNER) Close() error { return nil }

// locate finds words in text at or after from, consecutive up to whitespace
// and not running on into a longer word.
func locate(text string, from int, words []string) (start, end int, ok bool) {
	if len(words) == 0 {
		return 0, 0, false
	}
	for from <= len(text) {
		i := strings.Index(text[from:], words[0])
		if i < 0 {
			return 0, 0, false
		}
		start = from + i
		end = start + len(words[0])
		matched := true
		for _, w := range words[1:] {
			next := end + len(text[end:]) - len(strings.TrimLeftFunc(text[end:], unicode.IsSpace))
			if !strings.HasPrefix(text[next:], w) {
				matched = false
				break
			}
			end = next + len(w)
		}
		if matched && !wordContinues(text, end) {
			return start, end, true
		}
		from = start + 1
	}
	return 0, 0, false
}

func wordContinues(text string, offset int) bool {
	r, size := utf8.DecodeRuneInString(text[offset:])
	return size > 0 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
