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

package iob

import (
	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
)

// Decode rebuilds the entity list from a possibly hand-edited table and the
// token sequence the table was produced from.
//
// Decoding is lenient and never fails:
//   - an I- tag with no open entity of the same label is ignored;
//   - an I- tag with a different label, a B- tag or an O closes the open
//     entity, so a label change mid-span truncates the entity;
//   - malformed values decode as O and are reported as *MalformedTagError.
//
// Entity text is the concatenation of the covered token texts without the
// whitespace between them. Use DecodeSource to slice the source text instead.
func Decode(rows []Row, tokens []spans.Token) ([]spans.EntitySpan, []error) {
	return decode(rows, tokens, func(e *spans.EntitySpan, tok spans.Token) {
		e.Text += tok.Text
	})
}

// DecodeSource is Decode with entity text sliced from the source text, which
// keeps the original spacing inside multi-token entities.
func DecodeSource(text string, rows []Row, tokens []spans.Token) ([]spans.EntitySpan, []error) {
	entities, issues := decode(rows, tokens, nil)
	for i := range entities {
		entities[i].Text = spans.Slice(text, entities[i].Start, entities[i].End)
	}
	return entities, issues
}

func decode(rows []Row, tokens []spans.Token, appendText func(*spans.EntitySpan, spans.Token)) ([]spans.EntitySpan, []error) {
	var issues []error
	n := len(rows)
	if len(tokens) != n {
		issues = append(issues, &RowCountError{Rows: len(rows), Tokens: len(tokens)})
		n = min(n, len(tokens))
	}

	var (
		entities []spans.EntitySpan
		current  *spans.EntitySpan
	)
	closeCurrent := func() {
		if current != nil {
			entities = append(entities, *current)
			current = nil
		}
	}

	for i := 0; i < n; i++ {
		tag, ok := rows[i].Tag()
		if !ok {
			issues = append(issues, &MalformedTagError{Row: i, Value: rows[i].CoarseLit})
		}
		tok := tokens[i]

		if current != nil && tag.Kind == Inside && tag.Label == current.Label {
			current.End = tok.End
			current.EndToken = i + 1
			if appendText != nil {
				appendText(current, tok)
			}
			continue
		}

		closeCurrent()
		if tag.Kind == Begin {
			current = &spans.EntitySpan{
				Text:       tok.Text,
				Label:      tag.Label,
				Start:      tok.Start,
				End:        tok.End,
				StartToken: i,
				EndToken:   i + 1,
			}
		}
	}
	closeCurrent()
	return entities, issues
}
