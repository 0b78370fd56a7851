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
	"fmt"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
)

// Encode builds the tag table for tokens and entities, one row per token.
//
// Entities are assumed to be non-overlapping. An entity covering no tokens,
// or without a label, is skipped; an entity extending past the last token is
// clamped to it. Both cases are reported in the returned diagnostics and
// never fail the encode.
func Encode(tokens []spans.Token, entities []spans.EntitySpan) ([]Row, []error) {
	rows := make([]Row, len(tokens))
	for i, tok := range tokens {
		rows[i] = NewRow(tok.Text)
	}

	var issues []error
	ordered := spans.Clone(entities)
	spans.Sort(ordered)
	for _, e := range ordered {
		if e.EndToken <= e.StartToken {
			issues = append(issues, fmt.Errorf("entity %q tokens [%d, %d): %w",
				e.Label, e.StartToken, e.EndToken, ErrEmptyEntity))
			continue
		}
		if e.Label == "" {
			issues = append(issues, fmt.Errorf("entity tokens [%d, %d): %w",
				e.StartToken, e.EndToken, ErrMissingLabel))
			continue
		}
		start, end := e.StartToken, e.EndToken
		if start < 0 || end > len(rows) {
			issues = append(issues, &IndexOutOfRangeError{
				Label:      e.Label,
				StartToken: e.StartToken,
				EndToken:   e.EndToken,
				TokenCount: len(rows),
			})
			if start < 0 {
				continue
			}
			end = len(rows)
		}
		if start >= end {
			continue
		}
		rows[start].CoarseLit = BeginTag(e.Label).String()
		for i := start + 1; i < end; i++ {
			rows[i].CoarseLit = InsideTag(e.Label).String()
		}
	}

	last := len(rows) - 1
	for i := range rows {
		var flags []string
		if i < last && !tokens[i].SpaceAfter {
			flags = append(flags, FlagNoSpaceAfter)
		}
		if i == last {
			flags = append(flags, FlagEndOfSentence)
		}
		rows[i].Misc = joinFlags(flags)
	}
	return rows, issues
}
