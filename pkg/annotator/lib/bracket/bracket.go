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

// Package bracket parses inline entity markup of the form
//
//	[Tom](PERSON) works at [Acme](ORG).
//
// into the same token and entity representation a tokenizer and entity
// detector produce, so the result can be fed straight into the tag encoder.
package bracket

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
)

var pattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// Document is the parse result. Text is rebuilt from the tokens joined by
// single spaces with the markup removed; token and entity offsets refer to
// Text, not to the annotated input.
type Document struct {
	Text     string
	Tokens   []spans.Token
	Entities []spans.EntitySpan
	// Labels holds every entity label once, in order of first appearance.
	Labels []string
}

type mark struct {
	label      string
	start, end int
}

// Parse splits annotated input into whitespace tokens and the entities the
// markup declares.
//
// Every token except the last is marked as followed by a space. Text that
// directly follows a closing ")" with no whitespace in between (typically
// punctuation) is attached to the entity's last token, so the entity grows
// to cover it. Markup that yields no tokens or has a blank label is reported
// in the returned diagnostics; its text, if any, is kept as plain tokens.
func Parse(input string) (*Document, []error) {
	var (
		words  []string
		marks  []mark
		issues []error
		labels []string
		seen   = make(map[string]bool)
		// glue is set while the previous word closed a bracketed span with
		// nothing between it and the following text.
		glue bool
	)

	addPlain := func(fragment string) {
		fields := strings.Fields(fragment)
		if len(fields) == 0 {
			return
		}
		if glue && len(words) > 0 && !startsWithSpace(fragment) {
			words[len(words)-1] += fields[0]
			fields = fields[1:]
		}
		words = append(words, fields...)
	}

	last := 0
	for _, m := range pattern.FindAllStringSubmatchIndex(input, -1) {
		addPlain(input[last:m[0]])
		last = m[1]
		glue = false

		body, label := input[m[2]:m[3]], strings.TrimSpace(input[m[4]:m[5]])
		fields := strings.Fields(body)
		if len(fields) == 0 {
			issues = append(issues, fmt.Errorf("markup at byte %d with label %q: %w", m[0], label, spans.ErrEmptySpan))
			continue
		}
		if label == "" {
			issues = append(issues, fmt.Errorf("markup at byte %d has a blank label", m[0]))
			words = append(words, fields...)
			continue
		}

		start := len(words)
		words = append(words, fields...)
		marks = append(marks, mark{label: label, start: start, end: len(words)})
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
		glue = true
	}
	addPlain(input[last:])

	doc := &Document{Text: strings.Join(words, " "), Labels: labels}
	if len(words) > 0 {
		doc.Tokens = make([]spans.Token, len(words))
	}
	pos := 0
	for i, w := range words {
		doc.Tokens[i] = spans.Token{
			Text:       w,
			Index:      i,
			Start:      pos,
			End:        pos + len(w),
			SpaceAfter: i < len(words)-1,
		}
		pos += len(w) + 1
	}
	for _, mk := range marks {
		doc.Entities = append(doc.Entities, spans.FromTokens(doc.Text, doc.Tokens, mk.start, mk.end, mk.label))
	}
	return doc, issues
}

// Strip removes the markup and returns the plain text an annotator would
// have seen, with the original spacing intact.
func Strip(input string) string {
	return pattern.ReplaceAllString(input, "$1")
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}
