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

// Package tokenize splits raw text into offset-carrying tokens.
package tokenize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
)

// Tokenizer splits text into tokens ordered by offset. Offsets are byte
// offsets into text and every token satisfies text[Start:End] == Text.
type Tokenizer interface {
	Tokenize(text string) ([]spans.Token, error)
}

// Names of the available tokenizers.
const (
	NameProse      = "prose"
	NameWhitespace = "whitespace"
)

// New returns the tokenizer registered under name.
func New(name string) (Tokenizer, error) {
	switch name {
	case NameProse, "":
		return Prose{}, nil
	case NameWhitespace:
		return Whitespace{}, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}

// Whitespace splits on runs of Unicode whitespace.
type Whitespace struct{}

// Tokenize implements Tokenizer.
func (Whitespace) Tokenize(text string) ([]spans.Token, error) {
	var tokens []spans.Token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = appendToken(tokens, text, start, i)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = appendToken(tokens, text, start, len(text))
	}
	return tokens, nil
}

func appendToken(tokens []spans.Token, text string, start, end int) []spans.Token {
	return append(tokens, spans.Token{
		Text:       text[start:end],
		Index:      len(tokens),
		Start:      start,
		End:        end,
		SpaceAfter: spaceAt(text, end),
	})
}

func spaceAt(text string, offset int) bool {
	if offset >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return unicode.IsSpace(r)
}

// Align locates each piece in text, scanning forward from the end of the
// previous match, and returns the resulting tokens. Pieces that cannot be
// found (for instance because the producer normalized them) are dropped.
func Align(text string, pieces []string) []spans.Token {
	tokens := make([]spans.Token, 0, len(pieces))
	cursor := 0
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		i := strings.Index(text[cursor:], p)
		if i < 0 {
			continue
		}
		start := cursor + i
		tokens = appendToken(tokens, text, start, start+len(p))
		cursor = start + len(p)
	}
	return tokens
}
