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

// Package iob converts between entity spans and the per-token tag table.
//
// The table follows the HIPE column layout. Only TOKEN, NE-COARSE-LIT and
// MISC are populated; every other column holds the empty marker "_".
package iob

import "strings"

// Kind is the position of a token relative to an entity.
type Kind int

const (
	// Outside marks a token that belongs to no entity ("O").
	Outside Kind = iota
	// Begin marks the first token of an entity ("B-<label>").
	Begin
	// Inside marks a continuation token of an entity ("I-<label>").
	Inside
)

func (k Kind) String() string {
	switch k {
	case Begin:
		return "B"
	case Inside:
		return "I"
	default:
		return "O"
	}
}

// Tag is a parsed NE-COARSE-LIT value.
type Tag struct {
	Kind  Kind
	Label string
}

// Out is the Outside tag.
var Out = Tag{Kind: Outside}

// BeginTag returns the B- tag for label.
func BeginTag(label string) Tag { return Tag{Kind: Begin, Label: label} }

// InsideTag returns the I- tag for label.
func InsideTag(label string) Tag { return Tag{Kind: Inside, Label: label} }

// String renders the tag in its table form.
func (t Tag) String() string {
	if t.Kind == Outside {
		return "O"
	}
	return t.Kind.String() + "-" + t.Label
}

// ParseTag parses a raw table value. Table cells are free text edited by
// people, so anything other than "O", "B-<label>" or "I-<label>" with a
// non-empty label yields Out and ok == false.
func ParseTag(raw string) (tag Tag, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "O" {
		return Out, true
	}
	if len(raw) > 2 && raw[1] == '-' {
		label := raw[2:]
		switch raw[0] {
		case 'B':
			return BeginTag(label), true
		case 'I':
			return InsideTag(label), true
		}
	}
	return Out, false
}
