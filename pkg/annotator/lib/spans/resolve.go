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

package spans

import (
	"fmt"
	"sort"
)

// LocateToken returns the index of the token whose [Start, End) range
// contains offset. Tokens must be ordered and non-overlapping.
func LocateToken(tokens []Token, offset int) (int, bool) {
	// End offsets increase monotonically, so the first token ending after
	// offset is the only candidate that can contain it.
	i := sort.Search(len(tokens), func(i int) bool { return tokens[i].End > offset })
	if i < len(tokens) && tokens[i].Start <= offset {
		return i, true
	}
	return -1, false
}

// locateEndToken returns the index of the token with Start < offset <= End.
func locateEndToken(tokens []Token, offset int) (int, bool) {
	i := sort.Search(len(tokens), func(i int) bool { return tokens[i].End >= offset })
	if i < len(tokens) && tokens[i].Start < offset {
		return i, true
	}
	return -1, false
}

// Resolve maps the character range [start, end) onto the enclosing token
// range. The start offset must fall inside the first token and the end
// offset inside (or at the end of) the last one; the range may cross any
// number of token boundaries in between.
func Resolve(tokens []Token, start, end int) (startToken, endToken int, err error) {
	if start >= end {
		return 0, 0, fmt.Errorf("resolving [%d, %d): %w", start, end, ErrEmptySpan)
	}
	first, ok := LocateToken(tokens, start)
	if !ok {
		return 0, 0, &BoundaryResolutionError{Start: start, End: end, Offset: start}
	}
	last, ok := locateEndToken(tokens, end)
	if !ok || last < first {
		return 0, 0, &BoundaryResolutionError{Start: start, End: end, Offset: end}
	}
	return first, last + 1, nil
}

// NewEntity builds an entity for the proposed range [start, end) of text.
// The entity snaps to the boundaries of the resolved tokens so that its
// offsets always match the tokens it covers.
func NewEntity(text string, tokens []Token, start, end int, label string) (EntitySpan, error) {
	startToken, endToken, err := Resolve(tokens, start, end)
	if err != nil {
		return EntitySpan{}, err
	}
	return FromTokens(text, tokens, startToken, endToken, label), nil
}

// FromTokens builds the entity covering tokens[startToken:endToken]. The
// caller guarantees 0 <= startToken < endToken <= len(tokens).
func FromTokens(text string, tokens []Token, startToken, endToken int, label string) EntitySpan {
	s, e := tokens[startToken].Start, tokens[endToken-1].End
	return EntitySpan{
		Text:       Slice(text, s, e),
		Label:      label,
		Start:      s,
		End:        e,
		StartToken: startToken,
		EndToken:   endToken,
	}
}

// Insert adds entity to a list ordered by start offset, keeping the order.
// An entity that shares any character with an existing one is rejected with
// an *OverlapError and the list is returned unchanged.
func Insert(entities []EntitySpan, entity EntitySpan) ([]EntitySpan, error) {
	if entity.Start >= entity.End {
		return entities, ErrEmptySpan
	}
	pos := len(entities)
	for i, existing := range entities {
		if existing.Overlaps(entity) {
			return entities, &OverlapError{New: entity, Existing: existing}
		}
		if pos == len(entities) && existing.Start > entity.Start {
			pos = i
		}
	}
	out := make([]EntitySpan, 0, len(entities)+1)
	out = append(out, entities[:pos]...)
	out = append(out, entity)
	out = append(out, entities[pos:]...)
	return out, nil
}

// Validate checks that entities are ordered, non-overlapping and consistent
// with tokens. It returns the first violation found.
func Validate(tokens []Token, entities []EntitySpan) error {
	for i, e := range entities {
		if e.Start >= e.End || e.StartToken >= e.EndToken {
			return fmt.Errorf("entity %d: %w", i, ErrEmptySpan)
		}
		if e.StartToken < 0 || e.EndToken > len(tokens) {
			return fmt.Errorf("entity %d: token range [%d, %d) outside %d tokens",
				i, e.StartToken, e.EndToken, len(tokens))
		}
		if tokens[e.StartToken].Start != e.Start || tokens[e.EndToken-1].End != e.End {
			return fmt.Errorf("entity %d: offsets [%d, %d) do not match tokens [%d, %d)",
				i, e.Start, e.End, e.StartToken, e.EndToken)
		}
		if i > 0 && entities[i-1].End > e.Start {
			return &OverlapError{New: e, Existing: entities[i-1]}
		}
	}
	return nil
}
