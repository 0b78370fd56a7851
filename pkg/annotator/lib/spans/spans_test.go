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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tomWorks is "Tom works at Acme." tokenized on whitespace and punctuation.
func tomWorks() (string, []Token) {
	text := "Tom works at Acme."
	return text, []Token{
		{Text: "Tom", Index: 0, Start: 0, End: 3, SpaceAfter: true},
		{Text: "works", Index: 1, Start: 4, End: 9, SpaceAfter: true},
		{Text: "at", Index: 2, Start: 10, End: 12, SpaceAfter: true},
		{Text: "Acme", Index: 3, Start: 13, End: 17},
		{Text: ".", Index: 4, Start: 17, End: 18},
	}
}

func TestLocateToken(t *testing.T) {
	_, tokens := tomWorks()

	tests := []struct {
		name   string
		offset int
		want   int
		found  bool
	}{
		{"first char", 0, 0, true},
		{"inside first token", 2, 0, true},
		{"whitespace gap", 3, -1, false},
		{"start of second token", 4, 1, true},
		{"adjacent tokens pick the one starting there", 17, 4, true},
		{"past the end", 18, -1, false},
		{"negative", -1, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LocateToken(tokens, tt.offset)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocateToken_Empty(t *testing.T) {
	_, ok := LocateToken(nil, 0)
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	tokens := []Token{
		{Text: "Tom", Start: 0, End: 3},
		{Text: "works", Index: 1, Start: 4, End: 9},
	}

	start, end, err := Resolve(tokens, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, 1, end)

	// Start mid-first-token, end mid-second-token.
	start, end, err = Resolve(tokens, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)

	start, end, err = Resolve(tokens, 4, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, start)
	assert.Equal(t, 2, end)
}

func TestResolve_BoundaryErrors(t *testing.T) {
	_, tokens := tomWorks()

	tests := []struct {
		name       string
		start, end int
		offset     int
	}{
		{"start in whitespace", 3, 9, 3},
		{"end in whitespace", 0, 4, 4},
		{"end past the text", 13, 30, 30},
		{"start past the text", 40, 41, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Resolve(tokens, tt.start, tt.end)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBoundaryResolution)

			var bre *BoundaryResolutionError
			require.True(t, errors.As(err, &bre))
			assert.Equal(t, tt.offset, bre.Offset)
		})
	}
}

func TestResolve_EmptySpan(t *testing.T) {
	_, tokens := tomWorks()
	_, _, err := Resolve(tokens, 4, 4)
	assert.ErrorIs(t, err, ErrEmptySpan)
}

func TestNewEntity_SnapsToTokens(t *testing.T) {
	text, tokens := tomWorks()

	e, err := NewEntity(text, tokens, 1, 8, "PERSON")
	require.NoError(t, err)
	assert.Equal(t, EntitySpan{
		Text:       "Tom works",
		Label:      "PERSON",
		Start:      0,
		End:        9,
		StartToken: 0,
		EndToken:   2,
	}, e)
	assert.NoError(t, Validate(tokens, []EntitySpan{e}))
}

func TestInsert_KeepsOrder(t *testing.T) {
	text, tokens := tomWorks()
	acme, err := NewEntity(text, tokens, 13, 17, "ORG")
	require.NoError(t, err)
	tom, err := NewEntity(text, tokens, 0, 3, "PERSON")
	require.NoError(t, err)

	list, err := Insert(nil, acme)
	require.NoError(t, err)
	list, err = Insert(list, tom)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "PERSON", list[0].Label)
	assert.Equal(t, "ORG", list[1].Label)
	assert.NoError(t, Validate(tokens, list))
}

func TestInsert_RejectsOverlap(t *testing.T) {
	text, tokens := tomWorks()
	first, err := NewEntity(text, tokens, 0, 9, "PERSON")
	require.NoError(t, err)
	list, err := Insert(nil, first)
	require.NoError(t, err)

	second, err := NewEntity(text, tokens, 4, 12, "ORG")
	require.NoError(t, err)
	got, err := Insert(list, second)
	require.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, list, got)

	var oe *OverlapError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "PERSON", oe.Existing.Label)
}

func TestInsert_AdjacentIsNotOverlap(t *testing.T) {
	text, tokens := tomWorks()
	acme, err := NewEntity(text, tokens, 13, 17, "ORG")
	require.NoError(t, err)
	dot, err := NewEntity(text, tokens, 17, 18, "PUNCT")
	require.NoError(t, err)

	list, err := Insert([]EntitySpan{acme}, dot)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAlign(t *testing.T) {
	text, tokens := tomWorks()
	entities, dropped := Align(text, tokens, []Candidate{
		{Label: "ORG", Start: 13, End: 17},
		{Label: "PERSON", Start: 0, End: 3},
		{Label: "PERSON", Start: 0, End: 9}, // longer wins on equal start
		{Label: "GPE", Start: 4, End: 12},   // overlaps the accepted PERSON
		{Label: "BAD", Start: 3, End: 4},    // whitespace only
	})

	require.Len(t, entities, 2)
	assert.Equal(t, "Tom works", entities[0].Text)
	assert.Equal(t, "ORG", entities[1].Label)
	assert.Len(t, dropped, 3)
	assert.NoError(t, Validate(tokens, entities))
}

func TestValidate(t *testing.T) {
	text, tokens := tomWorks()
	good, err := NewEntity(text, tokens, 0, 3, "PERSON")
	require.NoError(t, err)

	bad := good
	bad.End = 2
	assert.Error(t, Validate(tokens, []EntitySpan{bad}))

	out := good
	out.EndToken = 9
	assert.Error(t, Validate(tokens, []EntitySpan{out}))

	assert.ErrorIs(t, Validate(tokens, []EntitySpan{good, good}), ErrOverlap)
}

func TestSlice(t *testing.T) {
	assert.Equal(t, "Tom", Slice("Tom works", 0, 3))
	assert.Equal(t, "works", Slice("Tom works", 4, 100))
	assert.Equal(t, "", Slice("Tom works", 5, 2))
	assert.Equal(t, "Tom", Slice("Tom works", -4, 3))
}
