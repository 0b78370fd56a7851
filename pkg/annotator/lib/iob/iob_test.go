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
	"bytes"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordTokens tokenizes words joined by single spaces, mirroring how the
// bracket parser lays out text.
func wordTokens(words ...string) (string, []spans.Token) {
	tokens := make([]spans.Token, len(words))
	pos := 0
	for i, w := range words {
		tokens[i] = spans.Token{
			Text:       w,
			Index:      i,
			Start:      pos,
			End:        pos + len(w),
			SpaceAfter: i < len(words)-1,
		}
		pos += len(w) + 1
	}
	return strings.Join(words, " "), tokens
}

func coarse(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.CoarseLit
	}
	return out
}

func misc(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Misc
	}
	return out
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		raw  string
		want Tag
		ok   bool
	}{
		{"O", Out, true},
		{" O ", Out, true},
		{"B-PERSON", BeginTag("PERSON"), true},
		{"I-ORG", InsideTag("ORG"), true},
		{"B-WORK-OF-ART", BeginTag("WORK-OF-ART"), true},
		{"B-", Out, false},
		{"I", Out, false},
		{"_", Out, false},
		{"", Out, false},
		{"b-PERSON", Out, false},
		{"E-PERSON", Out, false},
		{"PERSON", Out, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseTag(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTag_String(t *testing.T) {
	assert.Equal(t, "O", Out.String())
	assert.Equal(t, "B-PERSON", BeginTag("PERSON").String())
	assert.Equal(t, "I-ORG", InsideTag("ORG").String())
}

func TestNewRow(t *testing.T) {
	r := NewRow("Tom")
	assert.Equal(t, []string{"Tom", "O", "_", "_", "_", "_", "_", "_", "_", "_"}, r.Values())
	assert.Len(t, Columns, len(r.Values()))
	assert.Nil(t, r.Flags())
}

func TestEncode(t *testing.T) {
	tokens := []spans.Token{
		{Text: "Tom", Index: 0, Start: 0, End: 3, SpaceAfter: true},
		{Text: "works", Index: 1, Start: 4, End: 9, SpaceAfter: true},
		{Text: "at", Index: 2, Start: 10, End: 12, SpaceAfter: true},
		{Text: "Acme", Index: 3, Start: 13, End: 17},
		{Text: ".", Index: 4, Start: 17, End: 18},
	}
	entities := []spans.EntitySpan{
		{Text: "Acme", Label: "ORG", Start: 13, End: 17, StartToken: 3, EndToken: 4},
		{Text: "Tom", Label: "PERSON", Start: 0, End: 3, StartToken: 0, EndToken: 1},
	}

	rows, issues := Encode(tokens, entities)
	assert.Empty(t, issues)
	require.Len(t, rows, len(tokens))
	assert.Equal(t, []string{"B-PERSON", "O", "O", "B-ORG", "O"}, coarse(rows))
	assert.Equal(t, []string{"_", "_", "_", "NoSpaceAfter", "EndOfSentence"}, misc(rows))
	assert.Equal(t, "works", rows[1].Token)
	assert.Equal(t, Empty, rows[1].NELMeto)
}

func TestEncode_MultiTokenEntity(t *testing.T) {
	_, tokens := wordTokens("New", "York", "City", "rocks")
	rows, issues := Encode(tokens, []spans.EntitySpan{
		{Label: "GPE", Start: 0, End: 13, StartToken: 0, EndToken: 3},
	})
	assert.Empty(t, issues)
	assert.Equal(t, []string{"B-GPE", "I-GPE", "I-GPE", "O"}, coarse(rows))
}

func TestEncode_ClampsOutOfRange(t *testing.T) {
	_, tokens := wordTokens("a", "b", "c")
	rows, issues := Encode(tokens, []spans.EntitySpan{
		{Label: "X", Start: 2, End: 20, StartToken: 1, EndToken: 9},
	})
	assert.Equal(t, []string{"O", "B-X", "I-X"}, coarse(rows))
	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], ErrIndexOutOfRange)

	var oor *IndexOutOfRangeError
	require.True(t, errors.As(issues[0], &oor))
	assert.Equal(t, 3, oor.TokenCount)
}

func TestEncode_StartPastEnd(t *testing.T) {
	_, tokens := wordTokens("a", "b")
	rows, issues := Encode(tokens, []spans.EntitySpan{
		{Label: "X", StartToken: 5, EndToken: 7},
	})
	assert.Equal(t, []string{"O", "O"}, coarse(rows))
	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], ErrIndexOutOfRange)
}

func TestEncode_SkipsEmptyAndUnlabeled(t *testing.T) {
	_, tokens := wordTokens("a", "b")
	rows, issues := Encode(tokens, []spans.EntitySpan{
		{Label: "X", StartToken: 1, EndToken: 1},
		{Label: "", StartToken: 0, EndToken: 1},
	})
	assert.Equal(t, []string{"O", "O"}, coarse(rows))
	require.Len(t, issues, 2)
	assert.ErrorIs(t, issues[0], ErrEmptyEntity)
	assert.ErrorIs(t, issues[1], ErrMissingLabel)
}

func TestEncode_Empty(t *testing.T) {
	rows, issues := Encode(nil, nil)
	assert.Empty(t, rows)
	assert.Empty(t, issues)
}

func TestEncode_SingleToken(t *testing.T) {
	rows, _ := Encode([]spans.Token{{Text: "Hi", End: 2}}, nil)
	assert.Equal(t, []string{"EndOfSentence"}, misc(rows))
}

func tableOf(tags ...string) []Row {
	rows := make([]Row, len(tags))
	for i, tag := range tags {
		rows[i] = NewRow("w")
		rows[i].CoarseLit = tag
	}
	return rows
}

func TestDecode(t *testing.T) {
	_, tokens := wordTokens("Tom", "Smith", "works", "at", "Acme")

	tests := []struct {
		name   string
		tags   []string
		want   [][3]any // label, start token, end token
		issues int
	}{
		{
			name: "begin and inside",
			tags: []string{"B-PERSON", "I-PERSON", "O", "O", "B-ORG"},
			want: [][3]any{{"PERSON", 0, 2}, {"ORG", 4, 5}},
		},
		{
			name: "orphan inside is ignored",
			tags: []string{"I-PERSON", "O", "O", "O", "O"},
		},
		{
			name: "label switch truncates",
			tags: []string{"B-PERSON", "I-ORG", "O", "O", "O"},
			want: [][3]any{{"PERSON", 0, 1}},
		},
		{
			name: "label switch does not reopen",
			tags: []string{"B-PERSON", "I-ORG", "I-ORG", "O", "O"},
			want: [][3]any{{"PERSON", 0, 1}},
		},
		{
			name: "consecutive begins",
			tags: []string{"B-PERSON", "B-PERSON", "O", "O", "O"},
			want: [][3]any{{"PERSON", 0, 1}, {"PERSON", 1, 2}},
		},
		{
			name: "begin closes and reopens",
			tags: []string{"B-PERSON", "I-PERSON", "B-ORG", "I-ORG", "O"},
			want: [][3]any{{"PERSON", 0, 2}, {"ORG", 2, 4}},
		},
		{
			name: "open entity closed at end",
			tags: []string{"O", "O", "O", "B-ORG", "I-ORG"},
			want: [][3]any{{"ORG", 3, 5}},
		},
		{
			name:   "malformed value acts as O",
			tags:   []string{"B-PERSON", "PERSON", "I-PERSON", "_", ""},
			want:   [][3]any{{"PERSON", 0, 1}},
			issues: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := Decode(tableOf(tt.tags...), tokens)
			assert.Len(t, issues, tt.issues)
			for _, issue := range issues {
				assert.ErrorIs(t, issue, ErrMalformedTag)
			}
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w[0], got[i].Label)
				assert.Equal(t, w[1], got[i].StartToken)
				assert.Equal(t, w[2], got[i].EndToken)
				assert.Equal(t, tokens[got[i].StartToken].Start, got[i].Start)
				assert.Equal(t, tokens[got[i].EndToken-1].End, got[i].End)
			}
		})
	}
}

func TestDecode_TextReconstruction(t *testing.T) {
	text, tokens := wordTokens("New", "York", "City")
	rows := tableOf("B-GPE", "I-GPE", "I-GPE")

	lossy, _ := Decode(rows, tokens)
	require.Len(t, lossy, 1)
	assert.Equal(t, "NewYorkCity", lossy[0].Text)

	exact, _ := DecodeSource(text, rows, tokens)
	require.Len(t, exact, 1)
	assert.Equal(t, "New York City", exact[0].Text)
}

func TestDecode_RowCountMismatch(t *testing.T) {
	_, tokens := wordTokens("a", "b")
	got, issues := Decode(tableOf("B-X", "I-X", "I-X"), tokens)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].EndToken)
	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], ErrRowCount)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	labels := []string{"PERSON", "ORG", "GPE", "DATE"}

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.IntN(30)
		words := make([]string, n)
		for i := range words {
			words[i] = strings.Repeat(string(rune('a'+rng.IntN(26))), 1+rng.IntN(6))
		}
		text, tokens := wordTokens(words...)

		var entities []spans.EntitySpan
		for i := 0; i < n; {
			if rng.IntN(3) != 0 {
				i++
				continue
			}
			end := i + 1 + rng.IntN(min(4, n-i))
			entities = append(entities, spans.FromTokens(text, tokens, i, end, labels[rng.IntN(len(labels))]))
			i = end
		}

		rows, issues := Encode(tokens, entities)
		require.Empty(t, issues)

		got, issues := DecodeSource(text, rows, tokens)
		require.Empty(t, issues)
		assert.Equal(t, entities, got, "iteration %d", iter)
	}
}

func TestRoundTrip_AdjacentSameLabel(t *testing.T) {
	text, tokens := wordTokens("Tom", "Ann")
	entities := []spans.EntitySpan{
		spans.FromTokens(text, tokens, 0, 1, "PERSON"),
		spans.FromTokens(text, tokens, 1, 2, "PERSON"),
	}
	rows, _ := Encode(tokens, entities)
	got, _ := DecodeSource(text, rows, tokens)
	assert.Equal(t, entities, got)
}

func TestTSV_RoundTrip(t *testing.T) {
	_, tokens := wordTokens("Tom", `"quoted"`, "at", "Acme")
	rows, _ := Encode(tokens, []spans.EntitySpan{
		{Label: "PERSON", StartToken: 0, EndToken: 1},
		{Label: "ORG", StartToken: 3, EndToken: 4},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, rows))

	header, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, strings.Join(Columns, "\t"), header)

	got, err := ReadTSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadTSV_ReorderedAndMissingColumns(t *testing.T) {
	input := "MISC\tNE-COARSE-LIT\tTOKEN\tEXTRA\n" +
		"_\tB-PERSON\tTom\tz\n" +
		"EndOfSentence\tI-PERSON\n"

	rows, err := ReadTSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Tom", rows[0].Token)
	assert.Equal(t, "B-PERSON", rows[0].CoarseLit)
	assert.Equal(t, Empty, rows[0].FineLit)
	assert.Equal(t, "I-PERSON", rows[1].CoarseLit)
	assert.Equal(t, "", rows[1].Token)
	assert.True(t, rows[1].HasFlag(FlagEndOfSentence))
}

func TestReadTSV_MissingRequiredColumn(t *testing.T) {
	_, err := ReadTSV(strings.NewReader("TOKEN\tMISC\nTom\t_\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadTSV_Empty(t *testing.T) {
	rows, err := ReadTSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParquet_RoundTrip(t *testing.T) {
	_, tokens := wordTokens("Tom", "works", "at", "Acme")
	rows, _ := Encode(tokens, []spans.EntitySpan{
		{Label: "PERSON", StartToken: 0, EndToken: 1},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, rows))

	got, err := ReadParquet(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadParquet_RejectsOtherInput(t *testing.T) {
	var valid bytes.Buffer
	require.NoError(t, WriteParquet(&valid, []Row{NewRow("Tom")}))

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "tsv", input: []byte("TOKEN\tNE-COARSE-LIT\nTom\tB-PERSON\n")},
		{name: "empty", input: nil},
		{name: "truncated", input: valid.Bytes()[:valid.Len()/2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []Row
			var err error
			require.NotPanics(t, func() {
				rows, err = ReadParquet(bytes.NewReader(tt.input))
			})
			require.Error(t, err)
			assert.Nil(t, rows)
		})
	}

	_, err := ReadParquet(bytes.NewReader([]byte("TOKEN\tNE-COARSE-LIT\n")))
	assert.ErrorIs(t, err, ErrNotParquet)
}
