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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeModel struct {
	entities []Entity
	err      error
	closed   bool
}

func (f *fakeModel) Recognize(_ context.Context, texts []string) ([][]Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]Entity, len(texts))
	for i := range texts {
		out[i] = append([]Entity(nil), f.entities...)
	}
	return out, nil
}

func (f *fakeModel) Close() error {
	f.closed = true
	return nil
}

func TestNormalizeLabel(t *testing.T) {
	tests := map[string]string{
		"B-PER":          "PERSON",
		"I-ORGANIZATION": "ORG",
		"LOCATION":       "LOC",
		"gpe":            "GPE",
		"PERSON":         "PERSON",
		"MISCELLANEOUS":  "MISC",
		"O":              "",
		"":               "",
		" company ":      "ORG",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLabel(in), "input %q", in)
	}
}

func TestToCandidates(t *testing.T) {
	got := ToCandidates([]Entity{
		{Label: "PER", Start: 0, End: 3},
		{Label: "O", Start: 4, End: 9},
		{Label: "ORG", Start: 13, End: 17},
	})
	assert.Equal(t, []spans.Candidate{
		{Label: "PERSON", Start: 0, End: 3},
		{Label: "ORG", Start: 13, End: 17},
	}, got)
}

func TestGazetteer(t *testing.T) {
	g, err := NewGazetteer(map[string][]string{
		"ORG": {"Acme", " acme "},
		"GPE": {"New York", "New York City"},
		"LOC": {"acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	text := "ACME opened in New York City, not Acmes. Acme."
	res, err := g.Recognize(context.Background(), []string{text, ""})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Empty(t, res[1])

	got := res[0]
	require.Len(t, got, 3)
	for _, e := range got {
		assert.Equal(t, e.Text, text[e.Start:e.End])
		assert.Equal(t, NameGazetteer, e.Source)
	}
	assert.Equal(t, "ACME", got[0].Text)
	assert.Equal(t, "LOC", got[0].Label, "alphabetically first label keeps the term")
	assert.Equal(t, "New York City", got[1].Text)
	assert.Equal(t, "Acme", got[2].Text)
}

func TestGazetteer_DecomposedText(t *testing.T) {
	g, err := NewGazetteer(map[string][]string{
		"PERSON": {"Zo\u00eb"},
		"ORG":    {"Caf\u00e9 Noir"},
	})
	require.NoError(t, err)

	text := "Met Zoe\u0308 at Cafe\u0301 Noir."
	res, err := g.Recognize(context.Background(), []string{text})
	require.NoError(t, err)

	got := res[0]
	require.Len(t, got, 2)
	assert.Equal(t, Entity{Text: "Zoe\u0308", Label: "PERSON", Start: 4, End: 9, Score: 1, Source: NameGazetteer}, got[0])
	assert.Equal(t, Entity{Text: "Cafe\u0301 Noir", Label: "ORG", Start: 13, End: 24, Score: 1, Source: NameGazetteer}, got[1])
}

func TestGazetteer_Empty(t *testing.T) {
	g, err := NewGazetteer(nil)
	require.NoError(t, err)
	res, err := g.Recognize(context.Background(), []string{"anything"})
	require.NoError(t, err)
	assert.Equal(t, [][]Entity{nil}, res)
}

func TestLocate(t *testing.T) {
	text := "Mr. Tom  Smith met Tom Smithers and Tom Smith."
	start, end, ok := locate(text, 0, []string{"Tom", "Smith"})
	require.True(t, ok)
	assert.Equal(t, "Tom  Smith", text[start:end])

	start, end, ok = locate(text, end, []string{"Tom", "Smith"})
	require.True(t, ok)
	assert.Equal(t, "Tom Smith", text[start:end])
	assert.Equal(t, 36, start, "Smithers is not a match for Smith")

	_, _, ok = locate(text, 0, []string{"Jane"})
	assert.False(t, ok)
	_, _, ok = locate(text, 0, nil)
	assert.False(t, ok)
}

func TestProseNER_OffsetsMatchText(t *testing.T) {
	text := "Barack Obama visited Paris with Michelle Obama in 2015."
	res, err := ProseNER{}.Recognize(context.Background(), []string{text, "  "})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Empty(t, res[1])
	for _, e := range res[0] {
		assert.Equal(t, e.Text, text[e.Start:e.End])
		assert.Equal(t, NameProse, e.Source)
	}
}

func TestProseNER_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ProseNER{}.Recognize(ctx, []string{"Tom"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHybrid(t *testing.T) {
	a := &fakeModel{entities: []Entity{
		{Text: "New York", Label: "GPE", Start: 0, End: 8, Score: 0.9},
		{Text: "Tom", Label: "PERSON", Start: 20, End: 23, Score: 0.5},
	}}
	b := &fakeModel{entities: []Entity{
		{Text: "New York City", Label: "GPE", Start: 0, End: 13, Score: 0.4},
		{Text: "Tom", Label: "ORG", Start: 20, End: 23, Score: 0.8},
	}}
	h := NewHybrid(zaptest.NewLogger(t), a, b)

	res, err := h.Recognize(context.Background(), []string{"x"})
	require.NoError(t, err)
	require.Len(t, res[0], 2)
	assert.Equal(t, "New York City", res[0][0].Text)
	assert.Equal(t, "ORG", res[0][1].Label)

	require.NoError(t, h.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestHybrid_Error(t *testing.T) {
	boom := errors.New("boom")
	h := NewHybrid(nil, &fakeModel{}, &fakeModel{err: boom})
	_, err := h.Recognize(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
}

func TestNew(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, ProseNER{}, m)

	m, err = New(Config{Detectors: []string{"gazetteer"}, Gazetteer: map[string][]string{"ORG": {"Acme"}}})
	require.NoError(t, err)
	assert.IsType(t, &Gazetteer{}, m)

	m, err = New(Config{Detectors: []string{"prose", "gazetteer"}, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.IsType(t, &Hybrid{}, m)

	_, err = New(Config{Detectors: []string{"spacy"}})
	assert.Error(t, err)
}

type blockingModel struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (b *blockingModel) Recognize(_ context.Context, texts []string) ([][]Entity, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return make([][]Entity, len(texts)), nil
}

func (b *blockingModel) Close() error { return nil }

func TestPooled_LimitsConcurrency(t *testing.T) {
	model := &blockingModel{}
	pooled := NewPooled(model, 2, zaptest.NewLogger(t))
	assert.Equal(t, 2, pooled.PoolSize())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pooled.Recognize(context.Background(), []string{"x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, model.maxSeen.Load(), int32(2))
}

func TestPooled_CancelledContext(t *testing.T) {
	pooled := NewPooled(&fakeModel{}, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Occupy the only slot so the second call must wait.
	require.NoError(t, pooled.sem.Acquire(context.Background(), 1))
	defer pooled.sem.Release(1)

	_, err := pooled.Recognize(ctx, []string{"x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPooled_Close(t *testing.T) {
	model := &fakeModel{}
	require.NoError(t, NewPooled(model, 0, nil).Close())
	assert.True(t, model.closed)
}
