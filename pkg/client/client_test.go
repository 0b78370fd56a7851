/*
Copyright 2025 The Antfly Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/antflydb/annotator/pkg/annotator"
	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewAnnotatorClient_InvalidURL(t *testing.T) {
	_, err := NewAnnotatorClient("localhost", nil)
	require.Error(t, err)
}

func TestClient_CreateDocument_Request(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, map[string]any{"text": "Bob"}, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc","source":"text","text":"Bob","entities":[{"text":"Bob","label":"PERSON","start":0,"end":3,"start_token":0,"end_token":1}]}`))
	}))
	defer server.Close()

	c, err := NewAnnotatorClient(server.URL+"/", nil)
	require.NoError(t, err)

	doc, err := c.CreateDocument(context.Background(), CreateDocumentRequest{Text: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "abc", doc.ID)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "PERSON", doc.Entities[0].Label)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "document not found: nope", http.StatusNotFound)
	}))
	defer server.Close()

	c, err := NewAnnotatorClient(server.URL, nil)
	require.NoError(t, err)

	_, err = c.GetDocument(context.Background(), "nope")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "document not found: nope", apiErr.Message)
	assert.True(t, IsNotFound(err))
}

func newAnnotatorServer(t *testing.T) (*AnnotatorClient, annotator.Config) {
	t.Helper()
	cfg := annotator.DefaultConfig()
	cfg.InputDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	cfg.Tokenizer = "whitespace"
	cfg.Detectors = []string{"gazetteer"}
	cfg.Gazetteer = map[string][]string{"PERSON": {"Alice"}, "ORG": {"Acme"}}

	node, err := annotator.NewAnnotatorNode(zaptest.NewLogger(t), cfg)
	require.NoError(t, err)
	server := httptest.NewServer(node.Handler())
	t.Cleanup(func() {
		server.Close()
		_ = node.Close()
	})

	c, err := NewAnnotatorClient(server.URL, server.Client())
	require.NoError(t, err)
	return c, cfg
}

func TestClient_EditRoundTrip(t *testing.T) {
	c, _ := newAnnotatorServer(t)
	ctx := context.Background()

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, v.GoVersion)

	files, err := c.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	doc, err := c.CreateDocument(ctx, CreateDocumentRequest{Text: "Alice joined Acme in May"})
	require.NoError(t, err)
	require.Len(t, doc.Entities, 2)

	// Tag "May" as a date through the table.
	rows := doc.Table
	rows[4].CoarseLit = "B-DATE"
	doc, err = c.UpdateTable(ctx, doc.ID, rows)
	require.NoError(t, err)
	require.Len(t, doc.Entities, 3)
	assert.Equal(t, "May", doc.Entities[2].Text)

	doc, err = c.Relabel(ctx, doc.ID, 1, "COMPANY")
	require.NoError(t, err)
	assert.Equal(t, "B-COMPANY", doc.Table[2].CoarseLit)

	doc, err = c.RemoveEntity(ctx, doc.ID, 0)
	require.NoError(t, err)
	assert.Len(t, doc.Entities, 2)

	doc, err = c.AddEntity(ctx, doc.ID, 0, 5, "PERSON")
	require.NoError(t, err)
	assert.Equal(t, "Alice", doc.Entities[0].Text)

	_, err = c.AddEntity(ctx, doc.ID, 1, 3, "PERSON")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	got, err := c.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Table, got.Table)

	res, err := c.Export(ctx, doc.ID, "edits", "")
	require.NoError(t, err)
	assert.Equal(t, "edits.tsv", res.Filename)
	assert.Equal(t, len(doc.Table), res.Rows)

	data, err := c.Download(ctx, res.Filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), iob.ColCoarseLit)
	assert.Contains(t, string(data), "B-DATE")

	_, err = c.Download(ctx, "missing.tsv")
	assert.True(t, IsNotFound(err))
}
