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

// Package client provides a Go SDK client for the annotator API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"github.com/bytedance/sonic"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("annotator: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Version is the server build information.
type Version struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// CreateDocumentRequest names exactly one document source.
type CreateDocumentRequest struct {
	File      string `json:"file,omitempty"`
	Text      string `json:"text,omitempty"`
	Annotated string `json:"annotated,omitempty"`
}

// Document is the state of a document session.
type Document struct {
	ID       string             `json:"id"`
	Source   string             `json:"source"`
	File     string             `json:"file,omitempty"`
	Text     string             `json:"text"`
	Tokens   []spans.Token      `json:"tokens"`
	Entities []spans.EntitySpan `json:"entities"`
	Table    []iob.Row          `json:"table"`
	HTML     string             `json:"html"`
	Labels   []string           `json:"labels"`
	Warnings []string           `json:"warnings"`
}

// ExportResult describes a written export.
type ExportResult struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Rows     int    `json:"rows"`
}

// AnnotatorClient is a client for interacting with the annotator API.
type AnnotatorClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewAnnotatorClient creates a new client.
// The baseURL should be the server address (e.g., "http://localhost:11500").
func NewAnnotatorClient(baseURL string, httpClient *http.Client) (*AnnotatorClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnnotatorClient{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Version returns the server build information.
func (c *AnnotatorClient) Version(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListFiles lists the corpus documents available on the server.
func (c *AnnotatorClient) ListFiles(ctx context.Context) ([]string, error) {
	var resp struct {
		Files []string `json:"files"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// CreateDocument opens a new document session.
func (c *AnnotatorClient) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	return c.document(ctx, http.MethodPost, "/api/documents", req)
}

// GetDocument returns the current state of a session.
func (c *AnnotatorClient) GetDocument(ctx context.Context, id string) (*Document, error) {
	return c.document(ctx, http.MethodGet, documentPath(id), nil)
}

// UpdateTable replaces the tag table of a session and returns the decoded
// document. Malformed tags are reported in Document.Warnings.
func (c *AnnotatorClient) UpdateTable(ctx context.Context, id string, rows []iob.Row) (*Document, error) {
	return c.document(ctx, http.MethodPut, documentPath(id)+"/table", map[string]any{"rows": rows})
}

// AddEntity adds an entity covering the tokens of [start, end).
func (c *AnnotatorClient) AddEntity(ctx context.Context, id string, start, end int, label string) (*Document, error) {
	body := map[string]any{"start": start, "end": end, "label": label}
	return c.document(ctx, http.MethodPost, documentPath(id)+"/entities", body)
}

// Relabel changes the label of the entity at index.
func (c *AnnotatorClient) Relabel(ctx context.Context, id string, index int, label string) (*Document, error) {
	return c.document(ctx, http.MethodPatch, entityPath(id, index), map[string]string{"label": label})
}

// RemoveEntity deletes the entity at index.
func (c *AnnotatorClient) RemoveEntity(ctx context.Context, id string, index int) (*Document, error) {
	return c.document(ctx, http.MethodDelete, entityPath(id, index), nil)
}

// Export writes the session's tag table on the server. Empty filename and
// format use the server defaults.
func (c *AnnotatorClient) Export(ctx context.Context, id, filename, format string) (*ExportResult, error) {
	body := map[string]string{}
	if filename != "" {
		body["filename"] = filename
	}
	if format != "" {
		body["format"] = format
	}
	var res ExportResult
	if err := c.do(ctx, http.MethodPost, documentPath(id)+"/export", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Download returns the content of an exported file.
func (c *AnnotatorClient) Download(ctx context.Context, filename string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/output/"+url.PathEscape(filename), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func documentPath(id string) string {
	return "/api/documents/" + url.PathEscape(id)
}

func entityPath(id string, index int) string {
	return documentPath(id) + "/entities/" + strconv.Itoa(index)
}

func (c *AnnotatorClient) document(ctx context.Context, method, path string, body any) (*Document, error) {
	var doc Document
	if err := c.do(ctx, method, path, body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *AnnotatorClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
