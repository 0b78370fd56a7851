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

package annotator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/antflydb/annotator/pkg/annotator/lib/corpus"
	"github.com/antflydb/annotator/pkg/annotator/lib/export"
	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/antflydb/annotator/pkg/annotator/lib/pipeline"
	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/decoder"
	"github.com/bytedance/sonic/encoder"
	"go.uber.org/zap"
)

// Document sources.
const (
	SourceFile      = "file"
	SourceText      = "text"
	SourceAnnotated = "annotated"
)

// VersionResponse is the response for /api/version
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// FilesResponse lists the corpus documents.
type FilesResponse struct {
	Files []string `json:"files"`
}

// CreateDocumentRequest names exactly one document source.
type CreateDocumentRequest struct {
	// File is a corpus document name as returned by /api/files
	File string `json:"file,omitempty"`
	// Text is raw text to tokenize and run detection on
	Text string `json:"text,omitempty"`
	// Annotated is bracket-annotated text, "[span](LABEL)", which bypasses detection
	Annotated string `json:"annotated,omitempty"`
}

// DocumentResponse is the state of a document session.
type DocumentResponse struct {
	ID       string             `json:"id"`
	Source   string             `json:"source"`
	File     string             `json:"file,omitempty"`
	Text     string             `json:"text"`
	Tokens   []spans.Token      `json:"tokens"`
	Entities []spans.EntitySpan `json:"entities"`
	Table    []iob.Row          `json:"table"`
	HTML     string             `json:"html"`
	Labels   []string           `json:"labels"`
	// Warnings are the non-fatal issues of the last change
	Warnings []string `json:"warnings"`
}

// UpdateTableRequest carries an edited tag table.
type UpdateTableRequest struct {
	Rows []iob.Row `json:"rows"`
}

// AddEntityRequest proposes a new entity by byte offsets.
type AddEntityRequest struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// RelabelRequest changes the label of one entity.
type RelabelRequest struct {
	Label string `json:"label"`
}

// ExportRequest selects the export file. Both fields are optional.
type ExportRequest struct {
	Filename string `json:"filename,omitempty"`
	Format   string `json:"format,omitempty"`
}

// ExportResponse describes a written export.
type ExportResponse struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	// URL downloads the file from this server
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

// AnnotatorAPI serves the /api routes.
type AnnotatorAPI struct {
	logger *zap.Logger
	node   *AnnotatorNode
	mux    *http.ServeMux
}

// NewAnnotatorAPI registers the API routes of node.
func NewAnnotatorAPI(logger *zap.Logger, node *AnnotatorNode) http.Handler {
	a := &AnnotatorAPI{
		logger: logger,
		node:   node,
		mux:    http.NewServeMux(),
	}
	a.handle("GET /api/version", a.GetVersion)
	a.handle("GET /api/files", node.handleListFiles)
	a.handle("POST /api/documents", node.handleCreateDocument)
	a.handle("GET /api/documents/{id}", node.handleGetDocument)
	a.handle("PUT /api/documents/{id}/table", node.handleUpdateTable)
	a.handle("POST /api/documents/{id}/entities", node.handleAddEntity)
	a.handle("PATCH /api/documents/{id}/entities/{index}", node.handleRelabelEntity)
	a.handle("DELETE /api/documents/{id}/entities/{index}", node.handleRemoveEntity)
	a.handle("POST /api/documents/{id}/export", node.handleExport)
	return a
}

func (a *AnnotatorAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// handle registers h and records its duration under the route pattern.
func (a *AnnotatorAPI) handle(pattern string, h http.HandlerFunc) {
	a.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		RecordRequestDuration(pattern, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// GetVersion returns build information
func (a *AnnotatorAPI) GetVersion(w http.ResponseWriter, r *http.Request) {
	resp := VersionResponse{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	a.node.writeJSON(w, http.StatusOK, resp)
}

func (ln *AnnotatorNode) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := corpus.List(ln.inputDir)
	if err != nil {
		ln.logger.Error("Listing corpus failed", zap.String("dir", ln.inputDir), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []string{}
	}
	ln.writeJSON(w, http.StatusOK, FilesResponse{Files: files})
}

func (ln *AnnotatorNode) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	var req CreateDocumentRequest
	if err := decoder.NewStreamDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	set := 0
	for _, v := range []string{req.File, req.Text, req.Annotated} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		http.Error(w, "exactly one of file, text or annotated is required", http.StatusBadRequest)
		return
	}

	var (
		doc    *pipeline.Document
		source string
		err    error
	)
	switch {
	case req.Annotated != "":
		source = SourceAnnotated
		doc, err = ln.pipeline.FromBracket(req.Annotated)
	case req.File != "":
		source = SourceFile
		var text string
		text, err = corpus.Read(ln.inputDir, req.File)
		if err == nil {
			doc, err = ln.pipeline.Process(r.Context(), text)
		}
	default:
		source = SourceText
		doc, err = ln.pipeline.Process(r.Context(), req.Text)
	}
	if err != nil {
		ln.writeError(w, "Creating document failed", err)
		return
	}

	RecordDocument(source)
	RecordEntityCreation(source, len(doc.Entities))
	recordDropped(doc.Issues)

	sess := ln.sessions.Create(doc, source, req.File)
	ln.logger.Info("Document created",
		zap.String("id", sess.ID),
		zap.String("source", source),
		zap.String("file", req.File),
		zap.Int("tokens", len(doc.Tokens)),
		zap.Int("entities", len(doc.Entities)),
		zap.Int("issues", len(doc.Issues)))

	ln.writeJSON(w, http.StatusCreated, newDocumentResponse(sess, doc))
}

func (ln *AnnotatorNode) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := ln.session(w, r)
	if !ok {
		return
	}
	ln.writeJSON(w, http.StatusOK, newDocumentResponse(sess, sess.Document()))
}

func (ln *AnnotatorNode) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	sess, ok := ln.session(w, r)
	if !ok {
		return
	}
	var req UpdateTableRequest
	if err := decoder.NewStreamDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The edited table is decoded against the tokens of the original
	// tokenization, which never change for the life of the session.
	doc, _ := sess.Update(func(cur *pipeline.Document) (*pipeline.Document, error) {
		return ln.pipeline.ApplyTable(cur.Text, cur.Tokens, req.Rows, cur.Labels), nil
	})

	malformed := 0
	for _, issue := range doc.Issues {
		if errors.Is(issue, iob.ErrMalformedTag) {
			malformed++
		}
	}
	RecordTableUpdate(malformed)
	RecordEntityCreation("table", len(doc.Entities))

	ln.logger.Debug("Table updated",
		zap.String("id", sess.ID),
		zap.Int("rows", len(req.Rows)),
		zap.Int("entities", len(doc.Entities)),
		zap.Int("issues", len(doc.Issues)))

	ln.writeJSON(w, http.StatusOK, newDocumentResponse(sess, doc))
}

func (ln *AnnotatorNode) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	sess, ok := ln.session(w, r)
	if !ok {
		return
	}
	var req AddEntityRequest
	if err := decoder.NewStreamDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := sess.Update(func(cur *pipeline.Document) (*pipeline.Document, error) {
		return ln.pipeline.AddEntity(cur, req.Start, req.End, req.Label)
	})
	if err != nil {
		recordDropped([]error{err})
		ln.writeError(w, "Adding entity failed", err)
		return
	}
	RecordEntityCreation("manual", 1)
	ln.writeJSON(w, http.StatusOK, newDocumentResponse(sess, doc))
}

func (ln *AnnotatorNode) handleRelabelEntity(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	sess, ok := ln.session(w, r)
	if !ok {
		return
	}
	index, ok := entityIndex(w, r)
	if !ok {
		return
	}
	var req RelabelRequest
	if err := decoder.NewStreamDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := sess.Update(func(cur *pipeline.Document) (*pipeline.Document, error) {
		return ln.pipeline.Relabel(cur, index, req.Label)
	})
	if err != nil {
		ln.writeError(w, "Relabeling entity failed", err)
		return
	}
	ln.writeJSON(w, http.StatusOK, newDocumentResponse(sess, doc))
}

func (ln *AnnotatorNode) handleRemoveEntity(w http.ResponseWriter, r *http.Request) {
	sess, ok := ln.session(w, r)
	if !ok {
		return
	}
	index, ok := entityIndex(w, r)
	if !ok {
		return
	}

	doc, err := sess.Update(func(cur *pipeline.Document) (*pipeline.Document, error) {
		return ln.pipeline.Remove(cur, index)
	})
	if err != nil {
		ln.writeError(w, "Removing entity failed", err)
		return
	}
	ln.writeJSON(w, http.StatusOK, newDocumentResponse(sess, doc))
}

func (ln *AnnotatorNode) handleExport(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	sess, ok := ln.session(w, r)
	if !ok {
		return
	}
	var req ExportRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// An empty body exports with the defaults.
	if len(bytes.TrimSpace(body)) > 0 {
		if err := sonic.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	doc := sess.Document()
	path, err := ln.exporter.Export(r.Context(), req.Filename, req.Format, doc.Table)
	if err != nil {
		ln.writeError(w, "Export failed", err)
		return
	}

	name := filepath.Base(path)
	RecordExport(strings.TrimPrefix(filepath.Ext(name), "."))
	ln.logger.Info("Exported annotations",
		zap.String("id", sess.ID),
		zap.String("path", path),
		zap.Int("rows", len(doc.Table)))

	ln.writeJSON(w, http.StatusOK, ExportResponse{
		Path:     path,
		Filename: name,
		URL:      "/output/" + name,
		Rows:     len(doc.Table),
	})
}

// handleDownload serves an exported file as an attachment.
func (ln *AnnotatorNode) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, err := ln.exporter.Path(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		http.Error(w, fmt.Sprintf("export not found: %s", name), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (ln *AnnotatorNode) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := r.PathValue("id")
	sess, ok := ln.sessions.Get(id)
	if !ok {
		http.Error(w, fmt.Sprintf("document not found: %s", id), http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func entityIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid entity index %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func newDocumentResponse(sess *Session, doc *pipeline.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:       sess.ID,
		Source:   sess.Source,
		File:     sess.File,
		Text:     doc.Text,
		Tokens:   doc.Tokens,
		Entities: doc.Entities,
		Table:    doc.Table,
		HTML:     doc.HTML(),
		Labels:   doc.Labels,
		Warnings: make([]string, 0, len(doc.Issues)),
	}
	if resp.Tokens == nil {
		resp.Tokens = []spans.Token{}
	}
	if resp.Entities == nil {
		resp.Entities = []spans.EntitySpan{}
	}
	if resp.Table == nil {
		resp.Table = []iob.Row{}
	}
	if resp.Labels == nil {
		resp.Labels = []string{}
	}
	for _, issue := range doc.Issues {
		resp.Warnings = append(resp.Warnings, issue.Error())
	}
	return resp
}

func recordDropped(issues []error) {
	for _, issue := range issues {
		switch {
		case errors.Is(issue, spans.ErrBoundaryResolution):
			RecordDroppedSpan("boundary")
		case errors.Is(issue, spans.ErrOverlap):
			RecordDroppedSpan("overlap")
		}
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, spans.ErrBoundaryResolution), errors.Is(err, spans.ErrEmptySpan):
		return http.StatusUnprocessableEntity
	case errors.Is(err, spans.ErrOverlap):
		return http.StatusConflict
	case errors.Is(err, corpus.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrInvalidEntity),
		errors.Is(err, export.ErrEmptyTable),
		errors.Is(err, export.ErrInvalidName),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (ln *AnnotatorNode) writeError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		ln.logger.Error(msg, zap.Error(err))
	} else {
		ln.logger.Debug(msg, zap.Int("status", status), zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func (ln *AnnotatorNode) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := encoder.NewStreamEncoder(w).Encode(v); err != nil {
		ln.logger.Error("encoding response", zap.Error(err))
	}
}
