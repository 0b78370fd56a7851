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
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antflydb/annotator/pkg/annotator/lib/export"
	"github.com/antflydb/annotator/pkg/annotator/lib/ner"
	"github.com/antflydb/annotator/pkg/annotator/lib/pipeline"
	"github.com/antflydb/annotator/pkg/annotator/lib/tokenize"
	"go.uber.org/zap"
)

type AnnotatorNode struct {
	logger *zap.Logger

	pipeline *pipeline.Pipeline
	// detector is nil when no detectors are configured
	detector ner.Model

	sessions *SessionStore
	exporter *export.Writer
	inputDir string
}

// NewAnnotatorNode builds the tokenizer, detectors and pipeline described by
// config. The caller must Close the node.
func NewAnnotatorNode(zl *zap.Logger, config Config) (*AnnotatorNode, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tk, err := tokenize.New(config.Tokenizer)
	if err != nil {
		return nil, err
	}

	ln := &AnnotatorNode{
		logger:   zl,
		inputDir: config.InputDir,
		exporter: &export.Writer{OutputDir: config.OutputDir, Format: config.ExportFormat},
	}

	if len(config.Detectors) > 0 {
		model, err := ner.New(ner.Config{
			Detectors: config.Detectors,
			Gazetteer: config.Gazetteer,
			Logger:    zl.Named("ner"),
		})
		if err != nil {
			return nil, fmt.Errorf("creating detector: %w", err)
		}
		model = ner.NewPooled(model, config.MaxConcurrentDetections, zl.Named("ner-pool"))
		if config.DetectionCacheTTL > 0 {
			model = NewDetectionCache(model, strings.Join(config.Detectors, "+"),
				config.DetectionCacheTTL, zl.Named("detection-cache"))
		}
		ln.detector = model
	}

	var counter tokenize.Counter
	if config.MaxDocumentTokens > 0 {
		bpe, err := tokenize.NewBPECounter(config.BPEEncoding)
		if err != nil {
			ln.Close()
			return nil, err
		}
		counter = bpe
	}

	ln.pipeline, err = pipeline.New(pipeline.Config{
		Tokenizer:         tk,
		Detector:          ln.detector,
		Counter:           counter,
		MaxDocumentTokens: config.MaxDocumentTokens,
		Logger:            zl,
	})
	if err != nil {
		ln.Close()
		return nil, err
	}

	ln.sessions = NewSessionStore(config.SessionTTL, config.MaxSessions, zl.Named("sessions"))
	return ln, nil
}

// Pipeline returns the annotation pipeline of the node.
func (ln *AnnotatorNode) Pipeline() *pipeline.Pipeline { return ln.pipeline }

// Exporter returns the writer used for exports.
func (ln *AnnotatorNode) Exporter() *export.Writer { return ln.exporter }

// Handler returns the full HTTP surface of the node.
func (ln *AnnotatorNode) Handler() http.Handler {
	rootMux := http.NewServeMux()

	// Health endpoints (outside /api prefix for k8s compatibility)
	rootMux.HandleFunc("GET /healthz", ln.handleHealthz)
	rootMux.HandleFunc("GET /readyz", ln.handleReadyz)

	rootMux.Handle("/api/", NewAnnotatorAPI(ln.logger, ln))
	rootMux.HandleFunc("GET /output/{filename}", ln.handleDownload)

	addDashboardRoutes(rootMux)
	return corsMiddleware(rootMux)
}

// Close releases the detector, caches and session store.
func (ln *AnnotatorNode) Close() error {
	var errs []error
	if ln.sessions != nil {
		ln.sessions.Close()
	}
	if ln.detector != nil {
		errs = append(errs, ln.detector.Close())
	}
	return errors.Join(errs...)
}

// corsMiddleware adds permissive CORS headers for the annotator API
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// DefaultShutdownTimeout is the default time to wait for graceful shutdown
const DefaultShutdownTimeout = 30 * time.Second

// RunAsAnnotator serves the annotation API until ctx is cancelled.
// If readyC is non-nil, it will be closed when the server is ready to accept requests.
func RunAsAnnotator(ctx context.Context, zl *zap.Logger, config Config, readyC chan struct{}) {
	zl = zl.Named("annotator")
	zl.Info("Starting annotator node", zap.Any("config", config))

	u, err := url.Parse(config.ApiUrl)
	if err != nil {
		zl.Fatal("Invalid API URL", zap.String("url", config.ApiUrl), zap.Error(err))
	}

	node, err := NewAnnotatorNode(zl, config)
	if err != nil {
		zl.Fatal("Failed to initialize annotator", zap.Error(err))
	}
	defer func() { _ = node.Close() }()

	zl.Info("Annotation pipeline ready",
		zap.String("tokenizer", config.Tokenizer),
		zap.Strings("detectors", config.Detectors),
		zap.String("input_dir", config.InputDir),
		zap.String("output_dir", config.OutputDir))

	srv := &http.Server{
		Addr:              u.Host,
		Handler:           node.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		zl.Info("Annotator api server starting", zap.String("address", config.ApiUrl))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Signal readiness after server starts
	if readyC != nil {
		close(readyC)
	}

	select {
	case err := <-serverErr:
		if err != nil {
			zl.Fatal("HTTP server error", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("Shutdown signal received, starting graceful shutdown...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer shutdownCancel()

	srv.SetKeepAlivesEnabled(false)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("Graceful shutdown failed, forcing close",
			zap.Error(err),
			zap.Duration("timeout", DefaultShutdownTimeout))
		_ = srv.Close()
	} else {
		zl.Info("Graceful shutdown completed successfully")
	}

	zl.Info("HTTP server stopped")
}
