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
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/antflydb/annotator/pkg/annotator/lib/export"
	"github.com/antflydb/annotator/pkg/annotator/lib/ner"
	"github.com/antflydb/annotator/pkg/annotator/lib/tokenize"
)

// Config configures an annotator node. Field tags match the viper keys.
type Config struct {
	// ApiUrl is the address the HTTP API listens on
	ApiUrl string `mapstructure:"api_url"`
	// InputDir holds the .txt documents offered for annotation
	InputDir string `mapstructure:"input_dir"`
	// OutputDir receives exported tag tables
	OutputDir string `mapstructure:"output_dir"`
	// Tokenizer is "prose" or "whitespace"
	Tokenizer string `mapstructure:"tokenizer"`
	// Detectors lists entity detectors ("prose", "gazetteer")
	Detectors []string `mapstructure:"detectors"`
	// Gazetteer maps a label to its terms for the gazetteer detector
	Gazetteer map[string][]string `mapstructure:"gazetteer"`
	// SessionTTL is how long an idle document session is kept
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// MaxSessions caps live sessions (0 = unlimited)
	MaxSessions uint64 `mapstructure:"max_sessions"`
	// MaxConcurrentDetections bounds parallel detector calls (0 = one per CPU)
	MaxConcurrentDetections int `mapstructure:"max_concurrent_detections"`
	// DetectionCacheTTL is how long detector output is reused (0 = no cache)
	DetectionCacheTTL time.Duration `mapstructure:"detection_cache_ttl"`
	// MaxDocumentTokens rejects larger documents (0 = unlimited)
	MaxDocumentTokens int `mapstructure:"max_document_tokens"`
	// BPEEncoding is the tiktoken encoding used to count document tokens
	BPEEncoding string `mapstructure:"bpe_encoding"`
	// ExportFormat is the default export format ("tsv" or "parquet")
	ExportFormat string `mapstructure:"export_format"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		ApiUrl:            "http://localhost:11500",
		InputDir:          "input",
		OutputDir:         "output",
		Tokenizer:         tokenize.NameProse,
		Detectors:         []string{ner.NameProse},
		SessionTTL:        30 * time.Minute,
		MaxSessions:       1000,
		DetectionCacheTTL: 2 * time.Minute,
		BPEEncoding:       tokenize.DefaultEncoding,
		ExportFormat:      export.FormatTSV,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.ApiUrl); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_url %q is not a valid URL", c.ApiUrl))
	}
	if c.InputDir == "" {
		errs = append(errs, errors.New("input_dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	switch c.Tokenizer {
	case tokenize.NameProse, tokenize.NameWhitespace:
	default:
		errs = append(errs, fmt.Errorf("tokenizer %q is not one of %q, %q",
			c.Tokenizer, tokenize.NameProse, tokenize.NameWhitespace))
	}
	for _, d := range c.Detectors {
		if d != ner.NameProse && d != ner.NameGazetteer {
			errs = append(errs, fmt.Errorf("detector %q is not one of %q, %q", d, ner.NameProse, ner.NameGazetteer))
		}
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL))
	}
	if c.DetectionCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("detection_cache_ttl must not be negative, got %s", c.DetectionCacheTTL))
	}
	if c.MaxConcurrentDetections < 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_detections must not be negative, got %d", c.MaxConcurrentDetections))
	}
	if c.MaxDocumentTokens < 0 {
		errs = append(errs, fmt.Errorf("max_document_tokens must not be negative, got %d", c.MaxDocumentTokens))
	}
	switch c.ExportFormat {
	case export.FormatTSV, export.FormatParquet:
	default:
		errs = append(errs, fmt.Errorf("export_format %q is not one of %q, %q",
			c.ExportFormat, export.FormatTSV, export.FormatParquet))
	}
	return errors.Join(errs...)
}
