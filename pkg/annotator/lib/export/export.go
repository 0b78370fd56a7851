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

// Package export writes tag tables to the output directory.
package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/gofrs/flock"
)

var (
	// ErrEmptyTable is returned when there is nothing to export.
	ErrEmptyTable = errors.New("no annotations to export")
	// ErrInvalidName is returned for a file name that maps to no file.
	ErrInvalidName = errors.New("invalid export file name")
	// ErrUnknownFormat is returned for an unsupported format.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Supported formats.
const (
	FormatTSV     = "tsv"
	FormatParquet = "parquet"
)

// DefaultName is used when the caller supplies no file name.
const DefaultName = "edited_annotations.tsv"

const lockName = ".export.lock"

// Writer exports tables into OutputDir. Concurrent exports, from this or
// another process, are serialized by a lock file in OutputDir.
type Writer struct {
	OutputDir string
	// Format is the default format (empty = tsv).
	Format string
}

// Export writes rows to name inside OutputDir and returns the written path.
// Only the base name of name is used. format overrides w.Format when set;
// a name without extension gets the format's extension.
func (w *Writer) Export(ctx context.Context, name, format string, rows []iob.Row) (string, error) {
	if len(rows) == 0 {
		return "", ErrEmptyTable
	}
	if format == "" {
		format = w.Format
	}
	format, err := normalizeFormat(format)
	if err != nil {
		return "", err
	}
	dest, err := w.mapPath(name, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	lock := flock.New(filepath.Join(w.OutputDir, lockName))
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return "", fmt.Errorf("locking output directory: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("locking output directory: %w", ctx.Err())
	}
	defer func() { _ = lock.Unlock() }()

	if err := writeAtomic(dest, func(bw *bufio.Writer) error {
		if format == FormatParquet {
			return iob.WriteParquet(bw, rows)
		}
		return iob.WriteTSV(bw, rows)
	}); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	return dest, nil
}

// Path returns the path of an exported file, rejecting names that would
// leave OutputDir.
func (w *Writer) Path(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if name == "" || base == "." || base == ".." || base == string(filepath.Separator) || base != name || base == lockName {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(w.OutputDir, base), nil
}

func (w *Writer) mapPath(name, format string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
		if format != FormatTSV {
			name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + format
		}
	}
	base := filepath.Base(filepath.Clean(filepath.FromSlash(name)))
	if base == "." || base == ".." || base == string(filepath.Separator) || base == lockName {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if filepath.Ext(base) == "" {
		base += "." + format
	}
	return filepath.Join(w.OutputDir, base), nil
}

func normalizeFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", FormatTSV:
		return FormatTSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// writeAtomic writes into a temporary file next to dest and renames it into
// place once fully flushed and synced.
func writeAtomic(dest string, write func(*bufio.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
