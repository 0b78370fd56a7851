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
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes the table as a parquet file with one column per
// table column.
func WriteParquet(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

// ErrNotParquet is returned by ReadParquet for input that is not a parquet file.
var ErrNotParquet = errors.New("not a parquet file")

// ReadParquet reads a table written by WriteParquet. The size of r is taken
// from a Size method or by seeking to its end.
func ReadParquet(r io.ReaderAt) ([]Row, error) {
	size, err := sizeOf(r)
	if err != nil {
		return nil, err
	}
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotParquet, err)
	}
	pr := parquet.NewGenericReader[Row](f)
	defer func() { _ = pr.Close() }()

	rows := make([]Row, pr.NumRows())
	n, err := pr.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading parquet rows: %w", err)
	}
	return rows[:n], nil
}

func sizeOf(r io.ReaderAt) (int64, error) {
	switch v := r.(type) {
	case interface{ Size() int64 }:
		return v.Size(), nil
	case io.Seeker:
		cur, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, fmt.Errorf("sizing parquet input: %w", err)
		}
		end, err := v.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, fmt.Errorf("sizing parquet input: %w", err)
		}
		if _, err := v.Seek(cur, io.SeekStart); err != nil {
			return 0, fmt.Errorf("sizing parquet input: %w", err)
		}
		return end, nil
	default:
		return 0, fmt.Errorf("sizing parquet input: unsupported reader %T", r)
	}
}
