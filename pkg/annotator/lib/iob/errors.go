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
)

var (
	// ErrMalformedTag marks a table value outside {O, B-*, I-*}.
	ErrMalformedTag = errors.New("malformed tag")

	// ErrIndexOutOfRange marks an entity whose token range exceeds the table.
	ErrIndexOutOfRange = errors.New("entity token range out of range")

	// ErrEmptyEntity marks an entity that covers no tokens.
	ErrEmptyEntity = errors.New("entity covers no tokens")

	// ErrMissingLabel marks an entity without a label.
	ErrMissingLabel = errors.New("entity has no label")

	// ErrRowCount marks a table whose length differs from the token sequence.
	ErrRowCount = errors.New("row count does not match token count")
)

// The errors below are diagnostics. Encode and Decode never fail; they
// return these next to their result so callers can log or surface them.

// MalformedTagError reports an unparseable NE-COARSE-LIT value. The row was
// decoded as "O".
type MalformedTagError struct {
	Row   int
	Value string
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("row %d: malformed tag %q treated as O", e.Row, e.Value)
}

func (e *MalformedTagError) Unwrap() error { return ErrMalformedTag }

// IndexOutOfRangeError reports an entity whose token range was clamped.
type IndexOutOfRangeError struct {
	Label      string
	StartToken int
	EndToken   int
	TokenCount int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("entity %q tokens [%d, %d) exceed %d tokens",
		e.Label, e.StartToken, e.EndToken, e.TokenCount)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrIndexOutOfRange }

// RowCountError reports a table and token sequence of different lengths.
// Only the common prefix is decoded.
type RowCountError struct {
	Rows   int
	Tokens int
}

func (e *RowCountError) Error() string {
	return fmt.Sprintf("table has %d rows for %d tokens", e.Rows, e.Tokens)
}

func (e *RowCountError) Unwrap() error { return ErrRowCount }
