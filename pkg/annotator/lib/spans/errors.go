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

package spans

import (
	"errors"
	"fmt"
)

var (
	// ErrBoundaryResolution is returned when a character offset does not fall
	// inside any token.
	ErrBoundaryResolution = errors.New("offset does not map to a token")

	// ErrOverlap is returned when an entity would share characters with an
	// entity already in the list.
	ErrOverlap = errors.New("entity overlaps an existing entity")

	// ErrEmptySpan is returned for spans with start >= end.
	ErrEmptySpan = errors.New("entity span is empty")
)

// BoundaryResolutionError describes which offset of a proposed span could not
// be mapped onto a token.
type BoundaryResolutionError struct {
	Start  int
	End    int
	Offset int
}

func (e *BoundaryResolutionError) Error() string {
	return fmt.Sprintf("span [%d, %d): offset %d does not fall inside any token", e.Start, e.End, e.Offset)
}

func (e *BoundaryResolutionError) Unwrap() error { return ErrBoundaryResolution }

// OverlapError carries the rejected entity and the entity it collides with.
type OverlapError struct {
	New      EntitySpan
	Existing EntitySpan
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("entity %q [%d, %d) overlaps %q [%d, %d)",
		e.New.Label, e.New.Start, e.New.End,
		e.Existing.Label, e.Existing.Start, e.Existing.End)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }
