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

import "sort"

// Candidate is a proposed entity located only by character offsets, as
// produced by an entity detector.
type Candidate struct {
	Label string
	Start int
	End   int
}

// Align resolves detector candidates onto tokens and returns a valid,
// ordered, non-overlapping entity list. Candidates that cannot be resolved or
// that collide with an earlier accepted entity are dropped; the reasons are
// returned alongside. Earlier starts win, and on equal starts the longer
// candidate wins.
func Align(text string, tokens []Token, candidates []Candidate) ([]EntitySpan, []error) {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	entities := make([]EntitySpan, 0, len(sorted))
	var dropped []error
	for _, c := range sorted {
		entity, err := NewEntity(text, tokens, c.Start, c.End, c.Label)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		if n := len(entities); n > 0 && entities[n-1].Overlaps(entity) {
			dropped = append(dropped, &OverlapError{New: entity, Existing: entities[n-1]})
			continue
		}
		entities = append(entities, entity)
	}
	return entities, dropped
}
