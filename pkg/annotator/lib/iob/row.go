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

import "strings"

// Empty is the value of an unpopulated column.
const Empty = "_"

// Column names of the tag table, in export order.
const (
	ColToken      = "TOKEN"
	ColCoarseLit  = "NE-COARSE-LIT"
	ColCoarseMeto = "NE-COARSE-METO"
	ColFineLit    = "NE-FINE-LIT"
	ColFineMeto   = "NE-FINE-METO"
	ColFineComp   = "NE-FINE-COMP"
	ColNested     = "NE-NESTED"
	ColNELLit     = "NEL-LIT"
	ColNELMeto    = "NEL-METO"
	ColMisc       = "MISC"
)

// Columns lists the table header.
var Columns = []string{
	ColToken,
	ColCoarseLit,
	ColCoarseMeto,
	ColFineLit,
	ColFineMeto,
	ColFineComp,
	ColNested,
	ColNELLit,
	ColNELMeto,
	ColMisc,
}

// MISC flags.
const (
	FlagNoSpaceAfter  = "NoSpaceAfter"
	FlagEndOfSentence = "EndOfSentence"
)

// Row is one line of the tag table; there is exactly one per token.
type Row struct {
	Token      string `json:"TOKEN" parquet:"TOKEN"`
	CoarseLit  string `json:"NE-COARSE-LIT" parquet:"NE-COARSE-LIT"`
	CoarseMeto string `json:"NE-COARSE-METO" parquet:"NE-COARSE-METO"`
	FineLit    string `json:"NE-FINE-LIT" parquet:"NE-FINE-LIT"`
	FineMeto   string `json:"NE-FINE-METO" parquet:"NE-FINE-METO"`
	FineComp   string `json:"NE-FINE-COMP" parquet:"NE-FINE-COMP"`
	Nested     string `json:"NE-NESTED" parquet:"NE-NESTED"`
	NELLit     string `json:"NEL-LIT" parquet:"NEL-LIT"`
	NELMeto    string `json:"NEL-METO" parquet:"NEL-METO"`
	Misc       string `json:"MISC" parquet:"MISC"`
}

// NewRow returns an Outside row for token with every reserved column empty.
func NewRow(token string) Row {
	return Row{
		Token:      token,
		CoarseLit:  Out.String(),
		CoarseMeto: Empty,
		FineLit:    Empty,
		FineMeto:   Empty,
		FineComp:   Empty,
		Nested:     Empty,
		NELLit:     Empty,
		NELMeto:    Empty,
		Misc:       Empty,
	}
}

// Tag parses the NE-COARSE-LIT column.
func (r Row) Tag() (Tag, bool) {
	return ParseTag(r.CoarseLit)
}

// Values returns the row's fields in Columns order.
func (r Row) Values() []string {
	return []string{
		r.Token,
		r.CoarseLit,
		r.CoarseMeto,
		r.FineLit,
		r.FineMeto,
		r.FineComp,
		r.Nested,
		r.NELLit,
		r.NELMeto,
		r.Misc,
	}
}

// Set assigns value to the named column and reports whether the column exists.
func (r *Row) Set(column, value string) bool {
	switch column {
	case ColToken:
		r.Token = value
	case ColCoarseLit:
		r.CoarseLit = value
	case ColCoarseMeto:
		r.CoarseMeto = value
	case ColFineLit:
		r.FineLit = value
	case ColFineMeto:
		r.FineMeto = value
	case ColFineComp:
		r.FineComp = value
	case ColNested:
		r.Nested = value
	case ColNELLit:
		r.NELLit = value
	case ColNELMeto:
		r.NELMeto = value
	case ColMisc:
		r.Misc = value
	default:
		return false
	}
	return true
}

// Flags returns the MISC flags of the row.
func (r Row) Flags() []string {
	if r.Misc == "" || r.Misc == Empty {
		return nil
	}
	return strings.Split(r.Misc, "|")
}

// HasFlag reports whether the MISC column carries flag.
func (r Row) HasFlag(flag string) bool {
	for _, f := range r.Flags() {
		if f == flag {
			return true
		}
	}
	return false
}

func joinFlags(flags []string) string {
	if len(flags) == 0 {
		return Empty
	}
	return strings.Join(flags, "|")
}
