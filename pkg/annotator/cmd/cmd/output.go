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

package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/antflydb/annotator/pkg/annotator/lib/highlight"
	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/antflydb/annotator/pkg/annotator/lib/pipeline"
	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	json "github.com/antflydb/antfly-go/libaf/json"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d08700"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// documentOutput is the --json form of a document.
type documentOutput struct {
	Name     string             `json:"name,omitempty"`
	Text     string             `json:"text"`
	Entities []spans.EntitySpan `json:"entities"`
	Table    []iob.Row          `json:"table,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
	Export   string             `json:"export,omitempty"`
}

func newDocumentOutput(name string, doc *pipeline.Document, withTable bool) documentOutput {
	out := documentOutput{
		Name:     name,
		Text:     doc.Text,
		Entities: doc.Entities,
	}
	if out.Entities == nil {
		out.Entities = []spans.EntitySpan{}
	}
	if withTable {
		out.Table = doc.Table
	}
	for _, issue := range doc.Issues {
		out.Warnings = append(out.Warnings, issue.Error())
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printDocument writes the highlighted text, warnings and optionally the
// tag table of doc.
func printDocument(w io.Writer, out documentOutput, doc *pipeline.Document) {
	if out.Name != "" {
		_, _ = fmt.Fprintln(w, titleStyle.Render("== "+out.Name+" =="))
	}
	_, _ = fmt.Fprintln(w, highlight.Terminal(doc.Text, doc.Entities))
	for _, warning := range out.Warnings {
		_, _ = fmt.Fprintln(w, warnStyle.Render("warning: "+warning))
	}
	_, _ = fmt.Fprintf(w, "%d tokens, %d entities\n", len(doc.Tokens), len(doc.Entities))
	if out.Table != nil {
		_, _ = fmt.Fprintln(w, renderTable(out.Table))
	}
	if out.Export != "" {
		_, _ = fmt.Fprintf(w, "Exported to %s\n", out.Export)
	}
	_, _ = fmt.Fprintln(w)
}

// renderTable draws the token, tag and MISC columns, coloring tags by label.
func renderTable(rows []iob.Row) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers("#", iob.ColToken, iob.ColCoarseLit, iob.ColMisc).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) {
				if tag, ok := rows[row].Tag(); ok && tag.Kind != iob.Outside {
					return cellStyle.
						Background(lipgloss.Color(highlight.ColorFor(tag.Label))).
						Foreground(lipgloss.Color("#000000"))
				}
			}
			return cellStyle
		})
	for i, r := range rows {
		t.Row(strconv.Itoa(i), r.Token, r.CoarseLit, r.Misc)
	}
	return t.String()
}
