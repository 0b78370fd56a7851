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

package highlight

import (
	"strings"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"github.com/charmbracelet/lipgloss"
)

// Terminal renders text for a terminal: entities get their label color as
// background and a dimmed label suffix. Literal text is written unchanged.
func Terminal(text string, entities []spans.EntitySpan) string {
	labelStyle := lipgloss.NewStyle().Faint(true)

	var b strings.Builder
	for _, s := range Segments(text, entities) {
		if !s.Entity {
			b.WriteString(s.Text)
			continue
		}
		style := lipgloss.NewStyle().
			Background(lipgloss.Color(ColorFor(s.Label))).
			Foreground(lipgloss.Color("#000000"))
		b.WriteString(style.Render(s.Text))
		b.WriteString(labelStyle.Render("(" + s.Label + ")"))
	}
	return b.String()
}
