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

package tokenize

import (
	"fmt"

	"github.com/antflydb/annotator/pkg/annotator/lib/spans"
	"github.com/jdkato/prose/v2"
)

// Prose uses the prose tokenizer, which splits punctuation and clitics off
// words the way a linguistic tokenizer does ("Acme." becomes "Acme", ".").
type Prose struct{}

// Tokenize implements Tokenizer.
func (Prose) Tokenize(text string) ([]spans.Token, error) {
	if text == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tokenizing with prose: %w", err)
	}
	ptoks := doc.Tokens()
	pieces := make([]string, len(ptoks))
	for i, t := range ptoks {
		pieces[i] = t.Text
	}
	return Align(text, pieces), nil
}
