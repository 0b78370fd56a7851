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

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Counter counts model tokens. It is used to enforce a document budget and
// is unrelated to the word tokens produced by a Tokenizer.
type Counter interface {
	// CountTokens returns the number of tokens in the text.
	CountTokens(text string) int
}

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// BPECounter counts tokens with OpenAI's tiktoken BPE encodings.
type BPECounter struct {
	tiktoken *tiktoken.Tiktoken
}

func init() {
	// Set the offline loader for tiktoken to avoid network requests
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// NewBPECounter creates a counter for the named encoding:
// - "cl100k_base": GPT-4, GPT-3.5-turbo (default)
// - "o200k_base": GPT-4o models
// - "p50k_base": Codex models
// - "r50k_base": GPT-3 models
func NewBPECounter(encoding string) (*BPECounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", encoding, err)
	}

	return &BPECounter{tiktoken: tk}, nil
}

// CountTokens returns the number of tokens in the text.
func (c *BPECounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.tiktoken.Encode(text, nil, nil))
}
