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

// Command annotator is a span annotation workbench for named entities.
//
// It tokenizes documents, proposes entities with a detector, and keeps an
// entity list and a per-token IOB tag table consistent across edits.
//
// Usage:
//
//	annotator run                         # Start the server and dashboard
//	annotator list                        # List corpus documents
//	annotator annotate doc.txt            # Annotate a document in the terminal
//	annotator annotate --all --export     # Annotate and export the whole corpus
//	annotator decode table.tsv --file doc.txt
package main

import (
	"io"
	"runtime"

	"github.com/antflydb/annotator/pkg/annotator/cmd/cmd"
	json "github.com/antflydb/antfly-go/libaf/json"
	gojson "github.com/goccy/go-json"
)

func init() {
	// Configure the JSON wrapper to use goccy/go-json for performance
	json.SetConfig(json.Config{
		Marshal:   gojson.Marshal,
		Unmarshal: gojson.Unmarshal,
		MarshalString: func(v any) (string, error) {
			data, err := gojson.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
		UnmarshalString: func(s string, v any) error {
			return gojson.Unmarshal([]byte(s), v)
		},
		NewEncoder: func(w io.Writer) json.Encoder {
			return gojson.NewEncoder(w)
		},
		NewDecoder: func(r io.Reader) json.Decoder {
			return gojson.NewDecoder(r)
		},
	})
}

// Set by GoReleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	runtime.SetMutexProfileFraction(1) // Enable mutex profiling
	runtime.SetBlockProfileRate(1)     // Sample every blocking event
	cmd.Version = version
	cmd.GitCommit = commit
	cmd.BuildTime = date
	cmd.Execute()
}
