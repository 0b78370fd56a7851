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
	"os"
	"path/filepath"
	"strings"

	"github.com/antflydb/annotator/pkg/annotator"
	"github.com/antflydb/annotator/pkg/annotator/lib/corpus"
	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <table>",
	Short: "Decode an edited tag table back into entities",
	Long: `Re-tokenize a source document and decode an edited tag table (TSV or
Parquet) against its tokens, printing the resulting entities.

Malformed tags are read as O and reported as warnings; a table whose row
count differs from the token count is decoded up to the shorter length.

Examples:
  # Decode a table exported from input/article.txt
  annotator decode output/article.tsv --file input/article.txt

  # Print entities as JSON
  annotator decode output/article.parquet --file input/article.txt --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().String("file", "", "source document the table was produced from")
	decodeCmd.Flags().Bool("table", false, "print the decoded tag table")
	decodeCmd.Flags().Bool("json", false, "print JSON instead of highlighted text")
	_ = decodeCmd.MarkFlagRequired("file")
}

func readTable(name string) ([]iob.Row, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(name), ".parquet") {
		return iob.ReadParquet(f)
	}
	return iob.ReadTSV(f)
}

func runDecode(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("file")
	withTable, _ := cmd.Flags().GetBool("table")
	asJSON, _ := cmd.Flags().GetBool("json")

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Decoding needs only the tokenizer.
	cfg.Detectors = nil
	node, err := annotator.NewAnnotatorNode(logger, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	rows, err := readTable(args[0])
	if err != nil {
		return fmt.Errorf("reading table: %w", err)
	}
	text, err := corpus.Read(filepath.Dir(source), filepath.Base(source))
	if err != nil {
		return err
	}
	tokens, err := node.Pipeline().Tokenize(text)
	if err != nil {
		return err
	}

	doc := node.Pipeline().ApplyTable(text, tokens, rows, nil)
	o := newDocumentOutput(source, doc, withTable)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), o)
	}
	printDocument(cmd.OutOrStdout(), o, doc)
	return nil
}
