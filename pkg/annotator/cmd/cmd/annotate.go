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
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path"
	"runtime"
	"strings"
	"syscall"

	"github.com/antflydb/annotator/pkg/annotator"
	"github.com/antflydb/annotator/pkg/annotator/lib/corpus"
	"github.com/antflydb/annotator/pkg/annotator/lib/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [file]",
	Short: "Annotate a document in the terminal",
	Long: `Tokenize a document, run entity detection and print the highlighted
text and its IOB tag table.

The document is a corpus file name (relative to --input-dir), raw --text, or
bracket-annotated --annotated text such as "[Bob](PERSON) joined [Acme](ORG)".
Bracket-annotated text bypasses detection.

Examples:
  # Annotate a corpus document
  annotator annotate news/article.txt

  # Annotate raw text without the tag table
  annotator annotate --text "Alice moved to Paris." --table=false

  # Convert bracket annotations to a TSV tag table
  annotator annotate --annotated "[Bob](PERSON) works at [Acme](ORG)" --export --name bob

  # Annotate every corpus document and export one table each
  annotator annotate --all --export`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().String("text", "", "raw text to annotate")
	annotateCmd.Flags().String("annotated", "", "bracket-annotated text to convert")
	annotateCmd.Flags().Bool("all", false, "annotate every document in the input directory")
	annotateCmd.Flags().Bool("export", false, "export the tag table to the output directory")
	annotateCmd.Flags().String("name", "", "export file name (default edited_annotations.<format>)")
	annotateCmd.Flags().String("format", "", "export format (tsv, parquet)")
	annotateCmd.Flags().Bool("table", true, "print the tag table")
	annotateCmd.Flags().Bool("json", false, "print JSON instead of highlighted text")
	annotateCmd.Flags().Int("concurrency", runtime.NumCPU(), "documents processed in parallel with --all")
	mustBindPFlag("export_format", annotateCmd.Flags().Lookup("format"))
}

type annotated struct {
	name string
	doc  *pipeline.Document
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	text, _ := cmd.Flags().GetString("text")
	bracketed, _ := cmd.Flags().GetString("annotated")
	all, _ := cmd.Flags().GetBool("all")
	doExport, _ := cmd.Flags().GetBool("export")
	name, _ := cmd.Flags().GetString("name")
	withTable, _ := cmd.Flags().GetBool("table")
	asJSON, _ := cmd.Flags().GetBool("json")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	sources := 0
	for _, set := range []bool{len(args) == 1, text != "", bracketed != "", all} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of a file argument, --text, --annotated or --all is required")
	}
	if all && name != "" {
		return errors.New("--name cannot be used with --all")
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if bracketed != "" {
		// Detection is never used for bracket annotations.
		cfg.Detectors = nil
	}
	node, err := annotator.NewAnnotatorNode(logger, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()
	p := node.Pipeline()

	var results []annotated
	switch {
	case all:
		results, err = annotateCorpus(ctx, p, cfg.InputDir, concurrency)
	case bracketed != "":
		var doc *pipeline.Document
		doc, err = p.FromBracket(bracketed)
		results = []annotated{{doc: doc}}
	case text != "":
		var doc *pipeline.Document
		doc, err = p.Process(ctx, text)
		results = []annotated{{doc: doc}}
	default:
		var doc *pipeline.Document
		doc, err = annotateFile(ctx, p, cfg.InputDir, args[0])
		results = []annotated{{name: args[0], doc: doc}}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, res := range results {
		o := newDocumentOutput(res.name, res.doc, withTable)
		if doExport {
			exportName := name
			if all {
				exportName = exportNameFor(res.name)
			}
			o.Export, err = node.Exporter().Export(ctx, exportName, cfg.ExportFormat, res.doc.Table)
			if err != nil {
				return fmt.Errorf("exporting %s: %w", res.name, err)
			}
			logger.Debug("Exported annotations", zap.String("path", o.Export))
		}
		if asJSON {
			if err := writeJSON(out, o); err != nil {
				return err
			}
			continue
		}
		printDocument(out, o, res.doc)
	}
	return nil
}

func annotateFile(ctx context.Context, p *pipeline.Pipeline, dir, name string) (*pipeline.Document, error) {
	text, err := corpus.Read(dir, name)
	if err != nil {
		return nil, err
	}
	doc, err := p.Process(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("annotating %s: %w", name, err)
	}
	return doc, nil
}

// annotateCorpus processes every corpus document, at most limit at a time,
// and returns the results in corpus order.
func annotateCorpus(ctx context.Context, p *pipeline.Pipeline, dir string, limit int) ([]annotated, error) {
	names, err := corpus.List(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no documents found in %s", dir)
	}

	results := make([]annotated, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, name := range names {
		g.Go(func() error {
			doc, err := annotateFile(gctx, p, dir, name)
			if err != nil {
				return err
			}
			results[i] = annotated{name: name, doc: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// exportNameFor maps a corpus name such as "news/a.txt" to "news_a".
func exportNameFor(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	return strings.ReplaceAll(name, "/", "_")
}
