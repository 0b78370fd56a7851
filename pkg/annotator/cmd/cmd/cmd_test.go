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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/antflydb/annotator/pkg/annotator/lib/iob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportNameFor(t *testing.T) {
	assert.Equal(t, "article", exportNameFor("article.txt"))
	assert.Equal(t, "news_2024_a", exportNameFor("news/2024/a.txt"))
}

func TestRenderTable(t *testing.T) {
	rows := []iob.Row{iob.NewRow("Bob"), iob.NewRow("works")}
	rows[0].CoarseLit = "B-PERSON"
	rows[1].Misc = iob.FlagEndOfSentence

	out := renderTable(rows)
	for _, want := range []string{iob.ColToken, iob.ColCoarseLit, "Bob", "B-PERSON", "works", iob.FlagEndOfSentence} {
		assert.Contains(t, out, want)
	}
}

func TestAnnotateAndDecode(t *testing.T) {
	dir := t.TempDir()
	inputDir := filepath.Join(dir, "input")
	outputDir := filepath.Join(dir, "output")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "bob.txt"), []byte("Bob works at Acme"), 0o644))

	common := []string{
		"--tokenizer", "whitespace",
		"--input-dir", inputDir,
		"--output-dir", outputDir,
		"--log-level", "error",
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"annotate",
		"--annotated", "[Bob](PERSON) works at [Acme](ORG)",
		"--export", "--name", "bob"}, common...))
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "4 tokens, 2 entities")
	assert.Contains(t, out.String(), "B-PERSON")
	require.FileExists(t, filepath.Join(outputDir, "bob.tsv"))

	out.Reset()
	rootCmd.SetArgs(append([]string{"decode",
		filepath.Join(outputDir, "bob.tsv"),
		"--file", filepath.Join(inputDir, "bob.txt")}, common...))
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "4 tokens, 2 entities")
}

func TestReadTable_BadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renamed.parquet")
	require.NoError(t, os.WriteFile(path, []byte("TOKEN\tNE-COARSE-LIT\nBob\tB-PERSON\n"), 0o644))

	rows, err := readTable(path)
	require.ErrorIs(t, err, iob.ErrNotParquet)
	assert.Nil(t, rows)
}
