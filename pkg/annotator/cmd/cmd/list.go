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

	"github.com/antflydb/annotator/pkg/annotator/lib/corpus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpus documents",
	Long: `List the .txt documents under the input directory.

Examples:
  # List documents in ./input
  annotator list

  # List documents in another directory
  annotator list --input-dir /data/news`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	dir := viper.GetString("input_dir")
	names, err := corpus.List(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		_, _ = fmt.Fprintf(out, "No documents found in %s.\n", dir)
		return nil
	}
	_, _ = fmt.Fprintf(out, "Documents in %s:\n\n", dir)
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
