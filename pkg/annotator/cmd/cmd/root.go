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
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Build information, set from main.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "annotator",
	Short: "Named entity annotation workbench",
	Long: `Annotator proposes named entities for plain-text documents and lets you
correct them, either as an entity list or as a per-token IOB tag table.

Configuration is read from annotator.yaml (in . or ~/.annotator) and from
ANNOTATOR_* environment variables; flags override both.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		annotator.Version = Version
		annotator.GitCommit = GitCommit
		annotator.BuildTime = BuildTime
	},
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := annotator.DefaultConfig()
	viper.SetDefault("api_url", defaults.ApiUrl)
	viper.SetDefault("input_dir", defaults.InputDir)
	viper.SetDefault("output_dir", defaults.OutputDir)
	viper.SetDefault("tokenizer", defaults.Tokenizer)
	viper.SetDefault("detectors", defaults.Detectors)
	viper.SetDefault("session_ttl", defaults.SessionTTL)
	viper.SetDefault("max_sessions", defaults.MaxSessions)
	viper.SetDefault("max_concurrent_detections", defaults.MaxConcurrentDetections)
	viper.SetDefault("detection_cache_ttl", defaults.DetectionCacheTTL)
	viper.SetDefault("max_document_tokens", defaults.MaxDocumentTokens)
	viper.SetDefault("bpe_encoding", defaults.BPEEncoding)
	viper.SetDefault("export_format", defaults.ExportFormat)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.style", "terminal")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./annotator.yaml or ~/.annotator/annotator.yaml)")
	pf.String("input-dir", defaults.InputDir, "directory of .txt documents to annotate")
	pf.String("output-dir", defaults.OutputDir, "directory for exported tag tables")
	pf.String("tokenizer", defaults.Tokenizer, "tokenizer (prose, whitespace)")
	pf.StringSlice("detectors", defaults.Detectors, "entity detectors (prose, gazetteer); empty disables detection")
	pf.Int("max-document-tokens", 0, "reject documents with more BPE tokens than this (0 = unlimited)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-style", "terminal", "log style (terminal, json)")

	mustBindPFlag("input_dir", pf.Lookup("input-dir"))
	mustBindPFlag("output_dir", pf.Lookup("output-dir"))
	mustBindPFlag("tokenizer", pf.Lookup("tokenizer"))
	mustBindPFlag("detectors", pf.Lookup("detectors"))
	mustBindPFlag("max_document_tokens", pf.Lookup("max-document-tokens"))
	mustBindPFlag("log.level", pf.Lookup("log-level"))
	mustBindPFlag("log.style", pf.Lookup("log-style"))
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %q: %v", key, err))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("annotator")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".annotator"))
		}
	}

	viper.SetEnvPrefix("ANNOTATOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig builds the annotator config from viper.
func loadConfig() (annotator.Config, error) {
	var cfg annotator.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
