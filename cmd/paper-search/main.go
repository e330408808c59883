// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-search CLI.
// Implements: prd001-query, prd002-fetch, prd003-store (CLI surface).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-search/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the paper-search CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-search",
	Short: "Turn research questions into PubMed result sets",
	Long: `paper-search converts a natural-language research request into a PubMed
query, downloads the matching paper metadata via the NCBI E-utilities API,
and saves it as CSV and JSON under papers/<query-name>/.

Query generation uses the OpenAI API when a key is configured and falls
back to a deterministic keyword query otherwise.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is honored before viper reads the environment.
		godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-search.yaml or ~/.config/paper-search/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-search")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-search"))
		}
	}

	viper.SetEnvPrefix("PAPER_SEARCH")
	viper.AutomaticEnv()

	viper.SetDefault("max_results", 20)
	viper.SetDefault("request_timeout", "30s")
	viper.SetDefault("model", "gpt-4o")
	viper.SetDefault("papers_dir", "papers")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
