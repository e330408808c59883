// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-search/internal/pipeline"
	"github.com/pdiddy/paper-search/internal/query"
	"github.com/pdiddy/paper-search/pkg/types"
)

const defaultUserAgent = "paper-search/0.1"

var fetchCmd = &cobra.Command{
	Use:   "fetch [request...]",
	Short: "Fetch PubMed metadata for a research request",
	Long: `Fetch builds a PubMed query from a natural-language request, retrieves
paper metadata up to the result cap, and writes metadata.csv, metadata.json,
and query.yaml under papers/<query-name>/. Re-running the same request
overwrites that directory.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("max-results", 0, "maximum number of records to fetch (default from config, 20)")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default from config, 30s)")
	fetchCmd.Flags().String("papers-dir", "", "root directory for result directories")
	fetchCmd.Flags().String("sort", "", `esearch sort order ("date" for newest first; default best match)`)
	fetchCmd.Flags().String("model", "", "OpenAI model for query generation")
	fetchCmd.Flags().Bool("no-ai", false, "skip query generation and use the keyword query")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a research request, e.g.: paper-search fetch \"BRAF inhibitors in melanoma\"")
	}
	request := strings.Join(args, " ")

	maxResults, _ := cmd.Flags().GetInt("max-results")
	if maxResults == 0 {
		maxResults = viper.GetInt("max_results")
	}
	noAI, _ := cmd.Flags().GetBool("no-ai")

	cfg := pipelineConfig(cmd, noAI)

	req := query.Request{Text: request, MaxResults: maxResults}
	report, err := pipeline.Run(cmd.Context(), cfg, req, os.Stdout)
	if err != nil {
		return err
	}

	if report.Skipped > 0 {
		fmt.Printf("Done with warnings: %d record(s) skipped.\n", report.Skipped)
	}
	return nil
}

// pipelineConfig assembles the per-run configuration from flags, config
// file, environment, and .secrets/.
func pipelineConfig(cmd *cobra.Command, noAI bool) types.PipelineConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("request_timeout")
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	papersDir, _ := cmd.Flags().GetString("papers-dir")
	if papersDir == "" {
		papersDir = viper.GetString("papers_dir")
	}

	sortOrder, _ := cmd.Flags().GetString("sort")
	if sortOrder == "" {
		sortOrder = viper.GetString("sort")
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("model")
	}

	openaiKey := viper.GetString("api_key")
	if openaiKey == "" {
		openaiKey = loadedSecrets.Get("openai-api-key", "OPENAI_API_KEY")
	}

	ncbiKey := viper.GetString("ncbi_api_key")
	if ncbiKey == "" {
		ncbiKey = loadedSecrets.Get("ncbi-api-key", "NCBI_API_KEY")
	}
	email := viper.GetString("ncbi_email")
	if email == "" {
		email = loadedSecrets.Get("ncbi-email", "NCBI_EMAIL")
	}

	return types.PipelineConfig{
		Query: types.QueryConfig{
			AIConfig: types.AIConfig{
				Model:  model,
				APIKey: openaiKey,
			},
			DisableAI: noAI,
		},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: defaultUserAgent,
			},
			Sort:   sortOrder,
			APIKey: ncbiKey,
			Email:  email,
			Tool:   "paper-search",
		},
		Store: types.StoreConfig{
			PapersDir: papersDir,
		},
	}
}
