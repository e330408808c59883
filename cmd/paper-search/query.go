// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-search/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query [request...]",
	Short: "Build and print the PubMed query for a request",
	Long: `Query translates a natural-language request into a PubMed search
expression and prints it without fetching anything. Useful for inspecting
what fetch would run.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("model", "", "OpenAI model for query generation")
	queryCmd.Flags().Bool("no-ai", false, "skip query generation and use the keyword query")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a research request")
	}
	request := strings.Join(args, " ")

	noAI, _ := cmd.Flags().GetBool("no-ai")
	cfg := pipelineConfig(cmd, noAI)

	builder := &query.Builder{}
	if !cfg.Query.DisableAI && cfg.Query.APIKey != "" {
		builder.Backend = &query.OpenAIBackend{
			APIKey: cfg.Query.APIKey,
			Model:  cfg.Query.Model,
			Client: &http.Client{Timeout: cfg.Fetch.Timeout},
		}
	}

	// The default result cap only satisfies validation here; nothing is fetched.
	req := query.Request{Text: request, MaxResults: viper.GetInt("max_results")}
	res, err := builder.Build(cmd.Context(), req, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Println(res.Query)
	return nil
}
