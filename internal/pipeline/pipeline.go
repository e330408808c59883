// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires query building, PubMed fetching, and result
// storage into a single run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/paper-search/internal/fetch"
	"github.com/pdiddy/paper-search/internal/query"
	"github.com/pdiddy/paper-search/internal/store"
	"github.com/pdiddy/paper-search/pkg/types"
)

// Report summarizes one pipeline run.
type Report struct {
	// Query is the PubMed expression that was executed.
	Query string

	// UsedFallback is true when the deterministic keyword query was used.
	UsedFallback bool

	// Records are the saved paper records, in ranking order.
	Records []types.PaperRecord

	// Skipped counts identifiers whose metadata could not be retrieved.
	Skipped int

	// Files locates the result directory that was written.
	Files store.ResultDir
}

// Run executes one request end to end: validate, build the query, fetch the
// records, and save them under a directory named from the request text.
// Each run is independent; no state is shared between invocations beyond
// the result directories on disk.
func Run(ctx context.Context, cfg types.PipelineConfig, req query.Request, w io.Writer) (Report, error) {
	builder := &query.Builder{}
	if !cfg.Query.DisableAI && cfg.Query.APIKey != "" {
		builder.Backend = &query.OpenAIBackend{
			APIKey: cfg.Query.APIKey,
			Model:  cfg.Query.Model,
			Client: &http.Client{Timeout: cfg.Fetch.Timeout},
		}
	}

	fetcher := &fetch.Fetcher{
		Client: &http.Client{Timeout: cfg.Fetch.Timeout},
	}
	st := &store.Store{PapersDir: cfg.Store.PapersDir}

	return run(ctx, builder, fetcher, st, cfg.Fetch, req, w)
}

// run is the testable core of Run: collaborators are supplied by the caller.
func run(ctx context.Context, builder *query.Builder, fetcher *fetch.Fetcher, st *store.Store, fetchCfg types.FetchConfig, req query.Request, w io.Writer) (Report, error) {
	qres, err := builder.Build(ctx, req, w)
	if err != nil {
		return Report{}, err
	}
	fmt.Fprintf(w, "PubMed query: %s\n", qres.Query)

	fetchCfg.MaxResults = req.MaxResults
	fres, err := fetcher.Fetch(ctx, qres.Query, fetchCfg, w)
	if err != nil {
		return Report{}, err
	}

	files, err := st.Save(req.Text, fres.Records, store.RunInfo{
		Request:      req.Text,
		Query:        qres.Query,
		UsedFallback: qres.UsedFallback,
		MaxResults:   req.MaxResults,
		Saved:        len(fres.Records),
		Skipped:      fres.Skipped,
	})
	if err != nil {
		return Report{}, err
	}

	fmt.Fprintf(w, "Saved %d record(s) to %s\n", len(fres.Records), files.Dir)

	return Report{
		Query:        qres.Query,
		UsedFallback: qres.UsedFallback,
		Records:      fres.Records,
		Skipped:      fres.Skipped,
		Files:        files,
	}, nil
}
