// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves PubMed records for a query via the NCBI
// E-utilities API.
// Implements: prd002-fetch (R1-R5);
//
//	docs/ARCHITECTURE § Paper Fetcher.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/pkg/types"
)

// defaultBaseURL is the NCBI E-utilities root. FetchConfig.BaseURL
// overrides it; tests point it at an httptest server.
const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const (
	defaultPageSize  = 100
	defaultChunkSize = 50
)

// endpoint joins the configured E-utilities root with an endpoint name.
func endpoint(cfg types.FetchConfig, name string) string {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}

// FetchError reports a fatal failure of the search call itself: a rejected
// query or an unreachable service. Per-record metadata failures are not
// fatal and surface as the result's skipped count instead.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("pubmed %s: %v", e.Op, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// ErrBadMaxResults rejects a non-positive result cap before any network call.
var ErrBadMaxResults = fmt.Errorf("max results out of range")

// Fetcher executes PubMed searches and metadata retrieval.
type Fetcher struct {
	Client *http.Client
}

// Result holds the ordered records from one fetch plus the count of
// identifiers whose metadata could not be retrieved after retries (R4.3).
type Result struct {
	Records []types.PaperRecord
	Skipped int
}

// Fetch submits the query to esearch, paginates the PMID list up to
// cfg.MaxResults, and retrieves metadata for each PMID via efetch in chunks.
// Records preserve the esearch ranking order (R1.3). A chunk that still
// fails after the retry budget only skips its own PMIDs; a failure of the
// search itself is fatal and returns a *FetchError (R4.1, R4.2).
func (f *Fetcher) Fetch(ctx context.Context, query string, cfg types.FetchConfig, w io.Writer) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, &FetchError{Op: "search", Err: fmt.Errorf("query is empty")}
	}
	if cfg.MaxResults <= 0 {
		return Result{}, fmt.Errorf("%w: max results must be positive, got %d", ErrBadMaxResults, cfg.MaxResults)
	}

	ids, err := f.search(ctx, query, cfg)
	if err != nil {
		return Result{}, err
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No records matched the query.")
		return Result{}, nil
	}
	fmt.Fprintf(w, "Found %d record(s)\n", len(ids))

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	byID := make(map[string]types.PaperRecord, len(ids))
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		records, err := f.fetchChunk(ctx, chunk, cfg)
		if err != nil {
			fmt.Fprintf(w, "warning: metadata fetch failed for %d record(s): %v\n", len(chunk), err)
			continue
		}
		for _, r := range records {
			byID[r.PMID] = r
		}
	}

	// Assemble in esearch order; anything missing counts as skipped,
	// whether its chunk failed or PubMed omitted the record.
	result := Result{Records: make([]types.PaperRecord, 0, len(ids))}
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			result.Skipped++
			continue
		}
		result.Records = append(result.Records, r)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(w, "warning: %d record(s) skipped\n", result.Skipped)
	}
	return result, nil
}

// esearchResponse mirrors the esearch.fcgi JSON body.
type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// search pages through esearch until cfg.MaxResults PMIDs are collected or
// the result list is exhausted (R1.2). The returned PMIDs are unique and in
// ranking order.
func (f *Fetcher) search(ctx context.Context, query string, cfg types.FetchConfig) ([]string, error) {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	seen := make(map[string]bool)
	var ids []string

	for start := 0; len(ids) < cfg.MaxResults; start += pageSize {
		retmax := pageSize
		if remaining := cfg.MaxResults - len(ids); remaining < retmax {
			retmax = remaining
		}

		params := url.Values{
			"db":       {"pubmed"},
			"term":     {query},
			"retmode":  {"json"},
			"retmax":   {strconv.Itoa(retmax)},
			"retstart": {strconv.Itoa(start)},
		}
		if cfg.Sort != "" {
			params.Set("sort", cfg.Sort)
		}
		politeParams(params, cfg)

		var page esearchResponse
		if err := f.getJSON(ctx, endpoint(cfg, "esearch.fcgi"), params, cfg, &page); err != nil {
			return nil, &FetchError{Op: "search", Err: err}
		}

		for _, id := range page.ESearchResult.IDList {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}

		if len(page.ESearchResult.IDList) < retmax {
			break
		}
	}

	if len(ids) > cfg.MaxResults {
		ids = ids[:cfg.MaxResults]
	}
	return ids, nil
}

// getJSON performs a GET with retry and decodes the JSON body into v.
func (f *Fetcher) getJSON(ctx context.Context, endpoint string, params url.Values, cfg types.FetchConfig, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// politeParams attaches the NCBI usage-policy parameters when configured.
func politeParams(params url.Values, cfg types.FetchConfig) {
	if cfg.APIKey != "" {
		params.Set("api_key", cfg.APIKey)
	}
	if cfg.Email != "" {
		params.Set("email", cfg.Email)
	}
	if cfg.Tool != "" {
		params.Set("tool", cfg.Tool)
	}
}
