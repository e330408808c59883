package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-search/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds settings for the generative-text API used to build queries.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// QueryConfig holds settings for the query-building stage.
type QueryConfig struct {
	AIConfig `yaml:",inline"`

	// DisableAI skips the generative backend entirely and uses the
	// deterministic keyword query.
	DisableAI bool `json:"disable_ai" yaml:"disable_ai"`
}

// FetchConfig holds settings for the PubMed fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL overrides the NCBI E-utilities root. Empty means the public
	// endpoint; tests point it at a local server.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxResults is the maximum number of records to retrieve.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// PageSize is the esearch page size (default 100). Requests larger than
	// one page paginate with retstart.
	PageSize int `json:"page_size" yaml:"page_size"`

	// ChunkSize is the number of PMIDs per efetch metadata call (default 50).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// Sort is the esearch sort order. Empty means PubMed best-match
	// relevance; "date" sorts newest first.
	Sort string `json:"sort,omitempty" yaml:"sort,omitempty"`

	// APIKey is an optional NCBI API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email identifies the caller to NCBI per the E-utilities usage policy.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// Tool is the tool name reported to NCBI alongside Email.
	Tool string `json:"tool,omitempty" yaml:"tool,omitempty"`
}

// StoreConfig holds settings for the result-store stage.
type StoreConfig struct {
	// PapersDir is the root directory for result directories (default "papers").
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`
}

// PipelineConfig groups all stage configurations for one pipeline run.
type PipelineConfig struct {
	Query QueryConfig `json:"query" yaml:"query"`
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`
	Store StoreConfig `json:"store" yaml:"store"`
}
