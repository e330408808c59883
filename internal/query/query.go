// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query converts natural-language research requests into PubMed
// boolean search expressions.
// Implements: prd001-query (R1-R4);
//
//	docs/ARCHITECTURE § Query Builder.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ErrInvalidRequest reports malformed pipeline input: empty request text or
// a non-positive result count. It is never retried.
var ErrInvalidRequest = errors.New("invalid request")

// Request is a free-text research request plus the result cap for the run.
type Request struct {
	// Text is the natural-language description of what literature to find.
	Text string

	// MaxResults is the maximum number of records to retrieve. Callers apply
	// their default before validation; zero or negative is rejected.
	MaxResults int
}

// Validate checks the request before any network call is made (R1.1).
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: request text is empty", ErrInvalidRequest)
	}
	if r.MaxResults <= 0 {
		return fmt.Errorf("%w: max results must be positive, got %d", ErrInvalidRequest, r.MaxResults)
	}
	return nil
}

// Backend generates a PubMed query from a research request. Implementations
// call a generative-text API per the Strategy pattern (R2.2); tests supply
// a mock.
type Backend interface {
	GenerateQuery(ctx context.Context, request string) (string, error)
}

// Builder converts research requests into PubMed search expressions.
// A nil Backend disables AI generation and the deterministic keyword query
// is used directly.
type Builder struct {
	Backend Backend
}

// Result holds the built query and how it was produced.
type Result struct {
	// Query is the PubMed search expression. Never empty.
	Query string

	// UsedFallback is true when the deterministic keyword query was used,
	// either because no backend is configured or generation failed (R2.4).
	UsedFallback bool

	// FallbackReason describes why generation was abandoned, when it was
	// attempted and failed.
	FallbackReason string
}

// Build validates the request and produces a PubMed query. Generation
// failures are recovered locally via the keyword fallback and reported as a
// warning on w; they are never fatal (R2.4, R4.1).
func (b *Builder) Build(ctx context.Context, req Request, w io.Writer) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	if b.Backend == nil {
		return Result{Query: FallbackQuery(req.Text), UsedFallback: true}, nil
	}

	generated, err := b.Backend.GenerateQuery(ctx, req.Text)
	if err == nil {
		q := normalizeGenerated(generated)
		if wellFormed(q) {
			return Result{Query: q}, nil
		}
		err = fmt.Errorf("generated query is empty or unbalanced: %q", q)
	}

	fmt.Fprintf(w, "warning: query generation failed, using keyword fallback: %v\n", err)
	return Result{
		Query:          FallbackQuery(req.Text),
		UsedFallback:   true,
		FallbackReason: err.Error(),
	}, nil
}

// stopWords lists request filler that carries no search value. Keyword
// extraction drops these; everything else is joined with AND.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"for": true, "to": true, "with": true, "and": true, "or": true,
	"not": true, "by": true, "from": true, "about": true, "is": true,
	"are": true, "find": true, "show": true, "me": true, "get": true,
	"search": true, "recent": true, "latest": true, "new": true,
	"paper": true, "papers": true, "article": true, "articles": true,
	"study": true, "studies": true, "research": true, "literature": true,
	"past": true, "last": true, "year": true, "years": true,
}

// FallbackQuery builds a deterministic PubMed query by joining the request's
// keywords with AND (R2.5). A request with no usable keywords yields the
// broad "all[sb]" query rather than an empty expression (R4.2).
func FallbackQuery(text string) string {
	var terms []string
	for _, tok := range tokenize(text) {
		if stopWords[tok] {
			continue
		}
		terms = append(terms, tok)
	}
	if len(terms) == 0 {
		return "all[sb]"
	}
	return strings.Join(terms, " AND ")
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit, or hyphen.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	var toks []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f != "" {
			toks = append(toks, f)
		}
	}
	return toks
}

// normalizeGenerated cleans up a model response: code fences and surrounding
// quotes are stripped and internal newlines collapsed to single spaces.
func normalizeGenerated(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "\n"); idx >= 0 && !strings.ContainsAny(s[:idx], "()[] ") {
			// Drop a language tag on the opening fence.
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && strings.Count(s, `"`) == 2 {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// wellFormed reports whether a generated query is non-empty with balanced
// parentheses, brackets, and double quotes (R2.3).
func wellFormed(q string) bool {
	if q == "" {
		return false
	}
	parens, brackets, quotes := 0, 0, 0
	for _, r := range q {
		switch r {
		case '(':
			parens++
		case ')':
			parens--
		case '[':
			brackets++
		case ']':
			brackets--
		case '"':
			quotes++
		}
		if parens < 0 || brackets < 0 {
			return false
		}
	}
	return parens == 0 && brackets == 0 && quotes%2 == 0
}
