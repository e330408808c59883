// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists fetched paper metadata as CSV and JSON under a
// query-named result directory.
// Implements: prd003-store (R1-R4);
//
//	docs/ARCHITECTURE § Result Store.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-search/pkg/types"
)

const (
	csvFile   = "metadata.csv"
	jsonFile  = "metadata.json"
	queryFile = "query.yaml"
)

// csvHeader defines the column order in metadata.csv.
var csvHeader = []string{"pmid", "title", "authors", "journal", "pub_date", "abstract", "doi", "pmcid"}

// StorageError reports a fatal filesystem failure with the offending path.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Path, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// RunInfo records the query that produced a result directory, so a saved
// search can be inspected and repeated without the original request.
type RunInfo struct {
	Request      string `yaml:"request,omitempty"`
	Query        string `yaml:"query"`
	UsedFallback bool   `yaml:"used_fallback,omitempty"`
	MaxResults   int    `yaml:"max_results"`
	Saved        int    `yaml:"saved"`
	Skipped      int    `yaml:"skipped,omitempty"`
}

// ResultDir describes the files written for one query.
type ResultDir struct {
	Dir       string
	CSVPath   string
	JSONPath  string
	QueryPath string
}

// Store writes result sets under PapersDir (default "papers").
type Store struct {
	PapersDir string
}

// Save writes records as metadata.csv and metadata.json, plus a query.yaml
// sidecar, under PapersDir/<sanitized name>/. An existing directory of the
// same name is overwritten (R1.2). Each file is written to a temporary path
// and renamed into place so no partial file survives a failure (R4.1).
func (s *Store) Save(name string, records []types.PaperRecord, info RunInfo) (ResultDir, error) {
	root := s.PapersDir
	if root == "" {
		root = "papers"
	}
	dir := filepath.Join(root, Sanitize(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ResultDir{}, &StorageError{Path: dir, Err: err}
	}

	if records == nil {
		records = []types.PaperRecord{}
	}

	out := ResultDir{
		Dir:       dir,
		CSVPath:   filepath.Join(dir, csvFile),
		JSONPath:  filepath.Join(dir, jsonFile),
		QueryPath: filepath.Join(dir, queryFile),
	}

	if err := writeAtomic(out.CSVPath, func(w io.Writer) error {
		return writeCSV(w, records)
	}); err != nil {
		return ResultDir{}, err
	}

	if err := writeAtomic(out.JSONPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}); err != nil {
		return ResultDir{}, err
	}

	if err := writeAtomic(out.QueryPath, func(w io.Writer) error {
		return yaml.NewEncoder(w).Encode(info)
	}); err != nil {
		return ResultDir{}, err
	}

	return out, nil
}

// Load reads metadata.json back from PapersDir/<sanitized name>/. It is the
// inverse of Save for the JSON view of the result set.
func (s *Store) Load(name string) ([]types.PaperRecord, error) {
	root := s.PapersDir
	if root == "" {
		root = "papers"
	}
	path := filepath.Join(root, Sanitize(name), jsonFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Err: err}
	}

	var records []types.PaperRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &StorageError{Path: path, Err: err}
	}
	return records, nil
}

// writeCSV writes the header row plus one row per record. Missing optional
// fields become empty cells; authors are joined with "; " (R2.2).
func writeCSV(w io.Writer, records []types.PaperRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.PMID,
			r.Title,
			strings.Join(r.Authors, "; "),
			r.Journal,
			r.PubDate,
			r.Abstract,
			r.DOI,
			r.PMCID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeAtomic writes via a temp file in the destination directory and
// renames it into place.
func writeAtomic(destPath string, write func(io.Writer) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".store-*.tmp")
	if err != nil {
		return &StorageError{Path: destPath, Err: err}
	}
	tmpPath := tmpFile.Name()

	writeErr := write(tmpFile)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return &StorageError{Path: destPath, Err: writeErr}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return &StorageError{Path: destPath, Err: closeErr}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return &StorageError{Path: destPath, Err: err}
	}
	return nil
}

// Sanitize converts a query name into a filesystem-safe directory name:
// lowercased, with runs of anything that is not a letter or digit collapsed
// to single hyphens. An empty result becomes "unnamed-query" (R1.1).
func Sanitize(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	out := b.String()
	if out == "" {
		return "unnamed-query"
	}
	return out
}
