// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-search/pkg/types"
)

func sampleRecords() []types.PaperRecord {
	return []types.PaperRecord{
		{
			PMID:     "38012345",
			Title:    "BRAF inhibition in metastatic melanoma",
			Authors:  []string{"Jane Smith", "Wei Chen"},
			Journal:  "Journal of Testing",
			PubDate:  "2024-Jan-15",
			Abstract: "BACKGROUND: Something. RESULTS: Something else.",
			DOI:      "10.1000/test.1",
			PMCID:    "PMC1234567",
		},
		{
			PMID:    "38012346",
			Title:   "A record with no abstract",
			Authors: []string{"Ana Souza"},
			Journal: "Journal of Testing",
			PubDate: "2023",
		},
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BRAF inhibitors in melanoma", "braf-inhibitors-in-melanoma"},
		{"  spaces   and\ttabs ", "spaces-and-tabs"},
		{`quotes "and" (parens)`, "quotes-and-parens"},
		{"covid-19 / vaccines", "covid-19-vaccines"},
		{"___", "unnamed-query"},
		{"", "unnamed-query"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}
	records := sampleRecords()

	out, err := s.Save("BRAF inhibitors in melanoma", records, RunInfo{Query: "braf AND melanoma"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.PapersDir, "braf-inhibitors-in-melanoma"), out.Dir)

	loaded, err := s.Load("BRAF inhibitors in melanoma")
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestSaveCSVShape(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}
	records := sampleRecords()

	out, err := s.Save("braf", records, RunInfo{})
	require.NoError(t, err)

	f, err := os.Open(out.CSVPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, len(records)+1, "header plus one row per record")
	assert.Equal(t, csvHeader, rows[0])

	assert.Equal(t, "38012345", rows[1][0])
	assert.Equal(t, "Jane Smith; Wei Chen", rows[1][2])

	// Missing optional fields become empty cells.
	assert.Equal(t, "", rows[2][5], "abstract cell")
	assert.Equal(t, "", rows[2][6], "doi cell")
	assert.Equal(t, "", rows[2][7], "pmcid cell")
}

func TestSaveIdempotent(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}
	records := sampleRecords()
	info := RunInfo{Request: "braf", Query: "braf", MaxResults: 5, Saved: 2}

	out1, err := s.Save("braf", records, info)
	require.NoError(t, err)
	first := readAll(t, out1)

	out2, err := s.Save("braf", records, info)
	require.NoError(t, err)
	second := readAll(t, out2)

	assert.Equal(t, first, second, "repeated saves must produce identical files")
}

func TestSaveOverwrites(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}

	_, err := s.Save("braf", sampleRecords(), RunInfo{})
	require.NoError(t, err)

	one := sampleRecords()[:1]
	_, err = s.Save("braf", one, RunInfo{})
	require.NoError(t, err)

	loaded, err := s.Load("braf")
	require.NoError(t, err)
	assert.Equal(t, one, loaded)
}

func TestSaveEmptyResultSet(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}

	out, err := s.Save("nothing found", nil, RunInfo{Query: "all[sb]"})
	require.NoError(t, err)

	loaded, err := s.Load("nothing found")
	require.NoError(t, err)
	assert.Empty(t, loaded)

	f, err := os.Open(out.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestSaveWritesQueryFile(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}
	info := RunInfo{
		Request:      "BRAF inhibitors in melanoma",
		Query:        "braf AND inhibitors AND melanoma",
		UsedFallback: true,
		MaxResults:   5,
		Saved:        2,
		Skipped:      1,
	}

	out, err := s.Save("BRAF inhibitors in melanoma", sampleRecords(), info)
	require.NoError(t, err)

	data, err := os.ReadFile(out.QueryPath)
	require.NoError(t, err)

	var got RunInfo
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, info, got)
}

func TestSaveNoTempFilesLeftBehind(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}

	out, err := s.Save("braf", sampleRecords(), RunInfo{})
	require.NoError(t, err)

	entries, err := os.ReadDir(out.Dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"metadata.csv", "metadata.json", "query.yaml"}, names)
}

func TestLoadMissingDirectory(t *testing.T) {
	s := &Store{PapersDir: t.TempDir()}

	_, err := s.Load("never saved")
	require.Error(t, err)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Path, "never-saved")
}

func readAll(t *testing.T, dir ResultDir) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, p := range []string{dir.CSVPath, dir.JSONPath, dir.QueryPath} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		out[filepath.Base(p)] = string(data)
	}
	return out
}
