// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/pkg/types"
)

// fetchChunk retrieves full metadata for up to one chunk of PMIDs via
// efetch and maps each article to a PaperRecord (R2.1, R3.2).
func (f *Fetcher) fetchChunk(ctx context.Context, pmids []string, cfg types.FetchConfig) ([]types.PaperRecord, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}
	politeParams(params, cfg)

	efetch := endpoint(cfg, "efetch.fcgi")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, efetch+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, efetch)
	}

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	records := make([]types.PaperRecord, 0, len(set.Articles))
	for _, a := range set.Articles {
		r := a.toRecord()
		if r.PMID == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// PubMed efetch XML structures (PubmedArticleSet).
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation medlineCitation `xml:"MedlineCitation"`
	Data     pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID    string         `xml:"PMID"`
	Article medlineArticle `xml:"Article"`
}

type medlineArticle struct {
	Title    string        `xml:"ArticleTitle"`
	Abstract pubmedAbstract `xml:"Abstract"`
	Authors  []pubmedAuthor `xml:"AuthorList>Author"`
	Journal  pubmedJournal  `xml:"Journal"`
}

type pubmedAbstract struct {
	Sections []abstractSection `xml:"AbstractText"`
}

type abstractSection struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type pubmedAuthor struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

type pubmedJournal struct {
	Title   string        `xml:"Title"`
	PubDate pubmedPubDate `xml:"JournalIssue>PubDate"`
}

type pubmedPubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

// toRecord maps one efetch article to a PaperRecord.
func (a pubmedArticle) toRecord() types.PaperRecord {
	r := types.PaperRecord{
		PMID:     strings.TrimSpace(a.Citation.PMID),
		Title:    strings.TrimSpace(a.Citation.Article.Title),
		Journal:  strings.TrimSpace(a.Citation.Article.Journal.Title),
		PubDate:  a.Citation.Article.Journal.PubDate.String(),
		Abstract: a.Citation.Article.Abstract.flatten(),
	}

	for _, au := range a.Citation.Article.Authors {
		if name := au.fullName(); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}

	for _, id := range a.Data.ArticleIDs {
		switch strings.ToLower(id.Type) {
		case "doi":
			r.DOI = strings.TrimSpace(id.Value)
		case "pmc":
			r.PMCID = strings.TrimSpace(id.Value)
		}
	}
	return r
}

type pubmedData struct {
	ArticleIDs []articleID `xml:"ArticleIdList>ArticleId"`
}

type articleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

// flatten joins the abstract sections, prefixing labeled sections with
// "LABEL: " the way structured Medline abstracts are usually rendered.
func (ab pubmedAbstract) flatten() string {
	var parts []string
	for _, s := range ab.Sections {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Label != "" {
			parts = append(parts, s.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// fullName renders an author as "ForeName LastName", falling back to the
// collective name or whatever parts the record carries.
func (au pubmedAuthor) fullName() string {
	if au.CollectiveName != "" {
		return strings.TrimSpace(au.CollectiveName)
	}
	fore := au.ForeName
	if fore == "" {
		fore = au.Initials
	}
	return strings.TrimSpace(strings.TrimSpace(fore) + " " + strings.TrimSpace(au.LastName))
}

// String renders the publication date as "Year[-Month[-Day]]", or the
// MedlineDate range string for records that only carry one.
func (d pubmedPubDate) String() string {
	if d.Year == "" {
		return strings.TrimSpace(d.MedlineDate)
	}
	out := d.Year
	if d.Month != "" {
		out += "-" + d.Month
		if d.Day != "" {
			out += "-" + d.Day
		}
	}
	return out
}
