// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-search pipeline.
// Implements: prd001-query (R3.1);
//
//	prd002-fetch (PaperRecord, R3.2);
//	prd003-store (R2.1).
package types

// PaperRecord holds the metadata for one retrieved PubMed publication.
// PMID is always non-empty and unique within a fetch batch; Abstract, DOI,
// and PMCID may be absent depending on the record.
type PaperRecord struct {
	// PMID is the PubMed identifier.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title as returned by PubMed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the article authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Journal is the full journal title.
	Journal string `json:"journal" yaml:"journal"`

	// PubDate is the publication date, as precise as the record provides
	// (e.g. "2024", "2024-Jan", "2024-Jan-15").
	PubDate string `json:"pub_date" yaml:"pub_date"`

	// Abstract is the article abstract. Structured abstracts are flattened
	// to "LABEL: text" sections joined by a space. Empty when PubMed has none.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// DOI is the digital object identifier, when PubMed reports one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// PMCID is the PubMed Central identifier, when the article has one.
	PMCID string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`
}
