package opds

import "strings"

// Author represents the feed author or the entry author
type Author struct {
	Name string `xml:"name"`
	URI  string `xml:"uri"`
}

// Entry represents an atom entry in the feed
type Entry struct {
	Title     string   `xml:"title"`
	ID        string   `xml:"id"`
	Updated   *Time    `xml:"updated"`
	Published *Time    `xml:"published"`
	Rights    string   `xml:"rights"`
	Publisher string   `xml:"publisher"`
	Authors   []Author `xml:"author,omitempty"`
	Language  string   `xml:"language"`
	Links     []Link   `xml:"link,omitempty"`
	Summary   Content  `xml:"summary"`
	Content   Content  `xml:"content"`
}

// Content represents the summary or content tag in an entry; the type
// attribute will be html or text
type Content struct {
	Content     string `xml:",innerxml"`
	ContentType string `xml:"type,attr"`
}

// GetLinks returns the links as a fluent Links type for filtering
func (e Entry) GetLinks() Links {
	return Links(e.Links)
}

// AuthorNames returns the entry's named authors in document order.
// Authors without a name are dropped; duplicates are kept.
func (e Entry) AuthorNames() []string {
	var authors []string
	for _, author := range e.Authors {
		if author.Name != "" {
			authors = append(authors, author.Name)
		}
	}
	return authors
}

// SummaryText returns the text content from summary or content fields
func (e Entry) SummaryText() string {
	if e.Summary.Content != "" {
		return e.Summary.Content
	}
	return e.Content.Content
}

// PublisherText returns the Dublin-Core publisher value, trimmed. Feeds
// that nest the publisher as <publisher><name>...</name></publisher> leave
// this empty; Parse recovers those with a second structural scan.
func (e Entry) PublisherText() string {
	return strings.TrimSpace(e.Publisher)
}
