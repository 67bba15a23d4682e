package opds

import (
	"errors"
	"strings"
	"testing"
)

const navigationXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Catalog Root</title>
  <link rel="self" type="application/atom+xml;profile=opds-catalog;kind=navigation" href="/opds"/>
  <entry>
    <title>By Author</title>
    <content type="text">Browse by author</content>
    <link rel="subsection" type="application/atom+xml;type=feed;profile=opds-catalog" href="/opds/authors"/>
  </entry>
  <entry>
    <title>Recent</title>
    <link rel="http://opds-spec.org/subsection" type="application/atom+xml" href="recent.xml"/>
  </entry>
  <entry>
    <link rel="search" href="/opds/search"/>
  </entry>
</feed>`

func TestParseNavigation(t *testing.T) {
	res, err := Parse([]byte(navigationXML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if res.Kind != KindNavigation {
		t.Fatalf("Kind = %v, want navigation", res.Kind)
	}
	if res.Navigation == nil || res.Acquisition != nil {
		t.Fatal("Result union must hold exactly the navigation variant")
	}

	nav := res.Navigation
	if nav.Title != "Catalog Root" {
		t.Errorf("Title = %q", nav.Title)
	}
	if len(nav.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(nav.Entries))
	}

	if nav.Entries[0].URL != "/opds/authors" {
		t.Errorf("entry 0 URL = %q", nav.Entries[0].URL)
	}
	if nav.Entries[0].Content != "Browse by author" {
		t.Errorf("entry 0 content = %q", nav.Entries[0].Content)
	}
	// relative hrefs are passed through untouched; resolution is the
	// session's job
	if nav.Entries[1].URL != "recent.xml" {
		t.Errorf("entry 1 URL = %q", nav.Entries[1].URL)
	}
	// no subsection-ish link at all: first link is the fallback, and a
	// missing title gets the placeholder
	if nav.Entries[2].URL != "/opds/search" {
		t.Errorf("entry 2 URL = %q", nav.Entries[2].URL)
	}
	if nav.Entries[2].Title != "(no title)" {
		t.Errorf("entry 2 title = %q", nav.Entries[2].Title)
	}
}

const acquisitionXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:dcterms="http://purl.org/dc/terms/"
      xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <title>Search Results</title>
  <opensearch:totalResults>2</opensearch:totalResults>
  <link rel="next" href="page2.xml"/>
  <entry>
    <title>First Book</title>
    <author><name>Alice Author</name></author>
    <author><name>Bob Builder</name></author>
    <author><uri>http://example.com/anon</uri></author>
    <summary type="text">A fine book</summary>
    <dcterms:publisher>Named House</dcterms:publisher>
    <link rel="http://opds-spec.org/image/thumbnail" href="/thumb1.jpg" type="image/jpeg"/>
    <link rel="http://opds-spec.org/cover" href="/cover1.jpg" type="image/jpeg"/>
    <link rel="http://opds-spec.org/acquisition" type="application/epub+zip" href="/dl/1.epub" length="102400"/>
    <link rel="http://opds-spec.org/acquisition" type="application/pdf" href="/dl/1.pdf" length="oops"/>
  </entry>
  <entry>
    <title>Second Book</title>
    <publisher><name>Acme</name></publisher>
    <link rel="http://opds-spec.org/image" href="/cover2.jpg" type="image/jpeg"/>
    <link rel="http://opds-spec.org/image/thumbnail" href="/thumb2.jpg" type="image/jpeg"/>
    <link rel="http://opds-spec.org/acquisition/buy" type="application/x-custom-book" href="/dl/2.bin"/>
    <link type="application/fb2" href="/dl/2.fb2"/>
    <link rel="http://opds-spec.org/acquisition/open-access" type="application/x-cbz" href="/dl/2.cbz" length="0"/>
  </entry>
</feed>`

func TestParseAcquisition(t *testing.T) {
	res, err := Parse([]byte(acquisitionXML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if res.Kind != KindAcquisition {
		t.Fatalf("Kind = %v, want acquisition", res.Kind)
	}
	if res.Acquisition == nil || res.Navigation != nil {
		t.Fatal("Result union must hold exactly the acquisition variant")
	}

	acq := res.Acquisition
	if acq.NextURL != "page2.xml" {
		t.Errorf("NextURL = %q, want page2.xml", acq.NextURL)
	}
	if acq.TotalResults != 2 {
		t.Errorf("TotalResults = %d, want 2", acq.TotalResults)
	}
	if len(acq.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(acq.Entries))
	}

	first := acq.Entries[0]
	if first.Title != "First Book" {
		t.Errorf("title = %q", first.Title)
	}
	// only named authors, order preserved
	if len(first.Authors) != 2 || first.Authors[0] != "Alice Author" || first.Authors[1] != "Bob Builder" {
		t.Errorf("authors = %v", first.Authors)
	}
	if first.Summary != "A fine book" {
		t.Errorf("summary = %q", first.Summary)
	}
	if first.Publisher != "Named House" {
		t.Errorf("publisher = %q, want dcterms value", first.Publisher)
	}
	// later cover link beats the earlier thumbnail
	if first.CoverURL != "/cover1.jpg" {
		t.Errorf("cover = %q, want /cover1.jpg", first.CoverURL)
	}
	if len(first.Formats) != 2 {
		t.Fatalf("got %d formats, want 2", len(first.Formats))
	}
	if f := first.Formats[0]; f.Type != "epub" || f.Size != 102400 || f.URL != "/dl/1.epub" {
		t.Errorf("format 0 = %+v", f)
	}
	// non-numeric length defaults to 0
	if f := first.Formats[1]; f.Type != "pdf" || f.Size != 0 {
		t.Errorf("format 1 = %+v", f)
	}

	second := acq.Entries[1]
	// structural <publisher><name> fallback, joined by index
	if second.Publisher != "Acme" {
		t.Errorf("publisher = %q, want Acme via fallback scan", second.Publisher)
	}
	// thumbnail after the cover never overrides it
	if second.CoverURL != "/cover2.jpg" {
		t.Errorf("cover = %q, want /cover2.jpg", second.CoverURL)
	}
	if len(second.Formats) != 3 {
		t.Fatalf("got %d formats, want 3", len(second.Formats))
	}
	// rel-prefixed link with an unmapped MIME falls back to the subtype
	if f := second.Formats[0]; f.Type != "x-custom-book" {
		t.Errorf("format 0 type = %q", f.Type)
	}
	// a bare link qualifies only through its ebook MIME
	if f := second.Formats[1]; f.Type != "fb2" {
		t.Errorf("format 1 type = %q", f.Type)
	}
	if f := second.Formats[2]; f.Type != "cbz" {
		t.Errorf("format 2 type = %q", f.Type)
	}
}

func TestParseRoundTripOrder(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom"><title>Bulk</title>`)
	for i := 0; i < 5; i++ {
		sb.WriteString(`<entry><title>Book</title>`)
		for j := 0; j < 3; j++ {
			sb.WriteString(`<link rel="http://opds-spec.org/acquisition" type="application/epub+zip" href="/dl"/>`)
		}
		sb.WriteString(`</entry>`)
	}
	sb.WriteString(`</feed>`)

	res, err := Parse([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Kind != KindAcquisition {
		t.Fatalf("Kind = %v", res.Kind)
	}
	if len(res.Acquisition.Entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(res.Acquisition.Entries))
	}
	for i, entry := range res.Acquisition.Entries {
		if len(entry.Formats) != 3 {
			t.Errorf("entry %d: got %d formats, want 3", i, len(entry.Formats))
		}
	}
}

func TestParseEmptyFormats(t *testing.T) {
	// acquisition by self-link hint, entry with nothing downloadable
	data := `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Sparse</title>
  <link rel="self" type="application/atom+xml;kind=acquisition" href="/x"/>
  <entry><title>Ghost Book</title></entry>
</feed>`

	res, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Kind != KindAcquisition {
		t.Fatalf("Kind = %v", res.Kind)
	}
	entry := res.Acquisition.Entries[0]
	if len(entry.Formats) != 0 {
		t.Errorf("formats = %v, want none", entry.Formats)
	}
}

func TestParseMalformedButRecoverable(t *testing.T) {
	// undefined entity and a stray end tag: strict decode fails, the
	// lenient pass must still surface the entries
	data := `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Scrappy&nbsp;Server</title>
  <entry>
    <title>Still Here</title>
    <link rel="http://opds-spec.org/acquisition" type="application/epub+zip" href="/dl/1.epub"/>
  </entry>
  </wrong>
</feed>`

	res, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed on recoverable input: %v", err)
	}
	if res.Kind != KindAcquisition {
		t.Fatalf("Kind = %v", res.Kind)
	}
	if len(res.Acquisition.Entries) != 1 || res.Acquisition.Entries[0].Title != "Still Here" {
		t.Errorf("entries = %+v", res.Acquisition.Entries)
	}
}

func TestParseUnrecoverable(t *testing.T) {
	_, err := Parse([]byte("this is not xml <<<"))
	if err == nil {
		t.Fatal("expected error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
}

func TestParseBadTotalResults(t *testing.T) {
	data := `<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <title>Odd</title>
  <opensearch:totalResults>many</opensearch:totalResults>
  <entry>
    <title>B</title>
    <link rel="http://opds-spec.org/acquisition" type="application/epub+zip" href="/b.epub"/>
  </entry>
</feed>`

	res, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Acquisition.TotalResults != 0 {
		t.Errorf("TotalResults = %d, want 0 for non-numeric", res.Acquisition.TotalResults)
	}
}

func TestScanPublishers(t *testing.T) {
	data := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><publisher><name>Acme</name></publisher></entry>
  <entry><title>No publisher</title></entry>
  <entry><publisher>Bare Text</publisher></entry>
</feed>`

	pubs := scanPublishers([]byte(data))
	want := []string{"Acme", "", "Bare Text"}
	if len(pubs) != len(want) {
		t.Fatalf("got %d publishers, want %d", len(pubs), len(want))
	}
	for i := range want {
		if pubs[i] != want[i] {
			t.Errorf("publisher %d = %q, want %q", i, pubs[i], want[i])
		}
	}
}

func TestScanPublishersGarbage(t *testing.T) {
	if pubs := scanPublishers([]byte("<feed><entry><")); pubs != nil {
		t.Errorf("got %v, want nil for malformed input", pubs)
	}
}
