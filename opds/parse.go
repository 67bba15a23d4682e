package opds

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/evan-buss/opds-client/internal/formats"
)

// ParseError indicates the document was unrecoverably malformed and no
// entries at all could be extracted from it.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse OPDS feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes raw feed bytes and classifies them into a NavigationFeed or
// AcquisitionFeed. Real-world feeds are often slightly invalid: a strict
// decode is attempted first, then a lenient one, and the parse only fails
// with a *ParseError when even the lenient pass yields zero entries.
func Parse(data []byte) (*Result, error) {
	feed, err := decodeFeed(data)
	if err != nil {
		return nil, err
	}

	if Classify(feed) == KindAcquisition {
		return &Result{
			Kind:        KindAcquisition,
			Acquisition: parseAcquisition(feed, data),
		}, nil
	}

	return &Result{
		Kind:       KindNavigation,
		Navigation: parseNavigation(feed),
	}, nil
}

func decodeFeed(data []byte) (*Feed, error) {
	var feed Feed
	if err := newDecoder(data, true).Decode(&feed); err == nil {
		return &feed, nil
	}

	var lenient Feed
	err := newDecoder(data, false).Decode(&lenient)
	if err != nil && len(lenient.Entries) == 0 {
		return nil, &ParseError{Err: err}
	}
	return &lenient, nil
}

// newDecoder builds an xml.Decoder for feed bytes. The lenient variant
// accepts HTML entities, unclosed tags, and undeclared charsets.
func newDecoder(data []byte, strict bool) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if !strict {
		d.Strict = false
		d.AutoClose = xml.HTMLAutoClose
		d.Entity = xml.HTMLEntity
	}
	return d
}

const noTitle = "(no title)"

func parseNavigation(feed *Feed) *NavigationFeed {
	nav := &NavigationFeed{Title: feed.Title}

	for _, entry := range feed.Entries {
		title := entry.Title
		if title == "" {
			title = noTitle
		}

		var href string
		for _, link := range entry.Links {
			if link.IsSubsection() {
				href = link.Href
				break
			}
		}
		if href == "" && len(entry.Links) > 0 {
			href = entry.Links[0].Href
		}

		nav.Entries = append(nav.Entries, NavEntry{
			Title:   title,
			URL:     href,
			Content: entry.SummaryText(),
		})
	}

	return nav
}

func parseAcquisition(feed *Feed, data []byte) *AcquisitionFeed {
	acq := &AcquisitionFeed{Title: feed.Title}

	if next := feed.NextLink(); next != nil {
		acq.NextURL = next.Href
	}
	if n, err := strconv.Atoi(feed.TotalResults); err == nil && n > 0 {
		acq.TotalResults = n
	}

	// Second structural pass for <publisher><name> (Calibre-Web style),
	// joined to entries positionally by index. Assumes both passes walk
	// entries in document order; the Atom spec does not strictly guarantee
	// this, a known limitation.
	publishers := scanPublishers(data)

	for i, entry := range feed.Entries {
		title := entry.Title
		if title == "" {
			title = noTitle
		}

		publisher := entry.PublisherText()
		if publisher == "" && i < len(publishers) {
			publisher = publishers[i]
		}

		var coverURL string
		coverFound := false
		var entryFormats []Format
		for _, link := range entry.Links {
			switch {
			case link.IsCover():
				if !coverFound {
					coverURL = link.Href
					coverFound = true
				}
			case link.IsThumbnail():
				// thumbnails never override an already-found cover
				if coverURL == "" {
					coverURL = link.Href
				}
			case link.IsAcquisition():
				entryFormats = append(entryFormats, Format{
					Type: formats.ExtensionForMime(link.TypeLink),
					Mime: link.TypeLink,
					URL:  link.Href,
					Size: parseLength(link.Length),
				})
			}
		}

		acq.Entries = append(acq.Entries, BookEntry{
			Title:     title,
			Authors:   entry.AuthorNames(),
			Formats:   entryFormats,
			Summary:   entry.SummaryText(),
			CoverURL:  coverURL,
			Publisher: publisher,
		})
	}

	return acq
}

func parseLength(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
