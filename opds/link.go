package opds

import (
	"strings"

	"github.com/evan-buss/opds-client/internal/formats"
)

// Link represents a link to another feed, an image, or a downloadable file
type Link struct {
	Rel      string `xml:"rel,attr"`
	Href     string `xml:"href,attr"`
	TypeLink string `xml:"type,attr"`
	Title    string `xml:"title,attr"`
	// Length is the advertised byte size of the target. String on purpose:
	// servers put non-numeric junk here and it must not fail the decode.
	Length string `xml:"length,attr"`
}

// Links represents a collection of Link objects with fluent filtering
type Links []Link

// Link methods

// IsAcquisition reports whether the link is a downloadable-format link:
// either its rel sits in the OPDS acquisition namespace, or it has norel
// at all but carries a known ebook MIME type.
func (l Link) IsAcquisition() bool {
	if strings.HasPrefix(l.Rel, AcquisitionRel) {
		return true
	}
	return l.Rel == "" && formats.IsAcquisitionType(l.TypeLink)
}

// IsFeed reports whether the link points at another Atom feed
func (l Link) IsFeed() bool {
	return strings.Contains(l.TypeLink, AtomFeedType)
}

// IsCover reports whether the link is a full-size cover image
func (l Link) IsCover() bool {
	return l.Rel == ImageRel || l.Rel == CoverRel
}

// IsThumbnail reports whether the link is a thumbnail image
func (l Link) IsThumbnail() bool {
	return l.Rel == ThumbnailRel
}

// IsSubsection reports whether the link leads into a sub-catalog. A missing
// rel defaults to alternate, matching how permissive feed parsers treat it.
func (l Link) IsSubsection() bool {
	switch l.Rel {
	case "", "alternate", "subsection", SubsectionRel:
		return true
	}
	return false
}

// HasRel checks if the link has the specified rel attribute
func (l Link) HasRel(rel string) bool {
	return l.Rel == rel
}

// Links methods

// Where filters links using the provided predicate function
func (links Links) Where(predicate func(Link) bool) Links {
	var filtered Links
	for _, link := range links {
		if predicate(link) {
			filtered = append(filtered, link)
		}
	}
	return filtered
}

// Acquisitions returns only downloadable-format links, order preserved
func (links Links) Acquisitions() Links {
	return links.Where(Link.IsAcquisition)
}

// Feeds returns only links that target another Atom feed
func (links Links) Feeds() Links {
	return links.Where(Link.IsFeed)
}

// First returns the first link, or nil if the collection is empty
func (links Links) First() *Link {
	if len(links) > 0 {
		return &links[0]
	}
	return nil
}
