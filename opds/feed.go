package opds

// MIME type identifying OPDS navigation feed links
const NavigationFeedType string = "application/atom+xml;type=feed;profile=opds-catalog"

// AtomFeedType is the base Atom MIME type; a link whose type contains it
// points at another feed rather than a downloadable resource.
const AtomFeedType string = "application/atom+xml"

// OPDS link relation namespace
const (
	AcquisitionRel = "http://opds-spec.org/acquisition"
	ImageRel       = "http://opds-spec.org/image"
	CoverRel       = "http://opds-spec.org/cover"
	ThumbnailRel   = "http://opds-spec.org/image/thumbnail"
	SubsectionRel  = "http://opds-spec.org/subsection"
)

// Feed represents the root element of an Atom/OPDS document as it appears
// on the wire. It is the raw form; Parse converts it into a NavigationFeed
// or AcquisitionFeed.
type Feed struct {
	ID      string  `xml:"id"`
	Title   string  `xml:"title"`
	Updated Time    `xml:"updated"`
	Entries []Entry `xml:"entry"`
	Links   []Link  `xml:"link"`
	// TotalResults is the opensearch result count. Kept as a string so a
	// server emitting garbage here cannot fail the whole decode.
	TotalResults string `xml:"totalResults"`
	ItemsPerPage string `xml:"itemsPerPage"`
}

// GetLinks returns the feed-level links as a fluent Links type for filtering
func (f Feed) GetLinks() Links {
	return Links(f.Links)
}

// SelfLink returns the feed's self-referencing link, or nil if absent
func (f Feed) SelfLink() *Link {
	return f.GetLinks().Where(func(l Link) bool { return l.Rel == "self" }).First()
}

// NextLink returns the feed-level pagination link, or nil if absent
func (f Feed) NextLink() *Link {
	return f.GetLinks().Where(func(l Link) bool { return l.Rel == "next" }).First()
}
