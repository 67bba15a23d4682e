package opds

// Normalized feed model. Parse validates and defaults every field here so
// callers never re-check for missing data.

// FeedKind identifies which variant of the feed union was produced
type FeedKind int

const (
	// KindNavigation is a folder of links to further feeds
	KindNavigation FeedKind = iota
	// KindAcquisition is a page of downloadable publications
	KindAcquisition
)

func (k FeedKind) String() string {
	if k == KindAcquisition {
		return "acquisition"
	}
	return "navigation"
}

// NavEntry is one link in a navigation feed. URL may be relative to the
// feed's own URL and must be resolved against it before use.
type NavEntry struct {
	Title   string
	URL     string
	Content string
}

// Format is one downloadable rendition of a publication
type Format struct {
	// Type is the short extension, e.g. "epub"
	Type string
	// Mime is the declared MIME type
	Mime string
	// URL is the acquisition href, possibly relative
	URL string
	// Size is the advertised byte count; 0 means unknown
	Size int64
}

// BookEntry is one publication in an acquisition feed. Formats may be
// empty: the entry has nothing downloadable and callers must refuse a
// download with an explanation rather than an error.
type BookEntry struct {
	Title     string
	Authors   []string
	Formats   []Format
	Summary   string
	CoverURL  string
	Publisher string
}

// NavigationFeed is a parsed folder feed
type NavigationFeed struct {
	Title   string
	Entries []NavEntry
}

// AcquisitionFeed is a parsed page of publications
type AcquisitionFeed struct {
	Title   string
	Entries []BookEntry
	// NextURL is the pagination link href, empty when the feed is the
	// last page
	NextURL string
	// TotalResults is the opensearch total count; 0 means unknown
	TotalResults int
}

// Result is the closed two-variant union produced by Parse. Exactly one of
// Navigation and Acquisition is non-nil, matching Kind.
type Result struct {
	Kind        FeedKind
	Navigation  *NavigationFeed
	Acquisition *AcquisitionFeed
}

// Title returns the title of whichever variant is populated
func (r *Result) Title() string {
	if r.Kind == KindAcquisition {
		return r.Acquisition.Title
	}
	return r.Navigation.Title
}

// NextURL returns the pagination href for acquisition results and "" for
// navigation results
func (r *Result) NextURL() string {
	if r.Kind == KindAcquisition {
		return r.Acquisition.NextURL
	}
	return ""
}
