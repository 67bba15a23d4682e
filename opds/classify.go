package opds

import "strings"

// Classify determines the feed kind from the raw document. OPDS has no
// explicit type field, so the kind is inferred from link relations and MIME
// types, in priority order (first match wins):
//
//  1. any entry carries an acquisition link → acquisition
//  2. the self link's type declares kind=acquisition or kind=navigation
//  3. any entry carries a link to another Atom feed → navigation
//  4. default → navigation
func Classify(f *Feed) FeedKind {
	for _, entry := range f.Entries {
		if len(entry.GetLinks().Acquisitions()) > 0 {
			return KindAcquisition
		}
	}

	if self := f.SelfLink(); self != nil {
		if strings.Contains(self.TypeLink, "kind=acquisition") {
			return KindAcquisition
		}
		if strings.Contains(self.TypeLink, "kind=navigation") {
			return KindNavigation
		}
	}

	for _, entry := range f.Entries {
		if len(entry.GetLinks().Feeds()) > 0 {
			return KindNavigation
		}
	}

	return KindNavigation
}
