package opds

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

const atomNS = "http://www.w3.org/2005/Atom"

// scanPublishers walks the raw XML a second time and collects one publisher
// string per entry, in document order. Some servers (notably Calibre-Web)
// nest the value as <publisher><name>...</name></publisher>, which the
// struct decode cannot surface as a plain field. Entries without a
// publisher yield "". A scan failure returns nil and must never abort the
// caller's parse.
func scanPublishers(data []byte) []string {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity
	d.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		publishers  []string
		inEntry     bool
		inPublisher bool
		inName      bool
		entryDone   bool // first <publisher> per entry wins
		pubText     strings.Builder
		nameText    strings.Builder
	)

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !atomElement(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "entry":
				inEntry = true
				entryDone = false
				pubText.Reset()
				nameText.Reset()
			case "publisher":
				if inEntry && !entryDone {
					inPublisher = true
				}
			case "name":
				if inPublisher {
					inName = true
				}
			}
		case xml.EndElement:
			if !atomElement(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "name":
				inName = false
			case "publisher":
				if inPublisher {
					inPublisher = false
					entryDone = true
				}
			case "entry":
				if inEntry {
					inEntry = false
					publishers = append(publishers, publisherValue(&nameText, &pubText))
				}
			}
		case xml.CharData:
			if inName {
				nameText.Write(t)
			} else if inPublisher {
				pubText.Write(t)
			}
		}
	}

	return publishers
}

func publisherValue(name, text *strings.Builder) string {
	if v := strings.TrimSpace(name.String()); v != "" {
		return v
	}
	return strings.TrimSpace(text.String())
}

// atomElement accepts elements in the Atom namespace or with no namespace
// at all; lenient decoding can drop the namespace on malformed documents.
func atomElement(name xml.Name) bool {
	return name.Space == atomNS || name.Space == ""
}
