package formats

import (
	"fmt"
	"strings"
)

// Format represents a downloadable ebook format
type Format struct {
	// MIME type for the format
	MimeType string
	// Short extension without the dot
	Extension string
	// Human-readable label
	Label string
}

// Supported acquisition formats
var (
	EPUB = Format{MimeType: "application/epub+zip", Extension: "epub", Label: "EPUB"}
	PDF  = Format{MimeType: "application/pdf", Extension: "pdf", Label: "PDF"}
	MOBI = Format{MimeType: "application/x-mobipocket-ebook", Extension: "mobi", Label: "MOBI"}
	AZW3 = Format{MimeType: "application/vnd.amazon.mobi8-ebook", Extension: "azw3", Label: "AZW3"}
	FB2  = Format{MimeType: "application/fb2", Extension: "fb2", Label: "FB2"}
	ZIP  = Format{MimeType: "application/zip", Extension: "zip", Label: "ZIP"}
	CBZ  = Format{MimeType: "application/x-cbz", Extension: "cbz", Label: "CBZ"}
	CBR  = Format{MimeType: "application/x-cbr", Extension: "cbr", Label: "CBR"}
)

// AllFormats returns all supported acquisition formats.
// Order matters: prefix matching checks them in this order.
func AllFormats() []Format {
	return []Format{EPUB, PDF, MOBI, AZW3, FB2, ZIP, CBZ, CBR}
}

// FormatByMimeType returns the format whose MIME type prefixes the given
// value. Servers routinely append parameters (charset, profile) to the
// declared type, so this is a prefix match, not an equality check.
func FormatByMimeType(mimeType string) (Format, bool) {
	for _, format := range AllFormats() {
		if strings.HasPrefix(mimeType, format.MimeType) {
			return format, true
		}
	}
	return Format{}, false
}

// FormatByExtension returns the format for a given short extension
func FormatByExtension(extension string) (Format, bool) {
	extension = strings.TrimPrefix(extension, ".")
	for _, format := range AllFormats() {
		if format.Extension == extension {
			return format, true
		}
	}
	return Format{}, false
}

// IsAcquisitionType reports whether the MIME type denotes downloadable
// ebook content rather than a feed or image.
func IsAcquisitionType(mimeType string) bool {
	_, ok := FormatByMimeType(mimeType)
	return ok
}

// ExtensionForMime returns the short extension for a MIME type, falling
// back to the MIME subtype for types outside the table.
func ExtensionForMime(mimeType string) string {
	if format, ok := FormatByMimeType(mimeType); ok {
		return format.Extension
	}
	if idx := strings.LastIndex(mimeType, "/"); idx >= 0 {
		return mimeType[idx+1:]
	}
	return mimeType
}

// DisplaySize formats a byte count for listing output. Zero means the
// server did not advertise a size.
func DisplaySize(totalBytes int64) string {
	if totalBytes <= 0 {
		return "Unknown size"
	}
	if totalBytes >= 1024*1024 {
		return fmt.Sprintf("%.1fMB", float64(totalBytes)/(1024*1024))
	}
	if totalBytes >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(totalBytes)/1024)
	}
	return fmt.Sprintf("%dB", totalBytes)
}
