package formats

import "testing"

func TestExtensionForMime(t *testing.T) {
	cases := []struct {
		mime string
		ext  string
	}{
		{"application/epub+zip", "epub"},
		{"application/epub+zip; charset=binary", "epub"},
		{"application/pdf", "pdf"},
		{"application/x-mobipocket-ebook", "mobi"},
		{"application/vnd.amazon.mobi8-ebook", "azw3"},
		{"application/fb2", "fb2"},
		{"application/zip", "zip"},
		{"application/x-cbz", "cbz"},
		{"application/x-cbr", "cbr"},
		{"application/x-custom-book", "x-custom-book"},
		{"nonsense", "nonsense"},
	}
	for _, c := range cases {
		if got := ExtensionForMime(c.mime); got != c.ext {
			t.Errorf("ExtensionForMime(%q) = %q, want %q", c.mime, got, c.ext)
		}
	}
}

func TestIsAcquisitionType(t *testing.T) {
	if !IsAcquisitionType("application/epub+zip") {
		t.Error("epub should be an acquisition type")
	}
	if IsAcquisitionType("application/atom+xml") {
		t.Error("atom feeds are not acquisition content")
	}
	if IsAcquisitionType("image/jpeg") {
		t.Error("images are not acquisition content")
	}
}

func TestDisplaySize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{0, "Unknown size"},
		{-1, "Unknown size"},
		{512, "512B"},
		{102400, "100.0KB"},
		{1536, "1.5KB"},
		{2 * 1024 * 1024, "2.0MB"},
	}
	for _, c := range cases {
		if got := DisplaySize(c.size); got != c.want {
			t.Errorf("DisplaySize(%d) = %q, want %q", c.size, got, c.want)
		}
	}
}

func TestFormatByExtension(t *testing.T) {
	if f, ok := FormatByExtension("epub"); !ok || f.MimeType != "application/epub+zip" {
		t.Errorf("FormatByExtension(epub) = %+v, %v", f, ok)
	}
	if f, ok := FormatByExtension(".pdf"); !ok || f.Label != "PDF" {
		t.Errorf("FormatByExtension(.pdf) = %+v, %v", f, ok)
	}
	if _, ok := FormatByExtension("doc"); ok {
		t.Error("doc should be unknown")
	}
}
