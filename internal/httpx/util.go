package httpx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DownloadToFile streams r into a freshly created file at dstPath
func DownloadToFile(dstPath string, r io.Reader) error {
	file, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(file, r)
	return err
}

// FilenamePrefix turns an arbitrary title into a safe filename stem: ASCII
// only, no path or shell-hostile characters, capped at maxLen runes. An
// empty or fully-stripped title yields "book".
func FilenamePrefix(title string, maxLen int) string {
	s := SanitizeFilenameASCII7(strings.TrimSpace(title))

	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r == 0:
			sb.WriteRune('_')
		case unicode.IsControl(r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}

	out := strings.TrimSpace(sb.String())
	if runeCount := len([]rune(out)); runeCount > maxLen {
		out = strings.TrimSpace(string([]rune(out)[:maxLen]))
	}
	if out == "" {
		return "book"
	}
	return out
}

// SanitizeFilenameASCII7 maps a string down to 7-bit ASCII, stripping
// diacritics and escaping anything else as _XXXX code points.
func SanitizeFilenameASCII7(s string) string {
	// Remove most diacritics and nonspacing marks (Mn)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	noDiacr, _, _ := transform.String(t, s)

	var sb strings.Builder
	for _, letter := range noDiacr {
		if letter > unicode.MaxASCII {
			sb.WriteString(fmt.Sprintf("_%X", letter))
		} else {
			sb.WriteRune(letter)
		}
	}
	return sb.String()
}
