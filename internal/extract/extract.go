// Package extract turns uploaded reference files into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"
)

// DefaultPatterns are the upload names accepted when none are configured.
var DefaultPatterns = []string{"*.pdf", "*.txt", "*.md", "*.{csv,json}"}

// ErrUnreadable is returned when an upload cannot be turned into text.
var ErrUnreadable = errors.New("failed to parse uploaded file")

// cloudMarker flags content that only points at a file stored elsewhere.
const cloudMarker = "[Cloudinary File]"

var fileURLRe = regexp.MustCompile(`URL:\s*(https?://\S+)`)

// Allowed reports whether name matches one of the doublestar patterns.
// Matching is done on the lower-cased base name.
func Allowed(patterns []string, name string) bool {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, `\`, "/")))
	for _, p := range patterns {
		if ok, err := doublestar.Match(strings.ToLower(p), base); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePatterns returns an error for the first malformed pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid upload pattern %q", p)
		}
	}
	return nil
}

// Text extracts plain text from an uploaded file. PDFs are detected by
// content type or extension; anything else is read as UTF-8.
func Text(name, contentType string, data []byte) (string, error) {
	if isPDF(name, contentType, data) {
		return pdfText(data)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// FileURL returns the remote file URL embedded in marker content.
func FileURL(content string) (string, bool) {
	if !HasMarker(content) {
		return "", false
	}
	m := fileURLRe.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// HasMarker reports whether content is a remote file marker.
func HasMarker(content string) bool {
	return strings.Contains(content, cloudMarker)
}

func isPDF(name, contentType string, data []byte) bool {
	if strings.HasPrefix(contentType, "application/pdf") {
		return true
	}
	if strings.EqualFold(path.Ext(name), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func pdfText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return strings.TrimSpace(string(out)), nil
}
