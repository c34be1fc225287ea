package security

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer turns free text into plain text: markup is dropped, entities are
// decoded and whitespace runs are collapsed.
type Sanitizer struct {
	policy *bluemonday.Policy
	maxLen int
}

// NewSanitizer creates a sanitizer on bluemonday's strict policy. maxLen caps
// the result in runes; zero means no cap.
func NewSanitizer(maxLen int) *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy(), maxLen: maxLen}
}

// Sanitize cleans s.
func (s *Sanitizer) Sanitize(in string) string {
	out := html.UnescapeString(s.policy.Sanitize(in))
	out = NormalizeWhitespace(out)
	if s.maxLen > 0 {
		out = TruncateText(out, s.maxLen)
	}
	return out
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)

// NormalizeWhitespace collapses runs of spaces and tabs on each line and trims
// the result. Line breaks are kept.
func NormalizeWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// TruncateText cuts s to at most maxLen runes.
func TruncateText(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// SanitizeFilename strips directories and characters unsafe in a multipart
// filename.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	filename = strings.Map(func(r rune) rune {
		switch r {
		case '"', '<', '>', ':', '|', '?', '*', 0:
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, filename)
	if filename == "." || filename == "/" || filename == "" {
		return "file"
	}
	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		filename = filename[:255-len(ext)] + ext
	}
	return filename
}
