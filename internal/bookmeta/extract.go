// Package bookmeta extracts bibliographic metadata from the header block of
// a public-domain text.
package bookmeta

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gutensearch/gutensearch/internal/storage"
)

// Header blocks are free-form; these patterns take the first case-insensitive
// match anywhere in the block. The year pattern anchors to a release or
// posting label and accepts the first 4-digit number after it.
var (
	titleRe    = regexp.MustCompile(`(?i)title:\s*(.+)`)
	authorRe   = regexp.MustCompile(`(?i)author:\s*(.+)`)
	languageRe = regexp.MustCompile(`(?i)language:\s*(.+)`)
	yearRe     = regexp.MustCompile(`(?i)(?:release date|posting date|release|date):\s*.*?(\d{4})`)
)

// Extract pulls title, author, language, and year from a header block.
// Missing title and author yield empty strings, missing language defaults to
// "en", and a missing year stays nil. WordCount and UniqueWords are left
// zeroed for the builder to fill in.
func Extract(header string, bookID uint32) *storage.BookMetadata {
	metadata := &storage.BookMetadata{
		BookID:   bookID,
		Language: "en",
	}

	if m := titleRe.FindStringSubmatch(header); m != nil {
		metadata.Title = strings.TrimSpace(m[1])
	}
	if m := authorRe.FindStringSubmatch(header); m != nil {
		metadata.Author = strings.TrimSpace(m[1])
	}
	if m := languageRe.FindStringSubmatch(header); m != nil {
		metadata.Language = strings.TrimSpace(m[1])
	}
	if m := yearRe.FindStringSubmatch(header); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			metadata.Year = &year
		}
	}
	return metadata
}
