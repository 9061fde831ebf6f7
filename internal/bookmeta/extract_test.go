package bookmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	header := "Title: Foo\nAuthor: Bar\nLanguage: French\nRelease Date: June 1, 1998"
	meta := Extract(header, 42)

	assert.Equal(t, uint32(42), meta.BookID)
	assert.Equal(t, "Foo", meta.Title)
	assert.Equal(t, "Bar", meta.Author)
	assert.Equal(t, "French", meta.Language)
	require.NotNil(t, meta.Year)
	assert.Equal(t, 1998, *meta.Year)
	assert.Zero(t, meta.WordCount)
	assert.Zero(t, meta.UniqueWords)
}

func TestExtractDefaults(t *testing.T) {
	meta := Extract("no recognisable labels here", 7)

	assert.Empty(t, meta.Title)
	assert.Empty(t, meta.Author)
	assert.Equal(t, "en", meta.Language)
	assert.Nil(t, meta.Year)
}

func TestExtractCaseInsensitive(t *testing.T) {
	meta := Extract("TITLE: Moby Dick\nAUTHOR: Herman Melville", 1)

	assert.Equal(t, "Moby Dick", meta.Title)
	assert.Equal(t, "Herman Melville", meta.Author)
}

func TestExtractFirstMatchWins(t *testing.T) {
	meta := Extract("Title: First\nTitle: Second", 1)

	assert.Equal(t, "First", meta.Title)
}

func TestExtractYearLabels(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"release date", "Release Date: January 1, 1851", 1851},
		{"posting date", "Posting Date: 2008", 2008},
		{"bare release", "Release: sometime in 1905", 1905},
		{"bare date", "Date: 1922", 1922},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := Extract(tt.header, 1)
			require.NotNil(t, meta.Year)
			assert.Equal(t, tt.want, *meta.Year)
		})
	}
}

func TestExtractNoYearDigits(t *testing.T) {
	meta := Extract("Release Date: unknown", 1)
	assert.Nil(t, meta.Year)
}

func TestExtractTrimsWhitespace(t *testing.T) {
	meta := Extract("Title:   Padded Title \r\nAuthor:\tTabbed Author", 1)

	assert.Equal(t, "Padded Title", meta.Title)
	assert.Equal(t, "Tabbed Author", meta.Author)
}
