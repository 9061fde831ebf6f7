package search

import (
	"context"
	"testing"

	"github.com/gutensearch/gutensearch/internal/storage"
	"github.com/gutensearch/gutensearch/internal/storage/storagetest"
	apperrors "github.com/gutensearch/gutensearch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corruptMetadataBackend fails metadata loads for one id, simulating a
// malformed stored record.
type corruptMetadataBackend struct {
	*storagetest.Backend
	badID uint32
}

func (b *corruptMetadataBackend) GetMetadata(ctx context.Context, bookID uint32) (*storage.BookMetadata, error) {
	if bookID == b.badID {
		return nil, apperrors.ErrSerialization
	}
	return b.Backend.GetMetadata(ctx, bookID)
}

func seedBook(t *testing.T, backend *storagetest.Backend, meta storage.BookMetadata, words ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, backend.StoreMetadata(ctx, &meta))
	for _, word := range words {
		require.NoError(t, backend.AddPosting(ctx, word, meta.BookID))
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestSearchANDSemantics(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Title: "A", Language: "en"}, "alpha", "beta")
	seedBook(t, backend, storage.BookMetadata{BookID: 2, Title: "B", Language: "en"}, "beta", "gamma")

	engine := New(backend)

	resp, err := engine.Search(context.Background(), "beta", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, uint32(1), resp.Results[0].BookID)
	assert.Equal(t, uint32(2), resp.Results[1].BookID)

	resp, err = engine.Search(context.Background(), "alpha gamma", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.Results)

	resp, err = engine.Search(context.Background(), "alpha beta", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, uint32(1), resp.Results[0].BookID)
}

func TestSearchEmptyQuery(t *testing.T) {
	backend := storagetest.New()
	engine := New(backend)

	for _, query := range []string{"", "a an it", "  ?! "} {
		resp, err := engine.Search(context.Background(), query, Filters{Author: strPtr("austen")})
		require.NoError(t, err)
		assert.Equal(t, query, resp.Query)
		assert.Equal(t, 0, resp.Count)
		assert.Empty(t, resp.Results)
		assert.Empty(t, resp.Filters)
	}
}

func TestSearchUnknownTermShortCircuits(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Language: "en"}, "alpha")

	engine := New(backend)
	resp, err := engine.Search(context.Background(), "alpha missing", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
}

func TestSearchAuthorFilter(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Author: "Jane Austen", Language: "en"}, "common")
	seedBook(t, backend, storage.BookMetadata{BookID: 2, Author: "Mark Twain", Language: "en"}, "common")

	engine := New(backend)
	resp, err := engine.Search(context.Background(), "common", Filters{Author: strPtr("austen")})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, uint32(1), resp.Results[0].BookID)
	assert.Equal(t, map[string]string{"author": "austen"}, resp.Filters)
}

func TestSearchLanguageFilterIsCaseSensitive(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Language: "en"}, "word")
	seedBook(t, backend, storage.BookMetadata{BookID: 2, Language: "fr"}, "word")

	engine := New(backend)

	resp, err := engine.Search(context.Background(), "word", Filters{Language: strPtr("fr")})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, uint32(2), resp.Results[0].BookID)

	resp, err = engine.Search(context.Background(), "word", Filters{Language: strPtr("FR")})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
}

func TestSearchYearFilter(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Language: "en", Year: intPtr(1851)}, "word")
	seedBook(t, backend, storage.BookMetadata{BookID: 2, Language: "en"}, "word")

	engine := New(backend)
	resp, err := engine.Search(context.Background(), "word", Filters{Year: intPtr(1851)})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, uint32(1), resp.Results[0].BookID)
	assert.Equal(t, map[string]string{"year": "1851"}, resp.Filters)
}

func TestSearchFilterComposition(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Author: "Jane Austen", Language: "en", Year: intPtr(1813)}, "word")
	seedBook(t, backend, storage.BookMetadata{BookID: 2, Author: "Jane Austen", Language: "fr", Year: intPtr(1813)}, "word")

	engine := New(backend)
	resp, err := engine.Search(context.Background(), "word", Filters{
		Author:   strPtr("austen"),
		Language: strPtr("en"),
		Year:     intPtr(1813),
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, uint32(1), resp.Results[0].BookID)
}

func TestSearchDropsBooksWithMissingMetadata(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Language: "en"}, "word")
	seedBook(t, backend, storage.BookMetadata{BookID: 2, Language: "en"}, "word")
	backend.Delete(2)

	engine := New(backend)
	resp, err := engine.Search(context.Background(), "word", Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, uint32(1), resp.Results[0].BookID)
}

func TestSearchToleratesMetadataLoadErrors(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Language: "en"}, "word")
	seedBook(t, backend, storage.BookMetadata{BookID: 2, Language: "en"}, "word")

	// Book 2's record is unreadable; the query drops it and still answers.
	engine := New(&corruptMetadataBackend{Backend: backend, badID: 2})
	resp, err := engine.Search(context.Background(), "word", Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, uint32(1), resp.Results[0].BookID)
}

func TestSearchEchoesSuppliedEmptyFilter(t *testing.T) {
	backend := storagetest.New()
	seedBook(t, backend, storage.BookMetadata{BookID: 1, Author: "Jane Austen", Language: "en"}, "word")

	engine := New(backend)
	resp, err := engine.Search(context.Background(), "word", Filters{Author: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, map[string]string{"author": ""}, resp.Filters)
}

func TestSearchResultsSortedByBookID(t *testing.T) {
	backend := storagetest.New()
	for _, id := range []uint32{42, 7, 19, 3} {
		seedBook(t, backend, storage.BookMetadata{BookID: id, Language: "en"}, "word")
	}

	engine := New(backend)
	resp, err := engine.Search(context.Background(), "word", Filters{})
	require.NoError(t, err)
	require.Equal(t, 4, resp.Count)
	var got []uint32
	for _, r := range resp.Results {
		got = append(got, r.BookID)
	}
	assert.Equal(t, []uint32{3, 7, 19, 42}, got)
}
