// Package search implements boolean AND queries over the inverted index with
// author, language, and year post-filters.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gutensearch/gutensearch/internal/storage"
	"github.com/gutensearch/gutensearch/internal/tokenizer"
	"github.com/gutensearch/gutensearch/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// metadataLoadConcurrency bounds the parallel metadata fetches per query so a
// huge intersection cannot exhaust the backend's connection pool.
const metadataLoadConcurrency = 8

// Filters are the optional post-filters applied after set intersection. A nil
// field means the filter was not supplied. A supplied-but-empty author or
// language is still echoed in the response, so the fields are pointers rather
// than strings with "" as the absent value.
type Filters struct {
	Author   *string
	Language *string
	Year     *int
}

// echo returns the map echoed in the response: a key is present only when
// the corresponding filter was supplied, even if its value is empty.
func (f Filters) echo() map[string]string {
	m := make(map[string]string)
	if f.Author != nil {
		m["author"] = *f.Author
	}
	if f.Language != nil {
		m["language"] = *f.Language
	}
	if f.Year != nil {
		m["year"] = strconv.Itoa(*f.Year)
	}
	return m
}

// matches reports whether a book passes every supplied filter. Author is a
// case-insensitive substring match, language is exact, year is exact and a
// book without a year fails a year filter.
func (f Filters) matches(book *storage.BookMetadata) bool {
	if f.Author != nil && !strings.Contains(strings.ToLower(book.Author), strings.ToLower(*f.Author)) {
		return false
	}
	if f.Language != nil && book.Language != *f.Language {
		return false
	}
	if f.Year != nil && (book.Year == nil || *book.Year != *f.Year) {
		return false
	}
	return true
}

// BookResult is one entry in a search response.
type BookResult struct {
	BookID   uint32 `json:"book_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Language string `json:"language"`
	Year     *int   `json:"year,omitempty"`
}

// Response is the shaped search result.
type Response struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters"`
	Count   int               `json:"count"`
	Results []BookResult      `json:"results"`
}

// Engine answers queries against a shared storage backend. It holds no
// per-request state; queries are read-only and fully parallelizable.
type Engine struct {
	backend storage.Backend
	logger  *slog.Logger
}

// New creates an Engine over the given backend.
func New(backend storage.Backend) *Engine {
	return &Engine{
		backend: backend,
		logger:  slog.Default().With("component", "search-engine"),
	}
}

// Search tokenizes the query, intersects the posting set of every term,
// loads metadata for the surviving ids, applies the filters, and returns
// results sorted by book id. An empty token set short-circuits to a
// zero-result response without touching the backend.
func (e *Engine) Search(ctx context.Context, query string, filters Filters) (*Response, error) {
	terms := tokenizer.TokenizeQuery(query)
	if len(terms) == 0 {
		return &Response{
			Query:   query,
			Filters: map[string]string{},
			Count:   0,
			Results: []BookResult{},
		}, nil
	}

	bookIDs, err := e.intersectPostings(ctx, terms)
	if err != nil {
		return nil, err
	}
	if len(bookIDs) == 0 {
		return &Response{
			Query:   query,
			Filters: filters.echo(),
			Count:   0,
			Results: []BookResult{},
		}, nil
	}

	books := e.loadMetadata(ctx, bookIDs)

	results := make([]BookResult, 0, len(books))
	for _, book := range books {
		if !filters.matches(book) {
			continue
		}
		results = append(results, BookResult{
			BookID:   book.BookID,
			Title:    book.Title,
			Author:   book.Author,
			Language: book.Language,
			Year:     book.Year,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].BookID < results[j].BookID
	})

	return &Response{
		Query:   query,
		Filters: filters.echo(),
		Count:   len(results),
		Results: results,
	}, nil
}

// intersectPostings fetches each term's posting set and intersects them. Any
// term with an empty set empties the whole intersection, so the remaining
// lookups are skipped.
func (e *Engine) intersectPostings(ctx context.Context, terms []string) (map[uint32]struct{}, error) {
	var intersection map[uint32]struct{}
	for _, term := range terms {
		postings, err := e.backend.SearchWord(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("searching term %q: %w", term, err)
		}
		if len(postings) == 0 {
			return nil, nil
		}
		if intersection == nil {
			intersection = postings
			continue
		}
		for id := range intersection {
			if _, ok := postings[id]; !ok {
				delete(intersection, id)
			}
		}
		if len(intersection) == 0 {
			return nil, nil
		}
	}
	return intersection, nil
}

// loadMetadata fetches metadata for every id concurrently. Ids whose
// metadata is missing or fails to load are logged and dropped rather than
// failing the query; one malformed record must not poison every search that
// touches it.
func (e *Engine) loadMetadata(ctx context.Context, bookIDs map[uint32]struct{}) []*storage.BookMetadata {
	log := logger.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataLoadConcurrency)

	var mu sync.Mutex
	books := make([]*storage.BookMetadata, 0, len(bookIDs))

	for id := range bookIDs {
		g.Go(func() error {
			book, err := e.backend.GetMetadata(gctx, id)
			if err != nil {
				log.Error("failed to load metadata for book in posting set", "book_id", id, "error", err)
				return nil
			}
			if book == nil {
				log.Error("no metadata for book in posting set", "book_id", id)
				return nil
			}
			mu.Lock()
			books = append(books, book)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return books
}
