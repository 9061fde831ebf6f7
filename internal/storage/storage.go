// Package storage defines the persistence contract for book metadata and
// word postings, with interchangeable Redis and PostgreSQL implementations.
// The backend is selected once at process start and shared by every request.
package storage

import (
	"context"
	"fmt"

	"github.com/gutensearch/gutensearch/pkg/config"
)

// BookMetadata is the per-book record held by the backend. It is overwritten
// wholesale on re-index, never partially updated.
type BookMetadata struct {
	BookID      uint32 `json:"book_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Language    string `json:"language"`
	Year        *int   `json:"year,omitempty"`
	WordCount   int    `json:"word_count"`
	UniqueWords int    `json:"unique_words"`
}

// Backend is the capability set the index builder and query engine depend on.
// Implementations must tolerate concurrent readers and writers; postings are
// sets, so AddPosting is naturally idempotent.
type Backend interface {
	// StoreMetadata upserts the metadata record for metadata.BookID,
	// overwriting all fields.
	StoreMetadata(ctx context.Context, metadata *BookMetadata) error

	// GetMetadata returns the stored metadata, or nil if the book was
	// never indexed.
	GetMetadata(ctx context.Context, bookID uint32) (*BookMetadata, error)

	// IsIndexed reports whether a metadata record exists for the book.
	IsIndexed(ctx context.Context, bookID uint32) (bool, error)

	// ListIndexed returns the ids of every indexed book.
	ListIndexed(ctx context.Context) (map[uint32]struct{}, error)

	// AddPosting adds bookID to the posting set of word.
	AddPosting(ctx context.Context, word string, bookID uint32) error

	// SearchWord returns the posting set of word; empty if the word is
	// unknown.
	SearchWord(ctx context.Context, word string) (map[uint32]struct{}, error)

	// Stats returns the number of indexed books and distinct words.
	Stats(ctx context.Context) (books int, words int, err error)

	// TestConnection fails fast if the backend is unreachable.
	TestConnection(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// Open builds the backend named by cfg.Storage.Backend.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return NewPostgresBackend(cfg.Postgres)
	case "redis":
		return NewRedisBackend(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
