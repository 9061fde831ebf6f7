// Package builder drives the indexing pipeline for one book: locate its
// datalake files, extract metadata, tokenize the body and title, and persist
// metadata plus one posting per word. It also drives full-corpus rebuilds.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gutensearch/gutensearch/internal/bookmeta"
	"github.com/gutensearch/gutensearch/internal/datalake"
	"github.com/gutensearch/gutensearch/internal/storage"
	"github.com/gutensearch/gutensearch/internal/tokenizer"
	apperrors "github.com/gutensearch/gutensearch/pkg/errors"
	"github.com/gutensearch/gutensearch/pkg/kafka"
)

// EventPublisher receives an event after every successful index operation.
// Publishing is best-effort; failures are logged and never fail the index.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// BookIndexed is the payload published after a book is indexed.
type BookIndexed struct {
	BookID      uint32 `json:"book_id"`
	WordCount   int    `json:"word_count"`
	UniqueWords int    `json:"unique_words"`
	IndexedAt   string `json:"indexed_at"`
}

// RebuildCompleted is the payload published after a full rebuild.
type RebuildCompleted struct {
	BooksProcessed int    `json:"books_processed"`
	Elapsed        string `json:"elapsed"`
	CompletedAt    string `json:"completed_at"`
}

// Builder indexes books from a datalake into a storage backend.
type Builder struct {
	lake    *datalake.Lake
	backend storage.Backend
	events  EventPublisher
	logger  *slog.Logger
}

// New creates a Builder. events may be nil to disable event publishing.
func New(lake *datalake.Lake, backend storage.Backend, events EventPublisher) *Builder {
	return &Builder{
		lake:    lake,
		backend: backend,
		events:  events,
		logger:  slog.Default().With("component", "index-builder"),
	}
}

// IndexBook indexes a single book. Re-running it for the same id is safe for
// postings (set semantics) and overwrites the metadata record; the key/value
// backend's book counter does re-increment, which is a known inconsistency.
func (b *Builder) IndexBook(ctx context.Context, bookID uint32) error {
	headerPath, bodyPath, err := b.lake.FindBookFiles(bookID)
	if err != nil {
		return err
	}

	header, err := os.ReadFile(headerPath)
	if err != nil {
		return apperrors.Newf(apperrors.ErrIO, http.StatusInternalServerError, "reading header for book %d: %v", bookID, err)
	}
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return apperrors.Newf(apperrors.ErrIO, http.StatusInternalServerError, "reading body for book %d: %v", bookID, err)
	}

	metadata := bookmeta.Extract(string(header), bookID)
	bodyWords := tokenizer.Tokenize(string(body))
	titleWords := tokenizer.Tokenize(metadata.Title)

	// The stored word count is the coarse whitespace-delimited total, not
	// the filtered token count.
	metadata.WordCount = len(strings.Fields(string(body)))
	metadata.UniqueWords = len(bodyWords)

	allWords := bodyWords
	for word := range titleWords {
		allWords[word] = struct{}{}
	}

	if err := b.backend.StoreMetadata(ctx, metadata); err != nil {
		return fmt.Errorf("persisting metadata for book %d: %w", bookID, err)
	}
	for word := range allWords {
		if err := b.backend.AddPosting(ctx, word, bookID); err != nil {
			return fmt.Errorf("persisting posting for book %d: %w", bookID, err)
		}
	}

	b.publish(ctx, fmt.Sprintf("book-%d", bookID), BookIndexed{
		BookID:      bookID,
		WordCount:   metadata.WordCount,
		UniqueWords: metadata.UniqueWords,
		IndexedAt:   time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// RebuildIndex walks the whole datalake and indexes every book whose header
// file it finds. Per-book failures are demoted to warnings; the walk runs to
// completion and returns the number of successfully indexed books and the
// elapsed wall time.
func (b *Builder) RebuildIndex(ctx context.Context) (int, time.Duration, error) {
	start := time.Now()
	processed := 0

	err := b.lake.WalkHeaders(func(bookID uint32) {
		if err := b.IndexBook(ctx, bookID); err != nil {
			b.logger.Warn("failed to index book during rebuild", "book_id", bookID, "error", err)
			return
		}
		processed++
	})
	elapsed := time.Since(start)
	if err != nil {
		return processed, elapsed, fmt.Errorf("walking datalake: %w", err)
	}

	b.logger.Info("index rebuild complete", "books_processed", processed, "elapsed", elapsed)
	b.publish(ctx, "rebuild", RebuildCompleted{
		BooksProcessed: processed,
		Elapsed:        elapsed.String(),
		CompletedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	return processed, elapsed, nil
}

func (b *Builder) publish(ctx context.Context, key string, payload any) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(ctx, kafka.Event{Key: key, Value: payload}); err != nil {
		b.logger.Warn("event publish failed", "key", key, "error", err)
	}
}
