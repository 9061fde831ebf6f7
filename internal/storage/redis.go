package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gutensearch/gutensearch/pkg/config"
	apperrors "github.com/gutensearch/gutensearch/pkg/errors"
	pkgredis "github.com/gutensearch/gutensearch/pkg/redis"
)

// Key layout:
//
//	book:{id}:metadata  JSON-serialised BookMetadata
//	word:{word}         set of book ids
//	stats:total_books   counter, incremented on every metadata store
//	stats:all_words     set of all known words
const (
	statsTotalBooksKey = "stats:total_books"
	statsAllWordsKey   = "stats:all_words"
)

// RedisBackend stores metadata as JSON strings and postings as Redis sets.
type RedisBackend struct {
	client *pkgredis.Client
}

// NewRedisBackend connects to Redis and returns the key/value backend.
func NewRedisBackend(cfg config.RedisConfig) (*RedisBackend, error) {
	client, err := pkgredis.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	return &RedisBackend{client: client}, nil
}

func metadataKey(bookID uint32) string {
	return fmt.Sprintf("book:%d:metadata", bookID)
}

func wordKey(word string) string {
	return "word:" + word
}

// StoreMetadata overwrites the book's metadata record and increments the
// total-books counter. The counter increment runs on every call, so
// re-indexing an existing book overcounts; see DESIGN.md for why this is
// preserved rather than fixed.
func (b *RedisBackend) StoreMetadata(ctx context.Context, metadata *BookMetadata) error {
	value, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: encoding metadata for book %d: %v", apperrors.ErrSerialization, metadata.BookID, err)
	}
	if err := b.client.Set(ctx, metadataKey(metadata.BookID), value, 0); err != nil {
		return fmt.Errorf("storing metadata for book %d: %w", metadata.BookID, err)
	}
	if err := b.client.Incr(ctx, statsTotalBooksKey); err != nil {
		return fmt.Errorf("incrementing book counter: %w", err)
	}
	return nil
}

func (b *RedisBackend) GetMetadata(ctx context.Context, bookID uint32) (*BookMetadata, error) {
	value, err := b.client.Get(ctx, metadataKey(bookID))
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading metadata for book %d: %w", bookID, err)
	}
	var metadata BookMetadata
	if err := json.Unmarshal([]byte(value), &metadata); err != nil {
		return nil, fmt.Errorf("%w: decoding metadata for book %d: %v", apperrors.ErrSerialization, bookID, err)
	}
	return &metadata, nil
}

func (b *RedisBackend) IsIndexed(ctx context.Context, bookID uint32) (bool, error) {
	exists, err := b.client.Exists(ctx, metadataKey(bookID))
	if err != nil {
		return false, fmt.Errorf("checking book %d: %w", bookID, err)
	}
	return exists, nil
}

func (b *RedisBackend) ListIndexed(ctx context.Context) (map[uint32]struct{}, error) {
	keys, err := b.client.ScanKeys(ctx, "book:*:metadata")
	if err != nil {
		return nil, fmt.Errorf("listing indexed books: %w", err)
	}
	bookIDs := make(map[uint32]struct{}, len(keys))
	for _, key := range keys {
		idStr := strings.TrimSuffix(strings.TrimPrefix(key, "book:"), ":metadata")
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue
		}
		bookIDs[uint32(id)] = struct{}{}
	}
	return bookIDs, nil
}

func (b *RedisBackend) AddPosting(ctx context.Context, word string, bookID uint32) error {
	if err := b.client.SAdd(ctx, wordKey(word), bookID); err != nil {
		return fmt.Errorf("adding posting %q -> %d: %w", word, bookID, err)
	}
	if err := b.client.SAdd(ctx, statsAllWordsKey, word); err != nil {
		return fmt.Errorf("recording word %q: %w", word, err)
	}
	return nil
}

func (b *RedisBackend) SearchWord(ctx context.Context, word string) (map[uint32]struct{}, error) {
	members, err := b.client.SMembers(ctx, wordKey(word))
	if err != nil {
		return nil, fmt.Errorf("searching word %q: %w", word, err)
	}
	bookIDs := make(map[uint32]struct{}, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: posting set for %q holds %q", apperrors.ErrSerialization, word, member)
		}
		bookIDs[uint32(id)] = struct{}{}
	}
	return bookIDs, nil
}

func (b *RedisBackend) Stats(ctx context.Context) (int, int, error) {
	var books int
	value, err := b.client.Get(ctx, statsTotalBooksKey)
	switch {
	case err == nil:
		books, err = strconv.Atoi(value)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: book counter holds %q", apperrors.ErrSerialization, value)
		}
	case pkgredis.IsNilError(err):
		books = 0
	default:
		return 0, 0, fmt.Errorf("reading book counter: %w", err)
	}

	words, err := b.client.SCard(ctx, statsAllWordsKey)
	if err != nil {
		return 0, 0, fmt.Errorf("counting distinct words: %w", err)
	}
	return books, int(words), nil
}

func (b *RedisBackend) TestConnection(ctx context.Context) error {
	if err := b.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
