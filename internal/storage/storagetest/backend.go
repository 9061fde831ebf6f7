// Package storagetest provides an in-memory storage.Backend for tests.
package storagetest

import (
	"context"
	"sync"

	"github.com/gutensearch/gutensearch/internal/storage"
)

// Backend keeps metadata and postings in maps, mirroring the semantics of the
// real backends: metadata upserts overwrite, postings are sets. The book
// counter is maintained incrementally like the Redis backend, including its
// re-index overcount.
type Backend struct {
	mu        sync.RWMutex
	metadata  map[uint32]storage.BookMetadata
	postings  map[string]map[uint32]struct{}
	bookCount int

	// FailWith, when set, is returned by every operation.
	FailWith error
}

func New() *Backend {
	return &Backend{
		metadata: make(map[uint32]storage.BookMetadata),
		postings: make(map[string]map[uint32]struct{}),
	}
}

func (b *Backend) StoreMetadata(ctx context.Context, metadata *storage.BookMetadata) error {
	if b.FailWith != nil {
		return b.FailWith
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metadata[metadata.BookID] = *metadata
	b.bookCount++
	return nil
}

func (b *Backend) GetMetadata(ctx context.Context, bookID uint32) (*storage.BookMetadata, error) {
	if b.FailWith != nil {
		return nil, b.FailWith
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	metadata, ok := b.metadata[bookID]
	if !ok {
		return nil, nil
	}
	return &metadata, nil
}

func (b *Backend) IsIndexed(ctx context.Context, bookID uint32) (bool, error) {
	if b.FailWith != nil {
		return false, b.FailWith
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.metadata[bookID]
	return ok, nil
}

func (b *Backend) ListIndexed(ctx context.Context) (map[uint32]struct{}, error) {
	if b.FailWith != nil {
		return nil, b.FailWith
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make(map[uint32]struct{}, len(b.metadata))
	for id := range b.metadata {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (b *Backend) AddPosting(ctx context.Context, word string, bookID uint32) error {
	if b.FailWith != nil {
		return b.FailWith
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.postings[word]
	if !ok {
		set = make(map[uint32]struct{})
		b.postings[word] = set
	}
	set[bookID] = struct{}{}
	return nil
}

func (b *Backend) SearchWord(ctx context.Context, word string) (map[uint32]struct{}, error) {
	if b.FailWith != nil {
		return nil, b.FailWith
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make(map[uint32]struct{}, len(b.postings[word]))
	for id := range b.postings[word] {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (b *Backend) Stats(ctx context.Context) (int, int, error) {
	if b.FailWith != nil {
		return 0, 0, b.FailWith
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bookCount, len(b.postings), nil
}

func (b *Backend) TestConnection(ctx context.Context) error {
	return b.FailWith
}

func (b *Backend) Close() error {
	return nil
}

// Postings returns a copy of the posting set for word, for assertions.
func (b *Backend) Postings(word string) map[uint32]struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[uint32]struct{}, len(b.postings[word]))
	for id := range b.postings[word] {
		out[id] = struct{}{}
	}
	return out
}

// BookCount exposes the incrementally maintained counter, for assertions.
func (b *Backend) BookCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bookCount
}

// Delete removes a book's metadata without touching postings, simulating the
// partial-loss anomaly search must tolerate.
func (b *Backend) Delete(bookID uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.metadata, bookID)
}
