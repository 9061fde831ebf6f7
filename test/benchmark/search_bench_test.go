package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/gutensearch/gutensearch/internal/search"
	"github.com/gutensearch/gutensearch/internal/storage"
	"github.com/gutensearch/gutensearch/internal/storage/storagetest"
)

// seedCorpus fills the in-memory backend with books sharing a pool of words
// so multi-term queries exercise real intersections.
func seedCorpus(b *testing.B, backend *storagetest.Backend, books int) {
	b.Helper()
	ctx := context.Background()
	words := []string{"whale", "ocean", "captain", "voyage", "island", "storm", "harpoon", "ship"}
	for i := 1; i <= books; i++ {
		year := 1800 + i%100
		meta := &storage.BookMetadata{
			BookID:   uint32(i),
			Title:    fmt.Sprintf("Book %d", i),
			Author:   fmt.Sprintf("Author %d", i%10),
			Language: "en",
			Year:     &year,
		}
		if err := backend.StoreMetadata(ctx, meta); err != nil {
			b.Fatal(err)
		}
		for j, word := range words {
			if i%(j+1) == 0 {
				if err := backend.AddPosting(ctx, word, uint32(i)); err != nil {
					b.Fatal(err)
				}
			}
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	backend := storagetest.New()
	seedCorpus(b, backend, 1000)
	engine := search.New(backend)
	ctx := context.Background()

	queries := map[string]string{
		"single_term": "whale",
		"two_terms":   "ocean captain",
		"four_terms":  "ocean captain voyage storm",
		"no_match":    "whale nonexistent",
	}

	for name, query := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := engine.Search(ctx, query, search.Filters{}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearchWithFilters(b *testing.B) {
	backend := storagetest.New()
	seedCorpus(b, backend, 1000)
	engine := search.New(backend)
	ctx := context.Background()
	author := "author 3"
	language := "en"
	year := 1850

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := engine.Search(ctx, "ocean captain", search.Filters{
			Author:   &author,
			Language: &language,
			Year:     &year,
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
