package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gutensearch/gutensearch/internal/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `It is a truth universally acknowledged, that a single man in
        possession of a good fortune, must be in want of a wife. However little
        known the feelings or views of such a man may be on his first entering
        a neighbourhood, this truth is so well fixed in the minds of the
        surrounding families, that he is considered as the rightful property
        of some one or other of their daughters.`,
	"long": strings.Repeat(`Call me Ishmael. Some years ago, never mind how long
        precisely, having little or no money in my purse, and nothing
        particular to interest me on shore, I thought I would sail about a
        little and see the watery part of the world. It is a way I have of
        driving off the spleen and regulating the circulation. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				words := tokenizer.Tokenize(text)
				_ = words
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			words := tokenizer.Tokenize(text)
			_ = words
		}
	})
}

func BenchmarkTokenizeQuery(b *testing.B) {
	queries := []string{
		"whale",
		"white whale ahab",
		`"pride" and prejudice, by jane austen!`,
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, q := range queries {
			terms := tokenizer.TokenizeQuery(q)
			_ = terms
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{100, 1000, 10000, 100000}
	baseWord := "public domain literature indexing pipeline "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				words := tokenizer.Tokenize(text)
				_ = words
			}
		})
	}
}
