package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]struct{}
	}{
		{
			name: "lowercases and keeps length three and up",
			text: "The Cat sat.",
			want: map[string]struct{}{"the": {}, "cat": {}, "sat": {}},
		},
		{
			name: "drops short tokens regardless of case",
			text: "A cat IS on an OX",
			want: map[string]struct{}{"cat": {}},
		},
		{
			name: "duplicates collapse",
			text: "whale whale WHALE",
			want: map[string]struct{}{"whale": {}},
		},
		{
			name: "digits and punctuation split runs",
			text: "chapter1section2 foo-bar",
			want: map[string]struct{}{"chapter": {}, "section": {}, "foo": {}, "bar": {}},
		},
		{
			name: "empty input",
			text: "",
			want: map[string]struct{}{},
		},
		{
			name: "only short and non-alpha tokens",
			text: "a 12 :: b!",
			want: map[string]struct{}{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestTokenizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "lowercases and filters short terms",
			query: "The Great Whale",
			want:  []string{"the", "great", "whale"},
		},
		{
			name:  "strips edge punctuation after the length filter",
			query: `"moby" dick!`,
			want:  []string{"moby", "dick"},
		},
		{
			name:  "drops terms that trim to nothing",
			query: "... cat ???",
			want:  []string{"cat"},
		},
		{
			name:  "empty query",
			query: "",
			want:  nil,
		},
		{
			name:  "all short terms",
			query: "a an it",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeQuery(tt.query))
		})
	}
}
