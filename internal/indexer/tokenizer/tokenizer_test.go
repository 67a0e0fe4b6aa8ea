package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeStemsAndDropsStopWords(t *testing.T) {
	tokens := Tokenize("The Running dogs are running, quickly!")

	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
		assert.Equal(t, i, tok.Position)
	}
	assert.Equal(t, []string{"run", "dog", "run", "quick"}, terms)
}

func TestTokenizeDropsSingleCharacters(t *testing.T) {
	assert.Empty(t, Tokenize("a b c 1 2"))
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   ...   "))
}

func TestTermsKeepsRepeats(t *testing.T) {
	assert.Equal(t, []string{"cat", "cat", "hat"}, Terms("cat cats hat"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Searching", "search", true},
		{"engines", "engin", true},
		{"the", "", false},
		{"x", "", false},
		{"two words", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMatchesTokenize(t *testing.T) {
	for _, word := range []string{"relevance", "scoring", "vectors", "documents"} {
		got, ok := Normalize(word)
		assert.True(t, ok)
		assert.Equal(t, Tokenize(word)[0].Term, got)
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := "The vector space model represents documents and queries as weighted term vectors, " +
		"ranking documents by the cosine of the angle between them. Sublinear scaling dampens repeated terms."
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}
