// Package embeddingtest provides a deterministic embedder for tests.
package embeddingtest

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"
)

// KeywordEmbedder maps text to term counts over a fixed vocabulary, so texts
// sharing vocabulary words score a high cosine similarity.
type KeywordEmbedder struct {
	Vocabulary []string
	Calls      atomic.Int64
	Err        error
}

func NewKeywordEmbedder(vocabulary ...string) *KeywordEmbedder {
	return &KeywordEmbedder{Vocabulary: vocabulary}
}

func (k *KeywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	k.Calls.Add(1)
	if k.Err != nil {
		return nil, k.Err
	}

	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		counts[w]++
	}

	vec := make([]float32, len(k.Vocabulary))
	for i, term := range k.Vocabulary {
		vec[i] = float32(counts[term])
	}
	return vec, nil
}
