// Package tokenizer wraps BPE tokenization for text models.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// EncodingCL100kBase is the GPT-4 family encoding.
	EncodingCL100kBase = "cl100k_base"
	// EncodingP50kBase is the GPT-3 family encoding.
	EncodingP50kBase = "p50k_base"
)

// TikToken wraps the pkoukk/tiktoken-go library for OpenAI-compatible
// BPE tokenization.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// New creates a tokenizer with the named encoding
// ("cl100k_base" or "p50k_base").
func New(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) []int32 {
	tokens := t.encoding.Encode(text, nil, nil)
	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // vocab size < 2^31
	}
	return result
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int32) string {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		intTokens[i] = int(tok)
	}
	return t.encoding.Decode(intTokens)
}

// TokenStrings decodes each token individually, preserving the
// per-token text a sequence tagger labels.
func (t *TikToken) TokenStrings(tokens []int32) []string {
	result := make([]string, len(tokens))
	for i, tok := range tokens {
		result[i] = t.encoding.Decode([]int{int(tok)})
	}
	return result
}

// VocabSize returns the vocabulary size of the encoding.
func (t *TikToken) VocabSize() int {
	switch t.name {
	case EncodingCL100kBase:
		return 100256
	case EncodingP50kBase:
		return 50257
	default:
		return 100000
	}
}
