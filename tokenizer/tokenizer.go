// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer provides BPE text tokenization for sequence models.
//
// This package wraps the internal tokenizer implementation and provides
// a clean public API for tokenization tasks.
//
// Example usage:
//
//	import "github.com/kiln-ml/kiln/tokenizer"
//
//	tok, err := tokenizer.New(tokenizer.EncodingCL100kBase)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokens := tok.Encode("Hello, world!")
//	text := tok.Decode(tokens)
package tokenizer

import (
	"github.com/kiln-ml/kiln/internal/tokenizer"
)

// Supported encodings.
const (
	// EncodingCL100kBase is the GPT-4 family encoding.
	EncodingCL100kBase = tokenizer.EncodingCL100kBase
	// EncodingP50kBase is the GPT-3 family encoding.
	EncodingP50kBase = tokenizer.EncodingP50kBase
)

// TikToken is an OpenAI-compatible BPE tokenizer.
type TikToken = tokenizer.TikToken

// New creates a tokenizer with the named encoding.
//
// Supported encodings: "cl100k_base" (GPT-4), "p50k_base" (GPT-3).
func New(encodingName string) (*TikToken, error) {
	return tokenizer.New(encodingName)
}
