// File: internal/memory/tokens.go
package memory

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter returns the number of model tokens in a piece of text.
type TokenCounter func(text string) int

var (
	encoder     *tiktoken.Tiktoken
	encoderOnce sync.Once
	encoderErr  error
)

// CountTokens counts tokens with the cl100k_base encoding. When the encoding
// cannot be loaded it falls back to an estimate of four characters per token.
func CountTokens(text string) int {
	encoderOnce.Do(func() {
		encoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encoderErr != nil {
		return EstimateTokens(text)
	}
	return len(encoder.Encode(text, nil, nil))
}

// EstimateTokens approximates a token count from the rune length.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
