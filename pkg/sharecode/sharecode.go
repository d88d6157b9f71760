// Package sharecode generates the short codes used to share a pot
package sharecode

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Length is the number of characters in a share code
const Length = 8

// Alphabet is the URL-safe nanoid alphabet
const Alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// New returns a fresh random share code
func New() (string, error) {
	code, err := gonanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("failed to generate share code: %w", err)
	}
	return code, nil
}

// Valid reports whether code has the shape of a share code
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
