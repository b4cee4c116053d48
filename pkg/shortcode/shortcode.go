// Package shortcode generates random short codes and validates user supplied ones.
package shortcode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultLength is the length of generated short codes when none is configured.
const DefaultLength = 6

// Alphabet is the URL-safe set generated codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

const (
	minCustomLength = 3
	maxCustomLength = 20
)

// ErrNegativeLength is returned by Generate for lengths below zero.
var ErrNegativeLength = errors.New("negative short code length")

var customCodeRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

var reservedCodes = map[string]struct{}{
	"api":       {},
	"admin":     {},
	"www":       {},
	"app":       {},
	"dashboard": {},
	"health":    {},
	"status":    {},
}

// Generate returns a cryptographically random code of exactly length characters.
func Generate(length int) (string, error) {
	const op = "shortcode.Generate"

	if length < 0 {
		return "", fmt.Errorf("%s: %w", op, ErrNegativeLength)
	}
	if length == 0 {
		return "", nil
	}

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// IsValidCustom reports whether code may be used as a custom short code.
// Reserved words are compared case-insensitively and only as whole codes.
func IsValidCustom(code string) bool {
	if len(code) < minCustomLength || len(code) > maxCustomLength {
		return false
	}

	if !customCodeRe.MatchString(code) {
		return false
	}

	_, reserved := reservedCodes[strings.ToLower(code)]
	return !reserved
}
