// Package generator produces random passwords from configurable character
// classes. Sampling is independent and uniform per position over the union of
// the enabled class pools; there is no per-class minimum and no exclusion of
// look-alike characters.
package generator

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars     = "0123456789"
	symbolChars    = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// FastLength is the fixed length used for one-tap generation.
	FastLength = 12
)

// Lengths enumerates the password lengths offered to users.
var Lengths = []int{8, 12, 16, 20, 24, 32}

var (
	// ErrNoClasses is returned when every character class is disabled.
	ErrNoClasses = errors.New("generator: at least one character class must be enabled")
	// ErrBadLength is returned for lengths outside the offered set.
	ErrBadLength = errors.New("generator: unsupported password length")
)

// Classes selects which character pools contribute to generation.
type Classes struct {
	Lower  bool
	Upper  bool
	Digit  bool
	Symbol bool
}

// AllClasses enables every character class.
func AllClasses() Classes {
	return Classes{Lower: true, Upper: true, Digit: true, Symbol: true}
}

// Empty reports whether no class is enabled.
func (c Classes) Empty() bool {
	return !c.Lower && !c.Upper && !c.Digit && !c.Symbol
}

// Pool returns the union of the enabled character pools.
func (c Classes) Pool() string {
	var b strings.Builder
	if c.Lower {
		b.WriteString(lowercaseChars)
	}
	if c.Upper {
		b.WriteString(uppercaseChars)
	}
	if c.Digit {
		b.WriteString(digitChars)
	}
	if c.Symbol {
		b.WriteString(symbolChars)
	}
	return b.String()
}

// Summary renders a short human-readable description of the enabled classes,
// e.g. "a-z + A-Z + 0-9 + !@#".
func (c Classes) Summary() string {
	var parts []string
	if c.Lower {
		parts = append(parts, "a-z")
	}
	if c.Upper {
		parts = append(parts, "A-Z")
	}
	if c.Digit {
		parts = append(parts, "0-9")
	}
	if c.Symbol {
		parts = append(parts, "!@#")
	}
	return strings.Join(parts, " + ")
}

// ValidLength reports whether n is one of the offered lengths.
func ValidLength(n int) bool {
	for _, l := range Lengths {
		if n == l {
			return true
		}
	}
	return false
}

// Generate returns a random password of exactly length characters drawn from
// the enabled classes. Length must be one of Lengths and at least one class
// must be enabled; callers are expected to validate user input first.
func Generate(length int, classes Classes) (string, error) {
	if classes.Empty() {
		return "", ErrNoClasses
	}
	if !ValidLength(length) {
		return "", ErrBadLength
	}

	pool := classes.Pool()
	out := make([]byte, length)
	for i := range out {
		ch, err := randChar(pool)
		if err != nil {
			return "", err
		}
		out[i] = ch
	}
	return string(out), nil
}

// Fast returns a FastLength password with every class enabled.
func Fast() (string, error) {
	return Generate(FastLength, AllClasses())
}

func randChar(pool string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		return 0, err
	}
	return pool[n.Int64()], nil
}
