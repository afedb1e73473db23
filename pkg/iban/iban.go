// Package iban generates and validates ISO-13616 IBANs using the mod-97
// check-digit scheme. The modulo is computed digit-at-a-time so arbitrarily
// long account numbers never need big-integer arithmetic.
package iban

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

const (
	// CountryES is the country prefix used for accounts minted by this bank.
	CountryES = "ES"
	// BBANLengthES is the Basic Bank Account Number length for Spain.
	// Country (2) + check digits (2) + BBAN (20) = 24 characters total.
	BBANLengthES = 20

	// minLength is the shortest IBAN defined by any country registry.
	minLength = 15
)

// Generator mints IBANs from an injected entropy source. The production
// constructor uses crypto/rand so generated identifiers cannot be guessed or
// correlated; tests may inject a deterministic reader.
type Generator struct {
	entropy io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy returns a Generator reading randomness from r.
// Intended for tests that need reproducible output.
func NewGeneratorWithEntropy(r io.Reader) *Generator {
	return &Generator{entropy: r}
}

// Generate produces a valid IBAN for the given country code and BBAN length:
// countryCode + two check digits + bbanLength random decimal digits.
func (g *Generator) Generate(countryCode string, bbanLength int) (string, error) {
	bban, err := g.randomDigits(bbanLength)
	if err != nil {
		return "", fmt.Errorf("generate bban: %w", err)
	}

	check, err := checkDigits(countryCode, bban)
	if err != nil {
		return "", fmt.Errorf("compute check digits: %w", err)
	}

	return countryCode + check + bban, nil
}

// GenerateES mints a Spanish IBAN (24 characters, "ES" prefix).
func (g *Generator) GenerateES() (string, error) {
	return g.Generate(CountryES, BBANLengthES)
}

// Valid reports whether s passes the ISO-13616 check: after stripping spaces
// and upper-casing, the string rearranged as s[4:]+s[:4], with letters
// expanded to their numeric values (A=10 .. Z=35), must reduce to 1 mod 97.
// Any non-alphanumeric character makes the IBAN invalid; Valid never errors.
func Valid(s string) bool {
	normalized := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if len(normalized) < minLength {
		return false
	}

	rearranged := normalized[4:] + normalized[:4]
	expanded, err := expandLetters(rearranged)
	if err != nil {
		return false
	}
	return mod97(expanded) == 1
}

// checkDigits computes the two check digits for countryCode+bban:
// expand letters in bban+countryCode+"00", reduce mod 97, check = 98 - rem.
// Unlike Valid, an invalid character here is an internal bug (the BBAN is
// generated, not user input), so it surfaces as an error.
func checkDigits(countryCode, bban string) (string, error) {
	expanded, err := expandLetters(bban + countryCode + "00")
	if err != nil {
		return "", err
	}
	check := 98 - mod97(expanded)
	return fmt.Sprintf("%02d", check), nil
}

// expandLetters replaces each letter with its numeric value (A=10 .. Z=35),
// leaving decimal digits untouched.
func expandLetters(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			fmt.Fprintf(&b, "%d", int(ch-'A')+10)
		case ch >= '0' && ch <= '9':
			b.WriteByte(ch)
		default:
			return "", fmt.Errorf("invalid character in iban: %q", ch)
		}
	}
	return b.String(), nil
}

// mod97 reduces a decimal numeral string modulo 97 one digit at a time.
func mod97(numeric string) int {
	rem := 0
	for i := 0; i < len(numeric); i++ {
		rem = (rem*10 + int(numeric[i]-'0')) % 97
	}
	return rem
}

// randomDigits draws n decimal digits from the entropy source.
func (g *Generator) randomDigits(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.entropy, buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(n)
	for _, v := range buf {
		b.WriteByte('0' + v%10)
	}
	return b.String(), nil
}
