// Package password generates random initial credentials for provisioned
// accounts, meeting the Entra ID default password composition policy.
package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// DefaultLength is used when the caller does not specify a length.
	DefaultLength = 16
	// MinLength is the shortest password that can still contain one
	// character from every required class.
	MinLength = 4
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}"
)

// Generate returns a random password of the given length containing at least
// one uppercase letter, one lowercase letter, one digit, and one symbol.
// A length of zero or less selects DefaultLength; lengths below MinLength
// are rejected because the composition policy cannot be satisfied.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	if length < MinLength {
		return "", fmt.Errorf("password length must be at least %d (got %d)", MinLength, length)
	}

	chars := make([]byte, 0, length)

	// One character from each required class, then fill from the full set.
	for _, class := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	full := upperChars + lowerChars + digitChars + symbolChars
	for len(chars) < length {
		c, err := randomChar(full)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Shuffle so the required characters are not anchored at fixed positions.
	if err := shuffle(chars); err != nil {
		return "", err
	}

	return string(chars), nil
}

// Strength returns a coarse label for a password: "Weak", "Fair", or
// "Strong", scored from length and character-class coverage.
func Strength(password string) string {
	classes := 0
	for _, class := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		if containsAny(password, class) {
			classes++
		}
	}

	switch {
	case len(password) >= 12 && classes == 4:
		return "Strong"
	case len(password) >= 8 && classes >= 3:
		return "Fair"
	default:
		return "Weak"
	}
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return set[n.Int64()], nil
}

// shuffle performs a Fisher-Yates shuffle using crypto/rand.
func shuffle(chars []byte) error {
	for i := len(chars) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("failed to read random source: %w", err)
		}
		j := n.Int64()
		chars[i], chars[j] = chars[j], chars[i]
	}
	return nil
}

func containsAny(s, set string) bool {
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(set); j++ {
			if s[i] == set[j] {
				return true
			}
		}
	}
	return false
}
