package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomBase36 returns n characters drawn from [0-9a-z]. The slight modulo
// bias is irrelevant: the values only need to look plausible.
func randomBase36(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i := range b {
		b[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(b), nil
}

// randomSegment returns n random bytes as an unpadded base64url string.
func randomSegment(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
