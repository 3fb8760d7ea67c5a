package linkvault

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// idAlphabet and idLength give 62^12 possible ids, enough that collisions are
// practically impossible and ids cannot be guessed.
const (
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	idLength   = 12
)

// NewContentID returns a fresh 12-character URL-safe public identifier.
func NewContentID() (string, error) {
	id := make([]byte, idLength)
	// Rejection sampling keeps the distribution uniform over the alphabet.
	buf := make([]byte, idLength*2)
	pos := 0
	for pos < idLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate content id: %w", err)
		}
		for _, b := range buf {
			if int(b) >= 256-(256%len(idAlphabet)) {
				continue
			}
			id[pos] = idAlphabet[int(b)%len(idAlphabet)]
			pos++
			if pos == idLength {
				break
			}
		}
	}
	return string(id), nil
}

// NewDeleteToken returns the single-use deletion capability issued at create
// time.
func NewDeleteToken() string {
	return uuid.NewString()
}
