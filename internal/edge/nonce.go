package edge

import (
	"fmt"

	"github.com/google/uuid"
)

// NewNonce — случайный UUID v4. uuid.NewRandom читает crypto/rand,
// так что значение непредсказуемо и годится для CSP.
func NewNonce() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("генерация nonce: %w", err)
	}
	return id.String(), nil
}
