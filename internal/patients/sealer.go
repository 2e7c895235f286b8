package patients

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealed is returned when a stored document fails authentication.
var ErrSealed = errors.New("patients: sealed record failed authentication")

// Sealer encrypts patient documents at rest with XChaCha20-Poly1305. The
// medical card id is bound as associated data so a sealed document cannot
// be swapped between rows.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("patients: init sealer: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce||ciphertext.
func (s *Sealer) Seal(plaintext []byte, medicalCardID string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("patients: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(medicalCardID)), nil
}

func (s *Sealer) Open(sealed []byte, medicalCardID string) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, ErrSealed
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(medicalCardID))
	if err != nil {
		return nil, ErrSealed
	}
	return plaintext, nil
}
