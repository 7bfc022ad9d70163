// Package e2ee implements the room envelope clients use to encrypt message
// bodies and room names. The server only relays envelopes; it never derives
// keys.
package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Algorithm  = "AES-GCM"
	Iterations = 250000
	KeySize    = 32 // AES-256
	IVSize     = 12
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported envelope algorithm")
	ErrInvalidEnvelope      = errors.New("invalid envelope")
	ErrDecryptionFailed     = errors.New("decryption failed")
)

// Envelope is the wire form of an encrypted value. Ciphertext carries the GCM
// tag; both fields use padded standard base64.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Alg        string `json:"alg"`
}

// DeriveKey stretches the room code into the room key. The code is both the
// password and the salt, so everyone holding the code derives the same key.
func DeriveKey(roomCode string) []byte {
	code := []byte(roomCode)
	return pbkdf2.Key(code, code, Iterations, KeySize, sha256.New)
}

// Sealer encrypts and decrypts envelopes under one room key.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// ForRoom derives the key of roomCode and returns its sealer.
func ForRoom(roomCode string) (*Sealer, error) {
	return NewSealer(DeriveKey(roomCode))
}

// Seal encrypts plaintext under a fresh random IV. No additional data is bound.
func (s *Sealer) Seal(plaintext string) (Envelope, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Envelope{}, fmt.Errorf("read iv: %w", err)
	}

	ciphertext := s.aead.Seal(nil, iv, []byte(plaintext), nil)

	return Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Alg:        Algorithm,
	}, nil
}

func (s *Sealer) Open(env Envelope) (string, error) {
	if env.Alg != Algorithm {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, env.Alg)
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(iv) != IVSize {
		return "", fmt.Errorf("%w: bad iv", ErrInvalidEnvelope)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil || len(ciphertext) < s.aead.Overhead() {
		return "", fmt.Errorf("%w: bad ciphertext", ErrInvalidEnvelope)
	}

	plaintext, err := s.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
