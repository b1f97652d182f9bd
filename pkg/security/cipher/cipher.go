// Package cipher implements authenticated encryption of record payloads.
//
// Payloads are sealed with AES-256-GCM under a 96-bit random nonce drawn
// fresh for every call. The resulting blob is three colon-separated base64
// segments:
//
//	base64(nonce):base64(tag):base64(ciphertext)
//
// Decryption fails with ErrDecryptionFailed for any malformed blob, wrong
// key or tampered byte. It never returns partially verified plaintext.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"mercator-hq/sovereign/pkg/governance"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32

	// NonceSize is the GCM nonce size in bytes (96 bits).
	NonceSize = 12

	// TagSize is the GCM authentication tag size in bytes (128 bits).
	TagSize = 16

	// Algorithm names the construction for status output.
	Algorithm = "AES-256-GCM"

	separator = ":"
)

var (
	// ErrDecryptionFailed is returned for every decryption failure.
	ErrDecryptionFailed = governance.ErrDecryptionFailed

	// ErrInvalidKey is returned when a key is not KeySize bytes.
	ErrInvalidKey = errors.New("invalid key: must be 32 bytes")
)

var encoding = base64.RawStdEncoding.Strict()

// Encrypt seals plaintext under key and returns the encoded blob.
func Encrypt(plaintext, key []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return strings.Join([]string{
		encoding.EncodeToString(nonce),
		encoding.EncodeToString(tag),
		encoding.EncodeToString(ciphertext),
	}, separator), nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(blob string, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(blob, separator)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrDecryptionFailed, len(parts))
	}

	nonce, err := encoding.DecodeString(parts[0])
	if err != nil || len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: malformed nonce", ErrDecryptionFailed)
	}
	tag, err := encoding.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return nil, fmt.Errorf("%w: malformed tag", ErrDecryptionFailed)
	}
	ciphertext, err := encoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrDecryptionFailed)
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newAEAD(key []byte) (stdcipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
