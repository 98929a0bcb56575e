package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "student-records-session-v1"

var (
	// ErrInvalidSecret is returned for an empty signing secret.
	ErrInvalidSecret = errors.New("invalid session secret")
	// ErrAuthenticationFailed is returned when a sealed value was not
	// produced by any configured key or was tampered with.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// sealer encrypts and authenticates cookie values with XChaCha20-Poly1305.
// The first key seals; every key is tried when opening.
type sealer struct {
	keys [][]byte
}

func newSealer(secrets [][]byte) (*sealer, error) {
	if len(secrets) == 0 {
		return nil, fmt.Errorf("%w: no secrets", ErrInvalidSecret)
	}
	s := &sealer{keys: make([][]byte, 0, len(secrets))}
	for _, secret := range secrets {
		key, err := deriveKey(secret)
		if err != nil {
			return nil, err
		}
		s.keys = append(s.keys, key)
	}
	return s, nil
}

func deriveKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: secret must not be empty", ErrInvalidSecret)
	}
	r := hkdf.New(sha256.New, secret, nil, []byte(keyInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

// seal returns base64url(nonce || ciphertext).
func (s *sealer) seal(plaintext, aad []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.keys[0])
	if err != nil {
		return "", fmt.Errorf("construct xchacha20-poly1305: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, aad)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *sealer) open(value string, aad []byte) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < chacha20poly1305.NonceSizeX {
		return nil, ErrAuthenticationFailed
	}
	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	for _, key := range s.keys {
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("construct xchacha20-poly1305: %w", err)
		}
		if plaintext, err := aead.Open(nil, nonce, ciphertext, aad); err == nil {
			return plaintext, nil
		}
	}
	return nil, ErrAuthenticationFailed
}

func randomSecret() ([]byte, error) {
	secret := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return secret, nil
}
