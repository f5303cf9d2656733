package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/allisson/keyring/internal/descriptor/domain"
)

// aeadAuthenticator implements Authenticator on a standard AEAD cipher.
// Ciphertext layout: nonce || ciphertext+tag. A fresh random nonce is
// generated per encryption; nonce reuse with the same key would be fatal
// for both GCM and ChaCha20-Poly1305.
type aeadAuthenticator struct {
	aead cipher.AEAD
}

// newAEADAuthenticator builds an AEAD authenticator for the given software
// algorithm and raw key. The key length must already match the algorithm;
// configuration validation guarantees that upstream.
func newAEADAuthenticator(alg domain.Algorithm, key []byte) (Authenticator, error) {
	switch alg {
	case domain.AESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create AES cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		return &aeadAuthenticator{aead: aead}, nil
	case domain.ChaCha20:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
		}
		return &aeadAuthenticator{aead: aead}, nil
	default:
		return nil, fmt.Errorf("%w: algorithm %q has no software AEAD", domain.ErrConfiguration, alg)
	}
}

// Encrypt encrypts plaintext with a fresh random nonce, authenticating the
// associated data. The nonce is prepended to the returned ciphertext.
func (a *aeadAuthenticator) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return a.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Decrypt verifies the authentication tag and associated data before
// returning plaintext. Any mismatch yields ErrDecryptionFailed with no
// detail about the cause.
func (a *aeadAuthenticator) Decrypt(ciphertext, aad []byte) ([]byte, error) {
	ns := a.aead.NonceSize()
	if len(ciphertext) < ns+a.aead.Overhead() {
		return nil, domain.ErrDecryptionFailed
	}
	plaintext, err := a.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], aad)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	return plaintext, nil
}
