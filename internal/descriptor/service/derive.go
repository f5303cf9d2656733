package service

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Subkey derivation labels. The master key is treated as a key-derivation
// key: the working encryption and validation keys are stretched from it with
// HKDF-SHA256, so the configuration's key length governs the derived key size
// independently of the master key's own entropy size.
const (
	labelEncryption = "encryption"
	labelValidation = "validation"
)

// deriveSubkey derives size bytes from the master key for the given label
// and context string. The context binds the subkey to the descriptor's
// algorithm parameters so that changing the configuration yields unrelated keys.
func deriveSubkey(master []byte, label, context string, size int) ([]byte, error) {
	info := fmt.Sprintf("keyring/v1/%s/%s", label, context)
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s subkey: %w", label, err)
	}
	return key, nil
}
