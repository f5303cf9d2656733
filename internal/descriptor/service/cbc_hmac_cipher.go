package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/allisson/keyring/internal/descriptor/domain"
)

// cbcHMACAuthenticator implements Authenticator as AES-CBC with an
// encrypt-then-MAC HMAC over the associated data, IV and ciphertext.
//
// Ciphertext layout: iv || ciphertext || tag. The MAC input is
// len(aad) (8 bytes big-endian) || aad || iv || ciphertext, so moving bytes
// between the associated data and the ciphertext cannot produce a second
// valid encoding.
type cbcHMACAuthenticator struct {
	block   cipher.Block
	macKey  []byte
	newHash func() hash.Hash
	tagSize int
}

// hashForValidation maps a validation algorithm to its hash constructor.
func hashForValidation(v domain.ValidationAlgorithm) (func() hash.Hash, error) {
	switch v {
	case domain.HMACSHA256:
		return sha256.New, nil
	case domain.HMACSHA384:
		return sha512.New384, nil
	case domain.HMACSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized validation algorithm %q", domain.ErrConfiguration, v)
	}
}

// newCBCHMACAuthenticator builds the software CBC+HMAC authenticator from
// already-derived encryption and MAC subkeys. It keeps its own copy of the
// MAC key so callers can wipe theirs.
func newCBCHMACAuthenticator(encKey, macKey []byte, v domain.ValidationAlgorithm) (Authenticator, error) {
	newHash, err := hashForValidation(v)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	mk := make([]byte, len(macKey))
	copy(mk, macKey)
	return &cbcHMACAuthenticator{
		block:   block,
		macKey:  mk,
		newHash: newHash,
		tagSize: newHash().Size(),
	}, nil
}

func (c *cbcHMACAuthenticator) tag(aad, iv, ciphertext []byte) []byte {
	mac := hmac.New(c.newHash, c.macKey)
	var aadLen [8]byte
	binary.BigEndian.PutUint64(aadLen[:], uint64(len(aad)))
	mac.Write(aadLen[:])
	mac.Write(aad)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

// Encrypt pads the plaintext (PKCS#7), encrypts it under a random IV, and
// appends the HMAC tag binding the associated data.
func (c *cbcHMACAuthenticator) Encrypt(plaintext, aad []byte) ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ciphertext, padded)
	domain.Zero(padded)

	out := make([]byte, 0, len(iv)+len(ciphertext)+c.tagSize)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, c.tag(aad, iv, ciphertext)...)
	return out, nil
}

// Decrypt verifies the HMAC tag in constant time before touching the
// ciphertext, then decrypts and strips the padding. Every failure mode
// collapses into ErrDecryptionFailed.
func (c *cbcHMACAuthenticator) Decrypt(ciphertext, aad []byte) ([]byte, error) {
	minLen := aes.BlockSize + aes.BlockSize + c.tagSize
	if len(ciphertext) < minLen {
		return nil, domain.ErrDecryptionFailed
	}
	body := ciphertext[:len(ciphertext)-c.tagSize]
	tag := ciphertext[len(ciphertext)-c.tagSize:]
	iv := body[:aes.BlockSize]
	ct := body[aes.BlockSize:]

	if len(ct)%aes.BlockSize != 0 {
		return nil, domain.ErrDecryptionFailed
	}
	if !hmac.Equal(tag, c.tag(aad, iv, ct)) {
		return nil, domain.ErrDecryptionFailed
	}

	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(padded, ct)
	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		domain.Zero(padded)
		return nil, domain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// pkcs7Pad returns data padded to a multiple of blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// pkcs7Unpad strips and validates PKCS#7 padding. Callers must verify the
// HMAC tag before invoking it.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
