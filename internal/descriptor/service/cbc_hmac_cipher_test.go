package service

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/keyring/internal/descriptor/domain"
)

func newTestCBCHMAC(t *testing.T, v domain.ValidationAlgorithm) Authenticator {
	t.Helper()
	encKey := make([]byte, 32)
	macKey := make([]byte, 32)
	_, err := rand.Read(encKey)
	require.NoError(t, err)
	_, err = rand.Read(macKey)
	require.NoError(t, err)

	auth, err := newCBCHMACAuthenticator(encKey, macKey, v)
	require.NoError(t, err)
	return auth
}

func TestNewCBCHMACAuthenticator(t *testing.T) {
	t.Run("all validation algorithms", func(t *testing.T) {
		for _, v := range []domain.ValidationAlgorithm{
			domain.HMACSHA256, domain.HMACSHA384, domain.HMACSHA512,
		} {
			auth := newTestCBCHMAC(t, v)
			assert.NotNil(t, auth)
		}
	})

	t.Run("unrecognized validation algorithm", func(t *testing.T) {
		key := make([]byte, 32)
		_, err := newCBCHMACAuthenticator(key, key, "hmac-md5")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("invalid encryption key size", func(t *testing.T) {
		macKey := make([]byte, 32)
		_, err := newCBCHMACAuthenticator(make([]byte, 20), macKey, domain.HMACSHA256)
		assert.Error(t, err)
	})
}

func TestCBCHMACAuthenticator_EncryptDecrypt(t *testing.T) {
	auth := newTestCBCHMAC(t, domain.HMACSHA256)

	t.Run("round trip with AAD", func(t *testing.T) {
		plaintext := []byte("hello")
		aad := []byte("ctx")

		ciphertext, err := auth.Encrypt(plaintext, aad)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, ciphertext)

		decrypted, err := auth.Decrypt(ciphertext, aad)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("round trip without AAD", func(t *testing.T) {
		plaintext := []byte("hello")

		ciphertext, err := auth.Encrypt(plaintext, nil)
		require.NoError(t, err)

		decrypted, err := auth.Decrypt(ciphertext, nil)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("round trip empty plaintext", func(t *testing.T) {
		ciphertext, err := auth.Encrypt(nil, []byte("ctx"))
		require.NoError(t, err)

		decrypted, err := auth.Decrypt(ciphertext, []byte("ctx"))
		require.NoError(t, err)
		assert.Empty(t, decrypted)
	})

	t.Run("ciphertexts differ across encryptions", func(t *testing.T) {
		first, err := auth.Encrypt([]byte("hello"), []byte("ctx"))
		require.NoError(t, err)
		second, err := auth.Encrypt([]byte("hello"), []byte("ctx"))
		require.NoError(t, err)
		assert.False(t, bytes.Equal(first, second))
	})

	t.Run("wrong AAD fails", func(t *testing.T) {
		ciphertext, err := auth.Encrypt([]byte("hello"), []byte("ctx"))
		require.NoError(t, err)

		_, err = auth.Decrypt(ciphertext, []byte("other"))
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("tampered byte fails everywhere", func(t *testing.T) {
		ciphertext, err := auth.Encrypt([]byte("hello"), []byte("ctx"))
		require.NoError(t, err)

		for _, i := range []int{0, len(ciphertext) / 2, len(ciphertext) - 1} {
			tampered := bytes.Clone(ciphertext)
			tampered[i] ^= 0x01
			_, err := auth.Decrypt(tampered, []byte("ctx"))
			assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
		}
	})

	t.Run("truncated ciphertext fails", func(t *testing.T) {
		ciphertext, err := auth.Encrypt([]byte("hello"), []byte("ctx"))
		require.NoError(t, err)

		_, err = auth.Decrypt(ciphertext[:16], []byte("ctx"))
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("all validation algorithms round trip", func(t *testing.T) {
		for _, v := range []domain.ValidationAlgorithm{
			domain.HMACSHA256, domain.HMACSHA384, domain.HMACSHA512,
		} {
			auth := newTestCBCHMAC(t, v)
			ciphertext, err := auth.Encrypt([]byte("hello"), []byte("ctx"))
			require.NoError(t, err)
			decrypted, err := auth.Decrypt(ciphertext, []byte("ctx"))
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), decrypted)
		}
	})
}

func TestPKCS7(t *testing.T) {
	t.Run("pad and unpad round trip", func(t *testing.T) {
		for _, size := range []int{0, 1, 15, 16, 17, 32} {
			data := bytes.Repeat([]byte{0x7F}, size)
			padded := pkcs7Pad(data, 16)
			assert.Zero(t, len(padded)%16)

			unpadded, err := pkcs7Unpad(padded, 16)
			require.NoError(t, err)
			assert.Equal(t, data, unpadded)
		}
	})

	t.Run("full block of padding for aligned input", func(t *testing.T) {
		padded := pkcs7Pad(bytes.Repeat([]byte{0x01}, 16), 16)
		assert.Len(t, padded, 32)
		assert.Equal(t, byte(16), padded[31])
	})

	t.Run("invalid padding values", func(t *testing.T) {
		_, err := pkcs7Unpad([]byte{}, 16)
		assert.Error(t, err)

		block := bytes.Repeat([]byte{0x00}, 16)
		_, err = pkcs7Unpad(block, 16)
		assert.Error(t, err)

		block = bytes.Repeat([]byte{0x11}, 16) // 17 > block size
		_, err = pkcs7Unpad(block, 16)
		assert.Error(t, err)

		block = append(bytes.Repeat([]byte{0x05}, 14), 0x06, 0x02)
		_, err = pkcs7Unpad(block, 16)
		assert.Error(t, err)
	})
}
