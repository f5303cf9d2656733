package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/keyring/internal/descriptor/domain"
)

func TestCBCHMACDescriptor_ExportDocument(t *testing.T) {
	ctx := context.Background()
	protector := newTestProtector(t)
	config := domain.CBCHMACConfiguration{
		Algorithm:     domain.AESCBC,
		KeyLengthBits: 256,
		Validation:    domain.HMACSHA256,
	}

	t.Run("document structure", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)
		assert.Equal(t, CBCHMACDeserializerTag, exported.DeserializerTag)

		root := exported.Document.Root()
		require.NotNil(t, root)
		assert.Equal(t, domain.ElementDescriptor, root.Tag)

		enc := root.SelectElement(domain.ElementEncryption)
		require.NotNil(t, enc)
		assert.Equal(t, "aes-cbc", enc.SelectAttrValue(domain.AttrAlgorithm, ""))
		assert.Equal(t, "256", enc.SelectAttrValue(domain.AttrKeyLength, ""))
		assert.Equal(t, "hmac-sha256", enc.SelectAttrValue(domain.AttrValidation, ""))

		assert.NotNil(t, root.SelectElement(domain.ElementMasterKey))
	})

	t.Run("invalid configuration fails before rendering", func(t *testing.T) {
		bad := domain.CBCHMACConfiguration{
			Algorithm:     domain.AESCBC,
			KeyLengthBits: 100,
			Validation:    domain.HMACSHA256,
		}
		descriptor := NewCBCHMACDescriptor(bad, newTestSecret(t))
		_, err := descriptor.ExportDocument(ctx, protector)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("repeated exports are byte-for-byte identical", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))

		first, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)
		firstBytes, err := first.WriteBytes()
		require.NoError(t, err)

		second, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)
		secondBytes, err := second.WriteBytes()
		require.NoError(t, err)

		assert.Equal(t, firstBytes, secondBytes)
	})
}

func TestCBCHMACDeserializer(t *testing.T) {
	ctx := context.Background()
	protector := newTestProtector(t)
	deserializer := NewCBCHMACDeserializer(protector)
	config := domain.CBCHMACConfiguration{
		Algorithm:     domain.AESCBC,
		KeyLengthBits: 256,
		Validation:    domain.HMACSHA256,
	}

	t.Run("round trip re-export is byte-for-byte identical", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)
		exportedBytes, err := exported.WriteBytes()
		require.NoError(t, err)

		restored, err := deserializer.Deserialize(ctx, exported.Document)
		require.NoError(t, err)
		assert.Equal(t, config, restored.Configuration())

		reExported, err := restored.ExportDocument(ctx, protector)
		require.NoError(t, err)
		reExportedBytes, err := reExported.WriteBytes()
		require.NoError(t, err)

		assert.Equal(t, exportedBytes, reExportedBytes)
	})

	t.Run("deserialized descriptor decrypts the original's output", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		restored, err := deserializer.Deserialize(ctx, exported.Document)
		require.NoError(t, err)

		original, err := descriptor.CreateAuthenticator(ctx)
		require.NoError(t, err)
		rehydrated, err := restored.CreateAuthenticator(ctx)
		require.NoError(t, err)

		ciphertext, err := original.Encrypt([]byte("hello"), []byte("ctx"))
		require.NoError(t, err)
		plaintext, err := rehydrated.Decrypt(ciphertext, []byte("ctx"))
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), plaintext)
	})

	t.Run("missing masterKey element", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		root := exported.Document.Root()
		root.RemoveChild(root.SelectElement(domain.ElementMasterKey))

		_, err = deserializer.Deserialize(ctx, exported.Document)
		assert.ErrorIs(t, err, domain.ErrFormat)
	})

	t.Run("missing validation attribute", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		enc := exported.Document.Root().SelectElement(domain.ElementEncryption)
		enc.RemoveAttr(domain.AttrValidation)

		_, err = deserializer.Deserialize(ctx, exported.Document)
		assert.ErrorIs(t, err, domain.ErrFormat)
	})

	t.Run("non-numeric key length attribute", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		enc := exported.Document.Root().SelectElement(domain.ElementEncryption)
		enc.RemoveAttr(domain.AttrKeyLength)
		enc.CreateAttr(domain.AttrKeyLength, "lots")

		_, err = deserializer.Deserialize(ctx, exported.Document)
		assert.ErrorIs(t, err, domain.ErrFormat)
	})

	t.Run("unknown algorithm attribute", func(t *testing.T) {
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		enc := exported.Document.Root().SelectElement(domain.ElementEncryption)
		enc.RemoveAttr(domain.AttrAlgorithm)
		enc.CreateAttr(domain.AttrAlgorithm, "des-cbc")

		_, err = deserializer.Deserialize(ctx, exported.Document)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestCBCHMACDescriptor_CreateAuthenticator(t *testing.T) {
	ctx := context.Background()

	t.Run("encrypts and decrypts with AAD binding", func(t *testing.T) {
		config := domain.CBCHMACConfiguration{
			Algorithm:     domain.AESCBC,
			KeyLengthBits: 256,
			Validation:    domain.HMACSHA256,
		}
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))

		auth, err := descriptor.CreateAuthenticator(ctx)
		require.NoError(t, err)

		ciphertext, err := auth.Encrypt([]byte("hello"), []byte("ctx"))
		require.NoError(t, err)

		plaintext, err := auth.Decrypt(ciphertext, []byte("ctx"))
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), plaintext)

		_, err = auth.Decrypt(ciphertext, []byte("other"))
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		config := domain.CBCHMACConfiguration{
			Algorithm:     domain.AESCBC,
			KeyLengthBits: 100,
			Validation:    domain.HMACSHA256,
		}
		descriptor := NewCBCHMACDescriptor(config, newTestSecret(t))
		_, err := descriptor.CreateAuthenticator(ctx)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
