package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/errors"
	"github.com/allisson/keyring/internal/secret"
)

// xchachaFactory builds an XChaCha20-Poly1305 authenticator, a cipher none of
// the built-in variants offer, which is exactly what the extensible backend
// is for.
func xchachaFactory(ctx context.Context, master *secret.Secret, keyLengthBits int) (Authenticator, error) {
	var auth Authenticator
	err := master.WithBytes(ctx, func(key []byte) error {
		derived, err := deriveSubkey(key, labelEncryption, "xchacha20-poly1305", chacha20poly1305.KeySize)
		if err != nil {
			return err
		}
		defer domain.Zero(derived)

		aead, err := chacha20poly1305.NewX(derived)
		if err != nil {
			return err
		}
		auth = &aeadAuthenticator{aead: aead}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}

func TestRegisterCustomFactory(t *testing.T) {
	t.Run("duplicate registration is a conflict", func(t *testing.T) {
		require.NoError(t, RegisterCustomFactory("test/duplicate", xchachaFactory))
		err := RegisterCustomFactory("test/duplicate", xchachaFactory)
		assert.ErrorIs(t, err, errors.ErrConflict)
	})
}

func TestCustomDescriptor(t *testing.T) {
	ctx := context.Background()
	protector := newTestProtector(t)
	require.NoError(t, RegisterCustomFactory("test/xchacha20-poly1305", xchachaFactory))

	config := domain.CustomConfiguration{TypeID: "test/xchacha20-poly1305"}

	t.Run("document carries the type attribute", func(t *testing.T) {
		descriptor := NewCustomDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)
		assert.Equal(t, CustomDeserializerTag, exported.DeserializerTag)

		enc := exported.Document.Root().SelectElement(domain.ElementEncryption)
		assert.Equal(t, "test/xchacha20-poly1305", enc.SelectAttrValue(domain.AttrCustomType, ""))
		assert.Nil(t, enc.SelectAttr(domain.AttrKeyLength))
	})

	t.Run("explicit key length is persisted", func(t *testing.T) {
		withLength := domain.CustomConfiguration{TypeID: "test/xchacha20-poly1305", KeyLengthBits: 256}
		descriptor := NewCustomDescriptor(withLength, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		enc := exported.Document.Root().SelectElement(domain.ElementEncryption)
		assert.Equal(t, "256", enc.SelectAttrValue(domain.AttrKeyLength, ""))

		restored, err := NewCustomDeserializer(protector).Deserialize(ctx, exported.Document)
		require.NoError(t, err)
		assert.Equal(t, withLength, restored.Configuration())
	})

	t.Run("factory-built authenticator round trips", func(t *testing.T) {
		descriptor := NewCustomDescriptor(config, newTestSecret(t))
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

	t.Run("round trip re-export is byte-for-byte identical", func(t *testing.T) {
		descriptor := NewCustomDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)
		exportedBytes, err := exported.WriteBytes()
		require.NoError(t, err)

		restored, err := NewCustomDeserializer(protector).Deserialize(ctx, exported.Document)
		require.NoError(t, err)

		reExported, err := restored.ExportDocument(ctx, protector)
		require.NoError(t, err)
		reExportedBytes, err := reExported.WriteBytes()
		require.NoError(t, err)
		assert.Equal(t, exportedBytes, reExportedBytes)
	})

	t.Run("unresolvable type fails only at authenticator creation", func(t *testing.T) {
		unresolved := domain.CustomConfiguration{TypeID: "test/never-registered"}
		descriptor := NewCustomDescriptor(unresolved, newTestSecret(t))

		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		restored, err := NewCustomDeserializer(protector).Deserialize(ctx, exported.Document)
		require.NoError(t, err)

		_, err = restored.CreateAuthenticator(ctx)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("missing type attribute", func(t *testing.T) {
		descriptor := NewCustomDescriptor(config, newTestSecret(t))
		exported, err := descriptor.ExportDocument(ctx, protector)
		require.NoError(t, err)

		enc := exported.Document.Root().SelectElement(domain.ElementEncryption)
		enc.RemoveAttr(domain.AttrCustomType)

		_, err = NewCustomDeserializer(protector).Deserialize(ctx, exported.Document)
		assert.ErrorIs(t, err, domain.ErrFormat)
	})
}
