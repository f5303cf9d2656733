package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/secret"
)

// AEADDescriptor is the software AEAD backend (AES-GCM or ChaCha20-Poly1305):
// an AEADConfiguration paired with a master key secret.
type AEADDescriptor struct {
	config domain.AEADConfiguration
	secret *secret.Secret
}

// NewAEADDescriptor binds an AEAD configuration to a master key secret.
func NewAEADDescriptor(config domain.AEADConfiguration, sec *secret.Secret) *AEADDescriptor {
	return &AEADDescriptor{config: config, secret: sec}
}

// Configuration returns the descriptor's immutable configuration.
func (d *AEADDescriptor) Configuration() domain.Configuration {
	return d.config
}

// ExportDocument renders the descriptor. The configuration is validated
// first; the master key appears only in its protected form.
func (d *AEADDescriptor) ExportDocument(
	ctx context.Context,
	protector secret.Protector,
) (*domain.ExportedDescriptor, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}

	masterKey, err := d.secret.RenderProtected(ctx, protector)
	if err != nil {
		return nil, err
	}

	comment := fmt.Sprintf(
		" software AEAD encryptor: %s-%d ",
		d.config.Algorithm, d.config.KeyLengthBits,
	)
	doc := buildDocument(comment, []attr{
		{domain.AttrAlgorithm, string(d.config.Algorithm)},
		{domain.AttrKeyLength, strconv.Itoa(d.config.KeyLengthBits)},
	}, masterKey)

	return &domain.ExportedDescriptor{
		Document:        doc,
		DeserializerTag: AEADDeserializerTag,
	}, nil
}

// CreateAuthenticator derives the working AEAD key from the master key inside
// a scoped buffer and builds the cipher. The derived key is wiped once the
// cipher owns its schedule.
func (d *AEADDescriptor) CreateAuthenticator(ctx context.Context) (Authenticator, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}

	kdfContext := fmt.Sprintf("%s/%d", d.config.Algorithm, d.config.KeyLengthBits)

	var auth Authenticator
	err := d.secret.WithBytes(ctx, func(master []byte) error {
		key, err := deriveSubkey(master, labelEncryption, kdfContext, d.config.KeyLengthBits/8)
		if err != nil {
			return err
		}
		defer domain.Zero(key)

		auth, err = newAEADAuthenticator(d.config.Algorithm, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}

// Rewrap copies the master key into a fresh descriptor with no cached
// protected rendering.
func (d *AEADDescriptor) Rewrap(ctx context.Context) (Descriptor, error) {
	sec, err := d.secret.Rewrap(ctx)
	if err != nil {
		return nil, err
	}
	return NewAEADDescriptor(d.config, sec), nil
}

// AEADDeserializer reconstructs AEADDescriptor values from documents.
type AEADDeserializer struct {
	protector secret.Protector
}

// NewAEADDeserializer creates a deserializer using the given protector to
// rehydrate master key secrets.
func NewAEADDeserializer(protector secret.Protector) *AEADDeserializer {
	return &AEADDeserializer{protector: protector}
}

// Tag returns the deserializer's fully-qualified type tag.
func (d *AEADDeserializer) Tag() string {
	return AEADDeserializerTag
}

// Deserialize reads the encryption attributes, validates the reconstructed
// configuration, and rehydrates the master key secret lazily.
func (d *AEADDeserializer) Deserialize(ctx context.Context, doc *etree.Document) (Descriptor, error) {
	enc, err := encryptionElement(doc)
	if err != nil {
		return nil, err
	}
	algorithm, err := requireAttr(enc, domain.AttrAlgorithm)
	if err != nil {
		return nil, err
	}
	keyLength, err := intAttr(enc, domain.AttrKeyLength)
	if err != nil {
		return nil, err
	}

	config := domain.AEADConfiguration{
		Algorithm:     domain.Algorithm(algorithm),
		KeyLengthBits: keyLength,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sec, err := rehydrateSecret(doc, d.protector)
	if err != nil {
		return nil, err
	}
	return NewAEADDescriptor(config, sec), nil
}
