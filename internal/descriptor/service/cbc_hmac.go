package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/secret"
)

// CBCHMACDescriptor is the software AES-CBC + HMAC backend: a
// CBCHMACConfiguration paired with a master key secret.
type CBCHMACDescriptor struct {
	config domain.CBCHMACConfiguration
	secret *secret.Secret
}

// NewCBCHMACDescriptor binds a CBC+HMAC configuration to a master key secret.
func NewCBCHMACDescriptor(config domain.CBCHMACConfiguration, sec *secret.Secret) *CBCHMACDescriptor {
	return &CBCHMACDescriptor{config: config, secret: sec}
}

// Configuration returns the descriptor's immutable configuration.
func (d *CBCHMACDescriptor) Configuration() domain.Configuration {
	return d.config
}

// ExportDocument renders the descriptor. The configuration is validated
// first; the master key appears only in its protected form.
func (d *CBCHMACDescriptor) ExportDocument(
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
		" software CBC+HMAC encryptor: %s-%d validated with %s ",
		d.config.Algorithm, d.config.KeyLengthBits, d.config.Validation,
	)
	doc := buildDocument(comment, []attr{
		{domain.AttrAlgorithm, string(d.config.Algorithm)},
		{domain.AttrKeyLength, strconv.Itoa(d.config.KeyLengthBits)},
		{domain.AttrValidation, string(d.config.Validation)},
	}, masterKey)

	return &domain.ExportedDescriptor{
		Document:        doc,
		DeserializerTag: CBCHMACDeserializerTag,
	}, nil
}

// CreateAuthenticator derives the encryption and validation subkeys from the
// master key inside a scoped buffer and builds the CBC+HMAC authenticator.
// The derived subkeys are wiped once the authenticator owns its copies.
func (d *CBCHMACDescriptor) CreateAuthenticator(ctx context.Context) (Authenticator, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}

	kdfContext := fmt.Sprintf("%s/%d/%s", d.config.Algorithm, d.config.KeyLengthBits, d.config.Validation)
	newHash, err := hashForValidation(d.config.Validation)
	if err != nil {
		return nil, err
	}
	macKeySize := newHash().Size()

	var auth Authenticator
	err = d.secret.WithBytes(ctx, func(master []byte) error {
		encKey, err := deriveSubkey(master, labelEncryption, kdfContext, d.config.KeyLengthBits/8)
		if err != nil {
			return err
		}
		defer domain.Zero(encKey)

		macKey, err := deriveSubkey(master, labelValidation, kdfContext, macKeySize)
		if err != nil {
			return err
		}
		defer domain.Zero(macKey)

		auth, err = newCBCHMACAuthenticator(encKey, macKey, d.config.Validation)
		return err
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}

// Rewrap copies the master key into a fresh descriptor with no cached
// protected rendering.
func (d *CBCHMACDescriptor) Rewrap(ctx context.Context) (Descriptor, error) {
	sec, err := d.secret.Rewrap(ctx)
	if err != nil {
		return nil, err
	}
	return NewCBCHMACDescriptor(d.config, sec), nil
}

// CBCHMACDeserializer reconstructs CBCHMACDescriptor values from documents.
type CBCHMACDeserializer struct {
	protector secret.Protector
}

// NewCBCHMACDeserializer creates a deserializer using the given protector to
// rehydrate master key secrets.
func NewCBCHMACDeserializer(protector secret.Protector) *CBCHMACDeserializer {
	return &CBCHMACDeserializer{protector: protector}
}

// Tag returns the deserializer's fully-qualified type tag.
func (d *CBCHMACDeserializer) Tag() string {
	return CBCHMACDeserializerTag
}

// Deserialize reads the encryption attributes, validates the reconstructed
// configuration, and rehydrates the master key secret lazily.
func (d *CBCHMACDeserializer) Deserialize(ctx context.Context, doc *etree.Document) (Descriptor, error) {
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
	validationAlg, err := requireAttr(enc, domain.AttrValidation)
	if err != nil {
		return nil, err
	}

	config := domain.CBCHMACConfiguration{
		Algorithm:     domain.Algorithm(algorithm),
		KeyLengthBits: keyLength,
		Validation:    domain.ValidationAlgorithm(validationAlg),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sec, err := rehydrateSecret(doc, d.protector)
	if err != nil {
		return nil, err
	}
	return NewCBCHMACDescriptor(config, sec), nil
}
