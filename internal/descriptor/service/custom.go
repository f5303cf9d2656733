package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/errors"
	"github.com/allisson/keyring/internal/secret"
)

// CustomAuthenticatorFactory builds a live authenticator for an extensible
// backend from the master key secret. keyLengthBits is 0 when the
// configuration leaves the key length to the factory's default.
type CustomAuthenticatorFactory func(ctx context.Context, master *secret.Secret, keyLengthBits int) (Authenticator, error)

var (
	customMu        sync.RWMutex
	customFactories = map[string]CustomAuthenticatorFactory{}
)

// RegisterCustomFactory registers an authenticator factory under a custom
// type identifier. Registering the same identifier twice is a conflict.
func RegisterCustomFactory(typeID string, factory CustomAuthenticatorFactory) error {
	customMu.Lock()
	defer customMu.Unlock()
	if _, exists := customFactories[typeID]; exists {
		return fmt.Errorf("%w: custom factory %q already registered", errors.ErrConflict, typeID)
	}
	customFactories[typeID] = factory
	return nil
}

// customFactory resolves a factory by type identifier.
func customFactory(typeID string) (CustomAuthenticatorFactory, bool) {
	customMu.RLock()
	defer customMu.RUnlock()
	f, ok := customFactories[typeID]
	return f, ok
}

// CustomDescriptor is the extensible backend: a CustomConfiguration paired
// with a master key secret. The type identifier is resolved against the
// custom factory registry only when a live authenticator is requested.
type CustomDescriptor struct {
	config domain.CustomConfiguration
	secret *secret.Secret
}

// NewCustomDescriptor binds a custom configuration to a master key secret.
func NewCustomDescriptor(config domain.CustomConfiguration, sec *secret.Secret) *CustomDescriptor {
	return &CustomDescriptor{config: config, secret: sec}
}

// Configuration returns the descriptor's immutable configuration.
func (d *CustomDescriptor) Configuration() domain.Configuration {
	return d.config
}

// ExportDocument renders the descriptor. The type identifier is persisted in
// the type attribute; resolvability is not required to export, so documents
// remain portable to hosts that do have the factory.
func (d *CustomDescriptor) ExportDocument(
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

	comment := fmt.Sprintf(" custom encryptor: %s ", d.config.TypeID)
	attrs := []attr{{domain.AttrCustomType, d.config.TypeID}}
	if d.config.KeyLengthBits > 0 {
		attrs = append(attrs, attr{domain.AttrKeyLength, strconv.Itoa(d.config.KeyLengthBits)})
	}
	doc := buildDocument(comment, attrs, masterKey)

	return &domain.ExportedDescriptor{
		Document:        doc,
		DeserializerTag: CustomDeserializerTag,
	}, nil
}

// CreateAuthenticator resolves the custom factory and delegates construction
// to it. An unresolvable type identifier is a configuration error.
func (d *CustomDescriptor) CreateAuthenticator(ctx context.Context) (Authenticator, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}
	factory, ok := customFactory(d.config.TypeID)
	if !ok {
		return nil, fmt.Errorf("%w: custom type %q is not registered",
			domain.ErrConfiguration, d.config.TypeID)
	}
	return factory(ctx, d.secret, d.config.KeyLengthBits)
}

// Rewrap copies the master key into a fresh descriptor with no cached
// protected rendering.
func (d *CustomDescriptor) Rewrap(ctx context.Context) (Descriptor, error) {
	sec, err := d.secret.Rewrap(ctx)
	if err != nil {
		return nil, err
	}
	return NewCustomDescriptor(d.config, sec), nil
}

// CustomDeserializer reconstructs CustomDescriptor values from documents.
type CustomDeserializer struct {
	protector secret.Protector
}

// NewCustomDeserializer creates a deserializer using the given protector to
// rehydrate master key secrets.
func NewCustomDeserializer(protector secret.Protector) *CustomDeserializer {
	return &CustomDeserializer{protector: protector}
}

// Tag returns the deserializer's fully-qualified type tag.
func (d *CustomDeserializer) Tag() string {
	return CustomDeserializerTag
}

// Deserialize reads the type attribute and the optional key length, validates
// the reconstructed configuration, and rehydrates the master key secret
// lazily. Factory resolvability is not checked here.
func (d *CustomDeserializer) Deserialize(ctx context.Context, doc *etree.Document) (Descriptor, error) {
	enc, err := encryptionElement(doc)
	if err != nil {
		return nil, err
	}
	typeID, err := requireAttr(enc, domain.AttrCustomType)
	if err != nil {
		return nil, err
	}
	keyLength := 0
	if enc.SelectAttr(domain.AttrKeyLength) != nil {
		keyLength, err = intAttr(enc, domain.AttrKeyLength)
		if err != nil {
			return nil, err
		}
	}

	config := domain.CustomConfiguration{
		TypeID:        typeID,
		KeyLengthBits: keyLength,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sec, err := rehydrateSecret(doc, d.protector)
	if err != nil {
		return nil, err
	}
	return NewCustomDescriptor(config, sec), nil
}
