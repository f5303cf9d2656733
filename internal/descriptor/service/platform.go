package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/secret"
)

// PlatformProvider is a host-native cryptographic provider capable of
// building CBC or GCM authenticators from raw key material. Providers are
// registered by name at process start; descriptor documents referencing an
// unregistered provider still export and deserialize, they just cannot
// produce a live authenticator on this host.
type PlatformProvider interface {
	// Name is the provider identifier stored in the provider attribute.
	Name() string

	// CreateCBC builds a CBC-mode authenticator from the given key.
	CreateCBC(key []byte, keyLengthBits int) (Authenticator, error)

	// CreateGCM builds a GCM-mode authenticator from the given key.
	CreateGCM(key []byte, keyLengthBits int) (Authenticator, error)
}

var (
	platformMu        sync.RWMutex
	platformProviders = map[string]PlatformProvider{}
)

// RegisterPlatformProvider registers a native provider. It replaces any
// provider previously registered under the same name.
func RegisterPlatformProvider(p PlatformProvider) {
	platformMu.Lock()
	defer platformMu.Unlock()
	platformProviders[p.Name()] = p
}

// platformProvider resolves a provider by name.
func platformProvider(name string) (PlatformProvider, bool) {
	platformMu.RLock()
	defer platformMu.RUnlock()
	p, ok := platformProviders[name]
	return p, ok
}

// PlatformCBCDescriptor is the platform-native CBC backend: a
// PlatformCBCConfiguration paired with a master key secret. The named
// provider is consulted only when a live authenticator is requested.
type PlatformCBCDescriptor struct {
	config domain.PlatformCBCConfiguration
	secret *secret.Secret
}

// NewPlatformCBCDescriptor binds a platform CBC configuration to a master key secret.
func NewPlatformCBCDescriptor(config domain.PlatformCBCConfiguration, sec *secret.Secret) *PlatformCBCDescriptor {
	return &PlatformCBCDescriptor{config: config, secret: sec}
}

// Configuration returns the descriptor's immutable configuration.
func (d *PlatformCBCDescriptor) Configuration() domain.Configuration {
	return d.config
}

// ExportDocument renders the descriptor. Export never checks provider
// availability, keeping documents portable across hosts.
func (d *PlatformCBCDescriptor) ExportDocument(
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
		" platform CBC encryptor: %s-%d via provider %s ",
		d.config.Algorithm, d.config.KeyLengthBits, d.config.Provider,
	)
	doc := buildDocument(comment, []attr{
		{domain.AttrAlgorithm, string(d.config.Algorithm)},
		{domain.AttrKeyLength, strconv.Itoa(d.config.KeyLengthBits)},
		{domain.AttrProvider, d.config.Provider},
	}, masterKey)

	return &domain.ExportedDescriptor{
		Document:        doc,
		DeserializerTag: PlatformCBCDeserializerTag,
	}, nil
}

// CreateAuthenticator resolves the named provider and delegates construction
// to it, handing over the derived working key inside a scoped buffer. Fails
// with ErrPlatformUnsupported when the provider is not registered on this host.
func (d *PlatformCBCDescriptor) CreateAuthenticator(ctx context.Context) (Authenticator, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}
	provider, ok := platformProvider(d.config.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not registered on this host",
			domain.ErrPlatformUnsupported, d.config.Provider)
	}

	kdfContext := fmt.Sprintf("%s/%d/%s", d.config.Algorithm, d.config.KeyLengthBits, d.config.Provider)

	var auth Authenticator
	err := d.secret.WithBytes(ctx, func(master []byte) error {
		key, err := deriveSubkey(master, labelEncryption, kdfContext, d.config.KeyLengthBits/8)
		if err != nil {
			return err
		}
		defer domain.Zero(key)

		auth, err = provider.CreateCBC(key, d.config.KeyLengthBits)
		return err
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}

// Rewrap copies the master key into a fresh descriptor with no cached
// protected rendering.
func (d *PlatformCBCDescriptor) Rewrap(ctx context.Context) (Descriptor, error) {
	sec, err := d.secret.Rewrap(ctx)
	if err != nil {
		return nil, err
	}
	return NewPlatformCBCDescriptor(d.config, sec), nil
}

// PlatformCBCDeserializer reconstructs PlatformCBCDescriptor values from documents.
type PlatformCBCDeserializer struct {
	protector secret.Protector
}

// NewPlatformCBCDeserializer creates a deserializer using the given protector
// to rehydrate master key secrets.
func NewPlatformCBCDeserializer(protector secret.Protector) *PlatformCBCDeserializer {
	return &PlatformCBCDeserializer{protector: protector}
}

// Tag returns the deserializer's fully-qualified type tag.
func (d *PlatformCBCDeserializer) Tag() string {
	return PlatformCBCDeserializerTag
}

// Deserialize reads the encryption attributes, validates the reconstructed
// configuration, and rehydrates the master key secret lazily. Provider
// availability is not checked here.
func (d *PlatformCBCDeserializer) Deserialize(ctx context.Context, doc *etree.Document) (Descriptor, error) {
	config, err := readPlatformAttrs(doc)
	if err != nil {
		return nil, err
	}
	cbcConfig := domain.PlatformCBCConfiguration{
		Algorithm:     config.algorithm,
		KeyLengthBits: config.keyLengthBits,
		Provider:      config.provider,
	}
	if err := cbcConfig.Validate(); err != nil {
		return nil, err
	}

	sec, err := rehydrateSecret(doc, d.protector)
	if err != nil {
		return nil, err
	}
	return NewPlatformCBCDescriptor(cbcConfig, sec), nil
}

// PlatformGCMDescriptor is the platform-native GCM backend: a
// PlatformGCMConfiguration paired with a master key secret.
type PlatformGCMDescriptor struct {
	config domain.PlatformGCMConfiguration
	secret *secret.Secret
}

// NewPlatformGCMDescriptor binds a platform GCM configuration to a master key secret.
func NewPlatformGCMDescriptor(config domain.PlatformGCMConfiguration, sec *secret.Secret) *PlatformGCMDescriptor {
	return &PlatformGCMDescriptor{config: config, secret: sec}
}

// Configuration returns the descriptor's immutable configuration.
func (d *PlatformGCMDescriptor) Configuration() domain.Configuration {
	return d.config
}

// ExportDocument renders the descriptor. Export never checks provider
// availability, keeping documents portable across hosts.
func (d *PlatformGCMDescriptor) ExportDocument(
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
		" platform GCM encryptor: %s-%d via provider %s ",
		d.config.Algorithm, d.config.KeyLengthBits, d.config.Provider,
	)
	doc := buildDocument(comment, []attr{
		{domain.AttrAlgorithm, string(d.config.Algorithm)},
		{domain.AttrKeyLength, strconv.Itoa(d.config.KeyLengthBits)},
		{domain.AttrProvider, d.config.Provider},
	}, masterKey)

	return &domain.ExportedDescriptor{
		Document:        doc,
		DeserializerTag: PlatformGCMDeserializerTag,
	}, nil
}

// CreateAuthenticator resolves the named provider and delegates construction
// to it. Fails with ErrPlatformUnsupported when the provider is not
// registered on this host.
func (d *PlatformGCMDescriptor) CreateAuthenticator(ctx context.Context) (Authenticator, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}
	provider, ok := platformProvider(d.config.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not registered on this host",
			domain.ErrPlatformUnsupported, d.config.Provider)
	}

	kdfContext := fmt.Sprintf("%s/%d/%s", d.config.Algorithm, d.config.KeyLengthBits, d.config.Provider)

	var auth Authenticator
	err := d.secret.WithBytes(ctx, func(master []byte) error {
		key, err := deriveSubkey(master, labelEncryption, kdfContext, d.config.KeyLengthBits/8)
		if err != nil {
			return err
		}
		defer domain.Zero(key)

		auth, err = provider.CreateGCM(key, d.config.KeyLengthBits)
		return err
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}

// Rewrap copies the master key into a fresh descriptor with no cached
// protected rendering.
func (d *PlatformGCMDescriptor) Rewrap(ctx context.Context) (Descriptor, error) {
	sec, err := d.secret.Rewrap(ctx)
	if err != nil {
		return nil, err
	}
	return NewPlatformGCMDescriptor(d.config, sec), nil
}

// PlatformGCMDeserializer reconstructs PlatformGCMDescriptor values from documents.
type PlatformGCMDeserializer struct {
	protector secret.Protector
}

// NewPlatformGCMDeserializer creates a deserializer using the given protector
// to rehydrate master key secrets.
func NewPlatformGCMDeserializer(protector secret.Protector) *PlatformGCMDeserializer {
	return &PlatformGCMDeserializer{protector: protector}
}

// Tag returns the deserializer's fully-qualified type tag.
func (d *PlatformGCMDeserializer) Tag() string {
	return PlatformGCMDeserializerTag
}

// Deserialize reads the encryption attributes, validates the reconstructed
// configuration, and rehydrates the master key secret lazily. Provider
// availability is not checked here.
func (d *PlatformGCMDeserializer) Deserialize(ctx context.Context, doc *etree.Document) (Descriptor, error) {
	config, err := readPlatformAttrs(doc)
	if err != nil {
		return nil, err
	}
	gcmConfig := domain.PlatformGCMConfiguration{
		Algorithm:     config.algorithm,
		KeyLengthBits: config.keyLengthBits,
		Provider:      config.provider,
	}
	if err := gcmConfig.Validate(); err != nil {
		return nil, err
	}

	sec, err := rehydrateSecret(doc, d.protector)
	if err != nil {
		return nil, err
	}
	return NewPlatformGCMDescriptor(gcmConfig, sec), nil
}

// platformAttrs is the attribute set shared by both platform variants.
type platformAttrs struct {
	algorithm     domain.Algorithm
	keyLengthBits int
	provider      string
}

func readPlatformAttrs(doc *etree.Document) (platformAttrs, error) {
	enc, err := encryptionElement(doc)
	if err != nil {
		return platformAttrs{}, err
	}
	algorithm, err := requireAttr(enc, domain.AttrAlgorithm)
	if err != nil {
		return platformAttrs{}, err
	}
	keyLength, err := intAttr(enc, domain.AttrKeyLength)
	if err != nil {
		return platformAttrs{}, err
	}
	provider, err := requireAttr(enc, domain.AttrProvider)
	if err != nil {
		return platformAttrs{}, err
	}
	return platformAttrs{
		algorithm:     domain.Algorithm(algorithm),
		keyLengthBits: keyLength,
		provider:      provider,
	}, nil
}
