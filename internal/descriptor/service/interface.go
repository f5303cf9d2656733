// Package service implements the descriptor variants of the key subsystem:
// exporting a configuration plus master key to a serialized document,
// reconstructing descriptors from documents, and building the live
// authenticated encryptors the key-ring hands out for request processing.
package service

import (
	"context"

	"github.com/beevik/etree"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/secret"
)

// Authenticator is a live authenticated encrypt/decrypt capability object
// instantiated from a descriptor. Implementations are stateless after
// construction and safe for concurrent use.
type Authenticator interface {
	// Encrypt encrypts plaintext, binding the optional associated data to the
	// ciphertext. The associated data is authenticated but not encrypted.
	Encrypt(plaintext, aad []byte) ([]byte, error)

	// Decrypt decrypts a ciphertext produced by Encrypt. It fails with
	// ErrDecryptionFailed on tampering or associated-data mismatch, never
	// returning altered plaintext.
	Decrypt(ciphertext, aad []byte) ([]byte, error)
}

// Descriptor binds exactly one algorithm configuration to exactly one master
// key secret. Descriptors are immutable after construction; concurrent
// exports and authenticator creations on independent instances need no
// shared locking.
type Descriptor interface {
	// Configuration returns the descriptor's immutable configuration.
	Configuration() domain.Configuration

	// ExportDocument renders the configuration and the protected master key
	// into a serialized document plus the type tag of the matching
	// deserializer. It validates the configuration first and propagates
	// ErrConfiguration without partial output. Raw key bytes never appear in
	// the document.
	ExportDocument(ctx context.Context, protector secret.Protector) (*domain.ExportedDescriptor, error)

	// CreateAuthenticator builds the live encryptor/decryptor for this
	// descriptor. It fails with ErrConfiguration on invalid configuration and
	// ErrPlatformUnsupported when the backend requires a capability absent on
	// this host.
	CreateAuthenticator(ctx context.Context) (Authenticator, error)

	// Rewrap returns a copy of the descriptor whose master key carries no
	// cached protected rendering, so the next export wraps it under whatever
	// protector is supplied then. Used when rotating the protection key.
	Rewrap(ctx context.Context) (Descriptor, error)
}

// Deserializer reconstructs one descriptor variant from its serialized
// document. Implementations fail with ErrFormat on malformed documents and
// never return a partial descriptor. The master key is not decrypted during
// deserialization; unwrap failures surface later, on first use.
type Deserializer interface {
	// Tag returns the fully-qualified identifier selecting this deserializer.
	Tag() string

	// Deserialize rebuilds a descriptor from a document produced by the
	// matching descriptor's ExportDocument.
	Deserialize(ctx context.Context, doc *etree.Document) (Descriptor, error)
}

// Fully-qualified deserializer type tags. Exported documents carry one of
// these beside the document so the reader knows which deserializer to invoke.
// Tags are part of the durable contract: renaming a type must not change its tag.
const (
	CBCHMACDeserializerTag     = "github.com/allisson/keyring/descriptor.CBCHMACDeserializer"
	AEADDeserializerTag        = "github.com/allisson/keyring/descriptor.AEADDeserializer"
	PlatformCBCDeserializerTag = "github.com/allisson/keyring/descriptor.PlatformCBCDeserializer"
	PlatformGCMDeserializerTag = "github.com/allisson/keyring/descriptor.PlatformGCMDeserializer"
	CustomDeserializerTag      = "github.com/allisson/keyring/descriptor.CustomDeserializer"
)
