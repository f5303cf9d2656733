// Package domain defines the core models for authenticated-encryption key
// descriptors: algorithm configurations, the serialized document contract,
// and the descriptor error taxonomy.
//
// A configuration is an immutable value describing how a key encrypts data.
// One configuration variant exists per supported backend, and each pairs with
// a descriptor and a deserializer as a closed triple. Validation is pure: no
// side effects, no key material involved.
package domain

import (
	"fmt"

	validation "github.com/jellydator/validation"

	keyringvalidation "github.com/allisson/keyring/internal/validation"
)

// Configuration is the immutable parameter set of one descriptor variant.
//
// Validate reports ErrConfiguration when the algorithm identifier is outside
// the recognized set, the key length is unsupported for the algorithm, or a
// CBC validation algorithm's digest is below the policy floor.
type Configuration interface {
	Validate() error
}

// configurationError folds a validation failure into the descriptor error
// taxonomy while keeping the rule message visible to callers.
func configurationError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, err.Error())
}

// CBCHMACConfiguration configures the software AES-CBC backend with an HMAC
// validation algorithm (encrypt-then-MAC).
type CBCHMACConfiguration struct {
	Algorithm     Algorithm
	KeyLengthBits int
	Validation    ValidationAlgorithm
}

// Validate checks the algorithm identifier, the AES key size, and that the
// validation algorithm's digest meets the MinDigestBits policy.
func (c CBCHMACConfiguration) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Algorithm, validation.Required, validation.In(AESCBC)),
		validation.Field(&c.KeyLengthBits, keyringvalidation.AESKeyLength),
		validation.Field(&c.Validation,
			validation.Required,
			keyringvalidation.DigestAtLeast(MinDigestBits, func(s string) int {
				return ValidationAlgorithm(s).DigestBits()
			}),
		),
	)
	return configurationError(err)
}

// AEADConfiguration configures a software AEAD backend: AES-GCM with any AES
// key size, or ChaCha20-Poly1305 with a fixed 256-bit key.
type AEADConfiguration struct {
	Algorithm     Algorithm
	KeyLengthBits int
}

// Validate checks the algorithm identifier and the key size the algorithm supports.
func (c AEADConfiguration) Validate() error {
	keyRule := keyringvalidation.AESKeyLength
	if c.Algorithm == ChaCha20 {
		keyRule = keyringvalidation.ExactKeyLength(256)
	}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Algorithm, validation.Required, validation.In(AESGCM, ChaCha20)),
		validation.Field(&c.KeyLengthBits, keyRule),
	)
	return configurationError(err)
}

// PlatformCBCConfiguration configures CBC encryption delegated to a named
// platform-native cryptographic provider. The provider is resolved only when
// a live authenticator is requested, never during export or deserialization.
type PlatformCBCConfiguration struct {
	Algorithm     Algorithm
	KeyLengthBits int
	Provider      string
}

// Validate checks the algorithm identifier, key size, and provider name.
// Provider availability is deliberately not checked here.
func (c PlatformCBCConfiguration) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Algorithm, validation.Required, validation.In(AESCBC)),
		validation.Field(&c.KeyLengthBits, keyringvalidation.AESKeyLength),
		validation.Field(&c.Provider, validation.Required, keyringvalidation.NotBlank),
	)
	return configurationError(err)
}

// PlatformGCMConfiguration configures GCM encryption delegated to a named
// platform-native cryptographic provider.
type PlatformGCMConfiguration struct {
	Algorithm     Algorithm
	KeyLengthBits int
	Provider      string
}

// Validate checks the algorithm identifier, key size, and provider name.
// Provider availability is deliberately not checked here.
func (c PlatformGCMConfiguration) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Algorithm, validation.Required, validation.In(AESGCM)),
		validation.Field(&c.KeyLengthBits, keyringvalidation.AESKeyLength),
		validation.Field(&c.Provider, validation.Required, keyringvalidation.NotBlank),
	)
	return configurationError(err)
}

// CustomConfiguration configures an extensible backend identified by a custom
// type identifier. The identifier must resolve against the custom factory
// registry when a live authenticator is requested. KeyLengthBits is optional;
// when zero the factory's default applies.
type CustomConfiguration struct {
	TypeID        string
	KeyLengthBits int
}

// Validate checks that the type identifier is present and that an explicit
// key length, if any, is a positive multiple of 8 bits.
func (c CustomConfiguration) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.TypeID, validation.Required, keyringvalidation.NotBlank),
		validation.Field(&c.KeyLengthBits, validation.By(func(value interface{}) error {
			bits := value.(int)
			if bits == 0 {
				return nil
			}
			if bits < 0 || bits%8 != 0 {
				return validation.NewError(
					"validation_key_length",
					fmt.Sprintf("key length must be a positive multiple of 8 bits, got %d", bits),
				)
			}
			return nil
		})),
	)
	return configurationError(err)
}
