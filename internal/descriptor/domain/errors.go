package domain

import (
	"github.com/allisson/keyring/internal/errors"
)

// Descriptor error taxonomy.
//
// These domain-specific errors wrap standard errors from internal/errors.
// None of them may ever carry raw key bytes, decrypted plaintext, or
// protection-key material in their messages. All of them are non-retryable
// with the same input; the key-ring layer decides whether to try another key.
var (
	// ErrConfiguration indicates invalid or unsupported algorithm parameters.
	//
	// Raised by configuration validation and propagated unchanged through
	// export and authenticator construction. Typical causes: an algorithm
	// identifier outside the recognized set, a key length the algorithm does
	// not support, or a validation algorithm whose digest is below policy.
	ErrConfiguration = errors.Wrap(errors.ErrInvalidInput, "invalid configuration")

	// ErrFormat indicates a malformed or incomplete serialized descriptor
	// document. Deserialization surfaces it immediately and returns no
	// partial descriptor.
	ErrFormat = errors.Wrap(errors.ErrInvalidInput, "malformed descriptor document")

	// ErrUnsupportedFormat indicates the document's deserializer type tag is
	// not registered. The key-ring layer decides whether to skip the key or
	// fail the whole set; there is never a silent fallback.
	ErrUnsupportedFormat = errors.Wrap(errors.ErrInvalidInput, "unsupported descriptor format")

	// ErrPlatformUnsupported indicates the descriptor's backend requires a
	// capability absent on the current host (e.g. a native cryptographic
	// provider). It surfaces at authenticator creation time, never at
	// export or deserialization time, so documents stay portable across
	// hosts that cannot execute them.
	ErrPlatformUnsupported = errors.Wrap(errors.ErrUnavailable, "platform provider unavailable")

	// ErrDecryptionFailed indicates an authenticator could not decrypt a
	// ciphertext: wrong key, mismatched associated data, or tampering.
	// The specific cause is never disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
