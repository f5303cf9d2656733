package secret

import (
	"github.com/allisson/keyring/internal/errors"
)

var (
	// ErrCryptographic indicates protected key material could not be
	// unwrapped: the protection key was rotated away, the blob is corrupted,
	// or the keeper is misconfigured. The message never carries key bytes.
	ErrCryptographic = errors.Wrap(errors.ErrInvalidInput, "cannot unwrap protected key material")

	// ErrMalformedNode indicates a protected secret node is structurally
	// invalid (missing value element or undecodable content).
	ErrMalformedNode = errors.Wrap(errors.ErrInvalidInput, "malformed protected secret node")

	// ErrEmptyKey indicates an attempt to build a secret from zero bytes.
	ErrEmptyKey = errors.Wrap(errors.ErrInvalidInput, "secret key material must not be empty")
)
