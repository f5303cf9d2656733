// Package validation provides custom validation rules for cryptographic configurations.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/keyring/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// AESKeyLength validates that an int is a legal AES key size in bits.
var AESKeyLength = validation.By(func(value interface{}) error {
	bits, ok := value.(int)
	if !ok {
		return validation.NewError("validation_key_length", "key length must be an integer")
	}
	switch bits {
	case 128, 192, 256:
		return nil
	}
	return validation.NewError(
		"validation_key_length",
		fmt.Sprintf("key length must be 128, 192 or 256 bits, got %d", bits),
	)
})

// ExactKeyLength validates that an int equals the single key size an
// algorithm supports (e.g. 256 for ChaCha20-Poly1305).
func ExactKeyLength(bits int) validation.Rule {
	return validation.By(func(value interface{}) error {
		got, ok := value.(int)
		if !ok {
			return validation.NewError("validation_key_length", "key length must be an integer")
		}
		if got != bits {
			return validation.NewError(
				"validation_key_length",
				fmt.Sprintf("key length must be exactly %d bits, got %d", bits, got),
			)
		}
		return nil
	})
}

// DigestAtLeast validates that a validation algorithm's digest size meets
// the given policy floor in bits. The digestBits function maps the value to
// its digest size; unknown algorithms map to 0 and always fail.
func DigestAtLeast(minBits int, digestBits func(string) int) validation.Rule {
	return validation.By(func(value interface{}) error {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.String {
			return validation.NewError("validation_digest", "validation algorithm must be a string")
		}
		s := rv.String()
		bits := digestBits(s)
		if bits == 0 {
			return validation.NewError(
				"validation_digest",
				fmt.Sprintf("unrecognized validation algorithm %q", s),
			)
		}
		if bits < minBits {
			return validation.NewError(
				"validation_digest",
				fmt.Sprintf("validation algorithm digest must be at least %d bits, got %d", minBits, bits),
			)
		}
		return nil
	})
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
