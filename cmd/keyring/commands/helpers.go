// Package commands contains CLI command implementations for the application.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/descriptor/service"
	"github.com/allisson/keyring/internal/secret"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// parseAlgorithm converts algorithm string to domain.Algorithm type.
// Returns an error if the algorithm string is invalid.
func parseAlgorithm(algorithmStr string) (domain.Algorithm, error) {
	switch algorithmStr {
	case "aes-cbc":
		return domain.AESCBC, nil
	case "aes-gcm":
		return domain.AESGCM, nil
	case "chacha20-poly1305":
		return domain.ChaCha20, nil
	default:
		return "", fmt.Errorf(
			"invalid algorithm: %s (valid options: aes-cbc, aes-gcm, chacha20-poly1305)",
			algorithmStr,
		)
	}
}

// parseValidation converts validation string to domain.ValidationAlgorithm type.
// Returns an error if the validation string is invalid.
func parseValidation(validationStr string) (domain.ValidationAlgorithm, error) {
	switch validationStr {
	case "hmac-sha256":
		return domain.HMACSHA256, nil
	case "hmac-sha384":
		return domain.HMACSHA384, nil
	case "hmac-sha512":
		return domain.HMACSHA512, nil
	default:
		return "", fmt.Errorf(
			"invalid validation algorithm: %s (valid options: hmac-sha256, hmac-sha384, hmac-sha512)",
			validationStr,
		)
	}
}

// newDescriptor builds the descriptor variant selected by the flag set: a
// custom type identifier wins, then a platform provider, then the software
// backends.
func newDescriptor(
	algorithm domain.Algorithm,
	keyLengthBits int,
	validation domain.ValidationAlgorithm,
	provider string,
	typeID string,
	sec *secret.Secret,
) (service.Descriptor, error) {
	if typeID != "" {
		config := domain.CustomConfiguration{TypeID: typeID, KeyLengthBits: keyLengthBits}
		return service.NewCustomDescriptor(config, sec), nil
	}

	if provider != "" {
		switch algorithm {
		case domain.AESCBC:
			config := domain.PlatformCBCConfiguration{
				Algorithm:     algorithm,
				KeyLengthBits: keyLengthBits,
				Provider:      provider,
			}
			return service.NewPlatformCBCDescriptor(config, sec), nil
		case domain.AESGCM:
			config := domain.PlatformGCMConfiguration{
				Algorithm:     algorithm,
				KeyLengthBits: keyLengthBits,
				Provider:      provider,
			}
			return service.NewPlatformGCMDescriptor(config, sec), nil
		default:
			return nil, fmt.Errorf(
				"platform providers support only aes-cbc and aes-gcm, not %s", algorithm,
			)
		}
	}

	if algorithm == domain.AESCBC {
		config := domain.CBCHMACConfiguration{
			Algorithm:     algorithm,
			KeyLengthBits: keyLengthBits,
			Validation:    validation,
		}
		return service.NewCBCHMACDescriptor(config, sec), nil
	}

	config := domain.AEADConfiguration{Algorithm: algorithm, KeyLengthBits: keyLengthBits}
	return service.NewAEADDescriptor(config, sec), nil
}
