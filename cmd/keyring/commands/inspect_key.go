package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/descriptor/service"
)

// RunInspectKey prints a key file's configuration. Master key rehydration is
// lazy, so inspection never contacts the KMS and never shows key material.
func RunInspectKey(
	ctx context.Context,
	registry *service.Registry,
	writer io.Writer,
	path string,
) error {
	key, err := readKeyFile(path)
	if err != nil {
		return err
	}

	descriptor, err := registry.Deserialize(ctx, key.Descriptor)
	if err != nil {
		return fmt.Errorf("failed to deserialize key file: %w", err)
	}

	fmt.Fprintf(writer, "Key ID: %s\n", key.ID)
	fmt.Fprintf(writer, "Deserializer: %s\n", key.Descriptor.DeserializerTag)

	switch config := descriptor.Configuration().(type) {
	case domain.CBCHMACConfiguration:
		fmt.Fprintf(writer, "Algorithm: %s\n", config.Algorithm)
		fmt.Fprintf(writer, "Key length: %d bits\n", config.KeyLengthBits)
		fmt.Fprintf(writer, "Validation: %s\n", config.Validation)
	case domain.AEADConfiguration:
		fmt.Fprintf(writer, "Algorithm: %s\n", config.Algorithm)
		fmt.Fprintf(writer, "Key length: %d bits\n", config.KeyLengthBits)
	case domain.PlatformCBCConfiguration:
		fmt.Fprintf(writer, "Algorithm: %s\n", config.Algorithm)
		fmt.Fprintf(writer, "Key length: %d bits\n", config.KeyLengthBits)
		fmt.Fprintf(writer, "Provider: %s\n", config.Provider)
	case domain.PlatformGCMConfiguration:
		fmt.Fprintf(writer, "Algorithm: %s\n", config.Algorithm)
		fmt.Fprintf(writer, "Key length: %d bits\n", config.KeyLengthBits)
		fmt.Fprintf(writer, "Provider: %s\n", config.Provider)
	case domain.CustomConfiguration:
		fmt.Fprintf(writer, "Custom type: %s\n", config.TypeID)
		if config.KeyLengthBits > 0 {
			fmt.Fprintf(writer, "Key length: %d bits\n", config.KeyLengthBits)
		}
	}

	return nil
}
