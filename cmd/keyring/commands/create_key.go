package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/keyring"
	"github.com/allisson/keyring/internal/secret"
)

// RunCreateKey generates a new master key, binds it to the selected descriptor
// variant, and writes the exported key file. Only the protected form of the
// key reaches the output; raw key material is never written or logged.
func RunCreateKey(
	ctx context.Context,
	protector secret.Protector,
	logger *slog.Logger,
	writer io.Writer,
	algorithmStr string,
	keyLengthBits int,
	validationStr string,
	provider string,
	typeID string,
	masterKeyBytes int,
	outputPath string,
) error {
	var (
		algorithm  domain.Algorithm
		validation domain.ValidationAlgorithm
		err        error
	)
	if typeID == "" {
		algorithm, err = parseAlgorithm(algorithmStr)
		if err != nil {
			return err
		}
		if algorithm == domain.AESCBC && provider == "" {
			validation, err = parseValidation(validationStr)
			if err != nil {
				return err
			}
		}
	}

	sec, err := secret.Random(masterKeyBytes)
	if err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	descriptor, err := newDescriptor(algorithm, keyLengthBits, validation, provider, typeID, sec)
	if err != nil {
		return err
	}

	exported, err := descriptor.ExportDocument(ctx, protector)
	if err != nil {
		return fmt.Errorf("failed to export descriptor: %w", err)
	}

	key := keyring.ExportedKey{
		ID:         uuid.Must(uuid.NewV7()),
		Descriptor: exported,
	}
	if err := writeKeyFile(outputPath, key); err != nil {
		return err
	}

	logger.Info("key created",
		slog.String("key_id", key.ID.String()),
		slog.String("deserializer", exported.DeserializerTag),
		slog.String("path", outputPath),
	)

	fmt.Fprintf(writer, "Key ID: %s\n", key.ID)
	fmt.Fprintf(writer, "Deserializer: %s\n", exported.DeserializerTag)
	fmt.Fprintf(writer, "File: %s\n", outputPath)

	return nil
}
