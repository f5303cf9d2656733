package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/keyring/internal/descriptor/service"
	"github.com/allisson/keyring/internal/secret"
)

// RunRewrapKey re-protects a key file's master key under a new protection
// key. The registry's protector (the current KMS key) unwraps the stored
// blob; newProtector wraps the fresh copy. The key ID and configuration are
// unchanged.
func RunRewrapKey(
	ctx context.Context,
	registry *service.Registry,
	newProtector secret.Protector,
	logger *slog.Logger,
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

	rewrapped, err := descriptor.Rewrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to rewrap master key: %w", err)
	}

	exported, err := rewrapped.ExportDocument(ctx, newProtector)
	if err != nil {
		return fmt.Errorf("failed to export rewrapped descriptor: %w", err)
	}

	key.Descriptor = exported
	if err := writeKeyFile(path, key); err != nil {
		return err
	}

	logger.Info("key rewrapped",
		slog.String("key_id", key.ID.String()),
		slog.String("path", path),
	)

	return nil
}
