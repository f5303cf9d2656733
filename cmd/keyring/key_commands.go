package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/keyring/cmd/keyring/commands"
	"github.com/allisson/keyring/internal/app"
	"github.com/allisson/keyring/internal/config"
	"github.com/allisson/keyring/internal/secret"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-key",
			Usage: "Generate a new master key and write its exported key file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "",
					Usage:   "Encryption algorithm (aes-cbc, aes-gcm, chacha20-poly1305; defaults to KEYRING_DEFAULT_ALGORITHM)",
				},
				&cli.IntFlag{
					Name:    "key-length",
					Aliases: []string{"l"},
					Value:   0,
					Usage:   "Key length in bits (defaults to KEYRING_DEFAULT_KEY_LENGTH)",
				},
				&cli.StringFlag{
					Name:  "validation",
					Value: "",
					Usage: "HMAC validation algorithm for aes-cbc (defaults to KEYRING_DEFAULT_VALIDATION)",
				},
				&cli.StringFlag{
					Name:    "provider",
					Aliases: []string{"p"},
					Value:   "",
					Usage:   "Platform provider name (switches to the platform-native backend)",
				},
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Value:   "",
					Usage:   "Custom type identifier (switches to the extensible backend)",
				},
				&cli.StringFlag{
					Name:     "output",
					Aliases:  []string{"o"},
					Required: true,
					Usage:    "Path of the key file to write",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				protector, err := container.Protector(ctx)
				if err != nil {
					return err
				}

				algorithm := cmd.String("algorithm")
				if algorithm == "" {
					algorithm = cfg.DefaultAlgorithm
				}
				keyLength := int(cmd.Int("key-length"))
				if keyLength == 0 {
					keyLength = cfg.DefaultKeyLength
				}
				validation := cmd.String("validation")
				if validation == "" {
					validation = cfg.DefaultValidation
				}

				return commands.RunCreateKey(
					ctx,
					protector,
					container.Logger(),
					commands.DefaultIO().Writer,
					algorithm,
					keyLength,
					validation,
					cmd.String("provider"),
					cmd.String("type"),
					cfg.MasterKeyBytes,
					cmd.String("output"),
				)
			},
		},
		{
			Name:  "inspect-key",
			Usage: "Print a key file's configuration without touching key material",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Required: true,
					Usage:    "Path of the key file to inspect",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				registry, err := container.Registry(ctx)
				if err != nil {
					return err
				}

				return commands.RunInspectKey(
					ctx,
					registry,
					commands.DefaultIO().Writer,
					cmd.String("file"),
				)
			},
		},
		{
			Name:  "rewrap-key",
			Usage: "Re-protect a key file's master key under a new KMS key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Required: true,
					Usage:    "Path of the key file to rewrap",
				},
				&cli.StringFlag{
					Name:     "new-kms-key-uri",
					Required: true,
					Usage:    "KMS key URI to wrap the master key with (e.g., base64key://, awskms://...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				registry, err := container.Registry(ctx)
				if err != nil {
					return err
				}

				newProtector, err := secret.OpenKeeperProtector(ctx, cmd.String("new-kms-key-uri"))
				if err != nil {
					return err
				}
				defer func() { _ = newProtector.Close() }()

				return commands.RunRewrapKey(
					ctx,
					registry,
					newProtector,
					container.Logger(),
					cmd.String("file"),
				)
			},
		},
	}
}
