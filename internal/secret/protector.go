package secret

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	// Register all secret-protection provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// Protector wraps and unwraps raw key bytes. It is the seam between this
// package and whatever protects key material at rest (a cloud KMS, Vault,
// or a local key in tests). Implementations are assumed synchronous and
// blocking; any timeout policy lives at this boundary.
type Protector interface {
	// Protect encrypts plaintext key bytes into an opaque blob.
	Protect(ctx context.Context, plaintext []byte) ([]byte, error)

	// Unprotect decrypts a blob produced by Protect back into key bytes.
	// The caller owns the returned slice and must wipe it after use.
	Unprotect(ctx context.Context, blob []byte) ([]byte, error)
}

// KeeperProtector implements Protector on a gocloud.dev/secrets Keeper.
type KeeperProtector struct {
	keeper *secrets.Keeper
}

// OpenKeeperProtector opens a Protector for the given provider key URI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func OpenKeeperProtector(ctx context.Context, keyURI string) (*KeeperProtector, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open secrets keeper: %w", err)
	}
	return &KeeperProtector{keeper: keeper}, nil
}

// Protect encrypts plaintext key bytes with the keeper's key.
func (p *KeeperProtector) Protect(ctx context.Context, plaintext []byte) ([]byte, error) {
	blob, err := p.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to protect key material: %w", err)
	}
	return blob, nil
}

// Unprotect decrypts a blob with the keeper's key. The error never includes
// the blob or any derived bytes.
func (p *KeeperProtector) Unprotect(ctx context.Context, blob []byte) ([]byte, error) {
	plaintext, err := p.keeper.Decrypt(ctx, blob)
	if err != nil {
		return nil, ErrCryptographic
	}
	return plaintext, nil
}

// Close releases the underlying keeper resources.
func (p *KeeperProtector) Close() error {
	return p.keeper.Close()
}
