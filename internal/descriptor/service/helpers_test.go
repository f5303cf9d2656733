package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/allisson/keyring/internal/secret"
)

// testKeyURI is a local base64key keeper for tests; no external KMS involved.
const testKeyURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

func newTestProtector(t *testing.T) secret.Protector {
	t.Helper()
	protector, err := secret.OpenKeeperProtector(context.Background(), testKeyURI)
	require.NoError(t, err)
	t.Cleanup(func() { _ = protector.Close() })
	return protector
}

func newTestSecret(t *testing.T) *secret.Secret {
	t.Helper()
	sec, err := secret.Random(32)
	require.NoError(t, err)
	return sec
}
