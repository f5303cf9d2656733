package keyring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/keyring/internal/descriptor/service"
	"github.com/allisson/keyring/internal/metrics"
	"github.com/allisson/keyring/internal/secret"
)

// keyRingWithMetrics decorates KeyRing with metrics instrumentation.
type keyRingWithMetrics struct {
	next    KeyRing
	metrics metrics.OperationMetrics
}

// NewKeyRingWithMetrics wraps a KeyRing with operation metrics recording.
func NewKeyRingWithMetrics(kr KeyRing, m metrics.OperationMetrics) KeyRing {
	return &keyRingWithMetrics{next: kr, metrics: m}
}

func (k *keyRingWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	k.metrics.RecordOperation(ctx, operation, status, time.Since(start))
}

// AddKey records metrics for key additions.
func (k *keyRingWithMetrics) AddKey(ctx context.Context, d service.Descriptor) (uuid.UUID, error) {
	start := time.Now()
	id, err := k.next.AddKey(ctx, d)
	k.record(ctx, "add_key", start, err)
	return id, err
}

// ActiveKeyID passes through without instrumentation.
func (k *keyRingWithMetrics) ActiveKeyID() uuid.UUID {
	return k.next.ActiveKeyID()
}

// Protect records metrics for encryption operations.
func (k *keyRingWithMetrics) Protect(ctx context.Context, plaintext, aad []byte) ([]byte, error) {
	start := time.Now()
	out, err := k.next.Protect(ctx, plaintext, aad)
	k.record(ctx, "protect", start, err)
	return out, err
}

// Unprotect records metrics for decryption operations.
func (k *keyRingWithMetrics) Unprotect(ctx context.Context, ciphertext, aad []byte) ([]byte, error) {
	start := time.Now()
	out, err := k.next.Unprotect(ctx, ciphertext, aad)
	k.record(ctx, "unprotect", start, err)
	return out, err
}

// ExportKeys records metrics for key set exports.
func (k *keyRingWithMetrics) ExportKeys(ctx context.Context, protector secret.Protector) ([]ExportedKey, error) {
	start := time.Now()
	keys, err := k.next.ExportKeys(ctx, protector)
	k.record(ctx, "export", start, err)
	return keys, err
}

// ImportKeys records metrics for key set imports.
func (k *keyRingWithMetrics) ImportKeys(ctx context.Context, keys []ExportedKey, policy UnknownTagPolicy) error {
	start := time.Now()
	err := k.next.ImportKeys(ctx, keys, policy)
	k.record(ctx, "import", start, err)
	return err
}
