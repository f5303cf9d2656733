// Package keyring provides the composition layer that owns a set of key
// descriptors over time: it selects the active key for new ciphertexts,
// routes old ciphertexts to the key that produced them, and moves whole key
// sets in and out of their serialized document form.
package keyring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/descriptor/service"
	"github.com/allisson/keyring/internal/errors"
	"github.com/allisson/keyring/internal/secret"
)

// UnknownTagPolicy decides what ImportKeys does with a document whose
// deserializer type tag is not registered.
type UnknownTagPolicy int

const (
	// SkipUnknown drops keys with unknown tags and keeps importing.
	SkipUnknown UnknownTagPolicy = iota

	// FailOnUnknown aborts the whole import on the first unknown tag.
	FailOnUnknown
)

// ExportedKey pairs a key ID with its serialized descriptor.
type ExportedKey struct {
	ID         uuid.UUID
	Descriptor *domain.ExportedDescriptor
}

// KeyRing manages a set of descriptors with one designated as active.
type KeyRing interface {
	// AddKey adds a descriptor to the ring and makes it the active key.
	AddKey(ctx context.Context, d service.Descriptor) (uuid.UUID, error)

	// ActiveKeyID returns the ID of the key used for new ciphertexts,
	// or uuid.Nil when the ring is empty.
	ActiveKeyID() uuid.UUID

	// Protect encrypts plaintext with the active key's authenticator,
	// prepending the key ID so Unprotect can route the ciphertext back.
	Protect(ctx context.Context, plaintext, aad []byte) ([]byte, error)

	// Unprotect decrypts a ciphertext produced by Protect with whichever
	// key in the ring produced it.
	Unprotect(ctx context.Context, ciphertext, aad []byte) ([]byte, error)

	// ExportKeys serializes every descriptor in the ring, in key ID order.
	ExportKeys(ctx context.Context, protector secret.Protector) ([]ExportedKey, error)

	// ImportKeys deserializes a set of exported keys into the ring. Unknown
	// type tags are skipped or fail the whole set according to the policy.
	ImportKeys(ctx context.Context, keys []ExportedKey, policy UnknownTagPolicy) error
}

// entry holds one ring member. The authenticator is built on first use so
// that platform-backed keys can live in the ring on hosts unable to run them.
type entry struct {
	descriptor    service.Descriptor
	authenticator service.Authenticator
}

// ring is the in-memory KeyRing implementation.
type ring struct {
	registry *service.Registry
	logger   *slog.Logger

	mu       sync.RWMutex
	activeID uuid.UUID
	entries  map[uuid.UUID]*entry
}

// New creates an empty key ring. Imported documents are dispatched through
// the given registry.
func New(registry *service.Registry, logger *slog.Logger) KeyRing {
	return &ring{
		registry: registry,
		logger:   logger,
		entries:  map[uuid.UUID]*entry{},
	}
}

// AddKey adds a descriptor under a fresh UUIDv7 and makes it active.
func (r *ring) AddKey(ctx context.Context, d service.Descriptor) (uuid.UUID, error) {
	id := uuid.Must(uuid.NewV7())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry{descriptor: d}
	r.activeID = id
	return id, nil
}

// ActiveKeyID returns the active key ID.
func (r *ring) ActiveKeyID() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// authenticatorFor returns the entry's authenticator, building and caching it
// on first use. The descriptor's secret handles its own scoped plaintext
// access; only the live authenticator object is cached, never raw key bytes.
func (r *ring) authenticatorFor(ctx context.Context, id uuid.UUID) (service.Authenticator, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: key %s is not in the ring", errors.ErrNotFound, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.authenticator == nil {
		auth, err := e.descriptor.CreateAuthenticator(ctx)
		if err != nil {
			return nil, err
		}
		e.authenticator = auth
	}
	return e.authenticator, nil
}

// Protect encrypts plaintext with the active key. Output layout:
// 16-byte key ID || authenticator ciphertext.
func (r *ring) Protect(ctx context.Context, plaintext, aad []byte) ([]byte, error) {
	id := r.ActiveKeyID()
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: key ring is empty", errors.ErrNotFound)
	}

	auth, err := r.authenticatorFor(ctx, id)
	if err != nil {
		return nil, err
	}
	ciphertext, err := auth.Encrypt(plaintext, aad)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(id)+len(ciphertext))
	out = append(out, id[:]...)
	out = append(out, ciphertext...)
	return out, nil
}

// Unprotect routes the ciphertext to the key named in its header and decrypts.
func (r *ring) Unprotect(ctx context.Context, ciphertext, aad []byte) ([]byte, error) {
	if len(ciphertext) <= 16 {
		return nil, domain.ErrDecryptionFailed
	}
	id, err := uuid.FromBytes(ciphertext[:16])
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	auth, err := r.authenticatorFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return auth.Decrypt(ciphertext[16:], aad)
}

// ExportKeys serializes every descriptor, ordered by key ID for stable output.
func (r *ring) ExportKeys(ctx context.Context, protector secret.Protector) ([]ExportedKey, error) {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	exported := make([]ExportedKey, 0, len(ids))
	for _, id := range ids {
		r.mu.RLock()
		e := r.entries[id]
		r.mu.RUnlock()

		doc, err := e.descriptor.ExportDocument(ctx, protector)
		if err != nil {
			return nil, fmt.Errorf("failed to export key %s: %w", id, err)
		}
		exported = append(exported, ExportedKey{ID: id, Descriptor: doc})
	}
	return exported, nil
}

// ImportKeys deserializes a set of exported keys into the ring. With
// SkipUnknown, keys carrying unregistered type tags are logged and dropped;
// with FailOnUnknown, the first unknown tag aborts the import and the ring is
// left unchanged. The most recently imported key becomes active only when the
// ring had no active key.
func (r *ring) ImportKeys(ctx context.Context, keys []ExportedKey, policy UnknownTagPolicy) error {
	imported := map[uuid.UUID]*entry{}
	for _, k := range keys {
		d, err := r.registry.Deserialize(ctx, k.Descriptor)
		if err != nil {
			if errors.Is(err, domain.ErrUnsupportedFormat) && policy == SkipUnknown {
				r.logger.Warn("skipping key with unknown descriptor tag",
					slog.String("key_id", k.ID.String()),
					slog.String("tag", k.Descriptor.DeserializerTag),
				)
				continue
			}
			return fmt.Errorf("failed to import key %s: %w", k.ID, err)
		}
		imported[k.ID] = &entry{descriptor: d}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range imported {
		r.entries[id] = e
	}
	if r.activeID == uuid.Nil {
		for _, k := range keys {
			if _, ok := imported[k.ID]; ok {
				r.activeID = k.ID
			}
		}
	}
	return nil
}
