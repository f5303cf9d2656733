// Package secret provides an opaque, protected holder for raw key bytes.
//
// Plaintext key material lives only inside memguard enclaves or inside the
// scoped buffer handed to WithBytes, and is wiped on every exit path. Secrets
// render themselves to a protected XML node through a Protector and can be
// reconstructed lazily from such a node: the protected blob is kept and only
// unwrapped when the key bytes are actually needed, which bounds the exposure
// window of raw key material.
package secret

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/beevik/etree"
)

const (
	elementMasterKey = "masterKey"
	elementValue     = "value"
)

// Secret is an opaque holder of protected key bytes.
//
// A secret is backed either by a memguard enclave (freshly generated or
// explicitly wrapped key material) or by a protected blob plus the Protector
// able to unwrap it (reconstructed from a document). Both forms expose the
// same scoped access; the blob-backed form defers decryption until first use
// and never caches the plaintext between calls.
//
// Secrets are immutable after construction and safe for concurrent use: the
// enclave hands each WithBytes call its own locked buffer, and blob-backed
// secrets unwrap into a per-call buffer.
type Secret struct {
	enclave   *memguard.Enclave
	blob      []byte
	protector Protector

	// guards the blob cache populated by RenderProtected
	mu sync.Mutex
}

// FromBytes wraps raw key material into a Secret. The input slice is wiped
// as a side effect of sealing it into the enclave; callers must not use it
// afterwards.
func FromBytes(raw []byte) (*Secret, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyKey
	}
	return &Secret{enclave: memguard.NewEnclave(raw)}, nil
}

// Random generates a new Secret with size cryptographically random bytes.
// A minimum of 16 bytes (128 bits) of entropy is recommended for master keys.
func Random(size int) (*Secret, error) {
	if size <= 0 {
		return nil, ErrEmptyKey
	}
	return &Secret{enclave: memguard.NewEnclaveRandom(size)}, nil
}

// Unwrap reconstructs a Secret from a masterKey node previously produced by
// RenderProtected. Only the node structure is verified here; the blob is not
// decrypted until the secret is first used, so a missing protection key
// surfaces as ErrCryptographic at use time, not at deserialization time.
func Unwrap(protector Protector, node *etree.Element) (*Secret, error) {
	if node == nil {
		return nil, ErrMalformedNode
	}
	value := node.SelectElement(elementValue)
	if value == nil {
		return nil, ErrMalformedNode
	}
	blob, err := base64.StdEncoding.DecodeString(value.Text())
	if err != nil || len(blob) == 0 {
		return nil, ErrMalformedNode
	}
	return &Secret{blob: blob, protector: protector}, nil
}

// Len returns the key length in bytes for enclave-backed secrets, or 0 when
// the secret is blob-backed and has not been unwrapped.
func (s *Secret) Len() int {
	if s.enclave != nil {
		return s.enclave.Size()
	}
	return 0
}

// WithBytes invokes fn with the plaintext key bytes inside a scoped buffer.
// The buffer is valid only for the duration of the call and is wiped on every
// exit path, including when fn returns an error or panics. fn must not retain
// the slice.
//
// Blob-backed secrets unwrap through their Protector on every call and report
// ErrCryptographic when the blob cannot be decrypted.
func (s *Secret) WithBytes(ctx context.Context, fn func(key []byte) error) error {
	if s.enclave != nil {
		buf, err := s.enclave.Open()
		if err != nil {
			return fmt.Errorf("failed to open secret enclave: %w", err)
		}
		defer buf.Destroy()
		return fn(buf.Bytes())
	}

	plaintext, err := s.protector.Unprotect(ctx, s.blob)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)
	return fn(plaintext)
}

// RenderProtected renders the secret as a masterKey node whose content is the
// key material wrapped by the protector:
//
//	<masterKey><value>base64 blob</value></masterKey>
//
// The rendering is deterministic per secret: the wrapped blob is produced
// once and reused on subsequent renders, so repeated exports of the same
// descriptor are byte-for-byte identical. Raw key bytes never appear in the
// node.
func (s *Secret) RenderProtected(ctx context.Context, protector Protector) (*etree.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blob == nil {
		err := s.WithBytes(ctx, func(key []byte) error {
			blob, err := protector.Protect(ctx, key)
			if err != nil {
				return err
			}
			s.blob = blob
			s.protector = protector
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	node := etree.NewElement(elementMasterKey)
	value := node.CreateElement(elementValue)
	value.SetText(base64.StdEncoding.EncodeToString(s.blob))
	return node, nil
}

// Rewrap copies the key material into a fresh enclave-backed Secret with no
// cached blob, so the next RenderProtected wraps it under whatever protector
// is supplied then. Used when rotating the protection key.
func (s *Secret) Rewrap(ctx context.Context) (*Secret, error) {
	var out *Secret
	err := s.WithBytes(ctx, func(key []byte) error {
		dup := make([]byte, len(key))
		copy(dup, key)
		fresh, err := FromBytes(dup)
		if err != nil {
			return err
		}
		out = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
