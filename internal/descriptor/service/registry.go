package service

import (
	"context"
	"fmt"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/errors"
	"github.com/allisson/keyring/internal/secret"
)

// Registry maps deserializer type tags to deserializer instances. It is
// populated statically at construction with all built-in variants; additional
// variants register explicitly. There is no runtime type discovery: an
// unknown tag always fails with ErrUnsupportedFormat, never a silent default.
type Registry struct {
	deserializers map[string]Deserializer
}

// NewRegistry builds a registry holding all built-in deserializer variants,
// each wired to the given protector for master key rehydration.
func NewRegistry(protector secret.Protector) *Registry {
	r := &Registry{deserializers: map[string]Deserializer{}}
	for _, d := range []Deserializer{
		NewCBCHMACDeserializer(protector),
		NewAEADDeserializer(protector),
		NewPlatformCBCDeserializer(protector),
		NewPlatformGCMDeserializer(protector),
		NewCustomDeserializer(protector),
	} {
		r.deserializers[d.Tag()] = d
	}
	return r
}

// Register adds a deserializer for a new variant. Registering a tag twice is
// a conflict.
func (r *Registry) Register(d Deserializer) error {
	if _, exists := r.deserializers[d.Tag()]; exists {
		return fmt.Errorf("%w: deserializer %q already registered", errors.ErrConflict, d.Tag())
	}
	r.deserializers[d.Tag()] = d
	return nil
}

// Deserialize dispatches an exported descriptor to the deserializer selected
// by its type tag.
func (r *Registry) Deserialize(ctx context.Context, exported *domain.ExportedDescriptor) (Descriptor, error) {
	d, ok := r.deserializers[exported.DeserializerTag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type tag %q",
			domain.ErrUnsupportedFormat, exported.DeserializerTag)
	}
	return d.Deserialize(ctx, exported.Document)
}
