package commands

import (
	"fmt"
	"os"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/keyring"
)

// Key files wrap a descriptor document in a <key> envelope that carries the
// key ID and the deserializer type tag beside the document, keeping the
// document itself untouched.
const (
	elementKey       = "key"
	attrKeyID        = "id"
	attrDeserializer = "deserializer"
)

// encodeKeyFile renders an exported key to its on-disk envelope form.
func encodeKeyFile(key keyring.ExportedKey) ([]byte, error) {
	root := key.Descriptor.Document.Root()
	if root == nil {
		return nil, fmt.Errorf("exported descriptor has no document root")
	}

	doc := etree.NewDocument()
	envelope := doc.CreateElement(elementKey)
	envelope.CreateAttr(attrKeyID, key.ID.String())
	envelope.CreateAttr(attrDeserializer, key.Descriptor.DeserializerTag)
	envelope.AddChild(root.Copy())

	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render key file: %w", err)
	}
	return data, nil
}

// decodeKeyFile parses an on-disk envelope back into an exported key.
func decodeKeyFile(data []byte) (keyring.ExportedKey, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return keyring.ExportedKey{}, fmt.Errorf("failed to parse key file: %w", err)
	}

	envelope := doc.Root()
	if envelope == nil || envelope.Tag != elementKey {
		return keyring.ExportedKey{}, fmt.Errorf("key file has no <%s> root element", elementKey)
	}

	id, err := uuid.Parse(envelope.SelectAttrValue(attrKeyID, ""))
	if err != nil {
		return keyring.ExportedKey{}, fmt.Errorf("key file has an invalid %s attribute: %w", attrKeyID, err)
	}
	tag := envelope.SelectAttrValue(attrDeserializer, "")
	if tag == "" {
		return keyring.ExportedKey{}, fmt.Errorf("key file is missing the %s attribute", attrDeserializer)
	}
	inner := envelope.SelectElement(domain.ElementDescriptor)
	if inner == nil {
		return keyring.ExportedKey{}, fmt.Errorf("key file is missing the <%s> element", domain.ElementDescriptor)
	}

	descriptorDoc := etree.NewDocument()
	descriptorDoc.SetRoot(inner.Copy())

	return keyring.ExportedKey{
		ID: id,
		Descriptor: &domain.ExportedDescriptor{
			Document:        descriptorDoc,
			DeserializerTag: tag,
		},
	}, nil
}

// writeKeyFile writes an exported key to path, readable only by the owner.
func writeKeyFile(path string, key keyring.ExportedKey) error {
	data, err := encodeKeyFile(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// readKeyFile reads an exported key from path.
func readKeyFile(path string) (keyring.ExportedKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return keyring.ExportedKey{}, fmt.Errorf("failed to read key file: %w", err)
	}
	return decodeKeyFile(data)
}
