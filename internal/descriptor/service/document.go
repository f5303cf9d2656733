package service

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/allisson/keyring/internal/descriptor/domain"
	"github.com/allisson/keyring/internal/secret"
)

// attr is an ordered attribute of the encryption element. Attribute order is
// fixed per variant so rendering stays deterministic.
type attr struct {
	name  string
	value string
}

// buildDocument assembles the canonical descriptor document: a root element
// carrying a human-readable backend comment, the encryption element with the
// configuration attributes, and the masterKey node rendered by the secret.
func buildDocument(comment string, attrs []attr, masterKey *etree.Element) *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement(domain.ElementDescriptor)
	root.CreateComment(comment)
	enc := root.CreateElement(domain.ElementEncryption)
	for _, a := range attrs {
		enc.CreateAttr(a.name, a.value)
	}
	root.AddChild(masterKey)
	return doc
}

// encryptionElement locates the encryption node of a descriptor document.
func encryptionElement(doc *etree.Document) (*etree.Element, error) {
	root := doc.Root()
	if root == nil || root.Tag != domain.ElementDescriptor {
		return nil, fmt.Errorf("%w: missing %s root element", domain.ErrFormat, domain.ElementDescriptor)
	}
	enc := root.SelectElement(domain.ElementEncryption)
	if enc == nil {
		return nil, fmt.Errorf("%w: missing %s element", domain.ErrFormat, domain.ElementEncryption)
	}
	return enc, nil
}

// masterKeyElement locates the masterKey node of a descriptor document.
func masterKeyElement(doc *etree.Document) (*etree.Element, error) {
	root := doc.Root()
	if root == nil || root.Tag != domain.ElementDescriptor {
		return nil, fmt.Errorf("%w: missing %s root element", domain.ErrFormat, domain.ElementDescriptor)
	}
	mk := root.SelectElement(domain.ElementMasterKey)
	if mk == nil {
		return nil, fmt.Errorf("%w: missing %s element", domain.ErrFormat, domain.ElementMasterKey)
	}
	return mk, nil
}

// rehydrateSecret locates the masterKey node and rebuilds the secret handle.
// Structural problems in the node are format errors; the protected blob is
// not decrypted here.
func rehydrateSecret(doc *etree.Document, protector secret.Protector) (*secret.Secret, error) {
	mk, err := masterKeyElement(doc)
	if err != nil {
		return nil, err
	}
	sec, err := secret.Unwrap(protector, mk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	return sec, nil
}

// requireAttr reads a mandatory attribute from an element.
func requireAttr(el *etree.Element, name string) (string, error) {
	a := el.SelectAttr(name)
	if a == nil || a.Value == "" {
		return "", fmt.Errorf("%w: missing %s attribute", domain.ErrFormat, name)
	}
	return a.Value, nil
}

// intAttr reads a mandatory integer attribute from an element.
func intAttr(el *etree.Element, name string) (int, error) {
	raw, err := requireAttr(el, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric %s attribute %q", domain.ErrFormat, name, raw)
	}
	return n, nil
}
