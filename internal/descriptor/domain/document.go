package domain

import (
	"fmt"

	"github.com/beevik/etree"
)

// Element and attribute names of the serialized descriptor document.
//
// The document is a self-describing XML tree:
//
//	<descriptor>
//	  <!-- human-readable backend identification comment -->
//	  <encryption algorithm="..." keyLength="..." [validation="..."] [provider="..."] [type="..."]/>
//	  <masterKey>...opaque protected blob...</masterKey>
//	</descriptor>
//
// The masterKey node content is produced by the secret's own protected
// rendering and is opaque to this layer.
const (
	ElementDescriptor = "descriptor"
	ElementEncryption = "encryption"
	ElementMasterKey  = "masterKey"

	AttrAlgorithm  = "algorithm"
	AttrKeyLength  = "keyLength"
	AttrValidation = "validation"
	AttrProvider   = "provider"
	AttrCustomType = "type"
)

// ExportedDescriptor pairs a serialized descriptor document with the type tag
// of the deserializer able to read it back. The tag travels beside the
// document, not inside it, and it is not cryptographically protected:
// tampering with it can only make deserialization fail, never downgrade the
// configuration, because the attributes inside the document are authoritative
// once the deserializer is chosen.
type ExportedDescriptor struct {
	Document        *etree.Document
	DeserializerTag string
}

// WriteBytes renders the document to its canonical byte form. Rendering is
// deterministic for a given tree, which is what makes export → deserialize →
// re-export byte-for-byte stable.
func (e *ExportedDescriptor) WriteBytes() ([]byte, error) {
	b, err := e.Document.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render descriptor document: %w", err)
	}
	return b, nil
}
