package enums

import (
	"fmt"
	"strings"
)

// DocumentType is the identity document a customer registers with.
type DocumentType string

const (
	DocumentDNI      DocumentType = "DNI"
	DocumentRUC      DocumentType = "RUC"
	DocumentCE       DocumentType = "CE"
	DocumentPassport DocumentType = "PASSPORT"
)

var validDocumentTypes = []DocumentType{
	DocumentDNI,
	DocumentRUC,
	DocumentCE,
	DocumentPassport,
}

func (d DocumentType) IsValid() bool {
	for _, candidate := range validDocumentTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDocumentType(value string) (DocumentType, error) {
	candidate := DocumentType(strings.ToUpper(strings.TrimSpace(value)))
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid document type %q", value)
}
