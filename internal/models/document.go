// internal/models/document.go
package models

import "strings"

type DocumentKind string

const (
	DocumentInvoice  DocumentKind = "INVOICE"
	DocumentProposal DocumentKind = "PROPOSAL"
	DocumentMOU      DocumentKind = "MOU"
	DocumentSRS      DocumentKind = "SRS"
)

var documentPrefixes = map[DocumentKind]string{
	DocumentInvoice:  "INV",
	DocumentProposal: "PROP",
	DocumentMOU:      "MOU",
	DocumentSRS:      "SRS",
}

func ParseDocumentKind(s string) (DocumentKind, bool) {
	kind := DocumentKind(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := documentPrefixes[kind]
	return kind, ok
}

// Prefix is the external number prefix, e.g. "INV".
func (k DocumentKind) Prefix() string {
	return documentPrefixes[k]
}

func (k DocumentKind) Valid() bool {
	_, ok := documentPrefixes[k]
	return ok
}

func (k DocumentKind) String() string { return string(k) }
