package model

import "sort"

// Document is a named grouping of Components with its own namespace. A
// Document that references elements in another Document records that
// other Document in ExternalRefs so serializers can declare the reference
// (tag-value needs the referenced document's hash, hence the two-pass
// write).
type Document struct {
	Name      string
	Namespace string

	// Components in insertion order. Serializers must not reorder; the
	// walker inserts deterministically.
	Components []*Component

	// Relationships owned by the document itself (DESCRIBES edges).
	Relationships []*Relationship

	// ExternalRefs maps document name to the referenced Document.
	ExternalRefs map[string]*Document

	// CustomLicenseIDs collects license tokens seen in this document's
	// files that are not on the SPDX license list; they are declared as
	// LicenseRef- entries at serialization time.
	CustomLicenseIDs map[string]bool

	// Hash is the SHA1 of this document's serialized tag-value form,
	// filled in by the first serialization pass and consumed by other
	// documents' ExternalDocumentRef lines in the second.
	Hash string
}

// NewDocument creates an empty document with the given name and namespace.
func NewDocument(name, namespace string) *Document {
	return &Document{
		Name:             name,
		Namespace:        namespace,
		ExternalRefs:     map[string]*Document{},
		CustomLicenseIDs: map[string]bool{},
	}
}

func (d *Document) DocumentOf() *Document { return d }

// AddComponent appends c and claims ownership.
func (d *Document) AddComponent(c *Component) {
	c.Doc = d
	d.Components = append(d.Components, c)
}

// AddExternalRef records that this document references elements of other.
// Self-references are ignored.
func (d *Document) AddExternalRef(other *Document) {
	if other == nil || other == d {
		return
	}
	d.ExternalRefs[other.Name] = other
}

// SortedExternalRefs returns the referenced documents sorted by name for
// deterministic output.
func (d *Document) SortedExternalRefs() []*Document {
	names := make([]string, 0, len(d.ExternalRefs))
	for name := range d.ExternalRefs {
		names = append(names, name)
	}
	sort.Strings(names)
	docs := make([]*Document, 0, len(names))
	for _, name := range names {
		docs = append(docs, d.ExternalRefs[name])
	}
	return docs
}

// DeclareCustomLicense flags a non-standard license token for declaration.
func (d *Document) DeclareCustomLicense(id string) {
	if id != "" && id != NoAssertion {
		d.CustomLicenseIDs[id] = true
	}
}

// SortedCustomLicenses returns the custom license tokens sorted.
func (d *Document) SortedCustomLicenses() []string {
	ids := make([]string, 0, len(d.CustomLicenseIDs))
	for id := range d.CustomLicenseIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
