// Package model defines the format-agnostic SBOM data structures shared by
// the walker, the scanner, and every serializer: Documents group Components,
// Components own Files, and Relationships link any two of them. Nothing in
// this package knows about SPDX tag-value, JSON-LD, or CycloneDX.
package model

// Purpose classifies what a Component represents.
type Purpose string

const (
	PurposeApplication     Purpose = "APPLICATION"
	PurposeLibrary         Purpose = "LIBRARY"
	PurposeSource          Purpose = "SOURCE"
	PurposeFramework       Purpose = "FRAMEWORK"
	PurposeOperatingSystem Purpose = "OPERATING-SYSTEM"
	PurposeFile            Purpose = "FILE"
	PurposeOther           Purpose = "OTHER"
)

// NoAssertion is the conventional "no conclusion made" value for license and
// copyright fields.
const NoAssertion = "NOASSERTION"

// Element is anything that can sit at either end of a Relationship:
// *Document, *Component, or *File.
type Element interface {
	// DocumentOf returns the Document the element belongs to (the Document
	// itself for documents, the owning component's document for files).
	DocumentOf() *Document
}

// SBOM is the top-level container for one generation run: the full document
// set plus build metadata captured by the walker (compiler paths/versions).
type SBOM struct {
	App         *Document
	Zephyr      *Document
	Build       *Document
	ModulesDeps *Document
	SDK         *Document // nil unless SDK inclusion was requested

	// BuildInfo holds flat build metadata, e.g. "c.compiler.path" or
	// "c.compiler.version".
	BuildInfo map[string]string
}

// Documents returns the non-nil documents in their fixed serialization
// order: app before build so cross-document hashes resolve in one rewrite.
func (s *SBOM) Documents() []*Document {
	all := []*Document{s.SDK, s.App, s.Zephyr, s.ModulesDeps, s.Build}
	docs := make([]*Document, 0, len(all))
	for _, d := range all {
		if d != nil {
			docs = append(docs, d)
		}
	}
	return docs
}

// AllComponents returns every component of every document, in document order.
func (s *SBOM) AllComponents() []*Component {
	var cmps []*Component
	for _, d := range s.Documents() {
		cmps = append(cmps, d.Components...)
	}
	return cmps
}
