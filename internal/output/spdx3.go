package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

const (
	spdx3Context     = "https://spdx.org/rdf/3.0.1/spdx-context.jsonld"
	spdx3SpecVersion = "3.0.1"
	spdx3FileName    = "sbom.spdx.json"
	creationInfoID   = "_:creationinfo"
)

// spdx3Node is one element in the flat @graph. A single struct covers every
// node kind; unset fields are omitted from the JSON.
type spdx3Node struct {
	Type         string   `json:"type"`
	SpdxID       string   `json:"spdxId,omitempty"`
	ID           string   `json:"@id,omitempty"`
	CreationInfo string   `json:"creationInfo,omitempty"`
	SpecVersion  string   `json:"specVersion,omitempty"`
	Created      string   `json:"created,omitempty"`
	CreatedBy    []string `json:"createdBy,omitempty"`
	Name         string   `json:"name,omitempty"`
	Comment      string   `json:"comment,omitempty"`

	// SpdxDocument
	ProfileConformance []string `json:"profileConformance,omitempty"`
	RootElement        []string `json:"rootElement,omitempty"`
	Element            []string `json:"element,omitempty"`

	// software_Package / software_File
	PackageVersion   string       `json:"software_packageVersion,omitempty"`
	DownloadLocation string       `json:"software_downloadLocation,omitempty"`
	PrimaryPurpose   string       `json:"software_primaryPurpose,omitempty"`
	CopyrightText    string       `json:"software_copyrightText,omitempty"`
	VerifiedUsing    []spdx3Hash  `json:"verifiedUsing,omitempty"`
	ExternalIDs      []spdx3ExtID `json:"externalIdentifier,omitempty"`

	// Relationship
	From             string   `json:"from,omitempty"`
	RelationshipType string   `json:"relationshipType,omitempty"`
	To               []string `json:"to,omitempty"`

	// simplelicensing_LicenseExpression
	LicenseExpression string `json:"simplelicensing_licenseExpression,omitempty"`
}

type spdx3Hash struct {
	Type      string `json:"type"`
	Algorithm string `json:"algorithm"`
	HashValue string `json:"hashValue"`
}

type spdx3ExtID struct {
	Type       string `json:"type"`
	IDType     string `json:"externalIdentifierType"`
	Identifier string `json:"identifier"`
}

type spdx3Doc struct {
	Context string      `json:"@context"`
	Graph   []spdx3Node `json:"@graph"`
}

// SPDX3 writes the whole SBOM as a single SPDX 3.0 JSON-LD file with a flat
// @graph. Element identifiers are the owning document's namespace plus a
// fragment, so the per-document namespaces survive the consolidation.
type SPDX3 struct {
	ToolVersion string

	ids *IDGen
	log hclog.Logger
	now func() time.Time
}

func NewSPDX3(toolVersion string, log hclog.Logger) *SPDX3 {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &SPDX3{
		ToolVersion: toolVersion,
		ids:         NewIDGen(),
		log:         log.Named("spdx3"),
		now:         time.Now,
	}
}

func (s *SPDX3) Name() string      { return "spdx-3.0" }
func (s *SPDX3) Extension() string { return ".spdx.json" }

func (s *SPDX3) Write(fs afero.Fs, dir string, sb *model.SBOM) error {
	s.ids.Reset()

	docs := sb.Documents()
	if len(docs) == 0 {
		return fmt.Errorf("spdx3: SBOM has no documents")
	}
	// The first document's namespace anchors the run-wide nodes (tool,
	// license expressions, cross-cutting relationships).
	anchor := docs[0].Namespace

	toolID := anchor + "#Tool-" + Sanitize(ToolName)
	g := []spdx3Node{
		{
			Type:        "CreationInfo",
			ID:          creationInfoID,
			SpecVersion: spdx3SpecVersion,
			Created:     s.now().UTC().Format("2006-01-02T15:04:05Z"),
			CreatedBy:   []string{toolID},
		},
		{
			Type:         "Tool",
			SpdxID:       toolID,
			CreationInfo: creationInfoID,
			Name:         fmt.Sprintf("%s-%s", ToolName, s.ToolVersion),
		},
	}

	w := &spdx3Writer{ser: s, graph: g, licenseIDs: map[string]string{}, anchor: anchor}
	for _, doc := range docs {
		w.addDocument(doc)
	}
	for _, doc := range docs {
		for _, cmp := range doc.Components {
			w.addRelationships(s.elementID(cmp), cmp.Relationships)
			for _, f := range cmp.SortedFiles() {
				w.addRelationships(s.elementID(f), f.Relationships)
			}
		}
	}

	data, err := json.MarshalIndent(spdx3Doc{Context: spdx3Context, Graph: w.graph}, "", "  ")
	if err != nil {
		return fmt.Errorf("spdx3: marshaling graph: %w", err)
	}
	data = append(data, '\n')
	return writeFile(fs, outPath(dir, spdx3FileName), data)
}

// elementID returns the JSON-LD identifier for a component or file: the
// owning document's namespace with the element's short ID as fragment.
func (s *SPDX3) elementID(e model.Element) string {
	return e.DocumentOf().Namespace + "#" + s.ids.For(e)
}

type spdx3Writer struct {
	ser        *SPDX3
	graph      []spdx3Node
	licenseIDs map[string]string // expression -> node spdxId
	relSeq     int
	anchor     string
}

func (w *spdx3Writer) addDocument(doc *model.Document) {
	node := spdx3Node{
		Type:               "SpdxDocument",
		SpdxID:             doc.Namespace + "#DOCUMENT",
		CreationInfo:       creationInfoID,
		Name:               doc.Name,
		ProfileConformance: []string{"core", "software", "simpleLicensing"},
	}
	for _, rel := range doc.Relationships {
		if rel.Type == model.RelDescribes {
			node.RootElement = append(node.RootElement, w.ser.elementID(rel.B))
		}
	}
	for _, cmp := range doc.Components {
		node.Element = append(node.Element, w.ser.elementID(cmp))
	}
	w.graph = append(w.graph, node)

	w.addRelationships(node.SpdxID, doc.Relationships)
	for _, cmp := range doc.Components {
		w.addPackage(cmp)
	}
}

func (w *spdx3Writer) addPackage(cmp *model.Component) {
	node := spdx3Node{
		Type:             "software_Package",
		SpdxID:           w.ser.elementID(cmp),
		CreationInfo:     creationInfoID,
		Name:             cmp.Name,
		PackageVersion:   cmp.Version,
		DownloadLocation: cmp.DownloadURL,
		PrimaryPurpose:   spdx3Purpose(cmp.Purpose),
		CopyrightText:    cmp.Copyright,
		Comment:          cmp.Comment,
	}
	if cmp.VerificationCode != "" {
		node.VerifiedUsing = append(node.VerifiedUsing, spdx3Hash{Type: "Hash", Algorithm: "sha1", HashValue: cmp.VerificationCode})
	}
	for _, ref := range cmp.ExternalRefs {
		node.ExternalIDs = append(node.ExternalIDs, spdx3ExtID{
			Type:       "ExternalIdentifier",
			IDType:     spdx3IDType(ref.Type),
			Identifier: ref.Locator,
		})
	}
	w.graph = append(w.graph, node)

	w.addLicenseRel(node.SpdxID, "hasConcludedLicense", cmp.ConcludedLicense)
	w.addLicenseRel(node.SpdxID, "hasDeclaredLicense", cmp.DeclaredLicense)

	for _, f := range cmp.SortedFiles() {
		w.addFile(f)
	}
}

func (w *spdx3Writer) addFile(f *model.File) {
	node := spdx3Node{
		Type:          "software_File",
		SpdxID:        w.ser.elementID(f),
		CreationInfo:  creationInfoID,
		Name:          "./" + f.RelPath,
		CopyrightText: f.Copyright,
	}
	if f.SHA1 != "" {
		node.VerifiedUsing = append(node.VerifiedUsing, spdx3Hash{Type: "Hash", Algorithm: "sha1", HashValue: f.SHA1})
	}
	if f.SHA256 != "" {
		node.VerifiedUsing = append(node.VerifiedUsing, spdx3Hash{Type: "Hash", Algorithm: "sha256", HashValue: f.SHA256})
	}
	if f.MD5 != "" {
		node.VerifiedUsing = append(node.VerifiedUsing, spdx3Hash{Type: "Hash", Algorithm: "md5", HashValue: f.MD5})
	}
	w.graph = append(w.graph, node)

	w.addLicenseRel(node.SpdxID, "hasConcludedLicense", f.ConcludedLicense)
}

// addLicenseRel emits a relationship from the element to a (deduplicated)
// LicenseExpression node. NOASSERTION and empty expressions produce nothing.
func (w *spdx3Writer) addLicenseRel(from, relType, expr string) {
	if expr == "" || expr == model.NoAssertion {
		return
	}
	exprID, ok := w.licenseIDs[expr]
	if !ok {
		exprID = w.anchor + "#" + w.ser.ids.Fresh("LicenseExpr")
		w.licenseIDs[expr] = exprID
		w.graph = append(w.graph, spdx3Node{
			Type:              "simplelicensing_LicenseExpression",
			SpdxID:            exprID,
			CreationInfo:      creationInfoID,
			LicenseExpression: expr,
		})
	}
	w.addRelNode(from, relType, exprID)
}

func (w *spdx3Writer) addRelationships(fromID string, rels []*model.Relationship) {
	for _, rel := range rels {
		w.addRelNode(fromID, spdx3RelType(rel.Type), w.ser.elementID(rel.B))
	}
}

func (w *spdx3Writer) addRelNode(from, relType, to string) {
	w.relSeq++
	w.graph = append(w.graph, spdx3Node{
		Type:             "Relationship",
		SpdxID:           fmt.Sprintf("%s#Relationship-%d", w.anchor, w.relSeq),
		CreationInfo:     creationInfoID,
		From:             from,
		RelationshipType: relType,
		To:               []string{to},
	})
}

func spdx3RelType(t model.RelationshipType) string {
	switch t {
	case model.RelDescribes:
		return "describes"
	case model.RelGeneratedFrom:
		return "generatedFrom"
	case model.RelHasPrerequisite:
		return "hasPrerequisite"
	case model.RelStaticLink:
		return "hasStaticLink"
	case model.RelDynamicLink:
		return "hasDynamicLink"
	case model.RelContains:
		return "contains"
	case model.RelDependsOn:
		return "dependsOn"
	default:
		return "other"
	}
}

func spdx3Purpose(p model.Purpose) string {
	switch p {
	case model.PurposeApplication:
		return "application"
	case model.PurposeLibrary:
		return "library"
	case model.PurposeSource:
		return "source"
	case model.PurposeFramework:
		return "framework"
	case model.PurposeOperatingSystem:
		return "operatingSystem"
	case model.PurposeFile:
		return "file"
	default:
		return "other"
	}
}

func spdx3IDType(refType string) string {
	switch refType {
	case "cpe23Type":
		return "cpe23"
	case "cpe22Type":
		return "cpe22"
	case "purl":
		return "packageUrl"
	default:
		return "other"
	}
}
