package output

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/StinkyLord/cmake-sbom-builder/internal/licenses"
	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

// reCPE23Parts extracts vendor, product, and version from a CPE 2.3 string
// so a module's security reference can override the package's declared
// supplier/name/version.
var reCPE23Parts = regexp.MustCompile(`^cpe:2\.3:[aho*\-]:([^:]+):([^:]+):([^:]+):`)

// TagValue writes one SPDX 2.x tag-value document per model Document.
//
// The write is two-pass: pass 1 omits ExternalDocumentRef lines (the
// referenced documents' hashes are not known yet) and stores each
// document's SHA1; pass 2 rewrites every document with the resolved
// references and recomputes the hashes.
type TagValue struct {
	SPDXVersion string // "2.2" or "2.3"
	ToolVersion string

	ids *IDGen
	log hclog.Logger
	now func() time.Time
}

// NewTagValue creates a tag-value serializer for the given SPDX version.
func NewTagValue(spdxVersion, toolVersion string, log hclog.Logger) *TagValue {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &TagValue{
		SPDXVersion: spdxVersion,
		ToolVersion: toolVersion,
		ids:         NewIDGen(),
		log:         log.Named("spdx-tv"),
		now:         time.Now,
	}
}

func (s *TagValue) Name() string      { return "spdx-" + s.SPDXVersion }
func (s *TagValue) Extension() string { return ".spdx" }

func (s *TagValue) Write(fs afero.Fs, dir string, sb *model.SBOM) error {
	s.ids.Reset()
	created := s.now().UTC().Format("2006-01-02T15:04:05Z")

	// Pass 1: no external references; establish every document's hash.
	for _, doc := range sb.Documents() {
		data := s.renderDocument(doc, sb, created, false)
		if err := writeFile(fs, outPath(dir, doc.Name+s.Extension()), data); err != nil {
			return err
		}
		doc.Hash = hashBytes(data)
		s.log.Debug("wrote document (pass 1)", "document", doc.Name, "sha1", doc.Hash)
	}

	// Pass 2: rewrite with resolved external-document hashes.
	for _, doc := range sb.Documents() {
		data := s.renderDocument(doc, sb, created, true)
		if err := writeFile(fs, outPath(dir, doc.Name+s.Extension()), data); err != nil {
			return err
		}
		doc.Hash = hashBytes(data)
	}
	return nil
}

func (s *TagValue) renderDocument(doc *model.Document, sb *model.SBOM, created string, withExtRefs bool) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "SPDXVersion: SPDX-%s\n", s.SPDXVersion)
	b.WriteString("DataLicense: CC0-1.0\n")
	b.WriteString("SPDXID: SPDXRef-DOCUMENT\n")
	fmt.Fprintf(&b, "DocumentName: %s\n", doc.Name)
	fmt.Fprintf(&b, "DocumentNamespace: %s\n", doc.Namespace)
	if withExtRefs {
		for _, ref := range doc.SortedExternalRefs() {
			if ref.Hash == "" {
				s.log.Warn("referenced document has no hash yet, omitting reference", "from", doc.Name, "to", ref.Name)
				continue
			}
			fmt.Fprintf(&b, "ExternalDocumentRef: DocumentRef-%s %s SHA1: %s\n", ref.Name, ref.Namespace, ref.Hash)
		}
	}
	fmt.Fprintf(&b, "Creator: Tool: %s-%s\n", ToolName, s.ToolVersion)
	fmt.Fprintf(&b, "Created: %s\n", created)

	for _, rel := range doc.Relationships {
		b.WriteString("\n")
		s.renderRelationship(&b, "SPDXRef-DOCUMENT", rel)
	}

	for _, cmp := range doc.Components {
		s.renderPackage(&b, doc, cmp)
	}

	if custom := doc.SortedCustomLicenses(); len(custom) > 0 {
		b.WriteString("\n##### Non-standard licenses\n")
		for _, id := range custom {
			fmt.Fprintf(&b, "\nLicenseID: LicenseRef-%s\n", Sanitize(id))
			b.WriteString("ExtractedText: NOASSERTION\n")
		}
	}

	return b.Bytes()
}

func (s *TagValue) renderPackage(b *bytes.Buffer, doc *model.Document, cmp *model.Component) {
	name, version, supplier := cmp.Name, cmp.Version, cmp.Supplier

	// A CPE 2.3 security reference carries authoritative naming; extract
	// vendor/product/version from it when present and well-formed.
	for _, ref := range cmp.ExternalRefs {
		if ref.Type != "cpe23Type" {
			continue
		}
		if m := reCPE23Parts.FindStringSubmatch(ref.Locator); m != nil {
			supplier, name, version = m[1], m[2], m[3]
			break
		}
	}

	fmt.Fprintf(b, "\n##### Package: %s\n\n", cmp.Name)
	fmt.Fprintf(b, "PackageName: %s\n", name)
	fmt.Fprintf(b, "SPDXID: SPDXRef-%s\n", s.ids.For(cmp))
	if version != "" {
		fmt.Fprintf(b, "PackageVersion: %s\n", version)
	}
	if supplier != "" {
		fmt.Fprintf(b, "PackageSupplier: Organization: %s\n", supplier)
	}
	if cmp.DownloadURL != "" {
		fmt.Fprintf(b, "PackageDownloadLocation: %s\n", cmp.DownloadURL)
	} else {
		b.WriteString("PackageDownloadLocation: NOASSERTION\n")
	}
	if cmp.FilesAnalyzed {
		b.WriteString("FilesAnalyzed: true\n")
		if cmp.VerificationCode != "" {
			fmt.Fprintf(b, "PackageVerificationCode: %s\n", cmp.VerificationCode)
		}
	} else {
		b.WriteString("FilesAnalyzed: false\n")
	}
	fmt.Fprintf(b, "PackageLicenseConcluded: %s\n", s.renderExpression(cmp.ConcludedLicense))
	if cmp.FilesAnalyzed {
		for _, id := range packageLicenseInfo(cmp) {
			fmt.Fprintf(b, "PackageLicenseInfoFromFiles: %s\n", s.renderExpression(id))
		}
	}
	fmt.Fprintf(b, "PackageLicenseDeclared: %s\n", s.renderExpression(cmp.DeclaredLicense))
	fmt.Fprintf(b, "PackageCopyrightText: %s\n", textValue(cmp.Copyright))
	if s.SPDXVersion >= "2.3" {
		fmt.Fprintf(b, "PrimaryPackagePurpose: %s\n", cmp.Purpose)
	}
	for _, ref := range cmp.ExternalRefs {
		fmt.Fprintf(b, "ExternalRef: %s %s %s\n", ref.Category, ref.Type, ref.Locator)
	}
	if cmp.Comment != "" {
		fmt.Fprintf(b, "PackageComment: %s\n", textValue(cmp.Comment))
	}

	for _, f := range cmp.SortedFiles() {
		s.renderFile(b, f)
	}

	for _, rel := range cmp.Relationships {
		b.WriteString("\n")
		s.renderRelationship(b, "SPDXRef-"+s.ids.For(cmp), rel)
	}
}

func (s *TagValue) renderFile(b *bytes.Buffer, f *model.File) {
	fmt.Fprintf(b, "\nFileName: ./%s\n", f.RelPath)
	fmt.Fprintf(b, "SPDXID: SPDXRef-%s\n", s.ids.For(f))
	if f.SHA1 != "" {
		fmt.Fprintf(b, "FileChecksum: SHA1: %s\n", f.SHA1)
	}
	if f.SHA256 != "" {
		fmt.Fprintf(b, "FileChecksum: SHA256: %s\n", f.SHA256)
	}
	if f.MD5 != "" {
		fmt.Fprintf(b, "FileChecksum: MD5: %s\n", f.MD5)
	}
	fmt.Fprintf(b, "LicenseConcluded: %s\n", s.renderExpression(f.ConcludedLicense))
	if len(f.LicenseInfoInFile) == 0 {
		b.WriteString("LicenseInfoInFile: NOASSERTION\n")
	} else {
		for _, id := range f.LicenseInfoInFile {
			fmt.Fprintf(b, "LicenseInfoInFile: %s\n", s.renderExpression(id))
		}
	}
	fmt.Fprintf(b, "FileCopyrightText: %s\n", textValue(f.Copyright))

	for _, rel := range f.Relationships {
		s.renderRelationship(b, "SPDXRef-"+s.ids.For(f), rel)
	}
}

// renderRelationship writes one Relationship line. Cross-document targets
// are prefixed with the DocumentRef of the document they live in.
func (s *TagValue) renderRelationship(b *bytes.Buffer, fromRef string, rel *model.Relationship) {
	toRef := "SPDXRef-" + s.ids.For(rel.B)
	if rel.BDoc != nil {
		toRef = "DocumentRef-" + rel.BDoc.Name + ":" + toRef
	}
	fmt.Fprintf(b, "Relationship: %s %s %s\n", fromRef, rel.Type, toRef)
}

// renderExpression rewrites license tokens not on the SPDX list into their
// LicenseRef- form, leaving operators and parentheses intact.
func (s *TagValue) renderExpression(expr string) string {
	if expr == "" {
		return model.NoAssertion
	}
	if expr == model.NoAssertion || expr == "NONE" {
		return expr
	}

	padded := strings.NewReplacer("(", " ( ", ")", " ) ").Replace(expr)
	toks := strings.Fields(padded)
	for i, tok := range toks {
		switch tok {
		case "AND", "OR", "WITH", "(", ")":
			continue
		}
		bare := strings.TrimSuffix(tok, "+")
		if licenses.IsKnown(bare) {
			continue
		}
		toks[i] = "LicenseRef-" + Sanitize(bare)
	}
	out := strings.Join(toks, " ")
	out = strings.ReplaceAll(out, "( ", "(")
	out = strings.ReplaceAll(out, " )", ")")
	return out
}

// packageLicenseInfo aggregates the distinct detected license identifiers
// across the component's files.
func packageLicenseInfo(cmp *model.Component) []string {
	seen := map[string]bool{}
	var ids []string
	for _, f := range cmp.SortedFiles() {
		for _, id := range f.LicenseInfoInFile {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return []string{model.NoAssertion}
	}
	return ids
}

// textValue wraps multi-line values in <text> markers as the tag-value
// format requires.
func textValue(s string) string {
	if s == "" {
		return model.NoAssertion
	}
	if strings.Contains(s, "\n") {
		return "<text>" + s + "</text>"
	}
	return s
}
