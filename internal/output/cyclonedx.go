package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

// ---- CycloneDX 1.4/1.5/1.6 schema types (shared between JSON and XML) ----

type cdxBOM struct {
	XMLName      xml.Name        `json:"-" xml:"bom"`
	XMLNS        string          `json:"-" xml:"xmlns,attr"`
	BOMFormat    string          `json:"bomFormat" xml:"-"`
	SpecVersion  string          `json:"specVersion" xml:"-"`
	Version      int             `json:"version" xml:"version,attr"`
	SerialNumber string          `json:"serialNumber" xml:"serialNumber,attr"`
	Metadata     cdxMetadata     `json:"metadata" xml:"metadata"`
	Components   []cdxComponent  `json:"components" xml:"components>component"`
	Dependencies []cdxDependency `json:"dependencies,omitempty" xml:"dependencies>dependency,omitempty"`
}

type cdxMetadata struct {
	Timestamp  string        `json:"timestamp" xml:"timestamp"`
	Tools      []cdxTool     `json:"tools" xml:"tools>tool"`
	Properties []cdxProperty `json:"properties,omitempty" xml:"properties>property,omitempty"`
}

type cdxTool struct {
	Vendor  string `json:"vendor" xml:"vendor"`
	Name    string `json:"name" xml:"name"`
	Version string `json:"version" xml:"version"`
}

type cdxComponent struct {
	BOMRef     string        `json:"bom-ref" xml:"bom-ref,attr"`
	Type       string        `json:"type" xml:"type,attr"`
	Name       string        `json:"name" xml:"name"`
	Version    string        `json:"version,omitempty" xml:"version,omitempty"`
	Supplier   *cdxSupplier  `json:"supplier,omitempty" xml:"supplier,omitempty"`
	Licenses   []cdxLicense  `json:"licenses,omitempty" xml:"licenses>license,omitempty"`
	Copyright  string        `json:"copyright,omitempty" xml:"copyright,omitempty"`
	CPE        string        `json:"cpe,omitempty" xml:"cpe,omitempty"`
	PURL       string        `json:"purl,omitempty" xml:"purl,omitempty"`
	Hashes     []cdxHash     `json:"hashes,omitempty" xml:"hashes>hash,omitempty"`
	Properties []cdxProperty `json:"properties,omitempty" xml:"properties>property,omitempty"`
}

type cdxSupplier struct {
	Name string `json:"name" xml:"name"`
}

type cdxLicense struct {
	Expression string `json:"expression,omitempty" xml:"expression,omitempty"`
}

type cdxHash struct {
	Alg     string `json:"alg" xml:"alg,attr"`
	Content string `json:"content" xml:",chardata"`
}

type cdxProperty struct {
	Name  string `json:"name" xml:"name,attr"`
	Value string `json:"value" xml:",chardata"`
}

// cdxDependency is one node in the dependency graph. Ref and DependsOn hold
// component bom-refs. The XML schema nests child refs as <dependency>
// elements, so they are mirrored into XMLDeps before marshaling.
type cdxDependency struct {
	Ref       string      `json:"ref" xml:"ref,attr"`
	DependsOn []string    `json:"dependsOn" xml:"-"`
	XMLDeps   []cdxDepRef `json:"-" xml:"dependency,omitempty"`
}

type cdxDepRef struct {
	Ref string `xml:"ref,attr"`
}

// CycloneDX flattens the model's documents into a single BOM and writes it
// as both JSON and XML. CycloneDX has no file-level first-class elements, so
// file-to-file edges are lifted onto the files' owning components; edges
// whose type has no dependency semantics are preserved as
// sbom:relationship:* properties instead.
type CycloneDX struct {
	SpecVersion string // "1.4", "1.5" or "1.6"
	ToolVersion string

	ids *IDGen
	log hclog.Logger
	now func() time.Time
}

func NewCycloneDX(specVersion, toolVersion string, log hclog.Logger) *CycloneDX {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &CycloneDX{
		SpecVersion: specVersion,
		ToolVersion: toolVersion,
		ids:         NewIDGen(),
		log:         log.Named("cyclonedx"),
		now:         time.Now,
	}
}

func (s *CycloneDX) Name() string      { return "cyclonedx-" + s.SpecVersion }
func (s *CycloneDX) Extension() string { return ".cdx.json" }

func (s *CycloneDX) Write(fs afero.Fs, dir string, sb *model.SBOM) error {
	s.ids.Reset()
	bom := s.buildBOM(sb)

	data, err := json.MarshalIndent(bom, "", "  ")
	if err != nil {
		return fmt.Errorf("cyclonedx: marshaling JSON: %w", err)
	}
	if err := writeFile(fs, outPath(dir, "sbom.cdx.json"), append(data, '\n')); err != nil {
		return err
	}

	xdata, err := xml.MarshalIndent(bom, "", "  ")
	if err != nil {
		return fmt.Errorf("cyclonedx: marshaling XML: %w", err)
	}
	xdata = append([]byte(xml.Header), xdata...)
	return writeFile(fs, outPath(dir, "sbom.cdx.xml"), append(xdata, '\n'))
}

func (s *CycloneDX) buildBOM(sb *model.SBOM) cdxBOM {
	comps := sb.AllComponents()
	sort.Slice(comps, func(i, j int) bool { return comps[i].Name < comps[j].Name })

	refOf := func(cmp *model.Component) string { return s.ids.For(cmp) }

	cdxComps := make([]cdxComponent, 0, len(comps))
	idxByRef := map[string]int{}
	depsByRef := map[string]*cdxDependency{}

	for _, cmp := range comps {
		out := cdxComponent{
			BOMRef:    refOf(cmp),
			Type:      cdxType(cmp.Purpose),
			Name:      cmp.Name,
			Version:   cmp.Version,
			Copyright: nonAssertion(cmp.Copyright),
		}
		if cmp.Supplier != "" {
			out.Supplier = &cdxSupplier{Name: cmp.Supplier}
		}
		if lic := nonAssertion(cmp.ConcludedLicense); lic != "" {
			out.Licenses = append(out.Licenses, cdxLicense{Expression: lic})
		} else if lic := nonAssertion(cmp.DeclaredLicense); lic != "" {
			out.Licenses = append(out.Licenses, cdxLicense{Expression: lic})
		}
		for _, ref := range cmp.ExternalRefs {
			switch ref.Type {
			case "cpe23Type", "cpe22Type":
				if out.CPE == "" {
					out.CPE = ref.Locator
				}
			case "purl":
				if out.PURL == "" {
					out.PURL = ref.Locator
				}
			}
		}
		if cmp.Artifact != nil {
			if cmp.Artifact.SHA1 != "" {
				out.Hashes = append(out.Hashes, cdxHash{Alg: "SHA-1", Content: cmp.Artifact.SHA1})
			}
			if cmp.Artifact.SHA256 != "" {
				out.Hashes = append(out.Hashes, cdxHash{Alg: "SHA-256", Content: cmp.Artifact.SHA256})
			}
		}
		if cmp.Target != nil {
			out.Properties = append(out.Properties, cdxProperty{Name: "sbom:target:type", Value: cmp.Target.Type})
			for _, lang := range cmp.Target.CompileLanguages {
				out.Properties = append(out.Properties, cdxProperty{Name: "sbom:target:language", Value: lang})
			}
		}
		if cmp.Revision != "" {
			out.Properties = append(out.Properties, cdxProperty{Name: "sbom:revision", Value: cmp.Revision})
		}
		idxByRef[out.BOMRef] = len(cdxComps)
		cdxComps = append(cdxComps, out)
		depsByRef[out.BOMRef] = &cdxDependency{Ref: out.BOMRef, DependsOn: []string{}}
	}

	for _, cmp := range comps {
		fromRef := refOf(cmp)
		from := &cdxComps[idxByRef[fromRef]]
		for _, rel := range cmp.Relationships {
			s.addEdge(depsByRef, from, rel)
		}
		for _, f := range cmp.SortedFiles() {
			for _, rel := range f.Relationships {
				s.addEdge(depsByRef, from, rel)
			}
		}
	}

	cdxDeps := make([]cdxDependency, 0, len(depsByRef))
	for _, dep := range depsByRef {
		sort.Strings(dep.DependsOn)
		for _, ref := range dep.DependsOn {
			dep.XMLDeps = append(dep.XMLDeps, cdxDepRef{Ref: ref})
		}
		cdxDeps = append(cdxDeps, *dep)
	}
	sort.Slice(cdxDeps, func(i, j int) bool { return cdxDeps[i].Ref < cdxDeps[j].Ref })

	return cdxBOM{
		XMLNS:        "http://cyclonedx.org/schema/bom/" + s.SpecVersion,
		BOMFormat:    "CycloneDX",
		SpecVersion:  s.SpecVersion,
		Version:      1,
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Metadata: cdxMetadata{
			Timestamp: s.now().UTC().Format(time.RFC3339),
			Tools: []cdxTool{
				{Vendor: ToolVendor, Name: ToolName, Version: s.ToolVersion},
			},
			Properties: buildInfoProperties(sb.BuildInfo),
		},
		Components:   cdxComps,
		Dependencies: cdxDeps,
	}
}

// addEdge routes one model relationship into the BOM: dependency-like edges
// go into the dependency graph (file endpoints lifted to their owning
// components), everything else becomes a property on the source component.
func (s *CycloneDX) addEdge(deps map[string]*cdxDependency, from *cdxComponent, rel *model.Relationship) {
	toCmp := owningComponent(rel.B)
	if toCmp == nil {
		s.log.Warn("relationship target has no owning component, skipping", "type", rel.Type)
		return
	}
	toRef := s.ids.For(toCmp)

	if rel.Type.DependencyLike() {
		dep := deps[from.BOMRef]
		if dep == nil {
			return
		}
		if from.BOMRef != toRef && !contains(dep.DependsOn, toRef) {
			dep.DependsOn = append(dep.DependsOn, toRef)
		}
		return
	}
	if rel.Type == model.RelDescribes || from.BOMRef == toRef {
		return
	}
	from.Properties = append(from.Properties, cdxProperty{
		Name:  "sbom:relationship:" + string(rel.Type),
		Value: toRef,
	})
}

func owningComponent(e model.Element) *model.Component {
	switch v := e.(type) {
	case *model.Component:
		return v
	case *model.File:
		return v.Cmp
	}
	return nil
}

func buildInfoProperties(info map[string]string) []cdxProperty {
	if len(info) == 0 {
		return nil
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	props := make([]cdxProperty, 0, len(keys))
	for _, k := range keys {
		props = append(props, cdxProperty{Name: "sbom:build:" + k, Value: info[k]})
	}
	return props
}

func cdxType(p model.Purpose) string {
	switch p {
	case model.PurposeApplication:
		return "application"
	case model.PurposeFramework:
		return "framework"
	case model.PurposeOperatingSystem:
		return "operating-system"
	case model.PurposeFile:
		return "file"
	default:
		return "library"
	}
}

func nonAssertion(s string) string {
	if s == model.NoAssertion {
		return ""
	}
	return s
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
