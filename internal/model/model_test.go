package model

import "testing"

// TestVerificationCode verifies the SPDX verification code is deterministic
// and independent of file insertion order.
func TestVerificationCode(t *testing.T) {
	mkCmp := func(order []string) *Component {
		c := NewComponent("zephyr-sources", PurposeOperatingSystem)
		hashes := map[string]string{
			"/a/one.c":   "da39a3ee5e6b4b0d3255bfef95601890afd80709",
			"/a/two.c":   "356a192b7913b04c54574d18c28d46e6395428ab",
			"/a/three.c": "77de68daecd823babbb58edb1c8e14d7106e83bb",
		}
		for _, p := range order {
			f := NewFile(p, p[3:])
			f.SHA1 = hashes[p]
			c.AddFile(f)
		}
		return c
	}

	c1 := mkCmp([]string{"/a/one.c", "/a/two.c", "/a/three.c"})
	c2 := mkCmp([]string{"/a/three.c", "/a/one.c", "/a/two.c"})

	v1 := c1.ComputeVerificationCode()
	v2 := c2.ComputeVerificationCode()
	if v1 != v2 {
		t.Errorf("verification code depends on insertion order: %q vs %q", v1, v2)
	}
	if v1 != c1.ComputeVerificationCode() {
		t.Error("verification code not idempotent")
	}
	if len(v1) != 40 {
		t.Errorf("verification code length = %d, want 40 hex chars", len(v1))
	}
}

// TestAddRelationshipCrossDocument verifies that a cross-document edge sets
// BDoc and registers an external reference on the A side's document.
func TestAddRelationshipCrossDocument(t *testing.T) {
	appDoc := NewDocument("app", "http://example.com/app")
	buildDoc := NewDocument("build", "http://example.com/build")

	appCmp := NewComponent("app-sources", PurposeApplication)
	appDoc.AddComponent(appCmp)
	src := NewFile("/proj/app/src/main.c", "src/main.c")
	appCmp.AddFile(src)

	tgtCmp := NewComponent("zephyr_final", PurposeApplication)
	buildDoc.AddComponent(tgtCmp)
	art := NewFile("/proj/build/zephyr/zephyr.elf", "zephyr/zephyr.elf")
	tgtCmp.AddFile(art)

	rel := &Relationship{Type: RelGeneratedFrom, A: art, B: src}
	AddRelationship(rel)

	if len(art.Relationships) != 1 {
		t.Fatalf("artifact relationships = %d, want 1", len(art.Relationships))
	}
	if rel.BDoc != appDoc {
		t.Errorf("BDoc = %v, want app document", rel.BDoc)
	}
	if buildDoc.ExternalRefs["app"] != appDoc {
		t.Error("build document did not register external ref to app")
	}
	if len(appDoc.ExternalRefs) != 0 {
		t.Error("app document should have no external refs")
	}
}

// TestAddRelationshipSameDocument verifies no external ref for local edges.
func TestAddRelationshipSameDocument(t *testing.T) {
	doc := NewDocument("build", "http://example.com/build")
	a := NewComponent("zephyr_final", PurposeApplication)
	b := NewComponent("drivers", PurposeLibrary)
	doc.AddComponent(a)
	doc.AddComponent(b)

	rel := &Relationship{Type: RelHasPrerequisite, A: a, B: b}
	AddRelationship(rel)

	if rel.BDoc != nil {
		t.Errorf("BDoc = %v, want nil for same-document edge", rel.BDoc)
	}
	if len(doc.ExternalRefs) != 0 {
		t.Errorf("external refs = %d, want 0", len(doc.ExternalRefs))
	}
	if len(a.Relationships) != 1 {
		t.Errorf("component relationships = %d, want 1", len(a.Relationships))
	}
}

func TestDependencyLike(t *testing.T) {
	likes := map[RelationshipType]bool{
		RelDependsOn:       true,
		RelHasPrerequisite: true,
		RelStaticLink:      true,
		RelDynamicLink:     true,
		RelGeneratedFrom:   false,
		RelContains:        false,
		RelDescribes:       false,
		RelOther:           false,
	}
	for typ, want := range likes {
		if got := typ.DependencyLike(); got != want {
			t.Errorf("%s.DependencyLike() = %v, want %v", typ, got, want)
		}
	}
}

func TestDocumentsOrderAndCustomLicenses(t *testing.T) {
	sb := &SBOM{
		App:         NewDocument("app", "ns/app"),
		Zephyr:      NewDocument("zephyr", "ns/zephyr"),
		Build:       NewDocument("build", "ns/build"),
		ModulesDeps: NewDocument("modules-deps", "ns/modules-deps"),
	}
	docs := sb.Documents()
	if len(docs) != 4 {
		t.Fatalf("documents = %d, want 4 (sdk absent)", len(docs))
	}
	if docs[len(docs)-1].Name != "build" {
		t.Errorf("last document = %q, want build (serialized after its referents)", docs[len(docs)-1].Name)
	}

	d := sb.App
	d.DeclareCustomLicense("Zephyr-Custom")
	d.DeclareCustomLicense("Apache-Custom")
	d.DeclareCustomLicense("NOASSERTION") // never declared
	d.DeclareCustomLicense("Zephyr-Custom")

	got := d.SortedCustomLicenses()
	if len(got) != 2 || got[0] != "Apache-Custom" || got[1] != "Zephyr-Custom" {
		t.Errorf("SortedCustomLicenses = %v", got)
	}
}
