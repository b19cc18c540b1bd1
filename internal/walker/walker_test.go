package walker

import (
	"testing"

	"github.com/StinkyLord/cmake-sbom-builder/internal/cmakefileapi"
	"github.com/StinkyLord/cmake-sbom-builder/internal/meta"
	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

func intPtr(i int) *int { return &i }

// testReply builds the synthetic codemodel used across walker tests:
//
//	zephyr_final (EXECUTABLE, artifact zephyr/zephyr.elf, source src/main.c,
//	              zephyr source kernel/sched.c, depends on drivers)
//	drivers      (STATIC_LIBRARY, artifact drivers/libdrivers.a, one source)
//	menuconfig   (UTILITY, no artifacts)
func testReply() *cmakefileapi.Reply {
	drivers := &cmakefileapi.Target{
		Name:  "drivers",
		ID:    "drivers::@2",
		Type:  "STATIC_LIBRARY",
		Paths: cmakefileapi.Paths{Source: "drivers", Build: "drivers"},
		Artifacts: []cmakefileapi.Artifact{
			{Path: "drivers/libdrivers.a"},
		},
		Sources: []cmakefileapi.TargetSource{
			{Path: "/proj/zephyr/drivers/serial/uart.c", CompileGroupIndex: intPtr(0)},
		},
		CompileGroups: []cmakefileapi.CompileGroup{
			{Language: "C", SourceIndexes: []int{0}},
		},
		Archive: &cmakefileapi.ArchiveInfo{},
	}

	final := &cmakefileapi.Target{
		Name:  "zephyr_final",
		ID:    "zephyr_final::@1",
		Type:  "EXECUTABLE",
		Paths: cmakefileapi.Paths{Source: ".", Build: "zephyr"},
		Artifacts: []cmakefileapi.Artifact{
			{Path: "zephyr/zephyr.elf"},
		},
		Sources: []cmakefileapi.TargetSource{
			{Path: "src/main.c", CompileGroupIndex: intPtr(0)},
			{Path: "/proj/zephyr/kernel/sched.c", CompileGroupIndex: intPtr(0)},
		},
		CompileGroups: []cmakefileapi.CompileGroup{
			{
				Language:      "C",
				SourceIndexes: []int{0, 1},
				Includes:      []cmakefileapi.IncludePath{{Path: "/proj/zephyr/include"}},
				Defines:       []cmakefileapi.Define{{Define: "KERNEL"}},
			},
		},
		Link:         &cmakefileapi.LinkInfo{Language: "C"},
		Dependencies: []cmakefileapi.TargetDependency{{ID: "drivers::@2"}},
	}

	utility := &cmakefileapi.Target{
		Name: "menuconfig",
		ID:   "menuconfig::@3",
		Type: "UTILITY",
	}

	return &cmakefileapi.Reply{
		Codemodel: &cmakefileapi.Codemodel{
			Paths: cmakefileapi.Paths{Source: "/proj/app", Build: "/proj/build"},
			Configurations: []cmakefileapi.Configuration{{
				Targets: []cmakefileapi.ConfigTarget{
					{Name: "zephyr_final", ID: "zephyr_final::@1", Target: final},
					{Name: "drivers", ID: "drivers::@2", Target: drivers},
					{Name: "menuconfig", ID: "menuconfig::@3", Target: utility},
				},
			}},
		},
		Toolchains: &cmakefileapi.Toolchains{
			Toolchains: []cmakefileapi.Toolchain{
				{Language: "C", Compiler: cmakefileapi.Compiler{Path: "/sdk/bin/gcc", ID: "GNU", Version: "12.2.0"}},
			},
		},
	}
}

func testMeta() *meta.Build {
	return &meta.Build{
		Zephyr: meta.Tree{
			Path:     "/proj/zephyr",
			Revision: "v3.6.0",
			Remote:   "https://github.com/zephyrproject-rtos/zephyr",
		},
		Modules: []meta.Module{
			{
				Name:     "mbedtls",
				Path:     "/proj/modules/crypto/mbedtls",
				Revision: "3.5.1",
				Security: &meta.Security{
					ExternalReferences: []string{
						"cpe:2.3:a:arm:mbed_tls:3.5.1:*:*:*:*:*:*:*",
						"not-a-valid-reference",
					},
				},
			},
		},
		West: meta.West{Version: "1.2.0"},
	}
}

func testWalker(t *testing.T, mutate func(*Config)) *model.SBOM {
	t.Helper()
	cfg := Config{
		Reply:           testReply(),
		Cache:           map[string]string{"ZEPHYR_BASE": "/proj/zephyr"},
		Meta:            testMeta(),
		NamespacePrefix: "http://spdx.org/spdxdocs/zephyr-test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	w := New(cfg)
	w.versionFn = func(string) string { return "" } // no subprocesses in tests
	sb, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	return sb
}

func relOfType(rels []*model.Relationship, typ model.RelationshipType) []*model.Relationship {
	var out []*model.Relationship
	for _, r := range rels {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// TestWalkTwoTargets is the core scenario: two build components, one
// GENERATED_FROM per source→artifact, one HAS_PREREQUISITE, one STATIC_LINK.
func TestWalkTwoTargets(t *testing.T) {
	sb := testWalker(t, nil)

	if len(sb.Build.Components) != 3 {
		t.Fatalf("build components = %d, want 3 (zephyr_final, drivers, menuconfig)", len(sb.Build.Components))
	}

	final := sb.Build.Components[0]
	if final.Name != "zephyr_final" || final.Purpose != model.PurposeApplication {
		t.Errorf("components[0] = %s/%s, want zephyr_final/APPLICATION", final.Name, final.Purpose)
	}
	if final.Artifact == nil || final.Artifact.AbsPath != "/proj/build/zephyr/zephyr.elf" {
		t.Fatalf("zephyr_final artifact = %+v", final.Artifact)
	}

	// zephyr_final's artifact is GENERATED_FROM both of its sources.
	gen := relOfType(final.Artifact.Relationships, model.RelGeneratedFrom)
	if len(gen) != 2 {
		t.Fatalf("GENERATED_FROM edges = %d, want 2", len(gen))
	}

	// One HAS_PREREQUISITE: zephyr_final -> drivers.
	prereqs := relOfType(final.Relationships, model.RelHasPrerequisite)
	if len(prereqs) != 1 {
		t.Fatalf("HAS_PREREQUISITE edges = %d, want 1", len(prereqs))
	}
	if dep, ok := prereqs[0].B.(*model.Component); !ok || dep.Name != "drivers" {
		t.Errorf("prerequisite B = %+v, want drivers component", prereqs[0].B)
	}

	// One STATIC_LINK between the two artifact files.
	links := relOfType(final.Artifact.Relationships, model.RelStaticLink)
	if len(links) != 1 {
		t.Fatalf("STATIC_LINK edges = %d, want 1", len(links))
	}
	if linked, ok := links[0].B.(*model.File); !ok || linked.AbsPath != "/proj/build/drivers/libdrivers.a" {
		t.Errorf("STATIC_LINK B = %+v", links[0].B)
	}
}

// TestWalkSourceOwnership verifies the pending-source resolution priority:
// app sources land in app-sources, RTOS sources in zephyr-sources.
func TestWalkSourceOwnership(t *testing.T) {
	sb := testWalker(t, nil)

	appCmp := sb.App.Components[0]
	if _, ok := appCmp.Files["/proj/app/src/main.c"]; !ok {
		t.Errorf("app-sources files = %v, want /proj/app/src/main.c", fileKeys(appCmp))
	}
	if f := appCmp.Files["/proj/app/src/main.c"]; f != nil && f.RelPath != "src/main.c" {
		t.Errorf("main.c rel path = %q, want src/main.c", f.RelPath)
	}

	zephyrCmp := sb.Zephyr.Components[0]
	for _, path := range []string{"/proj/zephyr/kernel/sched.c", "/proj/zephyr/drivers/serial/uart.c"} {
		if _, ok := zephyrCmp.Files[path]; !ok {
			t.Errorf("zephyr-sources missing %s (has %v)", path, fileKeys(zephyrCmp))
		}
	}
}

func fileKeys(c *model.Component) []string {
	var keys []string
	for k := range c.Files {
		keys = append(keys, k)
	}
	return keys
}

// TestWalkCrossDocumentRefs verifies that GENERATED_FROM edges from the
// build document into app/zephyr register external document references.
func TestWalkCrossDocumentRefs(t *testing.T) {
	sb := testWalker(t, nil)

	if sb.Build.ExternalRefs["app"] == nil {
		t.Error("build document has no external ref to app")
	}
	if sb.Build.ExternalRefs["zephyr"] == nil {
		t.Error("build document has no external ref to zephyr")
	}
	if len(sb.App.ExternalRefs) != 0 {
		t.Errorf("app external refs = %d, want 0", len(sb.App.ExternalRefs))
	}
}

// TestWalkModuleComponent verifies the mbedtls-deps scenario: no files
// analyzed, utility comment, the valid CPE kept and the invalid reference
// skipped.
func TestWalkModuleComponent(t *testing.T) {
	sb := testWalker(t, nil)

	if len(sb.ModulesDeps.Components) != 1 {
		t.Fatalf("modules-deps components = %d, want 1", len(sb.ModulesDeps.Components))
	}
	cmp := sb.ModulesDeps.Components[0]
	if cmp.Name != "mbedtls-deps" {
		t.Errorf("component name = %q, want mbedtls-deps", cmp.Name)
	}
	if cmp.FilesAnalyzed {
		t.Error("module component should have FilesAnalyzed=false")
	}
	if cmp.Comment != "Utility target; no files" {
		t.Errorf("comment = %q", cmp.Comment)
	}
	if cmp.Version != "3.5.1" {
		t.Errorf("version = %q, want 3.5.1", cmp.Version)
	}
	if len(cmp.ExternalRefs) != 1 {
		t.Fatalf("external refs = %d, want 1 (invalid ref skipped)", len(cmp.ExternalRefs))
	}
	ref := cmp.ExternalRefs[0]
	if ref.Category != "SECURITY" || ref.Type != "cpe23Type" {
		t.Errorf("external ref = %+v", ref)
	}
}

// TestWalkUtilityTarget verifies the zero-artifact edge case.
func TestWalkUtilityTarget(t *testing.T) {
	sb := testWalker(t, nil)

	var util *model.Component
	for _, c := range sb.Build.Components {
		if c.Name == "menuconfig" {
			util = c
		}
	}
	if util == nil {
		t.Fatal("menuconfig component missing")
	}
	if util.Artifact != nil || len(util.Files) != 0 {
		t.Errorf("utility target should own no files: %+v", util.Files)
	}
	if util.FilesAnalyzed {
		t.Error("utility target should have FilesAnalyzed=false")
	}
	if util.Comment != "Utility target; no files" {
		t.Errorf("comment = %q", util.Comment)
	}
}

// TestWalkDescribes verifies every component gets a document DESCRIBES edge.
func TestWalkDescribes(t *testing.T) {
	sb := testWalker(t, nil)

	for _, doc := range sb.Documents() {
		describes := relOfType(doc.Relationships, model.RelDescribes)
		if len(describes) != len(doc.Components) {
			t.Errorf("document %s: DESCRIBES edges = %d, want %d", doc.Name, len(describes), len(doc.Components))
		}
	}
}

// TestWalkBuildInfo verifies toolchain capture and the cache fallback.
func TestWalkBuildInfo(t *testing.T) {
	sb := testWalker(t, nil)
	if sb.BuildInfo["c.compiler.path"] != "/sdk/bin/gcc" {
		t.Errorf("c.compiler.path = %q", sb.BuildInfo["c.compiler.path"])
	}
	if sb.BuildInfo["c.compiler.version"] != "12.2.0" {
		t.Errorf("c.compiler.version = %q", sb.BuildInfo["c.compiler.version"])
	}
	if sb.BuildInfo["west.version"] != "1.2.0" {
		t.Errorf("west.version = %q", sb.BuildInfo["west.version"])
	}

	// Cache fallback when toolchains are absent.
	sb = testWalker(t, func(cfg *Config) {
		cfg.Reply.Toolchains = nil
		cfg.Cache["CMAKE_C_COMPILER"] = "/usr/bin/cc"
	})
	if sb.BuildInfo["c.compiler.path"] != "/usr/bin/cc" {
		t.Errorf("fallback c.compiler.path = %q", sb.BuildInfo["c.compiler.path"])
	}
}

// TestWalkAnalyzeIncludes verifies header enumeration adds deduplicated
// GENERATED_FROM edges via the probe hook.
func TestWalkAnalyzeIncludes(t *testing.T) {
	cfg := Config{
		Reply:           testReply(),
		Cache:           map[string]string{"ZEPHYR_BASE": "/proj/zephyr"},
		Meta:            testMeta(),
		NamespacePrefix: "http://spdx.org/spdxdocs/zephyr-test",
		AnalyzeIncludes: true,
	}
	w := New(cfg)
	w.versionFn = func(string) string { return "" }
	w.includesFn = func(compiler, source string, cg *cmakefileapi.CompileGroup) ([]string, error) {
		// Same header from every source: the edge must appear once per
		// unique header per target, not once per source.
		return []string{"/proj/zephyr/include/kernel.h"}, nil
	}

	sb, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	final := sb.Build.Components[0]
	gen := relOfType(final.Artifact.Relationships, model.RelGeneratedFrom)
	// 2 sources + 1 unique header.
	if len(gen) != 3 {
		t.Fatalf("GENERATED_FROM edges = %d, want 3", len(gen))
	}

	zephyrCmp := sb.Zephyr.Components[0]
	if _, ok := zephyrCmp.Files["/proj/zephyr/include/kernel.h"]; !ok {
		t.Error("kernel.h not owned by zephyr-sources")
	}
}

// TestWalkMissingInputs verifies the fatal preconditions.
func TestWalkMissingInputs(t *testing.T) {
	if _, err := New(Config{Meta: testMeta()}).Walk(); err == nil {
		t.Error("Walk without codemodel should fail")
	}
	if _, err := New(Config{Reply: testReply()}).Walk(); err == nil {
		t.Error("Walk without metadata should fail")
	}
}

func TestParseMakeRule(t *testing.T) {
	rule := "main.o: src/main.c /proj/zephyr/include/kernel.h \\\n  /proj/zephyr/include/device.h /proj/zephyr/include/kernel.h"
	got := parseMakeRule(rule, "src/main.c")
	want := []string{"/proj/zephyr/include/kernel.h", "/proj/zephyr/include/device.h"}
	if len(got) != len(want) {
		t.Fatalf("parseMakeRule = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseMakeRule[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
