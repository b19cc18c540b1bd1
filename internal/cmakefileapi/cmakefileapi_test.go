package cmakefileapi

import (
	"os"
	"path/filepath"
	"testing"
)

// writeReplyTree builds a minimal but complete file-based API reply in dir:
// an index, a codemodel with one configuration and two targets, the two
// per-target files, and a toolchains document.
func writeReplyTree(t *testing.T, dir string) {
	t.Helper()

	files := map[string]string{
		"index-2024-01-01T00-00-00-0000.json": `{
			"reply": {
				"codemodel-v2": {"jsonFile": "codemodel-v2-abc.json"},
				"toolchains-v1": {"jsonFile": "toolchains-v1-abc.json"}
			}
		}`,
		"codemodel-v2-abc.json": `{
			"paths": {"source": "/proj/app", "build": "/proj/build"},
			"configurations": [{
				"name": "",
				"directories": [{"source": ".", "build": ".", "projectIndex": 0}],
				"projects": [{"name": "Zephyr-Kernel", "directoryIndexes": [0]}],
				"targets": [
					{"name": "zephyr_final", "id": "zephyr_final::@1", "directoryIndex": 0, "projectIndex": 0, "jsonFile": "target-zephyr_final.json"},
					{"name": "drivers", "id": "drivers::@2", "directoryIndex": 0, "projectIndex": 0, "jsonFile": "target-drivers.json"}
				]
			}]
		}`,
		"target-zephyr_final.json": `{
			"name": "zephyr_final",
			"id": "zephyr_final::@1",
			"type": "EXECUTABLE",
			"paths": {"source": ".", "build": "zephyr"},
			"nameOnDisk": "zephyr.elf",
			"artifacts": [{"path": "zephyr/zephyr.elf"}],
			"sources": [
				{"path": "src/main.c", "compileGroupIndex": 0, "sourceGroupIndex": 0},
				{"path": "src/main.h", "sourceGroupIndex": 1}
			],
			"sourceGroups": [
				{"name": "Source Files", "sourceIndexes": [0]},
				{"name": "Header Files", "sourceIndexes": [1]}
			],
			"compileGroups": [{
				"sourceIndexes": [0],
				"language": "C",
				"includes": [{"path": "/proj/zephyr/include"}],
				"defines": [{"define": "KERNEL"}],
				"compileCommandFragments": [{"fragment": "-Os"}]
			}],
			"link": {"language": "C", "commandFragments": [{"fragment": "-lc", "role": "libraries"}]},
			"dependencies": [{"id": "drivers::@2"}]
		}`,
		"target-drivers.json": `{
			"name": "drivers",
			"id": "drivers::@2",
			"type": "STATIC_LIBRARY",
			"paths": {"source": "drivers", "build": "drivers"},
			"artifacts": [{"path": "drivers/libdrivers.a"}],
			"sources": [{"path": "drivers/uart.c", "compileGroupIndex": 0, "sourceGroupIndex": 0}],
			"sourceGroups": [{"name": "Source Files", "sourceIndexes": [0]}],
			"compileGroups": [{"sourceIndexes": [0], "language": "C"}],
			"archive": {"commandFragments": []}
		}`,
		"toolchains-v1-abc.json": `{
			"toolchains": [
				{"language": "C", "compiler": {"path": "/sdk/bin/arm-zephyr-eabi-gcc", "id": "GNU", "version": "12.2.0"}},
				{"language": "ASM", "compiler": {"path": "/sdk/bin/arm-zephyr-eabi-gcc", "id": "GNU"}}
			]
		}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("cannot write fixture %s: %v", name, err)
		}
	}
}

func TestParseReply(t *testing.T) {
	dir := t.TempDir()
	writeReplyTree(t, dir)

	reply, err := ParseReply(dir, nil)
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}

	cm := reply.Codemodel
	if cm.Paths.Source != "/proj/app" {
		t.Errorf("source path = %q, want /proj/app", cm.Paths.Source)
	}
	if len(cm.Configurations) != 1 {
		t.Fatalf("configurations = %d, want 1", len(cm.Configurations))
	}
	targets := cm.Configurations[0].Targets
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}

	final := targets[0].Target
	if final == nil {
		t.Fatal("zephyr_final target not parsed")
	}
	if final.Type != "EXECUTABLE" {
		t.Errorf("zephyr_final type = %q, want EXECUTABLE", final.Type)
	}
	if len(final.Artifacts) != 1 || final.Artifacts[0].Path != "zephyr/zephyr.elf" {
		t.Errorf("zephyr_final artifacts = %+v", final.Artifacts)
	}
	if len(final.Dependencies) != 1 || final.Dependencies[0].ID != "drivers::@2" {
		t.Errorf("zephyr_final dependencies = %+v", final.Dependencies)
	}

	// Compiled source has a compile group; the header does not.
	if cg := final.CompileGroupFor(final.Sources[0]); cg == nil || cg.Language != "C" {
		t.Errorf("main.c compile group = %+v, want language C", cg)
	}
	if cg := final.CompileGroupFor(final.Sources[1]); cg != nil {
		t.Errorf("main.h compile group = %+v, want nil", cg)
	}
	if langs := final.CompileLanguages(); len(langs) != 1 || langs[0] != "C" {
		t.Errorf("CompileLanguages = %v, want [C]", langs)
	}

	tc := reply.Toolchains.ForLanguage("C")
	if tc == nil {
		t.Fatal("no C toolchain parsed")
	}
	if tc.Compiler.Version != "12.2.0" {
		t.Errorf("C compiler version = %q, want 12.2.0", tc.Compiler.Version)
	}
	if reply.Toolchains.ForLanguage("CXX") != nil {
		t.Error("unexpected CXX toolchain")
	}
}

func TestParseReplyMissingIndex(t *testing.T) {
	if _, err := ParseReply(t.TempDir(), nil); err == nil {
		t.Error("ParseReply on empty dir should fail")
	}
}

func TestParseReplyMalformedCodemodel(t *testing.T) {
	dir := t.TempDir()
	writeReplyTree(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "codemodel-v2-abc.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseReply(dir, nil); err == nil {
		t.Error("ParseReply with malformed codemodel should fail")
	}
}

func TestFindIndexPicksNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"index-2023.json", "index-2024.json", "index-2022.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := FindIndex(dir)
	if err != nil {
		t.Fatalf("FindIndex failed: %v", err)
	}
	if filepath.Base(got) != "index-2024.json" {
		t.Errorf("FindIndex = %q, want index-2024.json", filepath.Base(got))
	}
}

func TestParseCache(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "CMakeCache.txt")
	content := `# This is the CMakeCache file.
// For build in directory: /proj/build

CMAKE_C_COMPILER:FILEPATH=/sdk/bin/arm-zephyr-eabi-gcc
KERNEL_META_PATH:STRING=/proj/build/zephyr/zephyr_meta.yml
ZEPHYR_BASE:PATH=/proj/zephyr
EMPTY_VALUE:STRING=
NoType=plain
garbage line without separator
`
	if err := os.WriteFile(cachePath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseCache(cachePath)
	if err != nil {
		t.Fatalf("ParseCache failed: %v", err)
	}

	want := map[string]string{
		"CMAKE_C_COMPILER": "/sdk/bin/arm-zephyr-eabi-gcc",
		"KERNEL_META_PATH": "/proj/build/zephyr/zephyr_meta.yml",
		"ZEPHYR_BASE":      "/proj/zephyr",
		"EMPTY_VALUE":      "",
		"NoType":           "plain",
	}
	for k, v := range want {
		if entries[k] != v {
			t.Errorf("cache[%q] = %q, want %q", k, entries[k], v)
		}
	}
	if len(entries) != len(want) {
		t.Errorf("cache entries = %d, want %d", len(entries), len(want))
	}
}

func TestParseCacheMissing(t *testing.T) {
	if _, err := ParseCache(filepath.Join(t.TempDir(), "CMakeCache.txt")); err == nil {
		t.Error("ParseCache on missing file should fail")
	}
}
