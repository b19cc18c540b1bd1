package meta

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMeta(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zephyr_meta.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeMeta(t, `
zephyr:
  path: /proj/zephyr
  revision: v3.6.0
  remote: https://github.com/zephyrproject-rtos/zephyr
modules:
  - name: mbedtls
    path: /proj/modules/crypto/mbedtls
    revision: "3.5.1"
    remote: https://github.com/zephyrproject-rtos/mbedtls
    security:
      external-references:
        - "cpe:2.3:a:arm:mbed_tls:3.5.1:*:*:*:*:*:*:*"
        - "pkg:github/Mbed-TLS/mbedtls@3.5.1"
  - name: internal-tooling
    path: /proj/modules/internal
    priority: -1
  - name: hal_stm32
    path: /proj/modules/hal/stm32
    revision: abc123
west:
  version: "1.2.0"
`)

	b, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if b.Zephyr.Revision != "v3.6.0" {
		t.Errorf("zephyr revision = %q, want v3.6.0", b.Zephyr.Revision)
	}
	if b.West.Version != "1.2.0" {
		t.Errorf("west version = %q, want 1.2.0", b.West.Version)
	}

	// Hidden entry (priority -1) must have been dropped at load time.
	if len(b.Modules) != 2 {
		t.Fatalf("modules = %d, want 2 (hidden entry excluded)", len(b.Modules))
	}
	for _, m := range b.Modules {
		if m.Name == "internal-tooling" {
			t.Error("hidden module entry survived Load")
		}
	}

	mbedtls := b.Modules[0]
	if mbedtls.Name != "mbedtls" {
		t.Fatalf("modules[0] = %q, want mbedtls", mbedtls.Name)
	}
	if mbedtls.Security == nil || len(mbedtls.Security.ExternalReferences) != 2 {
		t.Fatalf("mbedtls security refs = %+v", mbedtls.Security)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml"), nil); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeMeta(t, "zephyr: [unclosed")
	if _, err := Load(path, nil); err == nil {
		t.Error("Load of invalid YAML should fail")
	}
}

func TestExternalRefType(t *testing.T) {
	cases := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"cpe:2.3:a:arm:mbed_tls:3.5.1:*:*:*:*:*:*:*", "cpe23Type", false},
		{"cpe:2.3:o:zephyrproject:zephyr:3.6.0:*:*:*:*:*:*:*", "cpe23Type", false},
		{"pkg:github/Mbed-TLS/mbedtls@3.5.1", "purl", false},
		{"pkg:generic/hal_stm32", "purl", false},
		{"cpe:/a:arm:mbed_tls:3.5.1", "", true}, // CPE 2.2 URI form not accepted
		{"cpe:2.3:a:too:short", "", true},
		{"https://example.com/not-a-ref", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ExternalRefType(tc.ref)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ExternalRefType(%q) = %q, want error", tc.ref, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExternalRefType(%q) failed: %v", tc.ref, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExternalRefType(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}
