package sbom

import (
	"fmt"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Output format names accepted by Config.Format.
const (
	FormatSPDX      = "spdx"
	FormatCycloneDX = "cyclonedx"
)

// Config carries everything one SBOM generation run needs. Zero-value
// fields are filled in by withDefaults before validation.
type Config struct {
	// BuildDir is the CMake build directory holding the file-based API
	// reply and CMakeCache.txt. Required.
	BuildDir string

	// NamespacePrefix is the document namespace prefix; every document's
	// namespace is "<prefix>/<docname>". Defaults to a UUID-suffixed URL
	// so repeated runs never collide.
	NamespacePrefix string

	// SBOMDir is where the output documents land. Defaults to
	// "<build-dir>/spdx".
	SBOMDir string

	Format           string // "spdx" or "cyclonedx"
	SPDXVersion      string // "2.2", "2.3" or "3.0"
	CycloneDXVersion string // "1.4", "1.5" or "1.6"

	AnalyzeIncludes bool
	IncludeSDK      bool

	Logger hclog.Logger
}

// withDefaults returns a copy of c with every optional field populated.
func (c Config) withDefaults() Config {
	if c.NamespacePrefix == "" {
		c.NamespacePrefix = "https://spdx.org/spdxdocs/zephyr-" + uuid.NewString()
	}
	if c.SBOMDir == "" && c.BuildDir != "" {
		c.SBOMDir = filepath.Join(c.BuildDir, "spdx")
	}
	if c.Format == "" {
		c.Format = FormatSPDX
	}
	if c.SPDXVersion == "" {
		c.SPDXVersion = "2.3"
	}
	if c.CycloneDXVersion == "" {
		c.CycloneDXVersion = "1.6"
	}
	if c.Logger == nil {
		c.Logger = hclog.NewNullLogger()
	}
	return c
}

// Validate checks the run configuration; it assumes defaults are applied.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BuildDir, validation.Required),
		validation.Field(&c.Format, validation.Required, validation.In(FormatSPDX, FormatCycloneDX)),
		validation.Field(&c.SPDXVersion, validation.Required, validation.In("2.2", "2.3", "3.0")),
		validation.Field(&c.CycloneDXVersion, validation.Required, validation.In("1.4", "1.5", "1.6")),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
