// Package output provides the SBOM serializers: SPDX 2.x tag-value, SPDX
// 3.0 JSON-LD, and CycloneDX JSON/XML. Serializers consume the finished,
// scanned model read-only; identifier generation lives in per-format ID
// generators that stay stable for one serialization run.
package output

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

// ToolName appears in every format's creator/tool metadata.
const ToolName = "cmake-sbom-builder"

// ToolVendor appears in CycloneDX tool metadata.
const ToolVendor = "StinkyLord"

// Serializer is the common contract of all output formats: a name for
// diagnostics, the file extension of the primary output, and a write of
// the whole document set into dir.
type Serializer interface {
	Name() string
	Extension() string
	Write(fs afero.Fs, dir string, sb *model.SBOM) error
}

// writeFile writes one output document, wrapping failures with the path.
// A write failure is fatal for that document.
func writeFile(fs afero.Fs, path string, data []byte) error {
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %q: %w", path, err)
	}
	return nil
}

// hashBytes returns the SHA1 hex digest of data; tag-value documents are
// hashed this way for cross-document references.
func hashBytes(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// outPath joins dir and name on the serializer's behalf.
func outPath(dir, name string) string {
	return filepath.Join(dir, name)
}
