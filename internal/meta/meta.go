// Package meta loads the build-metadata YAML file produced alongside the
// build (path taken from the KERNEL_META_PATH cache entry). It describes the
// RTOS revision/remote and the list of enabled modules, each optionally
// carrying security external references (CPE/PURL strings).
package meta

import (
	"fmt"
	"os"
	"regexp"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

// HiddenPriority marks a module entry that must never appear in any
// generated output.
const HiddenPriority = -1

// Build is the parsed build-metadata file.
type Build struct {
	Zephyr  Tree     `yaml:"zephyr"`
	Modules []Module `yaml:"modules"`
	West    West     `yaml:"west"`
}

// Tree identifies a source tree by path, revision, and remote URL.
type Tree struct {
	Path     string `yaml:"path"`
	Revision string `yaml:"revision"`
	Remote   string `yaml:"remote"`
}

// Module is one enabled module entry.
type Module struct {
	Name     string    `yaml:"name"`
	Path     string    `yaml:"path"`
	Revision string    `yaml:"revision"`
	Remote   string    `yaml:"remote"`
	Priority int       `yaml:"priority"`
	Security *Security `yaml:"security"`
}

// Security carries a module's security metadata.
type Security struct {
	ExternalReferences []string `yaml:"external-references"`
}

// West records the workspace tool version, carried through as build info.
type West struct {
	Version string `yaml:"version"`
}

var (
	// reCPE23 matches a CPE 2.3 formatted string: cpe:2.3: plus exactly
	// eleven colon-separated components.
	reCPE23 = regexp.MustCompile(`^cpe:2\.3:[aho*\-](:[^:]+){10}$`)

	// rePURL matches a package URL: scheme, type, and a name segment.
	rePURL = regexp.MustCompile(`^pkg:[A-Za-z0-9.+\-]+/.+$`)
)

// Load reads and parses the build-metadata file. A missing or unparsable
// file is fatal for SBOM generation. Hidden module entries (priority -1)
// are dropped here so no later stage can emit them.
func Load(path string, log hclog.Logger) (*Build, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read build metadata %q: %w", path, err)
	}

	var b Build
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid build metadata %q: %w", path, err)
	}

	kept := b.Modules[:0]
	for _, m := range b.Modules {
		if m.Priority == HiddenPriority {
			log.Debug("dropping hidden module entry", "module", m.Name)
			continue
		}
		kept = append(kept, m)
	}
	b.Modules = kept

	return &b, nil
}

// ExternalRefType classifies a security external-reference string as
// "cpe23Type" or "purl". Unrecognized strings return an error; callers log
// a warning and skip the reference.
func ExternalRefType(ref string) (string, error) {
	switch {
	case reCPE23.MatchString(ref):
		return "cpe23Type", nil
	case rePURL.MatchString(ref):
		return "purl", nil
	}
	return "", fmt.Errorf("unrecognized external reference %q (want CPE 2.3 or package URL)", ref)
}
