package cmakefileapi

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Codemodel is the codemodel-v2 reply: the build's source/build roots plus
// one or more configurations of directories, projects, and targets.
type Codemodel struct {
	Paths          Paths           `json:"paths"`
	Configurations []Configuration `json:"configurations"`
}

// Paths holds the top-level source and build directories.
type Paths struct {
	Source string `json:"source"`
	Build  string `json:"build"`
}

// Configuration is one build configuration (single-config generators emit
// exactly one, often with an empty name).
type Configuration struct {
	Name        string         `json:"name"`
	Directories []Directory    `json:"directories"`
	Projects    []Project      `json:"projects"`
	Targets     []ConfigTarget `json:"targets"`
}

// Directory is a source/build directory pair within a configuration.
type Directory struct {
	Source       string `json:"source"`
	Build        string `json:"build"`
	ProjectIndex int    `json:"projectIndex"`
}

// Project is a CMake project() within a configuration.
type Project struct {
	Name             string `json:"name"`
	DirectoryIndexes []int  `json:"directoryIndexes"`
	TargetIndexes    []int  `json:"targetIndexes"`
}

// ConfigTarget is the configuration-level view of a target: its name, its
// stable id, and a pointer to the per-target JSON file. After ParseReply the
// Target field holds the parsed per-target document.
type ConfigTarget struct {
	Name           string `json:"name"`
	ID             string `json:"id"`
	DirectoryIndex int    `json:"directoryIndex"`
	ProjectIndex   int    `json:"projectIndex"`
	JSONFile       string `json:"jsonFile"`

	Target *Target `json:"-"`
}

func parseCodemodel(path, replyDir string, log hclog.Logger) (*Codemodel, error) {
	var cm Codemodel
	if err := unmarshalFile(path, &cm); err != nil {
		return nil, err
	}
	if len(cm.Configurations) == 0 {
		return nil, fmt.Errorf("codemodel %q has no configurations", path)
	}

	for ci := range cm.Configurations {
		cfg := &cm.Configurations[ci]
		log.Debug("parsing configuration", "name", cfg.Name, "targets", len(cfg.Targets))
		for ti := range cfg.Targets {
			ct := &cfg.Targets[ti]
			if !isSubdirFile(ct.JSONFile) {
				return nil, fmt.Errorf("target %q has invalid jsonFile %q", ct.Name, ct.JSONFile)
			}
			tgt, err := parseTarget(filepath.Join(replyDir, ct.JSONFile))
			if err != nil {
				return nil, fmt.Errorf("target %q: %w", ct.Name, err)
			}
			ct.Target = tgt
		}
	}
	return &cm, nil
}
