// Package cmakefileapi reads CMake's file-based API reply tree into typed
// structures. The reply directory is treated as an external, read-only data
// source: this package never writes under it and never re-runs CMake.
//
// The entry point is ParseReply, which locates the index-*.json file, follows
// its codemodel-v2 pointer, and loads every per-target JSON file referenced
// by the codemodel. Any missing or malformed piece aborts the parse with an
// error — callers must treat that as a fatal precondition for SBOM
// generation.
package cmakefileapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Reply is the fully loaded file-based API reply.
type Reply struct {
	Codemodel  *Codemodel
	Toolchains *Toolchains
}

// indexFile mirrors the reply index document. Only the reply pointers are
// of interest; everything else (cmake version, generator) is ignored.
type indexFile struct {
	Reply struct {
		CodemodelV2  replyFileRef `json:"codemodel-v2"`
		ToolchainsV1 replyFileRef `json:"toolchains-v1"`
	} `json:"reply"`
}

type replyFileRef struct {
	JSONFile string `json:"jsonFile"`
}

// FindIndex locates the reply index file in replyDir. CMake guarantees the
// lexically greatest index-*.json is the most recent one.
func FindIndex(replyDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(replyDir, "index-*.json"))
	if err != nil {
		return "", fmt.Errorf("cannot glob reply directory %q: %w", replyDir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no index-*.json found in %q (was the codemodel-v2 query file created before the build?)", replyDir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ParseReply loads the index, codemodel, target files, and (when present)
// the toolchains document from replyDir.
func ParseReply(replyDir string, log hclog.Logger) (*Reply, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	indexPath, err := FindIndex(replyDir)
	if err != nil {
		return nil, err
	}
	log.Debug("parsing reply index", "path", indexPath)

	var idx indexFile
	if err := unmarshalFile(indexPath, &idx); err != nil {
		return nil, err
	}
	if idx.Reply.CodemodelV2.JSONFile == "" {
		return nil, fmt.Errorf("reply index %q has no codemodel-v2 entry", indexPath)
	}

	cm, err := parseCodemodel(filepath.Join(replyDir, idx.Reply.CodemodelV2.JSONFile), replyDir, log)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Codemodel: cm}

	// Toolchains are optional: older CMake versions do not answer the
	// toolchains-v1 query and the walker falls back to the cache.
	if tc := idx.Reply.ToolchainsV1.JSONFile; tc != "" {
		toolchains, err := parseToolchains(filepath.Join(replyDir, tc))
		if err != nil {
			return nil, err
		}
		reply.Toolchains = toolchains
	}

	return reply, nil
}

// unmarshalFile reads path and decodes it into v, wrapping both failure
// modes with the file path.
func unmarshalFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read reply file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed JSON in %q: %w", path, err)
	}
	return nil
}

// ReplyDir returns the conventional reply directory under a build directory.
func ReplyDir(buildDir string) string {
	return filepath.Join(buildDir, ".cmake", "api", "v1", "reply")
}

// QueryFile returns the conventional codemodel-v2 query file path under a
// build directory.
func QueryFile(buildDir string) string {
	return filepath.Join(buildDir, ".cmake", "api", "v1", "query", "codemodel-v2")
}

// isSubdirFile reports whether name is a plain reply-relative file name
// (no path escapes). CMake only emits flat names, but the reply tree is
// untrusted input.
func isSubdirFile(name string) bool {
	return name != "" && !filepath.IsAbs(name) && !strings.Contains(name, "..")
}
