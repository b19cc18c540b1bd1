package model

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"sort"
)

// ExternalRef is a standardized external identifier attached to a
// Component, e.g. a CPE 2.3 string or a Package URL from a module's
// security metadata.
type ExternalRef struct {
	Category string // e.g. "SECURITY"
	Type     string // e.g. "cpe23Type", "purl"
	Locator  string
}

// TargetInfo captures build-target metadata from the codemodel, used later
// for tool-relationship inference and serializer comments.
type TargetInfo struct {
	Type             string // EXECUTABLE, STATIC_LIBRARY, UTILITY, ...
	CompileLanguages []string
	LinkLanguage     string
	Archived         bool
}

// Component represents a logical unit: a source tree, a build target, or a
// dependency group. Every File belongs to exactly one Component.
type Component struct {
	Name        string
	Version     string
	Revision    string
	Supplier    string
	DownloadURL string
	Purpose     Purpose

	// BaseDir is the root used to compute relative file paths and to
	// claim pending source files by longest-prefix match. Empty for
	// components that own no on-disk tree (module dependency groups).
	BaseDir string

	DeclaredLicense  string
	ConcludedLicense string
	Copyright        string

	ExternalRefs []ExternalRef

	// Files by absolute path.
	Files map[string]*File

	// Relationships owned by this component (HAS_PREREQUISITE edges).
	Relationships []*Relationship

	// Artifact is the primary build product File for build targets, nil
	// otherwise.
	Artifact *File

	// FilesAnalyzed is false for components documented without file
	// content (module dependency groups, utility targets).
	FilesAnalyzed bool

	// VerificationCode is the SPDX package verification code, computed by
	// the scanner once all file hashes exist.
	VerificationCode string

	Comment string

	// Target is set for build-target components only.
	Target *TargetInfo

	Doc *Document
}

// NewComponent creates a component with empty license conclusions.
func NewComponent(name string, purpose Purpose) *Component {
	return &Component{
		Name:             name,
		Purpose:          purpose,
		Version:          "",
		DeclaredLicense:  NoAssertion,
		ConcludedLicense: NoAssertion,
		Copyright:        NoAssertion,
		Files:            map[string]*File{},
	}
}

func (c *Component) DocumentOf() *Document { return c.Doc }

// AddFile claims ownership of f and indexes it by absolute path.
func (c *Component) AddFile(f *File) {
	f.Cmp = c
	c.Files[f.AbsPath] = f
}

// SortedFiles returns the component's files ordered by relative path for
// deterministic serialization.
func (c *Component) SortedFiles() []*File {
	files := make([]*File, 0, len(c.Files))
	for _, f := range c.Files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})
	return files
}

// ComputeVerificationCode returns the SPDX package verification code: the
// SHA1 of the concatenation of all owned files' SHA1 hex digests, sorted
// lexicographically. The result is independent of file insertion order.
func (c *Component) ComputeVerificationCode() string {
	hashes := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		hashes = append(hashes, f.SHA1)
	}
	sort.Strings(hashes)

	h := sha1.New()
	for _, hx := range hashes {
		io.WriteString(h, hx)
	}
	return hex.EncodeToString(h.Sum(nil))
}
