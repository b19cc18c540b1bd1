package model

// File is a single file on disk belonging to exactly one Component. RelPath
// is always computed from the owning component's base directory.
type File struct {
	AbsPath string
	RelPath string

	// SHA1 is mandatory (SPDX requires it); SHA256 and MD5 are optional.
	SHA1   string
	SHA256 string
	MD5    string

	ConcludedLicense string

	// LicenseInfoInFile lists the license identifiers detected in the
	// file's SPDX-License-Identifier tag, split into constituent tokens.
	LicenseInfoInFile []string

	Copyright string

	// Relationships owned by this file (typically a build artifact's
	// GENERATED_FROM edges to its sources).
	Relationships []*Relationship

	Cmp *Component
}

// NewFile creates a file with empty license conclusions.
func NewFile(absPath, relPath string) *File {
	return &File{
		AbsPath:          absPath,
		RelPath:          relPath,
		ConcludedLicense: NoAssertion,
		Copyright:        NoAssertion,
	}
}

func (f *File) DocumentOf() *Document {
	if f.Cmp == nil {
		return nil
	}
	return f.Cmp.Doc
}
