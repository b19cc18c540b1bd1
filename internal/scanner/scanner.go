// Package scanner fills in the content-derived fields of a walked SBOM:
// file hashes, detected license identifiers, copyright notices, and the
// per-component concluded licenses and verification codes. It mutates the
// model in place; serializers run after it and read only.
package scanner

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/StinkyLord/cmake-sbom-builder/internal/licenses"
	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

// DefaultScanLines is how many leading lines are searched for license and
// copyright tags when the caller does not say otherwise.
const DefaultScanLines = 20

const licenseTag = "SPDX-License-Identifier:"

// reCopyright matches a copyright notice line: an SPDX tag or a plain
// "Copyright (c) 2024 ..." / "© 2024 ..." statement.
var reCopyright = regexp.MustCompile(`(?i)(SPDX-FileCopyrightText:|Copyright\s*(\(c\)|©|\d{4})|©\s*\d{4})`)

// Options configures a scan run.
type Options struct {
	// ScanLines limits the license/copyright line scan; 0 means the whole
	// file. Callers wanting the default pass DefaultScanLines.
	ScanLines int

	// ComputeSHA256 and ComputeMD5 enable the optional digests; SHA1 is
	// always computed.
	ComputeSHA256 bool
	ComputeMD5    bool

	// ConcludeFileLicenses copies each file's detected expression into its
	// concluded license; ConcludePackageLicenses derives each component's
	// concluded license from its files.
	ConcludeFileLicenses    bool
	ConcludePackageLicenses bool

	FS     afero.Fs
	Logger hclog.Logger
}

// Scanner scans every file of every component of an SBOM.
type Scanner struct {
	opts Options
	fs   afero.Fs
	log  hclog.Logger
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Scanner{opts: opts, fs: fs, log: log.Named("scanner")}
}

// ScanSBOM processes all documents. Per-file failures are warnings; the
// scan always completes.
func (s *Scanner) ScanSBOM(sb *model.SBOM) {
	for _, doc := range sb.Documents() {
		for _, cmp := range doc.Components {
			s.scanComponent(doc, cmp)
		}
	}
}

func (s *Scanner) scanComponent(doc *model.Document, cmp *model.Component) {
	for _, f := range cmp.SortedFiles() {
		s.scanFile(doc, f)
	}

	if len(cmp.Files) > 0 {
		cmp.VerificationCode = cmp.ComputeVerificationCode()
	}

	if s.opts.ConcludePackageLicenses && len(cmp.Files) > 0 {
		var exprs []string
		for _, f := range cmp.SortedFiles() {
			exprs = append(exprs, f.ConcludedLicense)
		}
		cmp.ConcludedLicense = licenses.Conjunction(exprs)
	}
}

// scanFile hashes the file content and scans its leading lines for the
// SPDX license tag and copyright notices. Unreadable files degrade to
// NOASSERTION with a warning.
func (s *Scanner) scanFile(doc *model.Document, f *model.File) {
	data, err := afero.ReadFile(s.fs, f.AbsPath)
	if err != nil {
		s.log.Warn("cannot read file, recording NOASSERTION", "path", f.AbsPath, "error", err)
		return
	}

	sum := sha1.Sum(data)
	f.SHA1 = hex.EncodeToString(sum[:])
	if s.opts.ComputeSHA256 {
		sum := sha256.Sum256(data)
		f.SHA256 = hex.EncodeToString(sum[:])
	}
	if s.opts.ComputeMD5 {
		sum := md5.Sum(data)
		f.MD5 = hex.EncodeToString(sum[:])
	}

	expr, copyrights := s.scanLines(data)

	if expr != "" {
		ids := licenses.SplitExpression(expr)
		f.LicenseInfoInFile = ids
		for _, id := range ids {
			if !licenses.IsKnown(id) {
				doc.DeclareCustomLicense(id)
			}
		}
		if s.opts.ConcludeFileLicenses {
			f.ConcludedLicense = expr
		}
	}
	if len(copyrights) > 0 {
		f.Copyright = strings.Join(copyrights, "\n")
	}
}

// scanLines walks up to the configured number of leading lines and returns
// the license expression (first tag wins) and all copyright notice lines.
func (s *Scanner) scanLines(data []byte) (string, []string) {
	var (
		expr       string
		copyrights []string
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if s.opts.ScanLines > 0 && line > s.opts.ScanLines {
			break
		}
		text := sc.Text()

		if expr == "" {
			if idx := strings.Index(text, licenseTag); idx >= 0 {
				expr = cleanExpression(text[idx+len(licenseTag):])
			}
		}
		if reCopyright.MatchString(text) {
			copyrights = append(copyrights, cleanNotice(text))
		}
	}
	return expr, copyrights
}

// cleanExpression strips surrounding whitespace and trailing comment
// markers from a license expression.
func cleanExpression(expr string) string {
	expr = strings.TrimSpace(expr)
	for _, marker := range []string{"*/", "-->", "#", "\"", "'"} {
		expr = strings.TrimSpace(strings.TrimSuffix(expr, marker))
	}
	return expr
}

// cleanNotice strips leading comment markers from a copyright line.
func cleanNotice(line string) string {
	line = strings.TrimSpace(line)
	for _, marker := range []string{"//", "/*", "*", "#", ";", "<!--"} {
		line = strings.TrimSpace(strings.TrimPrefix(line, marker))
	}
	return strings.TrimSpace(strings.TrimSuffix(line, "*/"))
}
