// Package licenses holds a static table of SPDX license identifiers and the
// expression helpers shared by the scanner and the serializers. Tokens not
// on the table are treated as custom licenses and declared as LicenseRef-
// entries by the owning document.
package licenses

// known is the set of SPDX license identifiers this tool recognizes. It is
// the subset of the SPDX license list that realistically appears in RTOS,
// SDK, and module source trees. Matching is exact and case-sensitive, as
// SPDX identifiers are.
var known = map[string]bool{
	"0BSD":                true,
	"AFL-3.0":             true,
	"AGPL-3.0-only":       true,
	"AGPL-3.0-or-later":   true,
	"Apache-1.1":          true,
	"Apache-2.0":          true,
	"BSD-1-Clause":        true,
	"BSD-2-Clause":        true,
	"BSD-2-Clause-Patent": true,
	"BSD-3-Clause":        true,
	"BSD-3-Clause-Clear":  true,
	"BSD-4-Clause":        true,
	"BSD-4-Clause-UC":     true,
	"BSL-1.0":             true,
	"CC-BY-3.0":           true,
	"CC-BY-4.0":           true,
	"CC-BY-SA-4.0":        true,
	"CC0-1.0":             true,
	"CDDL-1.0":            true,
	"EPL-1.0":             true,
	"EPL-2.0":             true,
	"FTL":                 true,
	"GFDL-1.3-only":       true,
	"GFDL-1.3-or-later":   true,
	"GPL-1.0-only":        true,
	"GPL-1.0-or-later":    true,
	"GPL-2.0-only":        true,
	"GPL-2.0-or-later":    true,
	"GPL-3.0-only":        true,
	"GPL-3.0-or-later":    true,
	"HPND":                true,
	"ISC":                 true,
	"LGPL-2.0-only":       true,
	"LGPL-2.0-or-later":   true,
	"LGPL-2.1-only":       true,
	"LGPL-2.1-or-later":   true,
	"LGPL-3.0-only":       true,
	"LGPL-3.0-or-later":   true,
	"Libpng":              true,
	"MIT":                 true,
	"MIT-0":               true,
	"MPL-1.1":             true,
	"MPL-2.0":             true,
	"NCSA":                true,
	"OFL-1.1":             true,
	"OpenSSL":             true,
	"PSF-2.0":             true,
	"Unicode-DFS-2016":    true,
	"Unlicense":           true,
	"W3C":                 true,
	"X11":                 true,
	"Zlib":                true,
	"zlib-acknowledgement": true,
}

// knownExceptions is the subset of SPDX license exceptions accepted after a
// WITH operator.
var knownExceptions = map[string]bool{
	"Classpath-exception-2.0": true,
	"GCC-exception-3.1":       true,
	"LLVM-exception":          true,
	"Linux-syscall-note":      true,
	"mif-exception":           true,
}

// IsKnown reports whether id is on the SPDX license list (or is a known
// exception identifier).
func IsKnown(id string) bool {
	return known[id] || knownExceptions[id]
}
