package output

import (
	"fmt"
	"strings"

	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

// IDGen generates identifiers for model elements. IDs are created lazily
// and cached, so the same element always maps to the same identifier
// within one serialization run; colliding base names receive a
// deterministic numeric suffix. Call Reset between independent runs.
type IDGen struct {
	cache  map[model.Element]string
	counts map[string]int
}

// NewIDGen creates an empty generator.
func NewIDGen() *IDGen {
	g := &IDGen{}
	g.Reset()
	return g
}

// Reset clears all cached identifiers and counters.
func (g *IDGen) Reset() {
	g.cache = map[model.Element]string{}
	g.counts = map[string]int{}
}

// For returns the element's identifier without any format prefix:
// "Package-<name>" for components, "File-<relpath>" for files. Tag-value
// prepends SPDXRef-, JSON-LD prepends the document namespace.
func (g *IDGen) For(e model.Element) string {
	if id, ok := g.cache[e]; ok {
		return id
	}

	var base string
	switch el := e.(type) {
	case *model.Component:
		base = "Package-" + Sanitize(el.Name)
	case *model.File:
		base = "File-" + Sanitize(el.RelPath)
	case *model.Document:
		base = "DOCUMENT"
	default:
		base = "Element"
	}

	id := g.unique(base)
	g.cache[e] = id
	return id
}

// Fresh returns a unique identifier with the given base, for nodes that do
// not correspond to a model element (relationship and license nodes in
// JSON-LD output).
func (g *IDGen) Fresh(base string) string {
	return g.unique(base)
}

// unique suffixes base with a counter on collision.
func (g *IDGen) unique(base string) string {
	n := g.counts[base]
	g.counts[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}

// Sanitize maps s onto the identifier-safe alphabet: letters, digits, '-',
// and '.'; every other rune becomes '-'. The mapping is idempotent.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
