package licenses

import (
	"sort"
	"strings"
)

// NoAssertion mirrors model.NoAssertion without importing it; the two must
// stay equal.
const NoAssertion = "NOASSERTION"

// SplitExpression breaks an SPDX license expression into its constituent
// license tokens: parentheses and trailing + are stripped, the boolean
// operators AND/OR/WITH are dropped. "(Apache-2.0 OR MIT) AND BSD-3-Clause"
// yields [Apache-2.0 MIT BSD-3-Clause].
func SplitExpression(expr string) []string {
	cleaned := strings.NewReplacer("(", " ", ")", " ", "+", " ").Replace(expr)
	var ids []string
	for _, tok := range strings.Fields(cleaned) {
		switch tok {
		case "AND", "OR", "WITH":
			continue
		}
		ids = append(ids, tok)
	}
	return ids
}

// Conjunction combines a set of license expressions into one concluded
// expression: the AND of the distinct non-empty inputs, with any
// sub-expression containing whitespace parenthesized. A singleton input is
// returned unchanged; an empty input concludes NOASSERTION.
func Conjunction(exprs []string) string {
	distinct := uniqueSorted(exprs)

	// NOASSERTION adds no information next to real expressions.
	if len(distinct) > 1 {
		kept := distinct[:0]
		for _, e := range distinct {
			if e != NoAssertion {
				kept = append(kept, e)
			}
		}
		distinct = kept
	}

	switch len(distinct) {
	case 0:
		return NoAssertion
	case 1:
		return distinct[0]
	}

	parts := make([]string, len(distinct))
	for i, e := range distinct {
		if strings.ContainsAny(e, " \t") {
			parts[i] = "(" + e + ")"
		} else {
			parts[i] = e
		}
	}
	return strings.Join(parts, " AND ")
}

// uniqueSorted returns the distinct non-empty strings of in, sorted.
func uniqueSorted(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
