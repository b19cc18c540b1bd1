package walker

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/StinkyLord/cmake-sbom-builder/internal/cmakefileapi"
)

// listIncludes runs the compiler in preprocessor dependency mode (-E -MM
// -MG) against one source file and returns the transitively included
// headers from the emitted make rule. The compile group supplies the
// include paths and defines the real build used.
func listIncludes(compilerPath, source string, cg *cmakefileapi.CompileGroup) ([]string, error) {
	args := []string{"-E", "-MM", "-MG"}
	for _, inc := range cg.Includes {
		args = append(args, "-I"+inc.Path)
	}
	for _, def := range cg.Defines {
		args = append(args, "-D"+def.Define)
	}
	args = append(args, source)

	out, err := exec.Command(compilerPath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("compiler include probe failed for %q: %w", source, err)
	}
	return parseMakeRule(string(out), source), nil
}

// parseMakeRule extracts the prerequisite paths from a make dependency rule
// ("main.o: main.c foo.h \\\n bar.h"), dropping the rule target and the
// source file itself.
func parseMakeRule(rule, source string) []string {
	rule = strings.ReplaceAll(rule, "\\\n", " ")
	rule = strings.ReplaceAll(rule, "\\\r\n", " ")
	if colon := strings.Index(rule, ":"); colon >= 0 {
		rule = rule[colon+1:]
	}

	var headers []string
	seen := map[string]bool{}
	for _, tok := range strings.Fields(rule) {
		if tok == source || seen[tok] {
			continue
		}
		seen[tok] = true
		headers = append(headers, tok)
	}
	return headers
}
