package cmakefileapi

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParseCache reads a CMakeCache.txt into a flat name→value map. Entries have
// the form NAME:TYPE=VALUE; the TYPE is discarded. Comment lines (# or //)
// and lines without a separator are skipped.
func ParseCache(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open CMake cache: %w", err)
	}
	defer f.Close()

	entries := map[string]string{}
	sc := bufio.NewScanner(f)
	// Some cache values (e.g. long flag lists) exceed the default token size.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := line[:eq]
		value := line[eq+1:]
		if colon := strings.Index(key, ":"); colon >= 0 {
			key = key[:colon]
		}
		if key == "" {
			continue
		}
		entries[key] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading CMake cache %q: %w", path, err)
	}
	return entries, nil
}
