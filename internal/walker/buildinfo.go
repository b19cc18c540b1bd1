package walker

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// versionProbeTimeout bounds the compiler --version subprocess. A timeout
// or failure degrades to an empty version string, never fatal.
const versionProbeTimeout = 5 * time.Second

// collectBuildInfo captures compiler paths and versions into the SBOM's
// metadata map. Toolchain replies are preferred; cache entries are the
// fallback for older CMake versions. Missing versions are filled by a
// one-shot `--version` probe.
func (w *Walker) collectBuildInfo() {
	info := w.sb.BuildInfo

	if tc := w.cfg.Reply.Toolchains; tc != nil {
		for _, t := range tc.Toolchains {
			lang := strings.ToLower(t.Language)
			if t.Compiler.Path == "" {
				continue
			}
			info[lang+".compiler.path"] = t.Compiler.Path
			if t.Compiler.ID != "" {
				info[lang+".compiler.id"] = t.Compiler.ID
			}
			version := t.Compiler.Version
			if version == "" {
				version = w.versionFn(t.Compiler.Path)
			}
			if version != "" {
				info[lang+".compiler.version"] = version
			}
		}
	} else {
		for cacheKey, lang := range map[string]string{
			"CMAKE_C_COMPILER":   "c",
			"CMAKE_CXX_COMPILER": "cxx",
			"CMAKE_ASM_COMPILER": "asm",
		} {
			path := w.cfg.Cache[cacheKey]
			if path == "" {
				continue
			}
			info[lang+".compiler.path"] = path
			if version := w.versionFn(path); version != "" {
				info[lang+".compiler.version"] = version
			}
		}
	}

	if w.cfg.Meta.West.Version != "" {
		info["west.version"] = w.cfg.Meta.West.Version
	}
	if w.cfg.Meta.Zephyr.Revision != "" {
		info["zephyr.revision"] = w.cfg.Meta.Zephyr.Revision
	}
}

// compilerPathFor returns the compiler path captured for a codemodel
// language ("C", "CXX", "ASM").
func (w *Walker) compilerPathFor(language string) string {
	return w.sb.BuildInfo[strings.ToLower(language)+".compiler.path"]
}

// compilerVersion runs `<path> --version` with a fixed timeout and returns
// the first output line, or "" on any failure.
func compilerVersion(path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
