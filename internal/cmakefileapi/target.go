package cmakefileapi

// Target is a fully parsed per-target reply document.
//
// Target types of interest: EXECUTABLE, STATIC_LIBRARY, SHARED_LIBRARY,
// OBJECT_LIBRARY, UTILITY. UTILITY targets have no artifacts.
type Target struct {
	Name          string             `json:"name"`
	ID            string             `json:"id"`
	Type          string             `json:"type"`
	Paths         Paths              `json:"paths"`
	NameOnDisk    string             `json:"nameOnDisk"`
	Artifacts     []Artifact         `json:"artifacts"`
	Sources       []TargetSource     `json:"sources"`
	SourceGroups  []SourceGroup      `json:"sourceGroups"`
	CompileGroups []CompileGroup     `json:"compileGroups"`
	Link          *LinkInfo          `json:"link"`
	Archive       *ArchiveInfo       `json:"archive"`
	Dependencies  []TargetDependency `json:"dependencies"`
}

// Artifact is one build product of a target, relative to the build dir.
type Artifact struct {
	Path string `json:"path"`
}

// TargetSource is one source file of a target. CompileGroupIndex is nil when
// the source is not compiled (headers, linker scripts) — CMake omits the key
// entirely for those.
type TargetSource struct {
	Path              string `json:"path"`
	CompileGroupIndex *int   `json:"compileGroupIndex"`
	SourceGroupIndex  int    `json:"sourceGroupIndex"`
	IsGenerated       bool   `json:"isGenerated"`
}

// SourceGroup is a named grouping of source indexes ("Source Files",
// "Header Files").
type SourceGroup struct {
	Name          string `json:"name"`
	SourceIndexes []int  `json:"sourceIndexes"`
}

// CompileGroup describes how a set of sources is compiled.
type CompileGroup struct {
	SourceIndexes           []int             `json:"sourceIndexes"`
	Language                string            `json:"language"`
	Includes                []IncludePath     `json:"includes"`
	Defines                 []Define          `json:"defines"`
	CompileCommandFragments []CommandFragment `json:"compileCommandFragments"`
}

// IncludePath is one -I entry of a compile group.
type IncludePath struct {
	Path     string `json:"path"`
	IsSystem bool   `json:"isSystem"`
}

// Define is one -D entry of a compile group, without the -D prefix.
type Define struct {
	Define string `json:"define"`
}

// CommandFragment is a raw command-line fragment with an optional role
// ("flags", "libraries", "libraryPath").
type CommandFragment struct {
	Fragment string `json:"fragment"`
	Role     string `json:"role"`
}

// LinkInfo describes how an EXECUTABLE or SHARED_LIBRARY target links.
type LinkInfo struct {
	Language         string            `json:"language"`
	CommandFragments []CommandFragment `json:"commandFragments"`
}

// ArchiveInfo describes how a STATIC_LIBRARY target is archived.
type ArchiveInfo struct {
	CommandFragments []CommandFragment `json:"commandFragments"`
}

// TargetDependency identifies another target this one depends on, by the
// codemodel's stable target id.
type TargetDependency struct {
	ID string `json:"id"`
}

func parseTarget(path string) (*Target, error) {
	tgt := &Target{}
	if err := unmarshalFile(path, tgt); err != nil {
		return nil, err
	}
	return tgt, nil
}

// CompileLanguages returns the distinct compile-group languages of the
// target, in first-seen order.
func (t *Target) CompileLanguages() []string {
	var langs []string
	seen := map[string]bool{}
	for _, cg := range t.CompileGroups {
		if cg.Language != "" && !seen[cg.Language] {
			seen[cg.Language] = true
			langs = append(langs, cg.Language)
		}
	}
	return langs
}

// CompileGroupFor returns the compile group of the given source, or nil when
// the source is not compiled.
func (t *Target) CompileGroupFor(src TargetSource) *CompileGroup {
	if src.CompileGroupIndex == nil {
		return nil
	}
	i := *src.CompileGroupIndex
	if i < 0 || i >= len(t.CompileGroups) {
		return nil
	}
	return &t.CompileGroups[i]
}
