package cmakefileapi

// Toolchains is the toolchains-v1 reply: per-language compiler information.
type Toolchains struct {
	Toolchains []Toolchain `json:"toolchains"`
}

// Toolchain describes the compiler for one language.
type Toolchain struct {
	Language string   `json:"language"`
	Compiler Compiler `json:"compiler"`
}

// Compiler holds the resolved compiler path, vendor id, and version.
type Compiler struct {
	Path    string `json:"path"`
	ID      string `json:"id"`
	Version string `json:"version"`
}

func parseToolchains(path string) (*Toolchains, error) {
	tc := &Toolchains{}
	if err := unmarshalFile(path, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

// ForLanguage returns the toolchain for the given language, or nil.
func (t *Toolchains) ForLanguage(lang string) *Toolchain {
	if t == nil {
		return nil
	}
	for i := range t.Toolchains {
		if t.Toolchains[i].Language == lang {
			return &t.Toolchains[i]
		}
	}
	return nil
}
