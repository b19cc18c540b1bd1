// Package sbom orchestrates one generation run: parse the CMake file-based
// API reply, walk it into the document graph, scan files, and serialize in
// the requested format. Each run is independent and single-threaded.
package sbom

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/StinkyLord/cmake-sbom-builder/internal/cmakefileapi"
	"github.com/StinkyLord/cmake-sbom-builder/internal/meta"
	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
	"github.com/StinkyLord/cmake-sbom-builder/internal/output"
	"github.com/StinkyLord/cmake-sbom-builder/internal/scanner"
	"github.com/StinkyLord/cmake-sbom-builder/internal/walker"
)

// Version is the tool version stamped into every output document.
const Version = "1.0.0"

// cacheMetaPathKey is the CMakeCache.txt variable pointing at the build
// metadata YAML written by the build system.
const cacheMetaPathKey = "KERNEL_META_PATH"

// InitQuery writes the empty file-based API query file so the next CMake
// run produces a codemodel reply.
func InitQuery(buildDir string) error {
	q := cmakefileapi.QueryFile(buildDir)
	if err := os.MkdirAll(filepath.Dir(q), 0755); err != nil {
		return fmt.Errorf("cannot create query directory: %w", err)
	}
	if err := os.WriteFile(q, nil, 0644); err != nil {
		return fmt.Errorf("cannot create query file: %w", err)
	}
	return nil
}

// MakeSBOM runs the whole pipeline for cfg and returns the built model.
// Precondition failures (no reply, unusable output dir, missing metadata)
// are fatal; per-document serialization failures are collected and
// returned as one error so the run writes as much as it can.
func MakeSBOM(cfg Config) (*model.SBOM, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger.Named("sbom")

	replyDir := cmakefileapi.ReplyDir(cfg.BuildDir)
	if info, err := os.Stat(replyDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("no file-based API reply in %q; run init before building", cfg.BuildDir)
	}
	if err := os.MkdirAll(cfg.SBOMDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot use output directory %q: %w", cfg.SBOMDir, err)
	}

	reply, err := cmakefileapi.ParseReply(replyDir, log)
	if err != nil {
		return nil, fmt.Errorf("parsing CMake reply: %w", err)
	}

	cache, err := cmakefileapi.ParseCache(filepath.Join(cfg.BuildDir, "CMakeCache.txt"))
	if err != nil {
		log.Warn("cannot parse CMake cache, build info will be incomplete", "error", err)
		cache = map[string]string{}
	}

	metaPath := cache[cacheMetaPathKey]
	if metaPath == "" {
		return nil, fmt.Errorf("%s not set in CMakeCache.txt; build metadata unavailable", cacheMetaPathKey)
	}
	build, err := meta.Load(metaPath, log)
	if err != nil {
		return nil, fmt.Errorf("loading build metadata: %w", err)
	}

	w := walker.New(walker.Config{
		Reply:           reply,
		Cache:           cache,
		Meta:            build,
		NamespacePrefix: cfg.NamespacePrefix,
		AnalyzeIncludes: cfg.AnalyzeIncludes,
		IncludeSDK:      cfg.IncludeSDK,
		Logger:          log,
	})
	sb, err := w.Walk()
	if err != nil {
		return nil, fmt.Errorf("walking codemodel: %w", err)
	}

	fs := afero.NewOsFs()
	scanner.New(scanner.Options{
		ScanLines:               scanner.DefaultScanLines,
		ComputeSHA256:           true,
		ComputeMD5:              true,
		ConcludeFileLicenses:    true,
		ConcludePackageLicenses: true,
		FS:                      fs,
		Logger:                  log,
	}).ScanSBOM(sb)

	var result *multierror.Error
	for _, ser := range serializersFor(cfg) {
		log.Info("writing SBOM", "format", ser.Name(), "dir", cfg.SBOMDir)
		if err := ser.Write(fs, cfg.SBOMDir, sb); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", ser.Name(), err))
		}
	}
	return sb, result.ErrorOrNil()
}

// serializersFor maps the validated format/version selection onto concrete
// serializers.
func serializersFor(cfg Config) []output.Serializer {
	switch cfg.Format {
	case FormatCycloneDX:
		return []output.Serializer{output.NewCycloneDX(cfg.CycloneDXVersion, Version, cfg.Logger)}
	default:
		if cfg.SPDXVersion == "3.0" {
			return []output.Serializer{output.NewSPDX3(Version, cfg.Logger)}
		}
		return []output.Serializer{output.NewTagValue(cfg.SPDXVersion, Version, cfg.Logger)}
	}
}

// Summary counts what a finished SBOM contains, for the CLI's progress
// output.
func Summary(sb *model.SBOM) (docs, components, files int) {
	for _, doc := range sb.Documents() {
		docs++
		for _, cmp := range doc.Components {
			components++
			files += len(cmp.Files)
		}
	}
	return docs, components, files
}
