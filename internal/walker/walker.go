// Package walker turns a parsed CMake codemodel plus build metadata into the
// format-agnostic SBOM document graph. The walk is a linear state machine:
// build-info capture, component setup, target walk, then two resolution
// passes that materialize queued source files and relationships only after
// every component exists — no dangling references, no back-patching.
package walker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/StinkyLord/cmake-sbom-builder/internal/cmakefileapi"
	"github.com/StinkyLord/cmake-sbom-builder/internal/meta"
	"github.com/StinkyLord/cmake-sbom-builder/internal/model"
)

// Config holds everything the walker consumes. Reply, Cache, and Meta are
// parsed by the caller so walker tests can run on synthetic structures.
type Config struct {
	Reply *cmakefileapi.Reply
	Cache map[string]string
	Meta  *meta.Build

	// NamespacePrefix is the document namespace prefix; each document gets
	// "<prefix>/<name>".
	NamespacePrefix string

	// AnalyzeIncludes enables the compiler-based header enumeration for C
	// sources.
	AnalyzeIncludes bool

	// IncludeSDK adds an sdk document owning the toolchain tree.
	IncludeSDK bool

	Logger hclog.Logger
}

type elemKind int

const (
	kindCmp elemKind = iota
	kindFile
)

// pendingRel is a queued relationship: endpoints are stored as keys
// (component name or file absolute path) and resolved only after the full
// entity set is frozen.
type pendingRel struct {
	aKind elemKind
	a     string
	bKind elemKind
	b     string
	typ   model.RelationshipType
}

// Walker builds one SBOM per invocation. It is not reusable.
type Walker struct {
	cfg Config
	log hclog.Logger

	sb *model.SBOM

	// cmps indexes every component by name across all documents;
	// targetCmps keeps build-target components in creation order for
	// deterministic ownership matching.
	cmps       map[string]*model.Component
	targetCmps []*model.Component
	files      map[string]*model.File

	targetByID map[string]*cmakefileapi.Target

	pendingSources []string
	pendingRels    []pendingRel

	// seenIncludes dedupes header GENERATED_FROM edges per target.
	seenIncludes map[string]bool

	// probe hooks, overridable in tests.
	versionFn  func(compilerPath string) string
	includesFn func(compilerPath, source string, cg *cmakefileapi.CompileGroup) ([]string, error)
}

// New creates a Walker for one run.
func New(cfg Config) *Walker {
	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Walker{
		cfg:        cfg,
		log:        log.Named("walker"),
		cmps:       map[string]*model.Component{},
		files:      map[string]*model.File{},
		targetByID: map[string]*cmakefileapi.Target{},
		versionFn:  compilerVersion,
		includesFn: listIncludes,
	}
}

// Walk runs the full pipeline and returns the finished document graph. The
// returned SBOM is not yet scanned (no hashes, no licenses).
func (w *Walker) Walk() (*model.SBOM, error) {
	if w.cfg.Reply == nil || w.cfg.Reply.Codemodel == nil {
		return nil, fmt.Errorf("walker requires a parsed codemodel")
	}
	if w.cfg.Meta == nil {
		return nil, fmt.Errorf("walker requires build metadata (missing KERNEL_META_PATH file?)")
	}

	w.setupDocuments()
	w.collectBuildInfo()
	w.setupComponents()
	w.walkTargets()
	w.resolvePendingSources()
	w.resolvePendingRelationships()
	w.describeComponents()

	return w.sb, nil
}

func (w *Walker) namespace(doc string) string {
	return strings.TrimRight(w.cfg.NamespacePrefix, "/") + "/" + doc
}

func (w *Walker) setupDocuments() {
	w.sb = &model.SBOM{
		App:         model.NewDocument("app", w.namespace("app")),
		Zephyr:      model.NewDocument("zephyr", w.namespace("zephyr")),
		Build:       model.NewDocument("build", w.namespace("build")),
		ModulesDeps: model.NewDocument("modules-deps", w.namespace("modules-deps")),
		BuildInfo:   map[string]string{},
	}
	if w.cfg.IncludeSDK {
		w.sb.SDK = model.NewDocument("sdk", w.namespace("sdk"))
	}
}

// zephyrBase returns the RTOS source root: the cache entry wins, the build
// metadata path is the fallback.
func (w *Walker) zephyrBase() string {
	if base := w.cfg.Cache["ZEPHYR_BASE"]; base != "" {
		return base
	}
	return w.cfg.Meta.Zephyr.Path
}

func (w *Walker) sdkDir() string {
	return w.cfg.Cache["ZEPHYR_SDK_INSTALL_DIR"]
}

// setupComponents creates the per-document source and dependency-group
// components from the build metadata and the codemodel roots.
func (w *Walker) setupComponents() {
	cm := w.cfg.Reply.Codemodel

	app := model.NewComponent("app-sources", model.PurposeApplication)
	app.BaseDir = cm.Paths.Source
	app.FilesAnalyzed = true
	w.addComponent(w.sb.App, app)

	zephyr := model.NewComponent("zephyr-sources", model.PurposeOperatingSystem)
	zephyr.BaseDir = w.zephyrBase()
	zephyr.Version = w.cfg.Meta.Zephyr.Revision
	zephyr.DownloadURL = w.cfg.Meta.Zephyr.Remote
	zephyr.FilesAnalyzed = true
	w.addComponent(w.sb.Zephyr, zephyr)

	if w.sb.SDK != nil {
		sdk := model.NewComponent("sdk-sources", model.PurposeOther)
		sdk.BaseDir = w.sdkDir()
		sdk.FilesAnalyzed = true
		if sdk.BaseDir == "" {
			w.log.Warn("sdk document requested but ZEPHYR_SDK_INSTALL_DIR is not in the cache; sdk-sources will own no files")
		}
		w.addComponent(w.sb.SDK, sdk)
	}

	for _, m := range w.cfg.Meta.Modules {
		cmp := model.NewComponent(m.Name+"-deps", model.PurposeSource)
		cmp.Version = m.Revision
		cmp.DownloadURL = m.Remote
		cmp.BaseDir = m.Path
		cmp.FilesAnalyzed = false
		cmp.Comment = "Utility target; no files"
		if m.Security != nil {
			for _, ref := range m.Security.ExternalReferences {
				refType, err := meta.ExternalRefType(ref)
				if err != nil {
					w.log.Warn("skipping external reference", "module", m.Name, "error", err)
					continue
				}
				cmp.ExternalRefs = append(cmp.ExternalRefs, model.ExternalRef{
					Category: "SECURITY",
					Type:     refType,
					Locator:  ref,
				})
			}
		}
		w.addComponent(w.sb.ModulesDeps, cmp)
	}
}

func (w *Walker) addComponent(doc *model.Document, cmp *model.Component) {
	if _, exists := w.cmps[cmp.Name]; exists {
		w.log.Warn("duplicate component name, keeping first", "name", cmp.Name)
		return
	}
	doc.AddComponent(cmp)
	w.cmps[cmp.Name] = cmp
}

// purposeFor maps a codemodel target type to a component purpose.
func purposeFor(targetType string) model.Purpose {
	switch targetType {
	case "EXECUTABLE":
		return model.PurposeApplication
	case "STATIC_LIBRARY", "SHARED_LIBRARY", "MODULE_LIBRARY", "OBJECT_LIBRARY", "INTERFACE_LIBRARY":
		return model.PurposeLibrary
	}
	return model.PurposeOther
}

// targetIDName extracts the target name from a codemodel id ("name::@hash").
func targetIDName(id string) string {
	if i := strings.Index(id, "::"); i >= 0 {
		return id[:i]
	}
	return id
}

// walkTargets creates one build-target component per config-target, its
// artifact file, and queues sources, GENERATED_FROM, HAS_PREREQUISITE, and
// STATIC_LINK edges for deferred resolution.
func (w *Walker) walkTargets() {
	cm := w.cfg.Reply.Codemodel

	for ci := range cm.Configurations {
		for ti := range cm.Configurations[ci].Targets {
			ct := &cm.Configurations[ci].Targets[ti]
			if ct.Target != nil {
				w.targetByID[ct.ID] = ct.Target
			}
		}
	}

	for ci := range cm.Configurations {
		cfg := &cm.Configurations[ci]
		for ti := range cfg.Targets {
			ct := &cfg.Targets[ti]
			if ct.Target == nil {
				continue
			}
			if _, seen := w.cmps[ct.Name]; seen {
				// Multi-config generators repeat targets per configuration.
				continue
			}
			w.walkTarget(ct.Target)
		}
	}
}

func (w *Walker) walkTarget(tgt *cmakefileapi.Target) {
	cm := w.cfg.Reply.Codemodel

	cmp := model.NewComponent(tgt.Name, purposeFor(tgt.Type))
	cmp.BaseDir = absJoin(cm.Paths.Build, tgt.Paths.Build)
	cmp.Target = &model.TargetInfo{
		Type:             tgt.Type,
		CompileLanguages: tgt.CompileLanguages(),
		Archived:         tgt.Archive != nil,
	}
	if tgt.Link != nil {
		cmp.Target.LinkLanguage = tgt.Link.Language
	}

	if len(tgt.Artifacts) > 0 {
		artAbs := absJoin(cm.Paths.Build, tgt.Artifacts[0].Path)
		art := model.NewFile(artAbs, relPathOf(cmp.BaseDir, artAbs))
		cmp.AddFile(art)
		cmp.Artifact = art
		cmp.FilesAnalyzed = true
		w.files[artAbs] = art
	} else {
		// CMake "utility" target: documented with no files rather than
		// omitted.
		cmp.FilesAnalyzed = false
		cmp.Comment = "Utility target; no files"
		w.log.Debug("target has no build artifacts", "target", tgt.Name)
	}
	w.addComponent(w.sb.Build, cmp)
	w.targetCmps = append(w.targetCmps, cmp)

	for _, src := range tgt.Sources {
		srcAbs := absJoin(cm.Paths.Source, src.Path)
		w.pendingSources = append(w.pendingSources, srcAbs)
		if cmp.Artifact != nil {
			w.queueRel(kindFile, cmp.Artifact.AbsPath, kindFile, srcAbs, model.RelGeneratedFrom)
		}
		if w.cfg.AnalyzeIncludes && cmp.Artifact != nil {
			if cg := tgt.CompileGroupFor(src); cg != nil && cg.Language == "C" {
				w.analyzeIncludes(cmp, srcAbs, cg)
			}
		}
	}

	for _, dep := range tgt.Dependencies {
		depName := targetIDName(dep.ID)
		w.queueRel(kindCmp, tgt.Name, kindCmp, depName, model.RelHasPrerequisite)

		if depTgt := w.targetByID[dep.ID]; depTgt != nil && cmp.Artifact != nil && len(depTgt.Artifacts) > 0 {
			depArtAbs := absJoin(cm.Paths.Build, depTgt.Artifacts[0].Path)
			w.queueRel(kindFile, cmp.Artifact.AbsPath, kindFile, depArtAbs, model.RelStaticLink)
		}
	}
}

// analyzeIncludes asks the compiler for the transitive includes of one C
// source and queues a GENERATED_FROM edge per unique header. Failures
// degrade to a warning; the walk continues.
func (w *Walker) analyzeIncludes(cmp *model.Component, srcAbs string, cg *cmakefileapi.CompileGroup) {
	compiler := w.compilerPathFor(cg.Language)
	if compiler == "" {
		return
	}
	headers, err := w.includesFn(compiler, srcAbs, cg)
	if err != nil {
		w.log.Warn("include analysis failed", "source", srcAbs, "error", err)
		return
	}
	for _, hdr := range headers {
		hdrAbs := absJoin(w.cfg.Reply.Codemodel.Paths.Source, hdr)
		key := cmp.Name + "\x00" + hdrAbs
		if w.seenIncludes == nil {
			w.seenIncludes = map[string]bool{}
		}
		if w.seenIncludes[key] {
			continue
		}
		w.seenIncludes[key] = true
		w.pendingSources = append(w.pendingSources, hdrAbs)
		w.queueRel(kindFile, cmp.Artifact.AbsPath, kindFile, hdrAbs, model.RelGeneratedFrom)
	}
}

func (w *Walker) queueRel(aKind elemKind, a string, bKind elemKind, b string, typ model.RelationshipType) {
	w.pendingRels = append(w.pendingRels, pendingRel{aKind: aKind, a: a, bKind: bKind, b: b, typ: typ})
}

// resolvePendingSources assigns each queued source path to its owning
// component: build-target base dirs first, then sdk, app, and the RTOS
// source root. Paths with no owner are skipped with a diagnostic.
func (w *Walker) resolvePendingSources() {
	for _, path := range w.pendingSources {
		if _, exists := w.files[path]; exists {
			continue
		}
		owner := w.findOwner(path)
		if owner == nil {
			w.log.Warn("no owning component for source file, skipping", "path", path)
			continue
		}
		f := model.NewFile(path, relPathOf(owner.BaseDir, path))
		owner.AddFile(f)
		w.files[path] = f
	}
}

// findOwner returns the component whose base directory contains path, in
// the fixed priority order. The first match wins.
func (w *Walker) findOwner(path string) *model.Component {
	for _, cmp := range w.targetCmps {
		if cmp.BaseDir != "" && pathHasBase(path, cmp.BaseDir) {
			return cmp
		}
	}
	var ordered []*model.Component
	if w.sb.SDK != nil {
		ordered = append(ordered, w.sb.SDK.Components...)
	}
	ordered = append(ordered, w.sb.App.Components...)
	ordered = append(ordered, w.sb.Zephyr.Components...)
	for _, cmp := range ordered {
		if cmp.BaseDir != "" && pathHasBase(path, cmp.BaseDir) {
			return cmp
		}
	}
	return nil
}

// resolvePendingRelationships materializes every queued edge whose
// endpoints both exist; missing endpoints drop the edge with a diagnostic.
func (w *Walker) resolvePendingRelationships() {
	for _, pr := range w.pendingRels {
		a := w.lookup(pr.aKind, pr.a)
		if a == nil {
			w.log.Debug("relationship A side missing, skipping", "key", pr.a, "type", pr.typ)
			continue
		}
		b := w.lookup(pr.bKind, pr.b)
		if b == nil {
			w.log.Debug("relationship B side missing, skipping", "key", pr.b, "type", pr.typ)
			continue
		}
		model.AddRelationship(&model.Relationship{Type: pr.typ, A: a, B: b})
	}
}

func (w *Walker) lookup(kind elemKind, key string) model.Element {
	switch kind {
	case kindCmp:
		if cmp, ok := w.cmps[key]; ok {
			return cmp
		}
	case kindFile:
		if f, ok := w.files[key]; ok {
			return f
		}
	}
	return nil
}

// describeComponents adds the document-level DESCRIBES edge for every
// component.
func (w *Walker) describeComponents() {
	for _, doc := range w.sb.Documents() {
		for _, cmp := range doc.Components {
			model.AddRelationship(&model.Relationship{
				Type: model.RelDescribes,
				A:    doc,
				B:    cmp,
			})
		}
	}
}

// absJoin resolves path against root unless it is already absolute.
func absJoin(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

// relPathOf computes the path of abs relative to base, falling back to the
// base name when abs lives outside base.
func relPathOf(base, abs string) string {
	if base != "" {
		if rel, err := filepath.Rel(base, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.Base(abs)
}

// pathHasBase reports whether path lives under base.
func pathHasBase(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
