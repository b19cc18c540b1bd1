package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/StinkyLord/cmake-sbom-builder/internal/sbom"
)

var (
	flagBuildDir        string
	flagNamespacePrefix string
	flagSBOMDir         string
	flagFormat          string
	flagSPDXVersion     string
	flagCDXVersion      string
	flagAnalyzeIncludes bool
	flagIncludeSDK      bool
	flagVerbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "cmake-sbom-builder",
	Short: "SBOM generation from the CMake file-based API",
	Long: `cmake-sbom-builder turns a Zephyr CMake build into a Software Bill of
Materials by reading the CMake file-based API reply instead of guessing
from the source tree.

Typical usage:
  cmake-sbom-builder init --build-dir build      (before running CMake)
  west build ...                                 (configure and build)
  cmake-sbom-builder generate --build-dir build  (after the build)

Output documents — app, zephyr, build, modules-deps, and optionally
sdk — land in <build-dir>/spdx by default.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the CMake file-based API query before a build",
	Long: `Create the empty file-based API query file
<build-dir>/.cmake/api/v1/query/codemodel-v2 so the next CMake run writes
the codemodel reply that generate consumes.`,
	RunE: runInit,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate SBOM documents from a completed build",
	Long: `Parse the file-based API reply in the build directory, walk the
codemodel into SBOM documents, scan source files for hashes and license
notices, and serialize in the selected format.

Examples:
  cmake-sbom-builder generate --build-dir build
  cmake-sbom-builder generate --build-dir build --spdx-version 3.0
  cmake-sbom-builder generate --build-dir build --format cyclonedx --cyclonedx-version 1.6
  cmake-sbom-builder generate --build-dir build --analyze-includes --include-sdk`,
	RunE: runGenerate,
}

func init() {
	for _, c := range []*cobra.Command{initCmd, generateCmd} {
		c.Flags().StringVarP(&flagBuildDir, "build-dir", "d", "", "Path to the completed CMake build directory")
	}
	generateCmd.Flags().StringVarP(&flagNamespacePrefix, "namespace-prefix", "n", "",
		"Document namespace prefix (default: a unique spdx.org/spdxdocs URL)")
	generateCmd.Flags().StringVarP(&flagSBOMDir, "sbom-dir", "s", "", "Output directory (default: <build-dir>/spdx)")
	generateCmd.Flags().StringVarP(&flagFormat, "format", "f", sbom.FormatSPDX, "Output format: spdx or cyclonedx")
	generateCmd.Flags().StringVar(&flagSPDXVersion, "spdx-version", "2.3", "SPDX version: 2.2, 2.3 or 3.0")
	generateCmd.Flags().StringVar(&flagCDXVersion, "cyclonedx-version", "1.6", "CycloneDX version: 1.4, 1.5 or 1.6")
	generateCmd.Flags().BoolVar(&flagAnalyzeIncludes, "analyze-includes", false,
		"Run the compiler per C source to enumerate included headers.\n"+
			"Needs the build's compilers on the host; slow on large trees.")
	generateCmd.Flags().BoolVar(&flagIncludeSDK, "include-sdk", false,
		"Add an sdk document owning the toolchain tree (ZEPHYR_SDK_INSTALL_DIR)")
	generateCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildDirAbs() (string, error) {
	if flagBuildDir == "" {
		return "", fmt.Errorf("--build-dir is required")
	}
	abs, err := filepath.Abs(flagBuildDir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve build directory %q: %w", flagBuildDir, err)
	}
	return abs, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	buildDir, err := buildDirAbs()
	if err != nil {
		return err
	}
	if err := sbom.InitQuery(buildDir); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "File-based API query created in %s\n", buildDir)
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	buildDir, err := buildDirAbs()
	if err != nil {
		return err
	}
	if info, err := os.Stat(buildDir); err != nil || !info.IsDir() {
		return fmt.Errorf("build directory %q does not exist", buildDir)
	}

	level := hclog.Warn
	if flagVerbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "cmake-sbom-builder",
		Level:  level,
		Output: os.Stderr,
	})

	fmt.Fprintf(os.Stderr, "cmake-sbom-builder v%s\n", sbom.Version)
	fmt.Fprintf(os.Stderr, "Build directory: %s\n", buildDir)

	cfg := sbom.Config{
		BuildDir:         buildDir,
		NamespacePrefix:  flagNamespacePrefix,
		SBOMDir:          flagSBOMDir,
		Format:           flagFormat,
		SPDXVersion:      flagSPDXVersion,
		CycloneDXVersion: flagCDXVersion,
		AnalyzeIncludes:  flagAnalyzeIncludes,
		IncludeSDK:       flagIncludeSDK,
		Logger:           logger,
	}
	sb, err := sbom.MakeSBOM(cfg)
	if err != nil {
		return fmt.Errorf("SBOM generation failed: %w", err)
	}

	docs, components, files := sbom.Summary(sb)
	fmt.Fprintf(os.Stderr, "Wrote %d document(s), %d component(s), %d file(s)\n", docs, components, files)
	if flagSBOMDir != "" {
		fmt.Fprintf(os.Stderr, "SBOM written to: %s\n", flagSBOMDir)
	} else {
		fmt.Fprintf(os.Stderr, "SBOM written to: %s\n", filepath.Join(buildDir, "spdx"))
	}
	return nil
}
