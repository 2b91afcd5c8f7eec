package cmd

import (
	"errors"
	"fmt"
	"go/format"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/packages"

	"github.com/SergeiSkv/FixProof/cache"
	"github.com/SergeiSkv/FixProof/internal/compile"
	"github.com/SergeiSkv/FixProof/internal/driver"
	"github.com/SergeiSkv/FixProof/internal/registry"
	"github.com/SergeiSkv/FixProof/internal/report"
	"github.com/SergeiSkv/FixProof/internal/textedit"
	"github.com/SergeiSkv/FixProof/models"
	"github.com/SergeiSkv/FixProof/version"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes

func runAnalyze(cmd *cobra.Command, args []string) {
	started := time.Now()

	if len(args) == 0 {
		args = []string{"./..."}
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Flags win over the config file
	if cmd.Flags().Changed("format") {
		config.Output.Format = formatFlag
	}
	if cmd.Flags().Changed("rules") {
		config.Rules = rulesFlag
	}
	if compact {
		config.Output.Compact = true
	}
	if noCache {
		config.Cache.Enabled = false
	}

	analyzers, err := registry.Select(config.Rules)
	if err != nil {
		slog.Error("Failed to resolve rules", "error", err)
		os.Exit(1)
	}
	if len(analyzers) == 0 {
		analyzers = registry.Default()
	}

	// Fix runs need the raw diagnostics for their edits, cached entries
	// carry none, so fixing always re-analyzes.
	var cacheDB *cache.Cache
	if config.Cache.Enabled && !fixFlag {
		path, pathErr := cachePath(config)
		if pathErr != nil {
			slog.Warn("Failed to locate cache", "error", pathErr)
		} else if cacheDB, err = cache.Open(path); err != nil {
			slog.Warn("Failed to open cache database", "error", err)
			cacheDB = nil
			// Continue without cache
		}
		defer func() {
			if cacheDB != nil {
				_ = cacheDB.Close()
			}
		}()

		if clearCache && cacheDB != nil {
			if err := cacheDB.Clear(); err != nil {
				slog.Warn("Failed to clear cache", "error", err)
			} else {
				slog.Info("Cache cleared")
			}
		}
	}

	pkgs, err := loadPackages(args)
	if err != nil {
		slog.Error("Failed to load packages", "error", err)
		os.Exit(1)
	}

	diags, err := analyzeAll(pkgs, analyzers, config, cacheDB)
	if err != nil {
		slog.Error("Analysis failed", "error", err)
		os.Exit(1)
	}

	rep := report.New(strings.Join(args, " "), version.Version, diags)
	rep.Summary.DurationMS = time.Since(started).Milliseconds()
	if cacheDB != nil {
		stats := cacheDB.Stats()
		rep.Summary.CacheHits = stats.Hits
		rep.Summary.CacheMisses = stats.Misses
	}

	if err := writeReport(rep, config.Output); err != nil {
		slog.Error("Failed to write report", "error", err)
		os.Exit(1)
	}

	// Exit with error code if error severity diagnostics found
	if rep.Summary.Errors > 0 {
		os.Exit(1)
	}
}

func loadPackages(patterns []string) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: loadMode}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, errors.New("no packages matched")
	}
	return pkgs, nil
}

func analyzeAll(
	pkgs []*packages.Package, analyzers []*analysis.Analyzer, config *Config, cacheDB *cache.Cache,
) ([]models.Diagnostic, error) {
	fingerprint := analysisFingerprint(analyzers, config)
	results := make([][]models.Diagnostic, len(pkgs))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, pkg := range pkgs {
		g.Go(func() error {
			diags, err := analyzePackage(pkg, analyzers, config, cacheDB, fingerprint)
			if err != nil {
				return err
			}
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.Diagnostic
	for _, diags := range results {
		all = append(all, diags...)
	}
	models.SortDiagnostics(all)
	return all, nil
}

func analyzePackage(
	pkg *packages.Package, analyzers []*analysis.Analyzer, config *Config, cacheDB *cache.Cache, fingerprint string,
) ([]models.Diagnostic, error) {
	if len(pkg.Errors) > 0 && len(pkg.CompiledGoFiles) == 0 {
		slog.Warn("Skipping broken package", "package", pkg.PkgPath, "error", pkg.Errors[0].Msg)
		return nil, nil
	}

	unit, err := compile.FromPackage(pkg)
	if err != nil {
		slog.Warn("Skipping package", "package", pkg.PkgPath, "error", err)
		return nil, nil
	}

	var key string
	if cacheDB != nil {
		key = cache.Key(fingerprint, unit.Contents())
		if diags, ok := cacheDB.Get(key); ok {
			return diags, nil
		}
	}

	overrides := config.SeverityOverrides()
	var out []models.Diagnostic
	var raws []analysis.Diagnostic
	for _, a := range analyzers {
		diags, err := driver.Run(unit, a)
		if err != nil {
			if errors.Is(err, driver.ErrTypeErrors) {
				slog.Warn("Skipping analyzer, package has type errors", "analyzer", a.Name, "package", pkg.PkgPath)
				continue
			}
			return nil, fmt.Errorf("analyzer %s failed on %s: %w", a.Name, pkg.PkgPath, err)
		}

		for _, md := range driver.ToModels(unit, a, diags) {
			if config.Excluded(md.File) {
				continue
			}
			if level, ok := overrides[md.Rule]; ok {
				md.Severity = level
			}
			out = append(out, md)
		}

		if fixFlag {
			for _, d := range diags {
				if config.Excluded(unit.Fset.Position(d.Pos).Filename) {
					continue
				}
				raws = append(raws, d)
			}
		}
	}
	models.SortDiagnostics(out)

	if fixFlag && len(raws) > 0 {
		if err := applyFixes(unit, raws); err != nil {
			return nil, fmt.Errorf("failed to apply fixes in %s: %w", pkg.PkgPath, err)
		}
	}

	if cacheDB != nil {
		if err := cacheDB.Put(key, out); err != nil {
			slog.Warn("Failed to cache results", "package", pkg.PkgPath, "error", err)
		}
	}
	return out, nil
}

// applyFixes rewrites the unit's files on disk with every suggested fix
// that does not conflict with an earlier one. Conflicting fixes stay in
// the report and another run picks them up against the new source.
func applyFixes(unit *compile.Unit, raws []analysis.Diagnostic) error {
	sort.SliceStable(raws, func(i, j int) bool {
		if raws[i].Pos != raws[j].Pos {
			return raws[i].Pos < raws[j].Pos
		}
		return raws[i].Message < raws[j].Message
	})

	candidates, err := textedit.Select(unit, raws, textedit.Options{})
	if err != nil {
		return fmt.Errorf("failed to select fixes: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	fixed, err := textedit.Apply(unit.Contents(), candidates)
	if err != nil {
		return fmt.Errorf("failed to apply edits: %w", err)
	}

	for name, data := range fixed {
		if formatted, err := format.Source(data); err == nil {
			data = formatted
		}

		mode := os.FileMode(0o644)
		if info, err := os.Stat(name); err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(name, data, mode); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		slog.Info("Applied fixes", "file", name)
	}
	return nil
}

func writeReport(rep *report.Report, out OutputConfig) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	switch {
	case out.Format == "json":
		return report.WriteJSON(w, rep)
	case out.Format == "sarif":
		return report.WriteSARIF(w, rep)
	case out.Compact:
		return report.WriteCompact(w, rep)
	default:
		return report.WriteText(w, rep)
	}
}

// analysisFingerprint captures everything besides file content that can
// change the produced diagnostics.
func analysisFingerprint(analyzers []*analysis.Analyzer, config *Config) string {
	names := make([]string, 0, len(analyzers))
	for _, a := range analyzers {
		names = append(names, a.Name)
	}
	sort.Strings(names)

	severities := make([]string, 0, len(config.Severity))
	for rule, level := range config.Severity {
		severities = append(severities, rule+"="+level)
	}
	sort.Strings(severities)

	parts := []string{
		version.Version,
		strings.Join(names, ","),
		strings.Join(severities, ","),
		strings.Join(config.Paths.Exclude, ","),
	}
	return strings.Join(parts, "|")
}
