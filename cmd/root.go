package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SergeiSkv/FixProof/cache"
	"github.com/SergeiSkv/FixProof/internal/registry"
	"github.com/SergeiSkv/FixProof/version"
)

var (
	configPath string
	formatFlag string
	outputPath string
	logLevel   string
	rulesFlag  []string
	fixFlag    bool
	compact    bool
	noCache    bool
	clearCache bool
	verbose    bool
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fixproof [packages]",
	Short: "FixProof - Run Go analyzers and prove their fixes",
	Long: `FixProof runs go/analysis rules over Go packages, reports their
diagnostics and can apply the suggested fixes in place.

The same engine backs the analyzertest package, so a fix applied here
behaves exactly like one proven in a test.`,
	Example: `
  fixproof ./...                       # Analyze the current module
  fixproof --rules staticcheck ./...   # Run the staticcheck suite
  fixproof --fix ./...                 # Apply suggested fixes in place
  fixproof --format sarif -o out.sarif ./...`,
	Args: cobra.ArbitraryArgs,
	Run:  runAnalyze,
}

var initConfigCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Creates a .fixproof.yaml configuration file with default settings.`,
	Run: func(cmd *cobra.Command, args []string) {
		const configFile = ".fixproof.yaml"
		if err := writeDefaultConfig(configFile); err != nil {
			slog.Error("Failed to create config", "error", err)
			os.Exit(1)
		}

		fmt.Printf("Created default configuration file: %s\n", configFile)
		fmt.Println("\tEdit this file to customize your analysis settings")
		fmt.Println("")
		fmt.Println("Example usage:")
		fmt.Println("  fixproof --config=.fixproof.yaml ./...")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		name := color.New(color.FgCyan, color.Bold).Sprint("FixProof")

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s version %s\n", name, color.GreenString(version.Version)))
		sb.WriteString(fmt.Sprintf("Commit: %s\n", version.CommitHash))
		sb.WriteString(fmt.Sprintf("Built: %s\n", version.BuiltAt))
		fmt.Print(sb.String())
	},
}

var listRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List all available rules",
	Long:  `Shows every registered rule with the first line of its documentation.`,
	Run: func(cmd *cobra.Command, args []string) {
		catalog := registry.All()
		names := make([]string, 0, len(catalog))
		for name := range catalog {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("Available Rules:")
		fmt.Println("====================")
		for _, name := range names {
			fmt.Printf("• %-16s %s\n", name, firstDocLine(catalog[name].Doc))
		}
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the analysis cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Shows statistics about the cached analysis results.`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openCache()
		if err != nil {
			slog.Error("Failed to open cache database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		stats := db.Stats()

		var sb strings.Builder
		sb.WriteString("Cache Statistics:\n")
		sb.WriteString("====================\n")
		sb.WriteString(fmt.Sprintf("Entries:  %d\n", stats.Entries))
		sb.WriteString(fmt.Sprintf("Location: %s\n", stats.Path))
		if info, err := os.Stat(stats.Path); err == nil {
			sb.WriteString(fmt.Sprintf("Size:     %.2f MB\n", float64(info.Size())/(1024*1024)))
		}
		fmt.Print(sb.String())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached analysis results",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openCache()
		if err != nil {
			slog.Error("Failed to open cache database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		if err := db.Clear(); err != nil {
			slog.Error("Failed to clear cache", "error", err)
			os.Exit(1)
		}
		slog.Info("Cache cleared")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text, json, sarif")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.Flags().StringSliceVar(&rulesFlag, "rules", nil, "Rules or rule groups to run (overrides config)")
	rootCmd.Flags().BoolVar(&fixFlag, "fix", false, "Apply suggested fixes in place")
	rootCmd.Flags().BoolVar(&compact, "compact", false, "Compact IDE-friendly output")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the analysis cache")
	rootCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Clear the cache before analyzing")

	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listRulesCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)

	// Setup logger
	cobra.OnInitialize(initLogger)
}

func initLogger() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time, level, source - only show message and custom attrs
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.SourceKey {
				return slog.Attr{}
			}
			return a
		},
	}

	// Keep stderr machine-readable when the report itself is
	var handler slog.Handler
	if formatFlag == "json" || formatFlag == "sarif" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func Execute() error {
	return rootCmd.Execute()
}

func firstDocLine(doc string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(doc), "\n")
	return strings.TrimSpace(line)
}

func cachePath(config *Config) (string, error) {
	if config.Cache.Path != "" {
		return config.Cache.Path, nil
	}
	return cache.DefaultPath()
}

func openCache() (*cache.Cache, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	path, err := cachePath(config)
	if err != nil {
		return nil, err
	}
	return cache.Open(path)
}
