// Package main provides the knowledgebuild binary entry point.
// Knowledgebuild aggregates web pages and actor-platform datasets into a
// single deduplicated knowledge file for conversational avatar training.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maharaniweddings/knowledgebuild/config"
	"github.com/maharaniweddings/knowledgebuild/pipeline"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "knowledgebuild"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		sourcesPath string
		outputPath  string
		chunkSize   int
		extractMode string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Build a knowledge file from web and actor sources",
		Long: `Knowledgebuild reads a declarative YAML source list, fetches every
source in order, and writes one deduplicated knowledge file.

Web sources are fetched through the managed scrape service when a
FIRECRAWL_API_KEY is present, falling back to a direct HTTP fetch with
HTML text extraction. Actor sources run synchronously on the actor
platform when APIFY_TOKEN is present.

Per-source failures are logged and skipped; the run always produces an
output file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(sourcesPath, outputPath, chunkSize, extractMode, logLevel)
		},
	}

	cmd.Flags().StringVarP(&sourcesPath, "sources", "s", "sources.yaml", "Source list path (YAML)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "dist/heygen_knowledge.txt", "Knowledge file output path")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 800, "Maximum chunk size in characters")
	cmd.Flags().StringVar(&extractMode, "extract-mode", "text", "HTML extraction mode (text, markdown, article)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	// Sources command: parse and print the source list without fetching.
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Print the parsed source list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSources(sourcesPath)
		},
	}
	cmd.AddCommand(sourcesCmd)

	return cmd
}

func run(sourcesPath, outputPath string, chunkSize int, extractMode, logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg.SourcesPath = sourcesPath
	cfg.OutputPath = outputPath
	cfg.ChunkSize = chunkSize
	cfg.ExtractMode = extractMode

	logger := newLogger(logLevel, cfg.Credentials.Debug)
	slog.SetDefault(logger)

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d lines to %s (web: %d sources, %d failed; actors: %d sources, %d failed)\n",
		result.LinesWritten, result.OutputPath,
		result.WebSources, result.WebFailures,
		result.ActorSources, result.ActorFailures)

	return nil
}

// newLogger builds the process logger. MJE_DEBUG forces debug level
// regardless of the flag.
func newLogger(logLevel string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printSources(sourcesPath string) error {
	logger := newLogger("warn", false)
	sources := config.LoadSources(sourcesPath, logger)

	fmt.Printf("web sources: %d\n", len(sources.Web))
	for _, url := range sources.Web {
		fmt.Printf("  %s\n", url)
	}

	fmt.Printf("actor sources: %d\n", len(sources.Apify))
	for _, actor := range sources.Apify {
		fmt.Printf("  %s (%d input fields)\n", actor.Actor, len(actor.Input))
	}

	return nil
}
