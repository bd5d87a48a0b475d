// Package main seeds the channel store from a YAML list.
// Usage: chanwatch-import [--file seed.yaml] [--output text|json]
//
// Without --file the built-in sample list is imported.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chanwatch/internal/app"
	seedcfg "chanwatch/internal/config"
	"chanwatch/internal/observability/logging"
	"chanwatch/pkg/config"
)

func main() {
	var (
		file         string
		outputFormat string
		timeout      time.Duration
	)
	flag.StringVar(&file, "file", "", "YAML seed file (default: built-in sample list)")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Overall import timeout")
	flag.Parse()

	if outputFormat != "text" && outputFormat != "json" {
		fmt.Fprintf(os.Stderr, "Error: invalid output format %q (must be text or json)\n", outputFormat)
		os.Exit(2)
	}

	config.LoadDotEnv()
	logger := logging.NewLogger("import")
	slog.SetDefault(logger)

	seed := seedcfg.SampleSeed()
	if file != "" {
		var err error
		if seed, err = seedcfg.LoadSeed(file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.New(ctx, logger, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close(context.Background()) }()

	result := importChannels(ctx, a.Channels, seed.Channels)

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		writeText(os.Stdout, result)
	}

	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}
