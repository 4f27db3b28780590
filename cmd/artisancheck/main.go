// Package main is the command-line front end to the checking engine.
// It runs a forced check over the given documents and prints the
// findings, one per line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, files, showVersion := parseFlags()

	if showVersion {
		fmt.Printf("artisancheck %s (%s)\n", version, commit)
		return 0
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input files")
		flag.Usage()
		return 2
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	findings := 0
	for _, path := range files {
		n, err := application.CheckFile(ctx, path, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			return 1
		}
		findings += n
	}

	if findings > 0 {
		return 3
	}
	return 0
}

func parseFlags() (app.Options, []string, bool) {
	var opts app.Options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.Mode, "mode", "", "Checking mode (disabled, rule-only, inference-only, hybrid)")
	flag.StringVar(&opts.Profile, "profile", "", "Checking profile (fast, balanced, thorough)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "artisancheck - grammar and style checking for AsciiDoc and Markdown\n\n")
		fmt.Fprintf(os.Stderr, "Usage: artisancheck [options] <files...>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExit codes:\n")
		fmt.Fprintf(os.Stderr, "  0  no findings\n")
		fmt.Fprintf(os.Stderr, "  1  a checking engine failed\n")
		fmt.Fprintf(os.Stderr, "  2  usage error\n")
		fmt.Fprintf(os.Stderr, "  3  findings reported\n")
	}

	flag.Parse()
	return opts, flag.Args(), showVersion
}
