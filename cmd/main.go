package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	cfgPkg "github.com/xhad/verdict/pkg/config"
)

const usage = `usage: verdict [-config path] <command> [flags]

commands:
  fetch     download decision files listed in a URL file into the raw container
  extract   extract, anonymize and store text for every raw blob
  label     classify every text blob and write the gold candidate JSONL
  corpus    write the anonymized corpus JSONL
  classify  run the full flow on a local file and print the result
  search    query stored records by paragraph similarity
  serve     start the HTTP/WebSocket API
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("verdict", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg, err := cfgPkg.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{config: cfg}
	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "fetch":
		return a.fetch(ctx, rest)
	case "extract":
		return a.extract(ctx)
	case "label":
		return a.label(ctx)
	case "corpus":
		return a.corpus(ctx)
	case "classify":
		return a.classify(rest)
	case "search":
		return a.search(ctx, rest)
	case "serve":
		return a.serve(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		return errUsage
	}
}

func setupLogging(cfg cfgPkg.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
