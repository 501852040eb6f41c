// Package main is the radlabel CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/radlabel/internal/cli"
	"github.com/hyperjump/radlabel/internal/config"
	"github.com/hyperjump/radlabel/internal/job"
	"github.com/hyperjump/radlabel/internal/merge"
	"github.com/hyperjump/radlabel/internal/metrics"
	"github.com/hyperjump/radlabel/internal/pipeline"
	"github.com/hyperjump/radlabel/internal/server"
	"github.com/hyperjump/radlabel/internal/storage"
	"github.com/hyperjump/radlabel/internal/watcher"
	"github.com/hyperjump/radlabel/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/radlabel/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "label":
		runLabel()
	case "concat":
		runConcat()
	case "plan":
		runPlan()
	case "status":
		runStatus()
	case "serve":
		runServe()
	case "version", "--version", "-v":
		fmt.Printf("radlabel version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	ledger  *storage.SQLiteLedger
	metrics *metrics.Metrics
	job     *job.Job
}

func (a *app) Close() {
	if a.ledger != nil {
		_ = a.ledger.Close()
	}
	_ = a.logger.Sync()
}

// commonFlags registers --config, --debug and --output on fs.
func commonFlags(fs *flag.FlagSet) (configPath *string, debug *bool, output *string) {
	configPath = fs.String("config", defaultConfigPath, "config file path")
	debug = fs.Bool("debug", false, "enable debug logging (per-chunk events, watcher events)")
	output = fs.String("output", "text", "output format: text or json")
	return
}

func setup(configPath string, debug bool) (*app, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.String("input", cfg.Input.Path))

	engines, err := job.BuildEngines(cfg, logger)
	if err != nil {
		return nil, err
	}
	ledger, err := storage.NewSQLiteLedger(cfg.Ledger.DatabasePath)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	j, err := job.New(cfg, engines, ledger, job.WithLogger(logger), job.WithMetrics(m))
	if err != nil {
		_ = ledger.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, ledger: ledger, metrics: m, job: j}, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// argsReorder moves trailing flags before positional arguments so that
// "radlabel label 3 --debug" parses like "radlabel label --debug 3".
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' && !isInteger(a) {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func isInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// parseWindowIndex requires exactly one integer argument.
func parseWindowIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one window index argument, got %d", len(args))
	}
	index, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("window index %q is not an integer", args[0])
	}
	return index, nil
}

// splitFlagArgs separates flags from positional arguments, keeping flag values
// (the argument after a non-boolean flag) with their flag. Negative integers are positional.
func splitFlagArgs(args []string, boolFlags map[string]bool) (flags, positional []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a) < 2 || a[0] != '-' || isInteger(a) {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") || boolFlags[name] {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return flags, positional
}

func runLabel() {
	fs := flag.NewFlagSet("label", flag.ExitOnError)
	configPath, debug, output := commonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: radlabel label [flags] <window-index>\n\n")
		fs.PrintDefaults()
	}
	flags, positional := splitFlagArgs(os.Args[2:], map[string]bool{"debug": true})
	_ = fs.Parse(flags)
	positional = append(positional, fs.Args()...)

	index, err := parseWindowIndex(positional)
	if err != nil {
		fs.Usage()
		fatalf("Error: %v", err)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("Error: %v", err)
	}

	a, err := setup(*configPath, *debug)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := a.job.RunWindow(ctx, index)
	if flushErr := a.job.FlushMetrics(); flushErr != nil {
		a.logger.Warn("failed to write metrics textfile", zap.Error(flushErr))
	}
	if err != nil {
		a.Close()
		if errors.Is(err, pipeline.ErrWindowOutOfRange) {
			fatalf("Error: window index %d results in out of bounds access on %s: %v", index, a.cfg.Input.Path, err)
		}
		fatalf("Error: labeling window %d failed: %v", index, err)
	}
	if err := cli.WriteRun(os.Stdout, run, format); err != nil {
		fatalf("Error: %v", err)
	}
}

func runConcat() {
	fs := flag.NewFlagSet("concat", flag.ExitOnError)
	configPath, debug, output := commonFlags(fs)
	watch := fs.Bool("watch", false, "keep running and re-concatenate whenever a partition is written")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("Error: %v", err)
	}
	a, err := setup(*configPath, *debug)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	concat := func() error {
		res, err := a.job.Concatenate(ctx)
		if err != nil {
			return err
		}
		if flushErr := a.job.FlushMetrics(); flushErr != nil {
			a.logger.Warn("failed to write metrics textfile", zap.Error(flushErr))
		}
		return cli.WriteConcat(os.Stdout, res, format)
	}
	if err := concat(); err != nil {
		a.Close()
		fatalf("Error: concatenation failed: %v", err)
	}
	if !*watch {
		return
	}

	input := a.cfg.Input.Path
	w := watcher.NewWatcher(
		filepath.Dir(input),
		func(path string) bool {
			_, ok := merge.PartitionIndex(input, path)
			return ok
		},
		func() {
			if err := concat(); err != nil {
				a.logger.Error("re-concatenation failed", zap.Error(err))
			}
		},
		watcher.WithLogger(a.logger),
		watcher.WithDebounce(time.Duration(a.cfg.Watch.DebounceMillis)*time.Millisecond),
	)
	if err := w.Start(ctx); err != nil {
		a.Close()
		fatalf("Error: failed to watch %s: %v", w.Dir(), err)
	}
	a.logger.Info("watching for partitions", zap.String("dir", w.Dir()))
	<-ctx.Done()
	w.Stop()
}

func runPlan() {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	configPath, debug, output := commonFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("Error: %v", err)
	}
	a, err := setup(*configPath, *debug)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer a.Close()

	plan, err := a.job.Plan()
	if err != nil {
		a.Close()
		fatalf("Error: %v", err)
	}
	if err := cli.WritePlan(os.Stdout, plan, format); err != nil {
		fatalf("Error: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath, debug, output := commonFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("Error: %v", err)
	}
	a, err := setup(*configPath, *debug)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer a.Close()

	windows, err := a.job.Status(context.Background())
	if err != nil {
		a.Close()
		fatalf("Error: %v", err)
	}
	size, err := a.ledger.SizeBytes()
	if err != nil {
		a.logger.Warn("failed to stat ledger", zap.Error(err))
	}
	report := &cli.StatusReport{
		InputPath:       a.cfg.Input.Path,
		LedgerPath:      a.cfg.Ledger.DatabasePath,
		LedgerSizeBytes: size,
		Windows:         windows,
	}
	if err := cli.WriteStatus(os.Stdout, report, format); err != nil {
		fatalf("Error: %v", err)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	a, err := setup(*configPath, *debug)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer a.Close()

	// A long-running server also exposes runtime and process metrics.
	a.metrics.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := server.NewServer(a.job, a.metrics.Handler(), &a.cfg.Server, a.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printUsage() {
	fmt.Println(`radlabel - Rule-based radiology report labeler

Usage:
  radlabel label [flags] <window-index>  Label one window of the input table and write its partition
  radlabel concat [flags]                Concatenate completed partitions into the final table
  radlabel plan [flags]                  Show how the input table splits into windows
  radlabel status [flags]                Show the latest run of every window
  radlabel serve [flags]                 Start the HTTP status server
  radlabel version                       Show version
  radlabel help                          Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/radlabel/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging
  --output string    Output format: text or json (label, concat, plan, status)

Concat Flags:
  --watch            Keep running and re-concatenate when partitions are written

Environment:
  RADLABEL_INPUT, RADLABEL_OUTPUT, RADLABEL_LEDGER, RADLABEL_WORKERS override the config file.
  A .env file next to the config file is loaded first.

Examples:
  radlabel plan
  radlabel label 0
  radlabel label --config ./config.yaml 12
  radlabel concat --watch`)
}
