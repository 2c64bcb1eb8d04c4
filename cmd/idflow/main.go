package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/target/idflow/internal/bootstrap"
)

type options struct {
	EnvFile string
	Query   string
	Verbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)) //nolint:forbidigo // CLI exit status
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := bootstrap.LoadConfig(opts.EnvFile)
	if err != nil {
		_ = writef(stderr, "load config: %v\n", err)
		return 1
	}
	logger := bootstrap.InitLogger(stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.BuildRuntime(ctx, bootstrap.RuntimeDeps{
		Config:  &cfg,
		Logger:  logger,
		Out:     stdout,
		Verbose: opts.Verbose,
	})
	if err != nil {
		logger.ErrorContext(ctx, "build runtime", "error", err)
		return 1
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.WarnContext(ctx, "close runtime", "error", closeErr)
		}
	}()

	sh := newShell(rt, &cfg, stdout, logger)
	if err := sh.loop(ctx, stdin); err != nil {
		logger.ErrorContext(ctx, "read commands", "error", err)
		return 1
	}
	if opts.Query != "" {
		if err := sh.printQuery(opts.Query); err != nil {
			_ = writef(stderr, "query: %v\n", err)
			return 1
		}
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("idflow", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment")
	fs.StringVarP(&opts.Query, "query", "q", "", "JMESPath expression printed against the final session snapshot")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "print step changes, tokens and credentials as they happen")
	fs.Usage = func() {
		_ = writef(stderr, "Usage: idflow [flags] < commands\n\nFlags:\n%s\n", fs.FlagUsages())
		_ = printHelp(stderr)
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
