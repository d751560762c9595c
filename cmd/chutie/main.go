package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/root4loot/chutie/pkg/browser"
	"github.com/root4loot/chutie/pkg/chutie"
	"github.com/root4loot/chutie/pkg/config"
	"github.com/root4loot/chutie/pkg/viewport"
	"github.com/root4loot/goutils/log"
)

const (
	author  = "@danielantonsen"
	version = "0.1.0"
)

// UsageError reports missing or malformed command-line input.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

type cli struct {
	launch func(ctx context.Context, opts browser.Options) (chutie.Browser, error)
	stdout io.Writer
	stderr io.Writer
}

func newCLI() *cli {
	return &cli{
		launch: browser.Launch,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func init() {
	log.Init("chutie")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newCLI().run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	if args == nil {
		args = []string{}
	}

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	return c.exitCode(root.ExecuteContext(ctx))
}

// exitCode maps errors to exit codes: 2 for usage and parameter problems,
// 1 for everything else.
func (c *cli) exitCode(err error) int {
	if err == nil {
		return 0
	}

	var (
		usageErr *UsageError
		paramErr *config.ParameterError
		parseErr *viewport.ParseError
	)
	switch {
	case errors.As(err, &usageErr):
		fmt.Fprintf(c.stderr, "Error: %s\nSee: chutie --help\n", usageErr.Msg)
		return 2
	case errors.As(err, &paramErr), errors.As(err, &parseErr):
		fmt.Fprintf(c.stderr, "Error: Invalid value: %v\n", err)
		return 2
	default:
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
}

// setLogLevel sets the log level based on the verbosity flags.
func setLogLevel(verbose, silence bool) {
	switch {
	case silence:
		log.SetLevel(log.FatalLevel)
	case verbose:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// logObserver reports capture progress through the logger.
type logObserver struct{}

func (logObserver) PageStarted(url string, spec viewport.Spec) {
	log.Infof("Capturing %s at %s", url, spec.PathKey)
}

func (logObserver) Captured(rec chutie.Record) {
	log.Debugf("Captured %s (full page: %v, title: %q, landed on %s)", rec.URL, rec.FullPage, rec.Page.Title, rec.Page.URL)
	log.Resultf("Screenshot saved to %s", rec.Path)
}
