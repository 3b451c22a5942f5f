package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jrsteele09/go-docshare-client/client"
	"github.com/jrsteele09/go-docshare-client/internal/config"
	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/rs/zerolog"
)

var version = "dev"

const (
	exitOK             = 0
	exitFailure        = 1
	exitUsage          = 2
	exitSessionExpired = 3
)

const sessionExpiredNotice = "session expired, please log in again"

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp(cfg, os.Stdin, os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

type command struct {
	summary string
	offline bool // runs without building a client
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":    {summary: "log in and store the session", run: loginCmd},
	"logout":   {summary: "forget the stored session", run: logoutCmd},
	"register": {summary: "create an account", run: registerCmd},
	"whoami":   {summary: "show the logged in user", run: whoamiCmd},
	"profile":  {summary: "show or update your profile", run: profileCmd},
	"docs":     {summary: "browse and manage documents", run: docsCmd},
	"courses":  {summary: "browse and manage courses", run: coursesCmd},
	"stats":    {summary: "platform totals", run: statsCmd},
	"version":  {summary: "print the version", offline: true, run: versionCmd},
}

type app struct {
	cfg    config.Config
	stdin  io.Reader
	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	extra  []client.Option

	json    bool
	log     zerolog.Logger
	client  *client.Client
	expired atomic.Bool
}

func newApp(cfg config.Config, stdin io.Reader, stdout, stderr io.Writer, opts ...client.Option) *app {
	return &app{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr, extra: opts, log: zerolog.Nop()}
}

// run parses the global flags, restores the stored session and runs one command.
func (a *app) run(ctx context.Context, args []string) int {
	root := flag.NewFlagSet("docshare", flag.ContinueOnError)
	root.SetOutput(a.stderr)
	root.BoolVar(&a.json, "json", false, "print JSON instead of text")
	debug := root.Bool("debug", false, "log requests to stderr")
	root.Usage = a.usage
	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if root.NArg() == 0 {
		a.usage()
		return exitUsage
	}

	name := root.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", name)
		a.usage()
		return exitUsage
	}

	a.log = newLogger(a.stderr, a.cfg.GetLogLevel(), *debug)
	if cmd.offline {
		return a.exit(cmd.run(ctx, a, root.Args()[1:]))
	}

	opts := append([]client.Option{
		client.WithLogger(a.log),
		client.WithSessionExpired(a.sessionExpired),
	}, a.extra...)
	c, err := client.New(ctx, a.cfg, opts...)
	if err != nil {
		fmt.Fprintln(a.stderr, "error:", err)
		return exitFailure
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close client")
		}
	}()
	a.client = c

	if res := c.Auth.Restore(ctx); res.Error != "" {
		a.log.Debug().Str("kind", string(res.Kind)).Str("reason", res.Error).Msg("stored session discarded")
	}
	return a.exit(cmd.run(ctx, a, root.Args()[1:]))
}

// sessionExpired is the refresh failure hook. It can fire from any request goroutine.
func (a *app) sessionExpired(error) {
	if a.expired.CompareAndSwap(false, true) {
		fmt.Fprintln(a.stderr, sessionExpiredNotice)
	}
}

func (a *app) exit(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}

	var usageErr usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(a.stderr, "usage: docshare", usageErr.Error())
		return exitUsage
	}

	var failed *failure
	if errors.As(err, &failed) {
		fmt.Fprintln(a.stderr, "error:", failed.msg)
		for _, line := range failed.fieldLines() {
			fmt.Fprintln(a.stderr, "  "+line)
		}
	} else {
		fmt.Fprintln(a.stderr, "error:", dserrors.Message(err))
		a.log.Debug().Err(err).Msg("command failed")
	}

	if a.expired.Load() && dserrors.Classify(err) == dserrors.KindCredential {
		return exitSessionExpired
	}
	return exitFailure
}

func (a *app) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.stderr, "usage: docshare [--json] [--debug] <command> [arguments]")
	fmt.Fprintln(a.stderr)
	fmt.Fprintln(a.stderr, "commands:")
	for _, name := range names {
		fmt.Fprintf(a.stderr, "  %-10s %s\n", name, commands[name].summary)
	}
}

func newLogger(w io.Writer, level string, debug bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().
		Logger()
}
