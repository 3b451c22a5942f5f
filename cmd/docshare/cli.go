package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-docshare-client/auth"
	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
)

// usageError is a malformed command line. It exits with exitUsage.
type usageError string

func (e usageError) Error() string {
	return string(e)
}

// failure carries the message and field errors of an auth.Result or a local check.
type failure struct {
	msg    string
	fields auth.FieldErrors
	err    error
}

func (f *failure) Error() string {
	return f.msg
}

func (f *failure) Unwrap() error {
	return f.err
}

func (f *failure) fieldLines() []string {
	if len(f.fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f.fields))
	for k := range f.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs := strings.Join(f.fields[k], ", ")
		if k == "non_field_errors" {
			lines = append(lines, msgs)
			continue
		}
		lines = append(lines, k+": "+msgs)
	}
	return lines
}

func resultError(res auth.Result) error {
	if res.Success {
		return nil
	}
	err := res.Err()
	if err == nil {
		err = dserrors.New(res.Error)
	}
	return &failure{msg: res.Error, fields: res.FieldErrors, err: err}
}

func invalidInput(fields auth.FieldErrors) error {
	return &failure{msg: "invalid input", fields: fields, err: dserrors.ErrValidation}
}

// apiFailure keeps the field errors of a rejected write so they are listed one per line.
func apiFailure(err error) error {
	var apiErr *dserrors.APIError
	if !dserrors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return err
	}
	return &failure{msg: "the server rejected the request", fields: auth.FieldErrors(apiErr.Fields), err: err}
}

var errNotLoggedIn = &failure{msg: "not logged in, run docshare login", err: dserrors.ErrNotAuthenticated}

func (a *app) requireLogin() error {
	if !a.client.Auth.Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

// flags creates a subcommand flag set that also accepts --json.
func (a *app) flags(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.BoolVar(&a.json, "json", a.json, "print JSON instead of text")
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "usage: docshare %s %s\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse accepts flags before, after and between positional arguments.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, usageError(fs.Name() + ": " + err.Error())
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError(fmt.Sprintf("%s: invalid id %q", what, s))
	}
	return id, nil
}

func oneID(what string, positional []string) (int64, error) {
	if len(positional) != 1 {
		return 0, usageError(what + " <id>")
	}
	return parseID(what, positional[0])
}

// print writes v as JSON with --json, otherwise calls text.
func (a *app) print(v interface{}, text func(w io.Writer)) error {
	if a.json {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.stderr, prompt)
	if a.in == nil {
		a.in = bufio.NewReader(a.stdin)
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
