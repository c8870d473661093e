package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cli is the thyme command line.
type cli struct {
	Version kong.VersionFlag `help:"Show version" short:"v"`

	New    newCmd    `cmd:"" help:"Create a new site"`
	Build  buildCmd  `cmd:"" help:"Render the site into the output directory"`
	Server serverCmd `cmd:"" help:"Build, watch and preview the site"`
	Eval   evalCmd   `cmd:"" help:"Evaluate template snippets against the site"`
}

// env is what commands get from the process.
type env struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

// exitCode carries kong's exit request out of Parse.
type exitCode int

// errUsage reports a command line kong rejected after printing usage.
var errUsage = errors.New("invalid usage")

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) (err error) {
	var c cli
	e := &env{stdout: stdout, stderr: stderr, getenv: getenv}

	parser, err := kong.New(&c,
		kong.Name("thyme"),
		kong.Description("thyme - a static site generator"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitCode(code)) }),
		kong.UsageOnError(),
		kong.Vars{"version": "thyme version " + Version},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(e),
	)
	if err != nil {
		return err
	}

	// --help and --version exit through kong.Exit
	defer func() {
		if r := recover(); r != nil {
			code, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			if code != 0 {
				err = errUsage
			}
		}
	}()

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return ktx.Run()
}
