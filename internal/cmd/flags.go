// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// Set on build.
var version = "dev" //nolint:gochecknoglobals

type flags struct {
	configPath  string
	count       int
	iterations  int
	workDir     string
	metricsAddr string

	qemuBin string
	sshBin  string
	scpBin  string

	debug   bool
	quiet   bool
	version bool

	binary string
	args   []string
}

func parseArgs(args []string, output io.Writer) (*flags, error) {
	var f flags

	fsName := args[0] + " [flags...] binary [args...]"
	fs := pflag.NewFlagSet(fsName, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.SetInterspersed(false)

	fs.StringVarP(
		&f.configPath,
		"config",
		"c",
		"harness.toml",
		"path to the harness configuration",
	)

	fs.IntVarP(
		&f.count,
		"count",
		"n",
		1,
		"number of guests to run in parallel",
	)

	fs.IntVar(
		&f.iterations,
		"iterations",
		1,
		"number of runs per guest, 0 runs until interrupted",
	)

	fs.StringVar(
		&f.workDir,
		"workdir",
		".",
		"directory crash reports are saved in",
	)

	fs.StringVar(
		&f.metricsAddr,
		"metrics",
		"",
		"serve Prometheus metrics on this address",
	)

	fs.StringVar(
		&f.qemuBin,
		"qemu-bin",
		"",
		"QEMU binary to use instead of the default for the target",
	)

	fs.StringVar(
		&f.sshBin,
		"ssh-bin",
		"",
		"ssh binary to use",
	)

	fs.StringVar(
		&f.scpBin,
		"scp-bin",
		"",
		"scp binary to use",
	)

	fs.BoolVar(
		&f.debug,
		"debug",
		false,
		"enable debug output",
	)

	fs.BoolVarP(
		&f.quiet,
		"quiet",
		"q",
		false,
		"only log warnings and errors",
	)

	fs.BoolVar(
		&f.version,
		"version",
		false,
		"show version and exit",
	)

	err := fs.Parse(args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}

		return nil, &ParseArgsError{msg: "flag parse", err: err}
	}

	if f.version {
		return &f, nil
	}

	err = f.validate(fs.Args())
	if err != nil {
		fmt.Fprintf(output, "Error: %v\n", err)
		fs.Usage()

		return nil, &ParseArgsError{msg: "flag validation", err: err}
	}

	return &f, nil
}

func (f *flags) validate(positional []string) error {
	switch {
	case len(positional) == 0:
		return errors.New("no binary given")
	case f.count < 1:
		return fmt.Errorf("count must be positive: %d", f.count)
	case f.iterations < 0:
		return fmt.Errorf("iterations must not be negative: %d", f.iterations)
	case f.debug && f.quiet:
		return errors.New("debug and quiet are mutually exclusive")
	}

	f.binary = positional[0]
	f.args = positional[1:]

	return nil
}
