// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aibor/guestrun/internal/cmdline"
	"github.com/aibor/guestrun/internal/config"
	"github.com/aibor/guestrun/internal/crash"
	"github.com/aibor/guestrun/internal/exitcode"
	"github.com/aibor/guestrun/internal/guest"
	"github.com/aibor/guestrun/internal/metrics"
	"github.com/aibor/guestrun/internal/sys"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// IO provides input and output details for the command.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
}

func loadConfig(flags *flags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, exitcode.New(exitcode.Config, "%w", err)
	}

	if cfg.SSH != nil {
		err := cfg.SSH.ValidateKey()
		if err != nil {
			return nil, exitcode.New(exitcode.Config, "%w", err)
		}
	}

	if cfg.Qemu != nil {
		for _, path := range []string{cfg.Qemu.Image, cfg.Qemu.Kernel} {
			err := sys.ValidateFilePath(path)
			if err != nil {
				return nil, exitcode.New(exitcode.Config, "qemu: %w", err)
			}
		}
	}

	return cfg, nil
}

// validateBinary checks that the binary can run on the guest architecture.
func validateBinary(path string, cfg *config.Config) (string, error) {
	path, err := sys.AbsolutePath(path)
	if err != nil {
		return "", exitcode.New(exitcode.DataErr, "binary: %w", err)
	}

	var arch sys.Arch

	err = arch.UnmarshalText([]byte(cfg.Guest.Arch))
	if err != nil {
		return "", exitcode.New(exitcode.Config, "guest arch %q: %w", cfg.Guest.Arch, err)
	}

	if !arch.KVMAvailable() {
		slog.Warn("KVM not available, guest may fail to boot",
			slog.String("arch", arch.String()),
			slog.Bool("native", arch.IsNative()))
	}

	info, err := sys.ValidateELF(path, arch)
	if err != nil {
		return "", exitcode.New(exitcode.DataErr, "binary: %w", err)
	}

	if !info.IsStatic() {
		slog.Warn("Binary is dynamically linked, guest must provide the interpreter",
			slog.String("interpreter", info.Interpreter))
	}

	return path, nil
}

func guestOptions(flags *flags, m *metrics.Metrics, diagnostics io.Writer) guest.Options {
	return guest.Options{
		QemuBinary:  flags.qemuBin,
		SSHBinary:   flags.sshBin,
		SCPBinary:   flags.scpBin,
		Diagnostics: diagnostics,
		Metrics:     m,
	}
}

// newGuests creates count guests. If any fails, the ones already created are
// closed.
func newGuests(count int, cfg *config.Config, opts guest.Options) ([]guest.Guest, error) {
	guests := make([]guest.Guest, 0, count)

	for idx := range count {
		opts.Logger = slog.Default().With(slog.Int("guest", idx))

		g, err := guest.New(cfg, opts)
		if err != nil {
			for _, created := range guests {
				closeGuest(created, slog.Default())
			}

			return nil, err //nolint:wrapcheck
		}

		guests = append(guests, g)
	}

	return guests, nil
}

func closeGuest(g guest.Guest, logger *slog.Logger) {
	err := g.Close()
	if err != nil {
		logger.Warn("Close guest", slog.Any("error", err))
	}
}

func serveMetrics(eg *errgroup.Group, addr string, m *metrics.Metrics) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, exitcode.New(exitcode.OSErr, "metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err //nolint:wrapcheck
	})

	slog.Info("Serving metrics", slog.String("address", listener.Addr().String()))

	return server, nil
}

func run(ctx context.Context, flags *flags, cfg IO) error {
	harnessCfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	binary, err := validateBinary(flags.binary, harnessCfg)
	if err != nil {
		return err
	}

	store, err := crash.NewStore(filepath.Join(flags.workDir, "crashes"))
	if err != nil {
		return exitcode.New(exitcode.OSErr, "%w", err)
	}

	m := metrics.New()

	if flags.metricsAddr != "" {
		var serveGroup errgroup.Group

		server, err := serveMetrics(&serveGroup, flags.metricsAddr, m)
		if err != nil {
			return err
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			_ = server.Shutdown(shutdownCtx)
			_ = serveGroup.Wait()
		}()
	}

	args := make([]cmdline.Argument, 0, len(flags.args))
	for _, arg := range flags.args {
		args = append(args, cmdline.Flag(arg))
	}

	command := cmdline.New(binary, args...)

	guests, err := newGuests(flags.count, harnessCfg, guestOptions(flags, m, cfg.Stderr))
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	for idx, g := range guests {
		w := &worker{
			guest:      g,
			command:    command,
			iterations: flags.iterations,
			store:      store,
			stdout:     cfg.Stdout,
			stderr:     cfg.Stderr,
			prefix:     fmt.Sprintf("[guest %d] ", idx),
			metrics:    m,
			log:        slog.Default().With(slog.Int("guest", idx)),
		}

		eg.Go(func() error {
			defer closeGuest(g, w.log)
			return w.run(ctx)
		})
	}

	return eg.Wait() //nolint:wrapcheck
}

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help is requested. So exit without error
	// in this case.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// ParseArgs already prints errors, so we just exit without an error.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return int(exitcode.Usage)
}

func handleRunError(ctx context.Context, err error) int {
	// Interruption is the regular way to stop endless runs.
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		slog.Info("Interrupted")
		return 0
	}

	slog.Error(err.Error())

	code, _ := exitcode.From(err)

	return code
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	cfg = IO{
		Stdout: newSyncWriter(cfg.Stdout),
		Stderr: newSyncWriter(cfg.Stderr),
	}

	flags, err := parseArgs(args, cfg.Stderr)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.logLevel())

	if flags.version {
		buildInfo, err := getBuildInfo()
		if err != nil {
			slog.Error(err.Error())
			return int(exitcode.Software)
		}

		fmt.Fprintf(cfg.Stdout, "Version: %s (%s)\n", version, buildInfo.Main.Version)

		return 0
	}

	err = run(ctx, flags, cfg)
	if err != nil {
		return handleRunError(ctx, err)
	}

	return 0
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
