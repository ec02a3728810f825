// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aibor/guestrun/internal/cmdline"
	"github.com/aibor/guestrun/internal/crash"
	"github.com/aibor/guestrun/internal/guest"
	"github.com/aibor/guestrun/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// worker runs the command repeatedly in one guest.
type worker struct {
	guest      guest.Guest
	command    cmdline.Command
	iterations int
	store      *crash.Store
	stdout     io.Writer
	stderr     io.Writer
	prefix     string
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func (w *worker) run(ctx context.Context) error {
	err := w.guest.Boot(ctx)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	for iteration := 1; w.iterations == 0 || iteration <= w.iterations; iteration++ {
		crashed, err := w.runOnce(ctx)
		if err != nil {
			return err
		}

		w.log.Debug("Iteration done",
			slog.Int("iteration", iteration),
			slog.Bool("crashed", crashed),
		)

		if crashed && (w.iterations == 0 || iteration < w.iterations) {
			err := w.guest.Boot(ctx)
			if err != nil {
				return fmt.Errorf("reboot: %w", err)
			}
		}
	}

	return nil
}

// runOnce runs the command and polls the guest for crashes until the command
// exits or the guest stopped. After the command exited, the guest is checked
// once more, as the kernel may crash after the command returned.
func (w *worker) runOnce(ctx context.Context) (bool, error) {
	proc, err := w.guest.RunCmd(ctx, w.command)
	if err != nil {
		// A guest going down after the previous command can not be copied to.
		crashed, collectErr := w.collect(ctx)
		if collectErr == nil && crashed {
			w.log.Debug("Command not started", slog.Any("error", err))
			return true, nil
		}

		return false, fmt.Errorf("run: %w", err)
	}

	done := make(chan error, 1)

	go func() {
		done <- w.stream(proc)
	}()

	for {
		select {
		case err := <-done:
			w.logExit(err)

			return w.collect(ctx)
		default:
		}

		crashed, err := w.collect(ctx)
		if err != nil || crashed {
			killErr := proc.Kill()
			if killErr != nil {
				w.log.Debug("Kill command", slog.Any("error", killErr))
			}

			<-done

			return crashed, err
		}
	}
}

// collect saves the crash report if the guest stopped.
func (w *worker) collect(ctx context.Context) (bool, error) {
	report, crashed, err := w.guest.TryCollectCrash(ctx)
	if err != nil {
		return false, fmt.Errorf("collect crash: %w", err)
	}

	if !crashed {
		return false, nil
	}

	return true, w.save(report)
}

func (w *worker) stream(proc *guest.Process) error {
	_ = proc.Stdin.Close()

	var eg errgroup.Group

	eg.Go(func() error {
		return copyLines(w.stdout, w.prefix, proc.Stdout)
	})

	eg.Go(func() error {
		return copyLines(w.stderr, w.prefix, proc.Stderr)
	})

	streamErr := eg.Wait()

	err := proc.Wait()
	if err != nil {
		return err //nolint:wrapcheck
	}

	return streamErr
}

func (w *worker) logExit(err error) {
	if err != nil {
		w.log.Warn("Command failed", slog.Any("error", err))
		return
	}

	w.log.Debug("Command succeeded")
}

func (w *worker) save(consoleLog string) error {
	report := crash.NewReport([]byte(consoleLog))

	path, err := w.store.Save(report)
	if err != nil {
		return fmt.Errorf("save crash report: %w", err)
	}

	w.metrics.ObserveCrash(report.Kind.String())
	w.log.Info("Guest crashed",
		slog.String("title", report.Title),
		slog.String("report", path),
	)

	return nil
}
