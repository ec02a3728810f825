// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/aibor/guestrun/internal/cmdline"
	"github.com/aibor/guestrun/internal/config"
	"github.com/aibor/guestrun/internal/exitcode"
	"github.com/aibor/guestrun/internal/port"
	"github.com/aibor/guestrun/internal/qemu"
	"github.com/aibor/guestrun/internal/remote"
)

// Host side parameters of the guest's ssh daemon.
const (
	LinuxQemuHostAddr = "localhost"
	LinuxQemuUser     = "root"
)

// LinuxQemu is a Linux guest on amd64 running in QEMU.
//
// The guest's ssh port is forwarded to a host port that is leased on
// creation and kept until [LinuxQemu.Close]. So multiple guests can run in
// parallel. A guest that becomes unreachable without being closed has its VM
// killed and its port released by the garbage collector eventually.
type LinuxQemu struct {
	vm           cmdline.Command
	waitBootTime time.Duration
	slot         *slot
	client       *remote.Client
	opts         Options
	log          *slog.Logger
}

var _ Guest = (*LinuxQemu)(nil)

// NewLinuxQemu creates a new [LinuxQemu] guest.
//
// The guest segment must select linux, amd64 and qemu. The qemu and ssh
// segments are required.
func NewLinuxQemu(cfg *config.Config, opts Options) (*LinuxQemu, error) {
	if cfg.Guest.OS != "linux" ||
		cfg.Guest.Arch != "amd64" ||
		strings.TrimSpace(cfg.Guest.Platform) != "qemu" {
		return nil, exitcode.New(exitcode.Config, "%w: %s", ErrUnsupportedKind, cfg.Guest.Kind())
	}

	qemuCfg, err := cfg.RequireQemu()
	if err != nil {
		return nil, exitcode.New(exitcode.Config, "%w", err)
	}

	sshCfg, err := cfg.RequireSSH()
	if err != nil {
		return nil, exitcode.New(exitcode.Config, "%w", err)
	}

	machine := qemuCfg.Machine()
	if err := machine.Validate(); err != nil {
		return nil, exitcode.New(exitcode.Config, "qemu: %w", err)
	}

	template, err := qemu.Template(cfg.Guest.OS, cfg.Guest.Arch)
	if err != nil {
		return nil, exitcode.New(exitcode.Config, "%w", err)
	}

	if opts.QemuBinary != "" {
		template = template.WithBinary(opts.QemuBinary)
	}

	hostPort, err := port.Lease()
	if err != nil {
		return nil, exitcode.New(exitcode.TempFail, "lease port to forward: %w", err)
	}

	opts = opts.withDefaults()

	client := remote.NewClient(remote.Target{
		User:    LinuxQemuUser,
		Host:    LinuxQemuHostAddr,
		Port:    hostPort,
		KeyPath: sshCfg.KeyPath,
	})

	if opts.SSHBinary != "" {
		client.SSH = client.SSH.WithBinary(opts.SSHBinary)
	}

	if opts.SCPBinary != "" {
		client.SCP = client.SCP.WithBinary(opts.SCPBinary)
	}

	waitBootTime := qemuCfg.BootWait()
	if opts.WaitBootTime > 0 {
		waitBootTime = opts.WaitBootTime
	}

	g := &LinuxQemu{
		vm:           qemu.Command(template, machine, hostPort),
		waitBootTime: waitBootTime,
		slot:         &slot{port: hostPort},
		client:       client,
		opts:         opts,
		log:          opts.Logger.With(slog.Int("port", int(hostPort))),
	}

	runtime.AddCleanup(g, (*slot).abandon, g.slot)

	return g, nil
}

// Port returns the host port forwarded to the guest's ssh port.
func (g *LinuxQemu) Port() uint16 {
	return g.slot.port
}

// VM returns the command the VM is started with.
func (g *LinuxQemu) VM() cmdline.Command {
	return g.vm
}

// Running returns if the guest has an active session.
func (g *LinuxQemu) Running() bool {
	return g.slot.session != nil
}

// Boot starts the VM and waits until it is reachable via ssh.
//
// A running VM is killed and its console log is discarded. The VM is probed
// [Options.BootAttempts] times, each after waiting the boot wait time. If it
// does not become reachable, it is killed, its console log is written to
// [Options.Diagnostics] and an [exitcode.Error] with [exitcode.DataErr] is
// returned.
func (g *LinuxQemu) Boot(ctx context.Context) error {
	err := g.stop()
	if err != nil {
		return err
	}

	g.log.Debug("Start VM", slog.String("command", g.vm.String()))

	started := time.Now()

	sess, err := startSession(g.vm)
	if err != nil {
		return err
	}

	g.opts.Metrics.GuestStarted()

	for attempt := 1; attempt <= g.opts.BootAttempts; attempt++ {
		alive, err := g.bootAttempt(ctx)
		if err != nil {
			g.release(sess)
			g.opts.Metrics.ObserveBoot(false, 0)

			return err
		}

		if alive {
			return g.activate(sess, attempt, time.Since(started))
		}

		g.log.Debug("VM not reachable yet", slog.Int("attempt", attempt))
	}

	return g.failBoot(ctx, sess)
}

func (g *LinuxQemu) bootAttempt(ctx context.Context) (bool, error) {
	err := sleep(ctx, g.waitBootTime)
	if err != nil {
		return false, err
	}

	g.opts.Metrics.ObserveBootAttempt()

	return g.IsAlive(ctx)
}

func (g *LinuxQemu) activate(sess *session, attempt int, took time.Duration) error {
	noise, err := sess.log.Drain()
	if err != nil {
		g.release(sess)
		return exitcode.New(exitcode.OSErr, "%w", err)
	}

	g.slot.session = sess
	g.opts.Metrics.ObserveBoot(true, took)
	g.log.Info("VM booted",
		slog.Int("pid", sess.pid()),
		slog.Int("attempt", attempt),
		slog.Duration("took", took),
		slog.Int("discarded_log_bytes", len(noise)),
	)

	return nil
}

func (g *LinuxQemu) failBoot(ctx context.Context, sess *session) error {
	defer g.opts.Metrics.ObserveBoot(false, 0)

	err := sess.kill()
	if err != nil {
		g.release(sess)
		return err
	}

	consoleLog, err := g.readLog(ctx, sess)
	g.release(sess)

	if err != nil {
		return exitcode.New(exitcode.OSErr, "read vm log: %w", err)
	}

	_, _ = fmt.Fprintf(g.opts.Diagnostics, "%s\n%s\n", consoleLog, diagnosticSeparator)

	return exitcode.New(exitcode.DataErr, "%w after %d attempts: %s",
		ErrBootFailed, g.opts.BootAttempts, g.vm)
}

// IsAlive runs "pwd" in the guest via ssh. The guest is not alive if the
// command fails or does not finish within [Options.ProbeTimeout]. An error is
// only returned if ssh can not be started or the context is done.
func (g *LinuxQemu) IsAlive(ctx context.Context) (bool, error) {
	alive, err := g.probe(ctx)
	if err == nil {
		g.opts.Metrics.ObserveProbe(alive)
	}

	return alive, err
}

func (g *LinuxQemu) probe(ctx context.Context) (bool, error) {
	probe, err := g.client.Command(cmdline.New("pwd"))
	if err != nil {
		return false, exitcode.New(exitcode.Software, "%w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, g.opts.ProbeTimeout)
	defer cancel()

	cmd, err := probe.CmdContext(probeCtx)
	if err != nil {
		return false, exitcode.New(exitcode.Software, "%w", err)
	}

	err = cmd.Run()
	if err == nil {
		return true, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	if probeCtx.Err() != nil {
		g.log.Debug("Liveness probe timed out")
		return false, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}

	return false, exitcode.New(exitcode.OSErr, "spawn %s: %w", probe.Binary, err)
}

// RunCmd copies the binary of the command into the home directory of the
// guest and runs it there via ssh. The binary is replaced by the copied one.
//
// It panics if the guest is not booted.
func (g *LinuxQemu) RunCmd(ctx context.Context, command cmdline.Command) (*Process, error) {
	if g.slot.session == nil {
		panic(noSessionMsg)
	}

	proc, err := g.runCmd(ctx, command)
	g.opts.Metrics.ObserveRun(err == nil)

	return proc, err
}

func (g *LinuxQemu) runCmd(ctx context.Context, command cmdline.Command) (*Process, error) {
	remotePath, err := remote.RemotePath(command.Binary)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	err = g.client.Copy(ctx, command.Binary)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	sshCmd, err := g.client.Command(command.WithBinary(remotePath))
	if err != nil {
		return nil, exitcode.New(exitcode.DataErr, "%w", err)
	}

	cmd, err := sshCmd.Cmd()
	if err != nil {
		return nil, exitcode.New(exitcode.Software, "%w", err)
	}

	proc, err := startProcess(cmd)
	if err != nil {
		return nil, exitcode.New(exitcode.OSErr, "spawn %s: %w", sshCmd.Binary, err)
	}

	g.log.Debug("Command started",
		slog.String("command", command.String()),
		slog.Int("pid", proc.Pid()),
	)

	return proc, nil
}

func startProcess(cmd *exec.Cmd) (*Process, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr: %w", err)
	}

	err = cmd.Start()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &Process{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		cmd:    cmd,
	}, nil
}

// TryCollectCrash waits [Options.CrashWaitTimeout] for the VM to stop. If it
// is still running, it returns false. Otherwise, it returns the console log
// written since booting finished. The guest has to be booted again then.
//
// It panics if the guest is not booted.
func (g *LinuxQemu) TryCollectCrash(ctx context.Context) (string, bool, error) {
	if g.slot.session == nil {
		panic(noSessionMsg)
	}

	timer := time.NewTimer(g.opts.CrashWaitTimeout)
	defer timer.Stop()

	select {
	case <-g.slot.session.done:
	case <-timer.C:
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}

	sess := g.slot.session
	g.slot.session = nil

	consoleLog, err := g.readLog(ctx, sess)
	g.release(sess)

	if err != nil {
		return "", false, exitcode.New(exitcode.OSErr, "read vm log: %w", err)
	}

	g.log.Info("VM stopped",
		slog.Int("log_bytes", len(consoleLog)),
		slog.Any("wait", sess.waitErr),
	)

	return string(consoleLog), true, nil
}

// Close kills the VM, if running, and releases the forwarded port.
func (g *LinuxQemu) Close() error {
	err := g.stop()

	if g.slot.port != 0 {
		port.Release(g.slot.port)
		g.slot.port = 0
	}

	return err
}

// stop kills the running VM and discards its console log.
func (g *LinuxQemu) stop() error {
	if g.slot.session == nil {
		return nil
	}

	sess := g.slot.session
	g.slot.session = nil

	err := sess.discard()
	g.opts.Metrics.GuestStopped()

	return err
}

// readLog reads the console log of the stopped VM. If other processes still
// hold the write end after [Options.LogReadTimeout], the log read so far is
// returned.
func (g *LinuxQemu) readLog(ctx context.Context, sess *session) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.LogReadTimeout)
	defer cancel()

	consoleLog, err := sess.readLog(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		g.log.Warn("Console log incomplete", slog.Any("error", err))
		return consoleLog, nil
	}

	return consoleLog, err
}

// release kills the process, if still running, and closes the console log.
func (g *LinuxQemu) release(sess *session) {
	err := sess.discard()
	if err != nil {
		g.log.Warn("Release VM", slog.Any("error", err))
	}

	g.opts.Metrics.GuestStopped()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
