// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aibor/guestrun/internal/exitcode"
	"github.com/aibor/guestrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestHandleParseArgsError(t *testing.T) {
	assert.Equal(t, 0, handleParseArgsError(ErrHelp))
	assert.Equal(t, 64, handleParseArgsError(&ParseArgsError{msg: "flag parse"}))
}

func TestHandleRunError(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name             string
		ctx              context.Context
		err              error
		expectedExitCode int
	}{
		{
			name:             "config error",
			ctx:              context.Background(),
			err:              exitcode.New(exitcode.Config, "missing segment"),
			expectedExitCode: 78,
		},
		{
			name:             "wrapped data error",
			ctx:              context.Background(),
			err:              fmt.Errorf("boot: %w", exitcode.New(exitcode.DataErr, "no boot")),
			expectedExitCode: 65,
		},
		{
			name:             "any error",
			ctx:              context.Background(),
			err:              assert.AnError,
			expectedExitCode: 70,
		},
		{
			name:             "interrupted",
			ctx:              canceled,
			err:              fmt.Errorf("boot: %w", context.Canceled),
			expectedExitCode: 0,
		},
		{
			name:             "canceled without interruption",
			ctx:              context.Background(),
			err:              context.Canceled,
			expectedExitCode: 70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedExitCode, handleRunError(tt.ctx, tt.err))
		})
	}
}

const (
	fakeQemu = `#!/bin/sh
while [ ! -e '%[1]s/trigger' ]; do sleep 0.02; done
rm -f '%[1]s/trigger'
touch '%[1]s/dead'
echo "[    2.000000] BUG: kernel NULL pointer dereference, address: 0000000000000000"
if [ -e '%[1]s/wait_copy' ]; then
	while [ ! -e '%[1]s/copy_failed' ]; do sleep 0.02; done
fi
kill -9 $$
`

	fakeSSH = `#!/bin/sh
case "$*" in
*" pwd")
	rm -f '%[1]s/dead'
	exit 0
	;;
esac
echo "hello from guest"
if [ -e '%[1]s/crash' ]; then
	touch '%[1]s/trigger'
	exit 255
fi
if [ -e '%[1]s/late_crash' ]; then
	rm -f '%[1]s/late_crash'
	touch '%[1]s/trigger'
fi
`

	fakeSCP = `#!/bin/sh
if [ -e '%[1]s/dead' ]; then
	touch '%[1]s/copy_failed'
	echo "ssh: connect to host localhost: Connection refused" >&2
	exit 1
fi
`
)

type harness struct {
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	if sys.Native != sys.AMD64 {
		t.Skip("guest binary must be amd64")
	}

	h := &harness{dir: t.TempDir()}

	for name, script := range map[string]string{
		"qemu": fakeQemu,
		"ssh":  fakeSSH,
		"scp":  fakeSCP,
	} {
		content := fmt.Sprintf(script, h.dir)
		require.NoError(t, os.WriteFile(h.path(name), []byte(content), 0o700)) //nolint:gosec
	}

	for _, name := range []string{"disk.img", "bzImage"} {
		require.NoError(t, os.WriteFile(h.path(name), nil, 0o600))
	}

	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(privKey, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(h.path("id_ed25519"), pem.EncodeToMemory(block), 0o600))

	config := fmt.Sprintf(`
[guest]
os = "linux"
arch = "amd64"
platform = "qemu"

[qemu]
cpu_num = 1
mem_size = 256
image = %q
kernel = %q
wait_boot_time = 0

[ssh]
key_path = %q
`, h.path("disk.img"), h.path("bzImage"), h.path("id_ed25519"))

	require.NoError(t, os.WriteFile(h.path("harness.toml"), []byte(config), 0o600))

	return h
}

func (h *harness) path(name string) string {
	return filepath.Join(h.dir, name)
}

func (h *harness) run(t *testing.T, extraArgs ...string) (int, string, string) {
	t.Helper()

	binary, err := os.Executable()
	require.NoError(t, err)

	args := []string{
		"guestrun",
		"-c", h.path("harness.toml"),
		"--workdir", h.dir,
		"--qemu-bin", h.path("qemu"),
		"--ssh-bin", h.path("ssh"),
		"--scp-bin", h.path("scp"),
	}
	args = append(args, extraArgs...)
	args = append(args, binary, "-test.run", "none")

	var stdout, stderr bytes.Buffer

	exitCode := Run(t.Context(), args, IO{Stdout: &stdout, Stderr: &stderr})

	return exitCode, stdout.String(), stderr.String()
}

func (h *harness) mark(t *testing.T, names ...string) {
	t.Helper()

	for _, name := range names {
		require.NoError(t, os.WriteFile(h.path(name), nil, 0o600))
	}
}

func (h *harness) reports(t *testing.T) []string {
	t.Helper()

	reports, err := filepath.Glob(filepath.Join(h.dir, "crashes", "*.log"))
	require.NoError(t, err)

	return reports
}

func TestRun(t *testing.T) {
	h := newHarness(t)

	exitCode, stdout, stderr := h.run(t, "-n", "2")
	require.Equal(t, 0, exitCode, stderr)

	assert.Contains(t, stdout, "[guest 0] hello from guest\n")
	assert.Contains(t, stdout, "[guest 1] hello from guest\n")
	assert.Empty(t, h.reports(t))
}

func TestRun_Crash(t *testing.T) {
	h := newHarness(t)
	h.mark(t, "crash")

	exitCode, stdout, stderr := h.run(t)
	require.Equal(t, 0, exitCode, stderr)

	assert.Contains(t, stdout, "[guest 0] hello from guest\n")
	assert.Contains(t, stderr, "Guest crashed")

	reports := h.reports(t)
	require.Len(t, reports, 1)

	content, err := os.ReadFile(reports[0])
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(content),
		"title: BUG: kernel NULL pointer dereference, address: 0000000000000000\n"))
}

func TestRun_CrashAfterCommand(t *testing.T) {
	tests := []struct {
		name         string
		markers      []string
		iterations   string
		expectedRuns int
	}{
		{
			name:         "while collecting",
			markers:      []string{"late_crash"},
			iterations:   "2",
			expectedRuns: 2,
		},
		{
			name:         "before next copy",
			markers:      []string{"late_crash", "wait_copy"},
			iterations:   "3",
			expectedRuns: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.mark(t, tt.markers...)

			exitCode, stdout, stderr := h.run(t, "--iterations", tt.iterations)
			require.Equal(t, 0, exitCode, stderr)

			assert.Contains(t, stderr, "Guest crashed")
			assert.Equal(t, tt.expectedRuns, strings.Count(stdout, "[guest 0] hello from guest\n"))

			reports := h.reports(t)
			require.Len(t, reports, 1)

			content, err := os.ReadFile(reports[0])
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(string(content),
				"title: BUG: kernel NULL pointer dereference, address: 0000000000000000\n"))
		})
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		var stderr bytes.Buffer

		exitCode := Run(t.Context(),
			[]string{"guestrun", "-c", filepath.Join(t.TempDir(), "missing.toml"), "prog"},
			IO{Stdout: &bytes.Buffer{}, Stderr: &stderr},
		)
		assert.Equal(t, 78, exitCode)
		assert.Contains(t, stderr.String(), "config error")
	})

	t.Run("binary not elf", func(t *testing.T) {
		h := newHarness(t)

		var stderr bytes.Buffer

		exitCode := Run(t.Context(),
			[]string{"guestrun", "-c", h.path("harness.toml"), h.path("qemu")},
			IO{Stdout: &bytes.Buffer{}, Stderr: &stderr},
		)
		assert.Equal(t, 65, exitCode)
		assert.Contains(t, stderr.String(), sys.ErrNotELFFile.Error())
	})

	t.Run("no args", func(t *testing.T) {
		var stderr bytes.Buffer

		exitCode := Run(t.Context(), []string{"guestrun"}, IO{Stdout: &bytes.Buffer{}, Stderr: &stderr})
		assert.Equal(t, 64, exitCode)
		assert.Contains(t, stderr.String(), "no binary given")
	})
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer

	exitCode := Run(t.Context(), []string{"guestrun", "--version"}, IO{Stdout: &stdout, Stderr: &bytes.Buffer{}})
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "Version: dev")
}
