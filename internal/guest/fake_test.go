// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aibor/guestrun/internal/config"
	"github.com/aibor/guestrun/internal/guest"
	"github.com/stretchr/testify/require"
)

const (
	fakeQemu = `#!/bin/sh
printf '%%s\n' "$@" > '%[1]s/qemu.args'
echo $$ >> '%[1]s/qemu.pids'
echo "early boot message"
echo "boot error message" >&2
while [ ! -e '%[1]s/trigger' ]; do sleep 0.02; done
echo "[    1.000000] Kernel panic - not syncing: fake panic"
kill -9 $$
`

	fakeSSH = `#!/bin/sh
printf '%%s\n' "$*" >> '%[1]s/ssh.log'
[ -e '%[1]s/hang' ] && exec sleep 5
[ -e '%[1]s/alive' ] || exit 255
echo "$*"
`

	fakeSCP = `#!/bin/sh
printf '%%s\n' "$*" >> '%[1]s/scp.log'
if [ -e '%[1]s/scp_fail' ]; then
	echo "scp: ~/: Permission denied" >&2
	exit 1
fi
`
)

// fakeEnv provides fake qemu, ssh and scp executables that record their
// invocations and are controlled by marker files.
type fakeEnv struct {
	dir string
}

func newFakeEnv(t *testing.T) *fakeEnv {
	t.Helper()

	env := &fakeEnv{dir: t.TempDir()}

	for name, script := range map[string]string{
		"qemu": fakeQemu,
		"ssh":  fakeSSH,
		"scp":  fakeSCP,
	} {
		content := fmt.Sprintf(script, env.dir)
		err := os.WriteFile(env.path(name), []byte(content), 0o700) //nolint:gosec
		require.NoError(t, err)
	}

	return env
}

func (e *fakeEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

func (e *fakeEnv) mark(t *testing.T, name string) {
	t.Helper()

	require.NoError(t, os.WriteFile(e.path(name), nil, 0o600))
}

func (e *fakeEnv) lines(t *testing.T, name string) []string {
	t.Helper()

	data, err := os.ReadFile(e.path(name))
	if os.IsNotExist(err) {
		return nil
	}

	require.NoError(t, err)

	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func (e *fakeEnv) pids(t *testing.T) []int {
	t.Helper()

	var pids []int

	for _, line := range e.lines(t, "qemu.pids") {
		pid, err := strconv.Atoi(line)
		require.NoError(t, err)

		pids = append(pids, pid)
	}

	return pids
}

func (e *fakeEnv) options(diagnostics io.Writer) guest.Options {
	return guest.Options{
		QemuBinary:   e.path("qemu"),
		SSHBinary:    e.path("ssh"),
		SCPBinary:    e.path("scp"),
		WaitBootTime: 50 * time.Millisecond,
		ProbeTimeout: 2 * time.Second,
		Diagnostics:  diagnostics,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Guest: config.Guest{
			OS:       "linux",
			Arch:     "amd64",
			Platform: "qemu",
		},
		Qemu: &config.Qemu{
			CPUNum:  2,
			MemSize: 1024,
			Image:   "disk.img",
			Kernel:  "bzImage",
		},
		SSH: &config.SSH{
			KeyPath: "/id_rsa",
		},
	}
}

func newTestGuest(t *testing.T, opts guest.Options) *guest.LinuxQemu {
	t.Helper()

	g, err := guest.NewLinuxQemu(testConfig(), opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, g.Close())
	})

	return g
}
