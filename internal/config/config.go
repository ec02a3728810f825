// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aibor/guestrun/internal/qemu"
	"golang.org/x/crypto/ssh"
)

// DefaultWaitBootTime is the time to wait for a guest to boot if
// [Qemu.WaitBootTime] is not set.
const DefaultWaitBootTime uint8 = 5

// Config is the harness configuration.
type Config struct {
	Guest Guest `toml:"guest"`
	Qemu  *Qemu `toml:"qemu"`
	SSH   *SSH  `toml:"ssh"`
}

// Guest selects the kernel, the architecture and the platform to run it on.
type Guest struct {
	OS       string `toml:"os"`
	Arch     string `toml:"arch"`
	Platform string `toml:"platform"`
}

// Kind returns the "os/arch/platform" notation of the [Guest]. The platform
// is trimmed of surrounding whitespace.
func (g Guest) Kind() string {
	return g.OS + "/" + g.Arch + "/" + strings.TrimSpace(g.Platform)
}

// Qemu configures guests running on QEMU.
type Qemu struct {
	CPUNum  uint32 `toml:"cpu_num"`
	MemSize uint32 `toml:"mem_size"`
	Image   string `toml:"image"`
	Kernel  string `toml:"kernel"`

	// WaitBootTime is the number of seconds to wait before each liveness
	// probe while booting. Defaults to [DefaultWaitBootTime].
	WaitBootTime *uint8 `toml:"wait_boot_time"`
}

// BootWait returns the [Qemu.WaitBootTime] as [time.Duration].
func (q *Qemu) BootWait() time.Duration {
	secs := DefaultWaitBootTime
	if q.WaitBootTime != nil {
		secs = *q.WaitBootTime
	}

	return time.Duration(secs) * time.Second
}

// Machine returns the [qemu.Machine] described by the [Qemu] segment.
func (q *Qemu) Machine() qemu.Machine {
	return qemu.Machine{
		CPUNum:  q.CPUNum,
		MemSize: q.MemSize,
		Image:   q.Image,
		Kernel:  q.Kernel,
	}
}

// SSH configures access to guests.
type SSH struct {
	KeyPath string `toml:"key_path"`
}

// ValidateKey checks that [SSH.KeyPath] is a private key that can be used
// without interaction.
func (s *SSH) ValidateKey() error {
	if s.KeyPath == "" {
		return ErrEmptyKeyPath
	}

	data, err := os.ReadFile(s.KeyPath)
	if err != nil {
		return fmt.Errorf("read ssh key: %w", err)
	}

	_, err = ssh.ParsePrivateKey(data)
	if err != nil {
		var passErr *ssh.PassphraseMissingError
		if errors.As(err, &passErr) {
			return fmt.Errorf("%w: %s", ErrKeyEncrypted, s.KeyPath)
		}

		return fmt.Errorf("parse ssh key %s: %w", s.KeyPath, err)
	}

	return nil
}

// Load reads and parses the configuration file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse parses the given TOML data. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}

	return &cfg, nil
}

// RequireQemu returns the [Qemu] segment or [ErrMissingSegment] if it is not
// present.
func (c *Config) RequireQemu() (*Qemu, error) {
	if c.Qemu == nil {
		return nil, fmt.Errorf("%w: qemu", ErrMissingSegment)
	}

	return c.Qemu, nil
}

// RequireSSH returns the [SSH] segment or [ErrMissingSegment] if it is not
// present.
func (c *Config) RequireSSH() (*SSH, error) {
	if c.SSH == nil {
		return nil, fmt.Errorf("%w: ssh", ErrMissingSegment)
	}

	return c.SSH, nil
}
