// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"strconv"

	"github.com/aibor/guestrun/internal/cmdline"
)

// UserNetHostAddr is the address of the host in the user mode network of the
// guest.
const UserNetHostAddr = "10.0.2.10"

// GuestSSHPort is the port the ssh daemon of the guest listens on.
const GuestSSHPort = 22

// Machine describes the machine a guest runs on.
type Machine struct {
	CPUNum  uint32
	MemSize uint32
	Image   string
	Kernel  string
}

// Validate checks that all fields are set.
func (m Machine) Validate() error {
	switch {
	case m.CPUNum == 0, m.MemSize == 0:
		return ErrZeroResource
	case m.Image == "":
		return ErrEmptyImage
	case m.Kernel == "":
		return ErrEmptyKernel
	default:
		return nil
	}
}

// Command extends the template by the [Machine] and the user mode network
// that forwards the given host port to the guest's ssh port.
//
// The template is not modified.
func Command(template cmdline.Command, machine Machine, hostPort uint16) cmdline.Command {
	hostFwd := "hostfwd=tcp::" + strconv.Itoa(int(hostPort)) + "-:" + strconv.Itoa(GuestSSHPort)

	return template.With(
		cmdline.UniqueOpt("-m", cmdline.Single(strconv.FormatUint(uint64(machine.MemSize), 10))),
		cmdline.UniqueOpt("-smp", cmdline.Single(strconv.FormatUint(uint64(machine.CPUNum), 10))),
		cmdline.RepeatableOpt("-net", cmdline.Multiple(",", "user", "host="+UserNetHostAddr, hostFwd)),
		cmdline.UniqueOpt("-hda", cmdline.Single(machine.Image)),
		cmdline.UniqueOpt("-kernel", cmdline.Single(machine.Kernel)),
	)
}
