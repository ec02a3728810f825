// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"

	"github.com/aibor/guestrun/internal/cmdline"
)

// LinuxAMD64KernelArgs are the kernel command line arguments for linux/amd64
// guests. Any oops, warning or watchdog event panics the kernel, the panic is
// printed to the serial console and the machine halts.
//
//nolint:gochecknoglobals
var LinuxAMD64KernelArgs = []string{
	"earlyprintk=serial",
	"oops=panic",
	"nmi_watchdog=panic",
	"panic_on_warn=1",
	"panic=1",
	"ftrace_dump_on_oops=orig_cpu",
	"rodata=n",
	"vsyscall=native",
	"net.ifnames=0",
	"biosdevname=0",
	"root=/dev/sda",
	"console=ttyS0",
	"kvm-intel.nested=1",
	"kvm-intel.unrestricted_guest=1",
	"kvm-intel.vmm_exclusive=1",
	"kvm-intel.fasteoi=1",
	"kvm-intel.ept=1",
	"kvm-intel.flexpriority=1",
	"kvm-intel.vpid=1",
	"kvm-intel.emulate_invalid_guest_state=1",
	"kvm-intel.eptad=1",
	"kvm-intel.enable_shadow_vmcs=1",
	"kvm-intel.pml=1",
	"kvm-intel.enable_apicv=1",
}

//nolint:gochecknoglobals
var templates = map[string]cmdline.Command{
	"linux/amd64": cmdline.New("qemu-system-x86_64",
		cmdline.Flag("-enable-kvm"),
		cmdline.Flag("-no-reboot"),
		cmdline.UniqueOpt("-display", cmdline.Single("none")),
		cmdline.UniqueOpt("-serial", cmdline.Single("stdio")),
		cmdline.Flag("-snapshot"),
		cmdline.UniqueOpt("-cpu", cmdline.Multiple(",", "host", "migratable=off")),
		cmdline.RepeatableOpt("-net", cmdline.Multiple(",", "nic", "model=e1000")),
		cmdline.UniqueOpt("-append", cmdline.Multiple(" ", LinuxAMD64KernelArgs...)),
	),
}

// Template returns the command template for the given target. The returned
// [cmdline.Command] is a copy and can be extended freely.
func Template(system, arch string) (cmdline.Command, error) {
	target := system + "/" + arch

	template, exists := templates[target]
	if !exists {
		return cmdline.Command{}, fmt.Errorf("%w: %s", ErrTargetNotSupported, target)
	}

	return template.With(), nil
}
