// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu provides the QEMU command lines guests are booted with.
//
// Each supported target has a fixed template. Per run, the template is
// extended by the machine resources, the user mode network with a forward of
// a host port to the guest's ssh port and the disk image and kernel to boot.
package qemu
