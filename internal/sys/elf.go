// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"debug/elf"
	"errors"
	"fmt"
)

// ELFInfo describes the attributes of an ELF executable that matter for
// running it on a guest.
type ELFInfo struct {
	Arch Arch

	// Interpreter is the dynamic loader requested by the executable. It is
	// empty for statically linked executables.
	Interpreter string
}

// IsStatic returns if the executable does not need a dynamic loader.
func (i ELFInfo) IsStatic() bool {
	return i.Interpreter == ""
}

// ReadELF reads the [ELFInfo] of the ELF file at the given path.
func ReadELF(path string) (ELFInfo, error) {
	file, err := elf.Open(path)
	if err != nil {
		var formatErr *elf.FormatError
		if errors.As(err, &formatErr) {
			return ELFInfo{}, fmt.Errorf("%w: %s", ErrNotELFFile, path)
		}

		return ELFInfo{}, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	arch, err := machineArch(file.FileHeader)
	if err != nil {
		return ELFInfo{}, err
	}

	info := ELFInfo{Arch: arch}

	for _, prog := range file.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}

		// The interpreter path is NUL terminated.
		buf := make([]byte, prog.Filesz)

		_, err := prog.ReadAt(buf, 0)
		if err != nil {
			return ELFInfo{}, fmt.Errorf("read interpreter: %w", err)
		}

		for len(buf) > 0 && buf[len(buf)-1] == 0 {
			buf = buf[:len(buf)-1]
		}

		info.Interpreter = string(buf)
	}

	return info, nil
}

// ValidateELF validates that the ELF file at the given path is an executable
// for the given architecture.
func ValidateELF(path string, arch Arch) (ELFInfo, error) {
	info, err := ReadELF(path)
	if err != nil {
		return ELFInfo{}, err
	}

	if info.Arch != arch {
		return info, fmt.Errorf(
			"%w: %s on %s",
			ErrMachineNotSupported,
			info.Arch,
			arch,
		)
	}

	return info, nil
}

func machineArch(hdr elf.FileHeader) (Arch, error) {
	switch hdr.OSABI {
	case elf.ELFOSABI_NONE, elf.ELFOSABI_LINUX:
		// supported, pass
	default:
		return "", fmt.Errorf("%w: %s", ErrOSABINotSupported, hdr.OSABI)
	}

	switch hdr.Machine {
	case elf.EM_X86_64:
		return AMD64, nil
	case elf.EM_AARCH64:
		return ARM64, nil
	case elf.EM_RISCV:
		return RISCV64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrMachineNotSupported, hdr.Machine)
	}
}
