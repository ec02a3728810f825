// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package crash

// Kind is the kind of kernel error message a report title is taken from.
type Kind int

// Known kinds.
const (
	KindUnknown Kind = iota
	KindPanic
	KindOOM
	KindBug
	KindWarning
	KindGPF
)

func (k Kind) String() string {
	switch k {
	case KindPanic:
		return "panic"
	case KindOOM:
		return "oom"
	case KindBug:
		return "bug"
	case KindWarning:
		return "warning"
	case KindGPF:
		return "gpf"
	default:
		return "unknown"
	}
}
