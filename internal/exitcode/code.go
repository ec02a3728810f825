// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode

// Code is a process exit status category. Values follow sysexits(3), so
// external monitors can branch on them.
type Code int

const (
	// Usage indicates invalid command line arguments.
	Usage Code = 64
	// DataErr indicates unexpected content, like a guest that never became
	// reachable or a malformed binary path.
	DataErr Code = 65
	// Software indicates an internal failure, like a failed remote copy.
	Software Code = 70
	// OSErr indicates a broken host environment, like a failed spawn or kill.
	OSErr Code = 71
	// TempFail indicates a temporarily unavailable resource, like no free
	// port to forward.
	TempFail Code = 75
	// Config indicates an invalid configuration.
	Config Code = 78
)

// String implements [fmt.Stringer].
func (c Code) String() string {
	switch c {
	case Usage:
		return "usage error"
	case DataErr:
		return "data error"
	case Software:
		return "software error"
	case OSErr:
		return "os error"
	case TempFail:
		return "temporary failure"
	case Config:
		return "config error"
	default:
		return "unknown"
	}
}
