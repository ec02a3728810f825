// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package crash

import (
	"bytes"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// UnknownTitle is the title of reports without any known kernel error
// message.
const UnknownTitle = "guest stopped without known error message"

const timestamp = `^(?:\[[0-9. ]+\] )?`

//nolint:gochecknoglobals
var patterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindPanic, regexp.MustCompile(timestamp + `Kernel panic - not syncing: `)},
	{KindOOM, regexp.MustCompile(timestamp + `Out of memory: `)},
	{KindBug, regexp.MustCompile(timestamp + `BUG: `)},
	{KindWarning, regexp.MustCompile(timestamp + `WARNING: `)},
	{KindGPF, regexp.MustCompile(timestamp + `general protection fault`)},
}

var timestampRE = regexp.MustCompile(timestamp)

// Report is a crash of a guest.
type Report struct {
	ID    uuid.UUID
	Time  time.Time
	Kind  Kind
	Title string
	Log   []byte
}

// NewReport creates a new [Report] for the given console log.
func NewReport(log []byte) Report {
	kind, title := Title(log)

	return Report{
		ID:    uuid.New(),
		Time:  time.Now(),
		Kind:  kind,
		Title: title,
		Log:   log,
	}
}

// Title returns the first line of the log that is a known kernel error
// message with the kernel timestamp removed.
//
// With panic_on_warn and oops=panic set, the line causing the panic precedes
// the panic message itself, so the first match is the most specific one.
func Title(log []byte) (Kind, string) {
	for line := range bytes.Lines(log) {
		line = bytes.TrimRight(line, "\r\n")

		for _, pattern := range patterns {
			if pattern.re.Match(line) {
				return pattern.kind, string(timestampRE.ReplaceAll(line, nil))
			}
		}
	}

	return KindUnknown, UnknownTitle
}
