// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"io"
	"log/slog"
)

// logLevel returns the lowest level to log. Boots and crashes are logged at
// info, probes and iterations at debug.
func (f *flags) logLevel() slog.Level {
	switch {
	case f.debug:
		return slog.LevelDebug
	case f.quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func setupLogging(writer io.Writer, level slog.Leveler) {
	slog.SetDefault(slog.New(slog.NewTextHandler(
		writer,
		&slog.HandlerOptions{
			Level: level,
		},
	)))
}
