// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aibor/guestrun/internal/crash"
	"github.com/aibor/guestrun/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_Save(t *testing.T) {
	store, err := crash.NewStore(t.TempDir())
	require.NoError(t, err)

	w := &worker{
		store:   store,
		metrics: metrics.New(),
		log:     slog.New(slog.DiscardHandler),
	}

	consoleLog := "boot\n[    3.100000] Out of memory: Killed process 1 (init)\n"
	require.NoError(t, w.save(consoleLog))

	assert.InDelta(t, 1, testutil.ToFloat64(w.metrics.Crashes.WithLabelValues("oom")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(w.metrics.Crashes.WithLabelValues("unknown")), 0)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(store.Dir(), entries[0].Name()))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(content),
		"title: Out of memory: Killed process 1 (init)\nkind: oom\n"))
	assert.True(t, strings.HasSuffix(string(content), consoleLog))
}
