// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package crash

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store persists [Report]s as files in a directory.
type Store struct {
	dir string
}

// NewStore creates a new [Store] in the given directory. The directory is
// created if it does not exist.
func NewStore(dir string) (*Store, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create crash dir: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the directory of the [Store].
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the [Report] to a file named by the report ID. The file starts
// with a header of title, kind and time followed by an empty line and the raw
// console log. It returns the path of the file.
func (s *Store) Save(report Report) (string, error) {
	path := filepath.Join(s.dir, report.ID.String()+".log")

	header := fmt.Sprintf(
		"title: %s\nkind: %s\ntime: %s\n\n",
		report.Title,
		report.Kind,
		report.Time.UTC().Format(time.RFC3339),
	)

	data := make([]byte, 0, len(header)+len(report.Log))
	data = append(data, header...)
	data = append(data, report.Log...)

	err := os.WriteFile(path, data, 0o600)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return path, nil
}
