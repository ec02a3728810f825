// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

var env map[string]string

func init() {
	env = make(map[string]string)

	gobin, exists := os.LookupEnv("GOBIN")
	if !exists {
		gobin = "./gobin"
	}

	if gobin != "" {
		p, err := filepath.Abs(gobin)
		if err == nil {
			gobin = p
		}
	}

	env["GOBIN"] = gobin
}

// Install guestrun to gobin directory if sources changed.
func Install() error {
	path := filepath.Join(env["GOBIN"], "guestrun")

	mod, err := target.Dir(path, "cmd", "internal", "go.mod")
	if err != nil {
		return err
	}

	if !mod {
		return nil
	}

	return sh.RunWithV(env, "go", "install", "./cmd/guestrun")
}

// Test runs all tests with race detector and coverage.
func Test() error {
	return sh.RunWithV(env, "go", "test",
		"-race",
		"-timeout", "5m",
		"-cover",
		"-coverprofile", "/tmp/guestrun-cover.out",
		"./...",
	)
}

// Run boots guests with the given config and runs the binary in them.
func Run(config, binary string) error {
	mg.Deps(Install)

	return sh.RunV(filepath.Join(env["GOBIN"], "guestrun"), "-c", config, binary)
}

// Remove volatile files.
func Clean() error {
	return sh.Rm(env["GOBIN"])
}
