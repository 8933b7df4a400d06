//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the pathtree project using Mage.
//
// Usage:
//
//	mage build        Compile the pathtree binary to bin/
//	mage test:all     Run every test
//	mage test:unit    Run tests without the slower on-disk backend suites
//	mage test:race    Run every test with the race detector
//	mage test:cover   Write coverage to bin/coverage.out and print a summary
//	mage lint         Run golangci-lint
//	mage clean        Remove build artifacts
//	mage install      Install pathtree to GOPATH/bin
//	mage stats        Print Go line counts per package as JSON
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "pathtree"
	binaryDir  = "bin"
	cmdDir     = "./cmd/pathtree"
)

// Build compiles the pathtree binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
