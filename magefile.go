//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "managectl"

// Default target - build the binary
var Default = Build

// Build builds the managectl binary
func Build() error {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "unknown"
	}
	ldflags := fmt.Sprintf("-s -w -X main.version=%s -X main.commit=%s", version, commit)
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", binary, ".")
}

// Test runs the test suite with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet and, when installed, golangci-lint
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	if _, err := sh.Exec(nil, os.Stdout, os.Stderr, "golangci-lint", "run", "./..."); err != nil {
		if sh.CmdRan(err) {
			return err
		}
		fmt.Println("golangci-lint not found, skipping")
	}
	return nil
}

// Check runs Lint then Test
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Clean removes build artifacts
func Clean() error {
	return sh.Rm(binary)
}
