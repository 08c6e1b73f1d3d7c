// Package main provides the avrix CLI: plugin and version management for
// an Avrix launcher installation.
package main

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
)

var version = "dev"

func main() {
	if err := newRootCmd(defaultRoot()).Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// defaultRoot is the directory of the executable. It is the only place the
// process location is consulted; everything else receives the root explicitly.
func defaultRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
