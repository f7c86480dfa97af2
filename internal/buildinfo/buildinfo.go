// Package buildinfo centralises build metadata for the lazypanel binary.
// The linker injects values into cmd/lazypanel/main.go; main() calls Set()
// to forward them here so every other package can query them.
package buildinfo

import "runtime/debug"

var (
	version = "dev"
	commit  = "none"
)

// Set stores the build metadata received from linker-injected variables.
func Set(v, c string) {
	version = v
	commit = c
}

// Version returns the build version string.
func Version() string { return version }

// Commit returns the build commit hash.
func Commit() string { return commit }

// Enrich fills a missing commit hash from runtime/debug.ReadBuildInfo().
func Enrich() {
	if commit != "none" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			commit = setting.Value
		}
	}
}
