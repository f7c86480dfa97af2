// Package main provides CLI flag definitions for lazypanel.
package main

import (
	urfavecli "github.com/urfave/cli/v2"
)

// globalFlags returns all global flags for the application.
// Note: --version is provided automatically by urfave/cli via App.Version
func globalFlags() []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Repository to operate on (defaults to the current directory)",
			Value:   ".",
		},
		&urfavecli.StringFlag{
			Name:  "debug-log",
			Usage: "Path to debug log file",
		},
		&urfavecli.StringFlag{
			Name:  "config-file",
			Usage: "Path to configuration file",
		},
		&urfavecli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"C"},
			Usage:   "Override config values (repeatable): --config=lp.key=value",
		},
		&urfavecli.BoolFlag{
			Name:  "serve",
			Usage: "Serve the JSON-lines protocol on stdin/stdout instead of the TUI",
		},
		&urfavecli.BoolFlag{
			Name:  "no-watch",
			Usage: "Disable the filesystem watcher",
		},
	}
}
