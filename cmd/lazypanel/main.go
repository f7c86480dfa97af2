// Package main is the entry point for the lazypanel application.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	urfavecli "github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/chmouel/lazypanel/internal/buildinfo"
	"github.com/chmouel/lazypanel/internal/config"
	"github.com/chmouel/lazypanel/internal/generate"
	"github.com/chmouel/lazypanel/internal/git"
	"github.com/chmouel/lazypanel/internal/log"
	"github.com/chmouel/lazypanel/internal/panel"
	"github.com/chmouel/lazypanel/internal/tui"
	"github.com/chmouel/lazypanel/internal/watcher"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	buildinfo.Set(version, commit)
	buildinfo.Enrich()

	cliApp := &urfavecli.App{
		Name:                 "lazypanel",
		Usage:                "A TUI panel for staging, committing and branch work in a git repository",
		Version:              buildinfo.Version(),
		EnableBashCompletion: true,

		Flags: globalFlags(),

		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(c *urfavecli.Context) error {
	// Set up debug logging before loading config
	if debugLog := c.String("debug-log"); debugLog != "" {
		if err := log.SetFile(debugLog); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening debug log file %q: %v\n", debugLog, err)
		}
	}

	cfg, err := config.LoadConfig(c.String("config-file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	// If debug log wasn't set via flag, check if it's in the config
	if c.String("debug-log") == "" {
		if err := log.SetFile(cfg.DebugLog); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening debug log file from config %q: %v\n", cfg.DebugLog, err)
		}
	}

	// Apply CLI config overrides (highest precedence)
	if overrides := c.StringSlice("config"); len(overrides) > 0 {
		if err := config.ApplyOverrides(cfg, overrides); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying config overrides: %v\n", err)
			_ = log.Close()
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service := git.NewService(c.String("repo"))
	root, err := service.Root(ctx)
	if err != nil {
		_ = log.Close()
		return fmt.Errorf("not a git repository: %w", err)
	}
	service = git.NewService(root)

	opts := panel.Options{
		StaleWindow:    cfg.StaleWindow(),
		QuietPeriod:    cfg.QuietPeriod(),
		CommitsInitial: cfg.CommitsInitial,
		CommitsMax:     cfg.CommitsMax,
	}
	generator := selectGenerator(ctx, cfg)

	if c.Bool("serve") {
		err = runServe(ctx, service, generator, opts, cfg, c.Bool("no-watch"))
	} else {
		err = runTUI(ctx, service, generator, opts, cfg, c.Bool("no-watch"))
	}

	if closeErr := log.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing debug log: %v\n", closeErr)
	}
	return err
}

// runTUI serves a Bubble Tea surface over an in-memory transport pair.
func runTUI(ctx context.Context, service *git.Service, generator panel.Generator,
	opts panel.Options, cfg *config.AppConfig, noWatch bool,
) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal; use --serve for the line protocol")
	}

	host, surface := panel.NewPair(64)
	p := panel.New(service, generator, host, opts)

	stopWatcher, err := startWatcher(ctx, service, p, cfg, noWatch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Watcher disabled: %v\n", err)
	}
	defer stopWatcher()

	go p.Run(ctx)

	program := tea.NewProgram(tui.NewModel(surface), tea.WithAltScreen())
	_, err = program.Run()
	host.Close()
	return err
}

// runServe speaks the JSON-lines protocol on stdin/stdout so another
// process can host the surface.
func runServe(ctx context.Context, service *git.Service, generator panel.Generator,
	opts panel.Options, cfg *config.AppConfig, noWatch bool,
) error {
	wire := panel.NewWireTransport(os.Stdin, os.Stdout)
	p := panel.New(service, generator, wire, opts)

	stopWatcher, err := startWatcher(ctx, service, p, cfg, noWatch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Watcher disabled: %v\n", err)
	}
	defer stopWatcher()

	p.Run(ctx)
	return nil
}

func startWatcher(ctx context.Context, service *git.Service, p *panel.Panel,
	cfg *config.AppConfig, noWatch bool,
) (stop func(), err error) {
	stop = func() {}
	if noWatch || !cfg.AutoRefresh {
		return stop, nil
	}

	root, err := service.Root(ctx)
	if err != nil {
		return stop, err
	}
	gitDir, err := service.GitDir(ctx)
	if err != nil {
		return stop, err
	}

	w := watcher.New(root, gitDir, p.FileChanged)
	if err := w.Start(); err != nil {
		return stop, err
	}
	return w.Stop, nil
}

// selectGenerator picks the message-generation backend per configuration.
// "auto" prefers the Gemini API when a key is present and falls back to the
// local CLI when the binary is on PATH.
func selectGenerator(ctx context.Context, cfg *config.AppConfig) panel.Generator {
	switch cfg.Generator {
	case config.GeneratorOff:
		return nil
	case config.GeneratorGemini:
		return geminiGenerator(ctx, cfg)
	case config.GeneratorCLI:
		return generate.NewCLI(cfg.ClaudePath)
	}

	if gen := geminiGenerator(ctx, cfg); gen != nil {
		return gen
	}
	if _, err := generate.LookupPath(cfg.ClaudePath); err == nil {
		return generate.NewCLI(cfg.ClaudePath)
	}
	return nil
}

func geminiGenerator(ctx context.Context, cfg *config.AppConfig) panel.Generator {
	gen, err := generate.NewGemini(ctx, os.Getenv(cfg.APIKeyEnv), cfg.GeminiModel)
	if err != nil {
		log.Printf("gemini generator unavailable: %v", err)
		return nil
	}
	return gen
}
