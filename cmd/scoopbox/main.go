package main

import (
	"fmt"
	"os"

	"scoopbox/internal/cache"
	"scoopbox/internal/config"
	"scoopbox/internal/logging"
	"scoopbox/internal/manager"
	"scoopbox/internal/progress"
	"scoopbox/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	shell, err := manager.ParseShell(cfg.Shell)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	policy, err := manager.ParsePolicy(cfg.BatchPolicy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewOrNop(logging.Config{Level: cfg.LogLevel, OutputPaths: []string{cfg.LogFile}})
	defer func() { _ = logger.Sync() }()

	if !manager.OnPath(cfg.Tool) {
		logger.Warn("tool not found on PATH; operations will report it", zap.String("tool", cfg.Tool))
	}

	store := cache.Open(afero.NewOsFs(), cfg.CacheDir, logger)
	runner := manager.NewShellRunner(shell, cfg.Tool, logger)
	mgr := manager.New(runner, store, manager.Options{
		Tool:           cfg.Tool,
		DefaultBuckets: cfg.DefaultBuckets,
		Policy:         policy,
		Logger:         logger,
	})

	events := progress.NewChannel(256)
	m := tui.NewModel(mgr, cfg, store, events)
	p := tea.NewProgram(m, tea.WithAltScreen())

	logger.Info("starting", zap.String("tool", cfg.Tool), zap.String("shell", shell.String()), zap.String("policy", policy.String()), zap.String("cache", store.Dir()))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
