package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erichter2018/MosaicTools-sub001/pkg/autofix"
	"github.com/erichter2018/MosaicTools-sub001/pkg/automation"
	"github.com/erichter2018/MosaicTools-sub001/pkg/config"
	"github.com/erichter2018/MosaicTools-sub001/pkg/engine"
	"github.com/erichter2018/MosaicTools-sub001/pkg/logging"
	"github.com/erichter2018/MosaicTools-sub001/pkg/macros"
	"github.com/erichter2018/MosaicTools-sub001/pkg/scrape"
)

// newStartCmd creates the "mosaicd start" subcommand. It runs the daemon in
// the foreground; use a service manager or shell job control to background it.
func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the reconciliation daemon",
		Long:  "Starts the daemon in the foreground: binds the control socket, begins\npolling the reporting application, and serves subscribers until SIGTERM.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			if err := paths.EnsureHome(); err != nil {
				return err
			}
			return runDaemon(cmd, paths)
		},
	}
}

func runDaemon(cmd *cobra.Command, paths *Paths) error {
	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		return err
	}

	log := logging.New(paths.LogPath, cfg.Debug)
	defer func() { _ = log.Sync() }()

	db, err := openDB(paths.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if len(cfg.ScraperCommand) == 0 {
		return fmt.Errorf("no scraper command configured in %s", paths.ConfigPath)
	}
	scraper, err := scrape.NewCLIScraper(ExecRunner{}, cfg.ScraperCommand)
	if err != nil {
		return err
	}

	auto := automation.NewCLIAutomator(cfg.Automation)
	pasteLock := &automation.PasteLock{}

	macroSet, err := macros.Load(paths.MacrosPath)
	if err != nil {
		return err
	}
	inserter := macros.NewInserter(macroSet, auto, pasteLock, log)

	fixer, err := autofix.NewFixer(cfg.Substitutions)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		Config:     cfg,
		SocketPath: paths.SocketPath,
		LegacyPath: paths.LegacyPath,
		DB:         db,
		Scraper:    scraper,
		Automator:  auto,
		PasteLock:  pasteLock,
		Macros:     inserter,
		Fixer:      fixer,
		Log:        log,
	})

	pid := os.Getpid()
	if err := WritePIDFile(paths.PIDPath, pid); err != nil {
		return err
	}

	ctx, cleanup := SetupSignalHandler(cmd.Context(), paths.PIDPath)
	defer cleanup()

	// Hot reload: config and macros re-apply on file change without restart.
	go config.Watch(ctx, paths.ConfigPath, log, func() {
		reloaded, err := config.Load(paths.ConfigPath)
		if err != nil {
			log.Warn("config reload failed", zap.Error(err))
			return
		}
		eng.ApplyConfig(reloaded)
	})
	go config.Watch(ctx, paths.MacrosPath, log, func() {
		set, err := macros.Load(paths.MacrosPath)
		if err != nil {
			log.Warn("macros reload failed", zap.Error(err))
			return
		}
		inserter.Replace(set)
		log.Info("macros reloaded", zap.Int("count", len(set.Macros)))
	})

	fmt.Fprintf(cmd.OutOrStdout(), "mosaicd running (PID %d), socket %s\n", pid, paths.SocketPath)
	log.Info("daemon starting",
		zap.Int("pid", pid),
		zap.String("socket", paths.SocketPath),
		zap.String("db", paths.DBPath))

	return eng.Run(ctx)
}
