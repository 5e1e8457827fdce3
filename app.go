// Package main is the entry point for the maxbuild application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/account"
	"github.com/mmo-fsw/maxbuild/service/archive"
	"github.com/mmo-fsw/maxbuild/service/config"
	"github.com/mmo-fsw/maxbuild/service/flag"
	"github.com/mmo-fsw/maxbuild/service/install"
	"github.com/mmo-fsw/maxbuild/service/metrics"
	"github.com/mmo-fsw/maxbuild/service/orchestrator"
	"github.com/mmo-fsw/maxbuild/service/output"
	"github.com/mmo-fsw/maxbuild/service/runner"
	"github.com/mmo-fsw/maxbuild/service/stamp"
	"github.com/mmo-fsw/maxbuild/service/storage"
	"github.com/mmo-fsw/maxbuild/service/systemd"
	"github.com/mmo-fsw/maxbuild/service/toolchain"
	"github.com/mmo-fsw/maxbuild/shared/banner"
	"github.com/mmo-fsw/maxbuild/shared/logger"
	"github.com/mmo-fsw/maxbuild/shared/spinner"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "db", "history", "publish", "config":
			return runSubcommand(ctx, os.Args[1], os.Args[2:])
		}
	}

	flagService := flag.NewService()
	flags, err := flagService.GetParsedFlags()
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	versionInfo := model.VersionInfo{Version: version, Commit: commit, Date: date}
	if flags.Version {
		fmt.Printf("maxbuild %s (commit %s, built %s)\n", versionInfo.Version, versionInfo.Commit, versionInfo.Date)
		return nil
	}

	log, err := logger.New(flags.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	configService := config.NewService()
	project, err := configService.Load(flags)
	if err != nil {
		return err
	}
	progs, err := configService.Select(project, flags.Programs)
	if err != nil {
		return err
	}

	if flags.Output != "json" && spinner.Enabled() {
		banner.DrawBannerTitle(versionInfo, project.Build.Arch)
	}

	var storageService storage.Service
	if flags.Store {
		storageService, err = storage.NewService(flags.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer storageService.Close()
	}

	orchestratorService := newOrchestrator(flags, versionInfo, storageService, log)
	return orchestratorService.Orchestrate(ctx, project, progs, flags)
}

// newOrchestrator wires the services every target needs.
func newOrchestrator(flags model.Flags, versionInfo model.VersionInfo, storageService storage.Service, log *zap.Logger) orchestrator.Service {
	runnerService := runner.NewService(log)
	archiveService := archive.NewService()
	installService := install.NewService(
		archiveService,
		account.NewService(runnerService),
		systemd.NewService(runnerService),
		runnerService,
		log,
	)

	return orchestrator.NewService(
		toolchain.NewService(runnerService, log),
		stamp.NewService(runnerService),
		archiveService,
		installService,
		output.NewService(flags.Output),
		metrics.NewService(),
		storageService,
		versionInfo,
		log,
	)
}
