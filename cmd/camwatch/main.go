/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carverauto/camwatch/pkg/config"
	"github.com/carverauto/camwatch/pkg/credstore"
	"github.com/carverauto/camwatch/pkg/discovery"
	"github.com/carverauto/camwatch/pkg/hikapi"
	"github.com/carverauto/camwatch/pkg/history"
	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
	"github.com/carverauto/camwatch/pkg/monitor"
	"github.com/carverauto/camwatch/pkg/probe"
	"github.com/carverauto/camwatch/pkg/registry"
	"github.com/carverauto/camwatch/pkg/roster"
	"github.com/carverauto/camwatch/pkg/tui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/camwatch/camwatch.json", "Path to camwatch config file")
	headless := flag.Bool("headless", false, "Run fleet checks without the terminal UI")
	once := flag.Bool("once", false, "Run a single fleet check, write results back, and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadMonitorConfig(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.New(logConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	repo := roster.NewXLSXRepository(cfg.RosterPath, appLogger)

	devices, err := repo.Load()
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	reg := registry.NewRoster(appLogger)
	reg.Load(devices)

	creds := credstore.New(credstore.SystemKeyring(), cfg.CredsPath, appLogger)
	hist := history.NewFileRepository(cfg.HistoryPath, appLogger)

	svc := monitor.New(reg, newOrchestrator(cfg, appLogger), creds, hist, cfg, appLogger)

	if *once {
		svc.CheckFleet(ctx)
		return repo.WriteBack(reg.Snapshot())
	}

	if *headless {
		return runHeadless(ctx, svc, reg, repo, appLogger)
	}

	return runTUI(ctx, svc, reg, repo)
}

func newOrchestrator(cfg *models.MonitorConfig, appLogger logger.Logger) *discovery.Orchestrator {
	httpTimeout := cfg.Cascade.HTTPTimeout.AsDuration(2 * time.Second)

	client := hikapi.NewClient(httpTimeout, appLogger)
	if len(cfg.ModelEndpoints) > 0 {
		client.SetModelEndpoints(cfg.ModelEndpoints)
	}

	return discovery.NewOrchestrator(
		probe.NewSADP(appLogger),
		client,
		probe.NewTCPProber(cfg.Cascade.TCPTimeout.AsDuration(time.Second), appLogger),
		probe.NewPinger(cfg.Cascade.PingTimeout.AsDuration(2*time.Second), appLogger),
		cfg.Cascade,
		cfg.ScanBudget,
		appLogger,
	)
}

// runHeadless drives the monitor's interval loop and writes status back to
// the workbook after each pass. The update stream has no consumer here, so
// it is drained to keep the monitor's non-blocking sends cheap.
func runHeadless(ctx context.Context, svc *monitor.Service, reg *registry.Roster, repo roster.Repository, appLogger logger.Logger) error {
	go func() {
		for range svc.Updates() {
		}
	}()

	err := svc.Run(ctx, func(models.CheckRun) {
		if err := repo.WriteBack(reg.Snapshot()); err != nil {
			appLogger.Warn().Err(err).Msg("workbook write-back failed")
		}
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}

// runTUI renders the fleet table while the monitor's interval loop runs
// beside it; the loop's reconciliations reach the display through the
// update channel.
func runTUI(ctx context.Context, svc *monitor.Service, reg *registry.Roster, repo roster.Repository) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		_ = svc.Run(runCtx, nil)
	}()

	program := tea.NewProgram(tui.New(ctx, svc, reg), tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	return repo.WriteBack(reg.Snapshot())
}

func logConfig(cfg *models.MonitorConfig) *logger.Config {
	if cfg.Logging == nil {
		return nil
	}

	return &logger.Config{
		Level:  cfg.Logging.Level,
		Debug:  cfg.Logging.Debug,
		Output: cfg.Logging.Output,
	}
}
