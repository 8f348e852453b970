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

// Package monitor drives fleet-wide liveness checks: a bounded worker pool
// fans the discovery cascade out over the roster, results funnel back
// through one channel, and a single apply loop folds them into the roster
// so mutation stays on one goroutine. A monotonically increasing check
// generation acts as a cooperative cancellation token: in-flight results
// from a stale generation are discarded on arrival, never applied.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/camwatch/pkg/credstore"
	"github.com/carverauto/camwatch/pkg/history"
	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
	"github.com/carverauto/camwatch/pkg/registry"
)

const (
	defaultUpdateBuffer   = 256
	workChannelMultiplier = 2
)

// Checker is the discovery surface the monitor drives. Implemented by
// discovery.Orchestrator.
type Checker interface {
	CheckDevice(ctx context.Context, ip string, creds []models.Credential) models.Verdict
	FetchNVRCameras(ctx context.Context, nvrIP string, creds []models.Credential) ([]models.CameraRecord, string, error)
}

// Update notifies the UI layer of one applied roster change.
type Update struct {
	Record     models.DeviceRecord
	Drifted    bool
	Generation uint64
}

// Service owns the application state the checks operate on. Dependencies
// are injected at construction; nothing here is ambient.
type Service struct {
	roster  *registry.Roster
	checker Checker
	creds   credstore.Store
	history history.Repository
	cfg     *models.MonitorConfig
	logger  logger.Logger

	generation atomic.Uint64
	updates    chan Update
}

func New(
	roster *registry.Roster,
	checker Checker,
	creds credstore.Store,
	hist history.Repository,
	cfg *models.MonitorConfig,
	log logger.Logger,
) *Service {
	return &Service{
		roster:  roster,
		checker: checker,
		creds:   creds,
		history: hist,
		cfg:     cfg,
		logger:  log,
		updates: make(chan Update, defaultUpdateBuffer),
	}
}

// Updates is the stream the UI layer drains. Sends never block; when the
// consumer lags, intermediate updates are dropped and the next snapshot
// catches the display up.
func (s *Service) Updates() <-chan Update {
	return s.updates
}

// Generation returns the current check generation.
func (s *Service) Generation() uint64 {
	return s.generation.Load()
}

// CancelChecks advances the generation, turning every in-flight check
// stale. Workers are not interrupted; their results are discarded on
// arrival.
func (s *Service) CancelChecks() uint64 {
	gen := s.generation.Add(1)
	s.logger.Debug().Uint64("generation", gen).Msg("check generation advanced")

	return gen
}

// Run performs fleet checks on the configured interval until ctx ends.
// onPass, when non-nil, runs after each completed pass; callers hang
// persistence or display refresh off it.
func (s *Service) Run(ctx context.Context, onPass func(models.CheckRun)) error {
	interval := s.cfg.Interval.AsDuration(5 * time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("monitor started")

	// One pass up front so the display is not empty for a full interval.
	run := s.CheckFleet(ctx)
	if onPass != nil {
		onPass(run)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run = s.CheckFleet(ctx)
			if onPass != nil {
				onPass(run)
			}
		}
	}
}

// CheckFleet runs the discovery cascade over every roster record using the
// fleet-sized worker pool and records a history entry for the run.
func (s *Service) CheckFleet(ctx context.Context) models.CheckRun {
	gen := s.generation.Add(1)
	targets := s.roster.Snapshot()

	run := models.CheckRun{
		RunID:      uuid.NewString(),
		Generation: gen,
		StartedAt:  time.Now(),
		Targets:    len(targets),
	}

	applied, discarded, online := s.checkTargets(ctx, gen, targets, s.cfg.FleetConcurrency)

	run.FinishedAt = time.Now()
	run.Online = online
	run.Offline = applied - online
	run.Discarded = discarded

	if s.history != nil {
		if err := s.history.Append(run); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record check run")
		}
	}

	s.logger.Info().
		Str("run_id", run.RunID).
		Int("targets", run.Targets).
		Int("online", run.Online).
		Int("offline", run.Offline).
		Int("discarded", run.Discarded).
		Msg("fleet check finished")

	return run
}

// RefreshNVR re-checks one NVR, pulls its camera roster, reconciles every
// reported camera, then probes those cameras with the smaller per-NVR pool.
func (s *Service) RefreshNVR(ctx context.Context, nvrName string) error {
	nvr, ok := s.roster.FindByName(nvrName)
	if !ok {
		return ErrUnknownNVR
	}

	gen := s.generation.Add(1)
	creds := s.creds.Candidates(nvr.IP)
	verdict := s.checker.CheckDevice(ctx, nvr.IP, creds)

	s.apply(gen, observationFor(&nvr, &verdict))

	if !verdict.Online {
		return nil
	}

	cams, method, err := s.checker.FetchNVRCameras(ctx, nvr.IP, creds)
	if err != nil {
		s.logger.Warn().Str("nvr", nvrName).Err(err).Msg("camera list fetch failed")
		return nil
	}

	now := time.Now()

	for i := range cams {
		cam := &cams[i]

		status := models.StatusOffline
		if cam.Online() {
			status = models.StatusOnline
		}

		s.apply(gen, models.Observation{
			Kind:      models.KindCamera,
			Name:      cam.Name,
			IP:        cam.IP,
			Status:    status,
			Method:    method,
			Model:     cam.Model,
			Channel:   cam.Channel,
			Port:      cam.Port,
			ParentNVR: nvr.Name,
			SeenAt:    now,
		})
	}

	s.checkTargets(ctx, gen, s.roster.CamerasOf(nvr.Name), s.cfg.NVRConcurrency)

	return nil
}

// checkTargets fans targets out to a bounded worker pool and applies the
// results serially. Returns applied, discarded, and online counts.
func (s *Service) checkTargets(ctx context.Context, gen uint64, targets []models.DeviceRecord, concurrency int) (applied, discarded, online int) {
	if len(targets) == 0 {
		return 0, 0, 0
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	if concurrency > len(targets) {
		concurrency = len(targets)
	}

	type checkResult struct {
		target  models.DeviceRecord
		verdict models.Verdict
	}

	workCh := make(chan models.DeviceRecord, concurrency*workChannelMultiplier)
	resultCh := make(chan checkResult, len(targets))

	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for tgt := range workCh {
				verdict := s.checkOne(ctx, &tgt)

				select {
				case <-ctx.Done():
					return
				case resultCh <- checkResult{target: tgt, verdict: verdict}:
				}
			}
		}()
	}

	go func() {
		defer close(workCh)

		for _, tgt := range targets {
			if !tgt.Addressable() {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case workCh <- tgt:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if s.generation.Load() != gen {
			discarded++
			continue
		}

		s.apply(gen, observationFor(&res.target, &res.verdict))

		applied++

		if res.verdict.Online {
			online++
		}
	}

	return applied, discarded, online
}

// checkOne never lets a single target's failure escape; a panic-free,
// error-free verdict is the contract with the pool.
func (s *Service) checkOne(ctx context.Context, tgt *models.DeviceRecord) models.Verdict {
	if tgt.IP == "" {
		return models.Verdict{Online: false, Method: models.MethodNone}
	}

	return s.checker.CheckDevice(ctx, tgt.IP, s.creds.Candidates(tgt.IP))
}

// apply reconciles one observation and notifies the UI layer, unless the
// generation went stale between the check and the application.
func (s *Service) apply(gen uint64, obs models.Observation) {
	if s.generation.Load() != gen {
		return
	}

	rec, drifted := s.roster.Reconcile(obs)
	if !rec.Addressable() {
		return
	}

	select {
	case s.updates <- Update{Record: rec, Drifted: drifted, Generation: gen}:
	default:
		// UI lagging; it will catch up from the next snapshot.
	}
}

// observationFor translates a cascade verdict into a roster observation,
// preserving the target's identity fields the cascade does not report.
func observationFor(tgt *models.DeviceRecord, verdict *models.Verdict) models.Observation {
	status := models.StatusOffline
	if verdict.Online {
		status = models.StatusOnline
	}

	model := verdict.Detail("model")
	if model == "" {
		model = tgt.Model
	}

	return models.Observation{
		Kind:       tgt.Kind,
		Name:       tgt.Name,
		IP:         tgt.IP,
		ObservedIP: verdict.Detail("reported_ip"),
		Status:     status,
		Method:     verdict.Method,
		Model:      model,
		Channel:    tgt.Channel,
		Port:       tgt.Port,
		ParentNVR:  tgt.ParentNVR,
		SeenAt:     time.Now(),
	}
}
