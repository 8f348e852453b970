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

// Package probe provides the transport-level reachability probes: subprocess
// ICMP ping, raw TCP connect, and vendor UDP discovery. These are crude
// last-resort signals with no retries; a miss here means "truly unreachable"
// with an accepted false-negative risk (ICMP filtered by a firewall, for
// example).
package probe

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/carverauto/camwatch/pkg/logger"
)

const defaultPingTimeout = 2 * time.Second

// Pinger shells out to the OS ping utility. It avoids raw ICMP sockets so
// the monitor runs unprivileged on every platform.
type Pinger struct {
	timeout time.Duration
	logger  logger.Logger
}

func NewPinger(timeout time.Duration, log logger.Logger) *Pinger {
	if timeout == 0 {
		timeout = defaultPingTimeout
	}

	return &Pinger{timeout: timeout, logger: log}
}

// Ping sends a single echo request and reports success only on exit code 0.
// No retries.
func (p *Pinger) Ping(ctx context.Context, ip string) bool {
	if ip == "" {
		return false
	}

	// One extra second over the ICMP wait so the process itself can exit.
	ctx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	args := pingArgs(runtime.GOOS, ip)

	cmd := exec.CommandContext(ctx, "ping", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		p.logger.Debug().Str("ip", ip).Err(err).Msg("ping failed")
		return false
	}

	return true
}

// pingArgs selects count flags per platform: Windows ping counts with -n,
// everything else with -c.
func pingArgs(goos, ip string) []string {
	if goos == "windows" {
		return []string{"-n", "1", ip}
	}

	return []string{"-c", "1", ip}
}
