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

package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/carverauto/camwatch/pkg/logger"
)

const defaultTCPTimeout = 1 * time.Second

// TCPProber answers "reachable and listening" with a plain connect. It does
// not validate any protocol on the port.
type TCPProber struct {
	timeout time.Duration
	logger  logger.Logger
}

func NewTCPProber(timeout time.Duration, log logger.Logger) *TCPProber {
	if timeout == 0 {
		timeout = defaultTCPTimeout
	}

	return &TCPProber{timeout: timeout, logger: log}
}

// Probe attempts a TCP connect within the prober's timeout.
func (p *TCPProber) Probe(ctx context.Context, ip string, port int) bool {
	if ip == "" {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var dialer net.Dialer

	conn, err := dialer.DialContext(probeCtx, "tcp", fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		return false
	}

	if err := conn.Close(); err != nil {
		p.logger.Error().Err(err).Msg("failed to close connection")
	}

	return true
}
