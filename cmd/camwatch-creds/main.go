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

// camwatch-creds manages per-device credentials: set, get, delete, and a
// live login test against a recorder.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/carverauto/camwatch/pkg/credstore"
	"github.com/carverauto/camwatch/pkg/hikapi"
	"github.com/carverauto/camwatch/pkg/logger"
)

const defaultCredsPath = "/etc/camwatch/creds.json"

var errUsage = errors.New("usage: camwatch-creds [-creds path] {set|get|delete|test} <ip> [username]")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	credsPath := flag.String("creds", defaultCredsPath, "Path to fallback credential file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		return errUsage
	}

	appLogger, err := logger.New(&logger.Config{Level: "warn", Output: "stderr"})
	if err != nil {
		return err
	}

	store := credstore.New(credstore.SystemKeyring(), *credsPath, appLogger)
	cmd, ip := args[0], args[1]

	switch cmd {
	case "set":
		return setCredential(store, ip, args[2:])
	case "get":
		return getCredential(store, ip)
	case "delete":
		return store.Delete(ip)
	case "test":
		return testLogin(store, ip, appLogger)
	default:
		return errUsage
	}
}

func setCredential(store credstore.Store, ip string, rest []string) error {
	if len(rest) < 1 {
		return errUsage
	}

	username := rest[0]

	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", username, ip)

	reader := bufio.NewReader(os.Stdin)

	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	if err := store.Set(ip, username, password); err != nil {
		return err
	}

	fmt.Printf("credentials stored for %s\n", ip)

	return nil
}

func getCredential(store credstore.Store, ip string) error {
	cred, ok := store.Get(ip)
	if !ok {
		return fmt.Errorf("no credentials stored for %s", ip)
	}

	fmt.Printf("%s (password hidden, %d chars)\n", cred.Username, len(cred.Password))

	return nil
}

// testLogin tries every candidate credential against the device and
// reports the first that authenticates, along with the address the device
// says it has.
func testLogin(store credstore.Store, ip string, appLogger logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := hikapi.NewClient(3*time.Second, appLogger)

	for _, cred := range store.Candidates(ip) {
		result, err := client.TestLogin(ctx, ip, cred)
		if err != nil || !result.OK {
			continue
		}

		fmt.Printf("login ok as %s\n", cred.Username)

		if result.SelfIP != "" && result.SelfIP != ip {
			fmt.Printf("device reports address %s (probed %s)\n", result.SelfIP, ip)
		}

		return nil
	}

	return fmt.Errorf("no candidate credential accepted by %s", ip)
}
