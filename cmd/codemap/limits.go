// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codemap/internal/bootstrap"
	"github.com/kraklabs/codemap/internal/output"
)

// runLimits executes the 'limits' CLI command, printing the current
// token levels of the shared rate-limit buckets.
//
// Examples:
//
//	codemap limits           Display bucket levels
//	codemap limits --json    Output as JSON
func runLimits(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("limits", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codemap limits

Shows the shared rate-limit bucket levels. Levels reflect refill up to
the moment of reading; a bucket at zero recovers over time by itself.

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	project, err := bootstrap.OpenProject(bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   DataDir(cwd),
		Limits:    cfg.Limits,
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer project.Close()

	status := project.Limits.Status()
	if globals.JSON {
		_ = output.JSON(status)
		return
	}

	fmt.Println("Rate-limit buckets")
	fmt.Println("==================")
	for _, b := range status {
		fmt.Printf("  %-14s %8.1f / %-8.1f (refill %.2f/s)\n",
			b.Name, b.Tokens, b.Capacity, b.RefillRate)
	}
}
