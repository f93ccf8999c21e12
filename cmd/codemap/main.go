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
// Package main implements the codemap CLI for running source trees
// through the analysis pipeline and inspecting the results.
//
// Usage:
//
//	codemap init                  Create .codemap/project.yaml configuration
//	codemap run                   Analyze the current repository
//	codemap status [--json]       Show latest job status
//	codemap limits [--json]       Show rate-limit bucket levels
//	codemap reset                 Reset local project data (destructive!)
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codemap/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags are honored by every subcommand.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .codemap/project.yaml (default: ./.codemap/project.yaml)")
		jsonOut     = flag.Bool("json", false, "Output as JSON where supported")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress progress output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `codemap - source tree analysis pipeline

codemap ingests a source tree and runs it through a multi-phase
pipeline: discovery, parsing, dependency mapping, and LLM-backed
summarization. Results are stored locally as versioned artifacts.

Usage:
  codemap <command> [options]

Commands:
  init     Create .codemap/project.yaml configuration
  run      Analyze the current repository
  status   Show latest job status
  limits   Show rate-limit bucket levels
  reset    Reset local project data (destructive!)

Global Options:
  --config      Path to .codemap/project.yaml
  --json        Output as JSON where supported
  -q, --quiet   Suppress progress output
  --no-color    Disable colored output
  --version     Show version and exit

Examples:
  codemap init                       Create configuration
  codemap run                        Analyze current repository
  codemap run --metrics-addr :9091   Expose Prometheus metrics while running
  codemap status --json              Output as JSON
  codemap status --watch             Follow a running job
  codemap limits                     Show bucket levels

Getting Started:
  1. Initialize configuration:  codemap init
  2. Analyze your repository:   codemap run
  3. Check the results:         codemap status

Data Storage:
  Data is stored locally in .codemap/data/

For detailed command help: codemap <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("codemap version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{JSON: *jsonOut, Quiet: *quiet || *jsonOut, NoColor: *noColor}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "run":
		runRun(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "limits":
		runLimits(cmdArgs, *configPath, globals)
	case "reset":
		runReset(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
