// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package output provides JSON output formatting for the codemap CLI.
//
// Commands that support --json route their machine-readable results
// through this package so formatting stays consistent. It complements
// the ui package (human-readable output) and the errors package
// (structured error output).
//
//	type Result struct {
//	    ProjectID string `json:"project_id"`
//	    Artifacts int    `json:"artifacts"`
//	}
//	if err := output.JSON(&result); err != nil {
//	    errors.FatalError(err, true)
//	}
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSON writes data as pretty-printed JSON to stdout, with 2-space
// indentation. This is the standard shape for --json command output.
//
// Returns an error if encoding fails (e.g., for unencodable types).
func JSON(data any) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes data as pretty-printed JSON to w.
func JSONTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("JSON encoding failed: %w", err)
	}
	return nil
}
