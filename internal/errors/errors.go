// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the codemap CLI.
//
// UserError carries what went wrong, why it happened, and how to fix it,
// plus a semantic exit code. Commands build one with the category
// constructors and hand it to FatalError at the top level.
//
//	err := errors.NewDatabaseError(
//	    "Cannot open project state",
//	    "The state database is locked by another process",
//	    "Close other codemap instances or run: codemap reset --yes",
//	    underlyingErr,
//	)
//	errors.FatalError(err, jsonMode)
//
// # Exit Codes
//
//   - ExitSuccess (0): successful execution
//   - ExitConfig (1): configuration errors (missing/invalid project.yaml)
//   - ExitDatabase (2): state or artifact store errors (locked, corrupted)
//   - ExitNetwork (3): LLM provider or metrics endpoint errors
//   - ExitInput (4): invalid user input (bad arguments, validation)
//   - ExitPermission (5): permission denied (file access)
//   - ExitNotFound (6): resource not found (project, job, artifact)
//   - ExitInternal (10): internal errors (bugs, panics)
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	ExitSuccess    = 0
	ExitConfig     = 1
	ExitDatabase   = 2
	ExitNetwork    = 3
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6

	// ExitInternal signals "this is a bug that should be reported".
	ExitInternal = 10
)

// UserError is an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: what went wrong (user-facing description)
//   - Cause: why it happened (diagnostic information)
//   - Fix: how to fix it (actionable suggestion)
//
// UserError also carries an exit code for consistent CLI exit behavior
// and optionally wraps an underlying error.
type UserError struct {
	Message string
	Cause   string
	Fix     string

	// ExitCode is used when the process exits due to this error.
	ExitCode int

	// Err is the wrapped underlying error, for errors.Is/As chains.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func newUserError(msg, cause, fix string, exitCode int, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: exitCode,
		Err:      err,
	}
}

// NewConfigError creates a configuration error (ExitConfig).
//
// Use this for missing, invalid, or malformed project configuration:
//
//	return NewConfigError(
//	    "Cannot load project configuration",
//	    "No .codemap/project.yaml found in this directory",
//	    "Run 'codemap init' to create one",
//	    nil,
//	)
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newUserError(msg, cause, fix, ExitConfig, err)
}

// NewDatabaseError creates a store error (ExitDatabase).
//
// Use this for state database or artifact store failures, such as locked
// files, corruption, or failed writes.
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return newUserError(msg, cause, fix, ExitDatabase, err)
}

// NewNetworkError creates a network error (ExitNetwork).
//
// Use this for LLM provider connectivity or other remote call failures.
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return newUserError(msg, cause, fix, ExitNetwork, err)
}

// NewInputError creates an input validation error (ExitInput).
// Input errors do not wrap an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return newUserError(msg, cause, fix, ExitInput, nil)
}

// NewPermissionError creates a permission denied error (ExitPermission).
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return newUserError(msg, cause, fix, ExitPermission, err)
}

// NewNotFoundError creates a resource not found error (ExitNotFound).
// Not found errors do not wrap an underlying error.
//
//	return NewNotFoundError(
//	    "No analysis found",
//	    "This project has never been analyzed",
//	    "Run 'codemap run' first",
//	)
func NewNotFoundError(msg, cause, fix string) *UserError {
	return newUserError(msg, cause, fix, ExitNotFound, nil)
}

// NewInternalError creates an internal error (ExitInternal).
//
// Use this for unexpected failures that indicate bugs. Internal errors
// should be reported to the maintainers:
//
//	return NewInternalError(
//	    "Unexpected nil snapshot",
//	    "The pipeline returned a job without a snapshot",
//	    "This is a bug. Please report it at github.com/kraklabs/codemap/issues",
//	    err,
//	)
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newUserError(msg, cause, fix, ExitInternal, err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns the error formatted for terminal display: Error in
// red/bold, Cause in yellow, Fix in green. Empty Cause or Fix lines are
// omitted. Color respects the NO_COLOR environment variable and the
// noColor parameter.
//
//	Error: Cannot open project state
//	Cause: The state database is locked by another process
//	Fix:   Close other codemap instances or run: codemap reset --yes
func (e *UserError) Format(noColor bool) string {
	// Save and restore global color state to avoid side effects.
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the machine-readable error shape used by --json mode.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to its JSON shape. Empty Cause and Fix
// are omitted via omitempty.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// UserErrors render via Format (or ToJSON in JSON mode); anything else
// prints a plain message and exits with ExitInternal. This function
// never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			// Encoding failure is ignored since we exit either way.
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
