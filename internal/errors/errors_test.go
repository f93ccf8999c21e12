// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{
			name: "with underlying error",
			err: &UserError{
				Message: "Cannot open project state",
				Err:     fmt.Errorf("file locked"),
			},
			want: "Cannot open project state: file locked",
		},
		{
			name: "without underlying error",
			err:  &UserError{Message: "Invalid input"},
			want: "Invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")

	withErr := &UserError{Message: "test", Err: underlying}
	if got := withErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	withoutErr := &UserError{Message: "test"}
	if got := withoutErr.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestConstructors(t *testing.T) {
	underlying := fmt.Errorf("underlying error")

	tests := []struct {
		name         string
		err          *UserError
		wantExitCode int
		wantHasErr   bool
	}{
		{"NewConfigError", NewConfigError("msg", "cause", "fix", underlying), ExitConfig, true},
		{"NewConfigError nil err", NewConfigError("msg", "cause", "fix", nil), ExitConfig, false},
		{"NewDatabaseError", NewDatabaseError("msg", "cause", "fix", underlying), ExitDatabase, true},
		{"NewNetworkError", NewNetworkError("msg", "cause", "fix", underlying), ExitNetwork, true},
		{"NewInputError", NewInputError("msg", "cause", "fix"), ExitInput, false},
		{"NewPermissionError", NewPermissionError("msg", "cause", "fix", underlying), ExitPermission, true},
		{"NewNotFoundError", NewNotFoundError("msg", "cause", "fix"), ExitNotFound, false},
		{"NewInternalError", NewInternalError("msg", "cause", "fix", underlying), ExitInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Message != "msg" || tt.err.Cause != "cause" || tt.err.Fix != "fix" {
				t.Errorf("fields = %q/%q/%q, want msg/cause/fix", tt.err.Message, tt.err.Cause, tt.err.Fix)
			}
			if tt.err.ExitCode != tt.wantExitCode {
				t.Errorf("ExitCode = %d, want %d", tt.err.ExitCode, tt.wantExitCode)
			}
			if hasErr := tt.err.Err != nil; hasErr != tt.wantHasErr {
				t.Errorf("has underlying error = %v, want %v", hasErr, tt.wantHasErr)
			}
		})
	}
}

func TestExitCodes_Unique(t *testing.T) {
	codes := map[string]int{
		"ExitSuccess":    ExitSuccess,
		"ExitConfig":     ExitConfig,
		"ExitDatabase":   ExitDatabase,
		"ExitNetwork":    ExitNetwork,
		"ExitInput":      ExitInput,
		"ExitPermission": ExitPermission,
		"ExitNotFound":   ExitNotFound,
		"ExitInternal":   ExitInternal,
	}

	seen := make(map[int]string)
	for name, code := range codes {
		if prev, dup := seen[code]; dup {
			t.Errorf("exit code %d shared by %s and %s", code, prev, name)
		}
		seen[code] = name
	}
}

func TestErrorChain(t *testing.T) {
	t.Run("errors.Is finds sentinel through UserError layers", func(t *testing.T) {
		sentinel := fmt.Errorf("sentinel error")
		wrapped := fmt.Errorf("wrapped: %w", sentinel)
		level2 := NewNetworkError("provider unreachable", "cause", "fix", wrapped)
		level3 := NewInternalError("run aborted", "cause", "fix", level2)

		if !errors.Is(level3, sentinel) {
			t.Error("errors.Is should find sentinel through UserError layers")
		}
	})

	t.Run("errors.As extracts outermost UserError", func(t *testing.T) {
		inner := NewConfigError("config error", "cause", "fix", nil)
		outer := NewDatabaseError("state error", "cause", "fix", inner)

		var ue *UserError
		if !errors.As(outer, &ue) {
			t.Fatal("errors.As should extract UserError")
		}
		if ue.ExitCode != ExitDatabase {
			t.Errorf("ExitCode = %d, want %d", ue.ExitCode, ExitDatabase)
		}

		var nested *UserError
		if !errors.As(ue.Err, &nested) {
			t.Fatal("errors.As should extract nested UserError")
		}
		if nested.ExitCode != ExitConfig {
			t.Errorf("nested ExitCode = %d, want %d", nested.ExitCode, ExitConfig)
		}
	})
}

func TestUserError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want []string
	}{
		{
			name: "full error",
			err: &UserError{
				Message:  "Cannot open project state",
				Cause:    "The state database is locked",
				Fix:      "Close other codemap instances",
				ExitCode: ExitDatabase,
			},
			want: []string{
				"Error: Cannot open project state",
				"Cause: The state database is locked",
				"Fix:   Close other codemap instances",
			},
		},
		{
			name: "error without cause",
			err: &UserError{
				Message:  "Invalid input",
				Fix:      "Use valid format",
				ExitCode: ExitInput,
			},
			want: []string{"Error: Invalid input", "Fix:   Use valid format"},
		},
		{
			name: "message only",
			err:  &UserError{Message: "Something failed", ExitCode: ExitInternal},
			want: []string{"Error: Something failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Format(true)
			for _, substr := range tt.want {
				if !strings.Contains(got, substr) {
					t.Errorf("Format() output missing %q\nGot: %s", substr, got)
				}
			}
		})
	}
}

func TestUserError_Format_OmitsEmptySections(t *testing.T) {
	err := &UserError{Message: "Something failed", ExitCode: ExitInternal}
	got := err.Format(true)
	if strings.Contains(got, "Cause:") || strings.Contains(got, "Fix:") {
		t.Errorf("empty Cause/Fix should be omitted, got: %s", got)
	}
}

func TestUserError_Format_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	err := &UserError{
		Message:  "Test error",
		Cause:    "Test cause",
		Fix:      "Test fix",
		ExitCode: ExitConfig,
	}

	output := err.Format(false)
	if strings.Contains(output, "\x1b[") {
		t.Error("Format() output contains ANSI codes despite NO_COLOR being set")
	}
}

func TestUserError_ToJSON(t *testing.T) {
	err := &UserError{
		Message:  "Invalid configuration",
		Cause:    "Missing project_id",
		Fix:      "Run: codemap init",
		ExitCode: ExitConfig,
	}

	got := err.ToJSON()
	if got.Error != "Invalid configuration" {
		t.Errorf("Error = %q", got.Error)
	}
	if got.Cause != "Missing project_id" {
		t.Errorf("Cause = %q", got.Cause)
	}
	if got.Fix != "Run: codemap init" {
		t.Errorf("Fix = %q", got.Fix)
	}
	if got.ExitCode != ExitConfig {
		t.Errorf("ExitCode = %d", got.ExitCode)
	}
}

func TestFatalError_NilDoesNothing(t *testing.T) {
	// Must not exit or panic.
	FatalError(nil, false)
	FatalError(nil, true)
}
