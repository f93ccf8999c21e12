// Copyright 2025 KrakLabs
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

package ui

import (
	"testing"

	"github.com/fatih/color"
)

func withColorsDisabled(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })
}

func TestInitColors(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()

	InitColors(true)
	if !color.NoColor {
		t.Error("InitColors(true) should disable colors")
	}
	InitColors(false)
	if color.NoColor {
		t.Error("InitColors(false) should enable colors")
	}
}

func TestInlineFormatters(t *testing.T) {
	withColorsDisabled(t)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Label", Label("Project ID:"), "Project ID:"},
		{"Label empty", Label(""), ""},
		{"DimText", DimText("/path/to/data"), "/path/to/data"},
		{"CountText", CountText(42), "42"},
		{"CountText zero", CountText(0), "0"},
		{"CountText negative", CountText(-1), "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

// The message helpers write to stdout; these only verify they execute
// without panicking.
func TestMessageFunctions(t *testing.T) {
	withColorsDisabled(t)

	Success("analysis complete")
	Successf("analyzed %d files", 42)
	Warning("3 files skipped")
	Warningf("%d files skipped", 3)
	Error("run failed")
	Errorf("run failed: %s", "timeout")
	Info("summarizing")
	Infof("summarizing %d files", 12)
	Header("codemap Project Status")
	SubHeader("Latest job:")
}
