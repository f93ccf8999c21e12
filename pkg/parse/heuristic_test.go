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

package parse

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) FileInfo {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	lang := languageByExt[filepath.Ext(rel)]
	return FileInfo{Path: rel, Language: lang, Size: int64(len(content))}
}

func TestHeuristicParser_TypeScript(t *testing.T) {
	root := t.TempDir()
	file := writeTestFile(t, root, "src/service.ts", `
import express from 'express'
import { db } from './db'
const legacy = require('legacy-lib')

export async function createUser(req, res) {
	return db.insert(req.body)
}

const listUsers = async () => db.all()

export class UserService {
	constructor() {}
}
`)

	parsed, err := NewHeuristicParser(nil).ParseFile(root, file)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	wantImports := []string{"express", "./db", "legacy-lib"}
	if len(parsed.Imports) != len(wantImports) {
		t.Fatalf("imports = %v, want %v", parsed.Imports, wantImports)
	}
	for i, imp := range wantImports {
		if parsed.Imports[i] != imp {
			t.Errorf("imports[%d] = %q, want %q", i, parsed.Imports[i], imp)
		}
	}

	if !contains(parsed.Functions, "createUser") || !contains(parsed.Functions, "listUsers") {
		t.Errorf("functions = %v, want createUser and listUsers", parsed.Functions)
	}
	if !contains(parsed.Classes, "UserService") {
		t.Errorf("classes = %v, want UserService", parsed.Classes)
	}
}

func TestHeuristicParser_Python(t *testing.T) {
	root := t.TempDir()
	file := writeTestFile(t, root, "app/main.py", `
import os
from fastapi import FastAPI
from .db import get_session

app = FastAPI()

@app.route("/health")
def health():
    return {"ok": True}

async def shutdown():
    pass

class Settings:
    debug = False
`)

	parsed, err := NewHeuristicParser(nil).ParseFile(root, file)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	for _, imp := range []string{"os", "fastapi", ".db"} {
		if !contains(parsed.Imports, imp) {
			t.Errorf("imports = %v, missing %q", parsed.Imports, imp)
		}
	}
	if !contains(parsed.Functions, "health") || !contains(parsed.Functions, "shutdown") {
		t.Errorf("functions = %v, want health and shutdown", parsed.Functions)
	}
	if !contains(parsed.Classes, "Settings") {
		t.Errorf("classes = %v, want Settings", parsed.Classes)
	}
	if !parsed.Hints.IsAPI {
		t.Error("expected @app.route to mark the file as API")
	}
	if !parsed.Hints.IsEntrypoint {
		t.Error("expected main.py to be an entrypoint")
	}
}

func TestDetectHints(t *testing.T) {
	cases := []struct {
		path    string
		content string
		want    Hints
	}{
		{"pages/users.tsx", "export default function Users() {}", Hints{IsRoute: true, IsComponent: true}},
		{"app/api/users/route.ts", "export async function GET() {}", Hints{IsAPI: true, IsRoute: true}},
		{"src/server.js", "app.get('/x', handler)", Hints{IsAPI: true, IsEntrypoint: true}},
		{"src/util.ts", "export const x = 1", Hints{}},
	}
	for _, tc := range cases {
		got := detectHints(tc.path, []byte(tc.content))
		if got != tc.want {
			t.Errorf("detectHints(%q) = %+v, want %+v", tc.path, got, tc.want)
		}
	}
}

func TestHeuristicParser_MissingFile(t *testing.T) {
	_, err := NewHeuristicParser(nil).ParseFile(t.TempDir(), FileInfo{Path: "gone.ts", Language: LangTypeScript})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
