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

// Package llm provides a unified interface for Large Language Model
// providers. The summarization phase uses it to generate file summaries,
// capability narratives and the glossary.
//
// # Supported Providers
//
//   - Ollama: local models, no API key required (default)
//   - OpenAI: GPT models and OpenAI-compatible APIs
//   - Anthropic: Claude models
//   - Mock: for testing without real API calls
//
// # Provider Selection
//
// [DefaultProvider] selects a provider from environment variables,
// checking in order:
//  1. OLLAMA_HOST or OLLAMA_MODEL set - uses Ollama (local)
//  2. OPENAI_API_KEY set - uses OpenAI
//  3. ANTHROPIC_API_KEY set - uses Anthropic
//  4. No credentials - falls back to mock
//
// # Structured Output
//
// Summarization prompts ask for JSON objects. [CompleteJSON] runs a chat
// completion, unwraps markdown code fences, parses the object and
// validates required fields, so callers get either a usable map or an
// error they can route to the fallback path:
//
//	result, err := llm.CompleteJSON(ctx, provider,
//	    llm.BuildChatMessages(systemPrompt, userPrompt),
//	    []string{"title", "blurb"})
//
// [EstimateTokens] gives the coarse token estimate the rate limiter
// charges before each call.
package llm
