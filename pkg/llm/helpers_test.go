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

package llm

import (
	"context"
	"strings"
	"testing"
)

func chatReturning(content string) *MockProvider {
	return &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			return &ChatResponse{
				Message: Message{Role: "assistant", Content: content},
				Model:   "mock-model",
				Done:    true,
			}, nil
		},
	}
}

func TestCompleteJSON_ValidResponse(t *testing.T) {
	provider := chatReturning(`{"title": "Auth service", "blurb": "Handles logins"}`)

	result, err := CompleteJSON(context.Background(), provider,
		BuildChatMessages("system", "user"), []string{"title", "blurb"})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if result["title"] != "Auth service" {
		t.Errorf("title = %v", result["title"])
	}
}

func TestCompleteJSON_UnwrapsCodeFence(t *testing.T) {
	provider := chatReturning("```json\n{\"title\": \"X\"}\n```")

	result, err := CompleteJSON(context.Background(), provider, nil, []string{"title"})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if result["title"] != "X" {
		t.Errorf("title = %v", result["title"])
	}
}

func TestCompleteJSON_MissingField(t *testing.T) {
	provider := chatReturning(`{"title": "X"}`)

	_, err := CompleteJSON(context.Background(), provider, nil, []string{"title", "blurb"})
	if err == nil || !strings.Contains(err.Error(), "blurb") {
		t.Fatalf("expected missing-field error naming blurb, got %v", err)
	}
}

func TestCompleteJSON_EmptyField(t *testing.T) {
	provider := chatReturning(`{"title": "  "}`)

	_, err := CompleteJSON(context.Background(), provider, nil, []string{"title"})
	if err == nil {
		t.Fatal("expected error for empty required field")
	}
}

func TestCompleteJSON_NotJSON(t *testing.T) {
	provider := chatReturning("Sure! Here is the summary you asked for.")

	_, err := CompleteJSON(context.Background(), provider, nil, nil)
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 1 {
		t.Errorf("empty string estimate = %d, want 1", got)
	}
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("400 chars estimate = %d, want 100", got)
	}
}
