package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gitscribe/gitscribe/pkg/llm"
)

func testServer(t *testing.T, handler func(body map[string]any) any) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		captured = body
		_ = json.NewEncoder(w).Encode(handler(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func textResponse(content string) any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestChat_TextResponse(t *testing.T) {
	srv, captured := testServer(t, func(map[string]any) any { return textResponse("hello") })
	c := New("key", "").WithBaseURL(srv.URL)

	resp, err := c.Chat(context.Background(), llm.Request{
		SystemPrompt: "be helpful",
		Prompt:       "hi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	msgs := (*captured)["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be helpful" {
		t.Errorf("system message = %v", first)
	}
}

func TestChat_ToolCalls(t *testing.T) {
	srv, captured := testServer(t, func(map[string]any) any {
		return map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{
					"content": "",
					"tool_calls": []any{
						map[string]any{
							"id": "call_1",
							"function": map[string]any{
								"name":      "create_git_issue",
								"arguments": `{"title":"Broken link"}`,
							},
						},
					},
				}},
			},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		}
	})
	c := New("key", "").WithBaseURL(srv.URL)

	resp, err := c.Chat(context.Background(), llm.Request{
		Prompt:     "file an issue",
		Tools:      []llm.Tool{{Name: "create_git_issue", Parameters: map[string]any{"type": "object"}}},
		ToolChoice: llm.ToolChoiceAuto,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %v", resp.ToolCalls)
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "create_git_issue" || tc.Arguments["title"] != "Broken link" {
		t.Errorf("tool call = %+v", tc)
	}

	if _, ok := (*captured)["tools"]; !ok {
		t.Error("tools should be sent when provided")
	}
}

func TestChat_ToolChoiceNoneOmitsTools(t *testing.T) {
	srv, captured := testServer(t, func(map[string]any) any { return textResponse("done") })
	c := New("key", "").WithBaseURL(srv.URL)

	_, err := c.Chat(context.Background(), llm.Request{
		Prompt:     "summarize",
		Tools:      []llm.Tool{{Name: "create_git_issue"}},
		ToolChoice: llm.ToolChoiceNone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := (*captured)["tools"]; ok {
		t.Error("tools must not be sent when tool choice is none")
	}
}

func TestChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	c := New("key", "").WithBaseURL(srv.URL)

	if _, err := c.Chat(context.Background(), llm.Request{Prompt: "hi"}); err == nil {
		t.Fatal("non-200 response should fail")
	}
}
