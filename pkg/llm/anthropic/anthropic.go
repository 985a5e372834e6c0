// Package anthropic implements llm.Client using the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitscribe/gitscribe/pkg/llm"
)

// Client implements llm.Client using the Anthropic Messages API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a client for the Anthropic API.
// Model defaults to "claude-sonnet-4-20250514" if empty.
func New(apiKey, model string) *Client {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.anthropic.com",
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithBaseURL points the client at an alternative endpoint. Used by tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	messages := make([]map[string]string, 0, len(req.History)+1)
	for _, m := range req.History {
		// The Messages API takes the system prompt out of band.
		if m.Role == "system" {
			continue
		}
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}
	if req.Prompt != "" {
		messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})
	}

	reqBody := map[string]any{
		"model":      c.model,
		"max_tokens": 4096,
		"messages":   messages,
	}
	if req.SystemPrompt != "" {
		reqBody["system"] = req.SystemPrompt
	}
	if req.Temperature > 0 {
		reqBody["temperature"] = req.Temperature
	}
	if len(req.Tools) > 0 && req.ToolChoice != llm.ToolChoiceNone {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.Parameters,
			})
		}
		reqBody["tools"] = tools
	}

	var result struct {
		Content []struct {
			Type  string         `json:"type"`
			Text  string         `json:"text"`
			ID    string         `json:"id"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	err := doJSONRoundTrip(ctx, c.client, "POST", c.baseURL+"/v1/messages",
		map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         c.apiKey,
			"anthropic-version": "2023-06-01",
		},
		reqBody, &result)
	if err != nil {
		return nil, fmt.Errorf("anthropic API: %w", err)
	}

	resp := &llm.Response{
		Usage: llm.Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
	}
	var texts []string
	for _, block := range result.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	resp.Content = strings.Join(texts, "\n")
	if resp.Content == "" && len(resp.ToolCalls) == 0 {
		return nil, fmt.Errorf("no text content in response")
	}
	return resp, nil
}

func doJSONRoundTrip(
	ctx context.Context,
	client *http.Client,
	method, url string,
	headers map[string]string,
	reqBody any,
	respBody any,
) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error (%d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
