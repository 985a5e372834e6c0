// Package toolflow executes the tool calls an LLM response carries and
// synthesizes a final user-facing answer from their results.
//
// The flow has three phases: dispatch every requested tool call in order,
// summarize the outcomes into a compact bullet list, then ask the LLM once
// more, with tools disabled, to turn that summary into a narrative answer.
package toolflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gitscribe/gitscribe/pkg/llm"
	"github.com/gitscribe/gitscribe/pkg/model"
)

// followupTemperature nudges the synthesis call toward natural prose.
const followupTemperature = 0.7

// ToolFunc is a callable tool. It receives the arguments the LLM supplied
// plus the ambient repository context, and returns a JSON envelope string.
type ToolFunc func(ctx context.Context, args map[string]any, repoCtx map[string]any) (string, error)

// Record is the outcome of one tool call. Exactly one of Result and Error
// is set.
type Record struct {
	ToolCallID   string `json:"tool_call_id"`
	FunctionName string `json:"function_name"`
	Result       string `json:"result,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Executor dispatches tool calls and generates followup responses.
type Executor struct {
	client llm.Client
	funcs  map[string]ToolFunc
}

// NewExecutor creates an executor that uses client for followup calls.
func NewExecutor(client llm.Client) *Executor {
	return &Executor{
		client: client,
		funcs:  make(map[string]ToolFunc),
	}
}

// RegisterFunction makes a tool callable by name. Later registrations
// overwrite earlier ones.
func (e *Executor) RegisterFunction(name string, fn ToolFunc) {
	e.funcs[name] = fn
}

// HandleToolCalls runs the full three-phase flow for resp's tool calls.
//
// It always returns one Record per tool call, in the order the LLM
// requested them. On followup success, resp.Content is replaced with the
// synthesized narrative, usage counters are merged, and the followup's
// optimized history is forwarded. On followup failure resp is left
// untouched apart from the records, and a warning is logged.
func (e *Executor) HandleToolCalls(ctx context.Context, req llm.Request, resp *llm.Response, repoCtx *model.RepositoryContext) []Record {
	if resp == nil || len(resp.ToolCalls) == 0 {
		return nil
	}

	records := e.dispatch(ctx, resp.ToolCalls, repoCtx)

	followup, err := e.generateFollowup(ctx, req, resp, records)
	if err != nil {
		log.Printf("Warning: followup generation failed, keeping tool results only: %v", err)
		return records
	}
	resp.Content = followup.Content
	resp.Usage.Add(followup.Usage)
	if followup.OptimizedHistory != nil {
		resp.OptimizedHistory = followup.OptimizedHistory
	}
	return records
}

// dispatch runs every tool call sequentially, in order. A failing call
// never aborts the batch.
func (e *Executor) dispatch(ctx context.Context, calls []llm.ToolCall, repoCtx *model.RepositoryContext) []Record {
	var ctxMap map[string]any
	if repoCtx != nil {
		ctxMap = repoCtx.ToMap()
	}

	records := make([]Record, 0, len(calls))
	for _, call := range calls {
		rec := Record{ToolCallID: call.ID, FunctionName: call.Name}
		fn, ok := e.funcs[call.Name]
		if !ok {
			rec.Error = fmt.Sprintf("unknown tool %q", call.Name)
			records = append(records, rec)
			continue
		}
		result, err := fn(ctx, call.Arguments, ctxMap)
		if err != nil {
			rec.Error = err.Error()
		} else {
			rec.Result = result
		}
		records = append(records, rec)
	}
	return records
}

// Summarize renders the per-call bullet list fed back to the LLM. Raw tool
// payloads never appear here, only classified one-liners.
func Summarize(records []Record) string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, summarizeRecord(rec))
	}
	return strings.Join(lines, "\n")
}

func summarizeRecord(rec Record) string {
	if rec.Error != "" {
		return fmt.Sprintf("❌ %s: エラーが発生しました - %s", rec.FunctionName, rec.Error)
	}

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
		Error   string         `json:"error"`
	}
	if err := json.Unmarshal([]byte(rec.Result), &envelope); err != nil {
		return fmt.Sprintf("✅ %s: 分析が完了しました", rec.FunctionName)
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "処理に失敗しました"
		}
		return fmt.Sprintf("❌ %s: %s", rec.FunctionName, msg)
	}
	if _, ok := envelope.Data["summary"]; ok {
		return fmt.Sprintf("✅ %s: 要約を生成しました", rec.FunctionName)
	}
	if _, ok := envelope.Data["recommendations"]; ok {
		return fmt.Sprintf("✅ %s: 推奨事項を生成しました", rec.FunctionName)
	}
	return fmt.Sprintf("✅ %s: 分析が完了しました", rec.FunctionName)
}

// generateFollowup issues the second LLM call, tools disabled, and returns
// its response. Any failure, including empty content, is an error so the
// caller can fall back to the tool results alone.
func (e *Executor) generateFollowup(ctx context.Context, req llm.Request, resp *llm.Response, records []Record) (*llm.Response, error) {
	history := make([]llm.Message, 0, len(req.History)+2)
	history = append(history, req.History...)
	if req.Prompt != "" {
		history = append(history, llm.Message{Role: "user", Content: req.Prompt})
	}

	var invoked strings.Builder
	for i, call := range resp.ToolCalls {
		fmt.Fprintf(&invoked, "%d. %s を実行しました\n", i+1, call.Name)
	}
	history = append(history, llm.Message{Role: "assistant", Content: invoked.String()})

	prompt := fmt.Sprintf(
		"ツールの実行結果:\n%s\n\n上記の実行結果を踏まえて、ユーザーへの包括的な回答を作成してください。",
		Summarize(records),
	)

	followup, err := e.client.Chat(ctx, llm.Request{
		SystemPrompt: req.SystemPrompt,
		History:      history,
		Prompt:       prompt,
		ToolChoice:   llm.ToolChoiceNone,
		Temperature:  followupTemperature,
	})
	if err != nil {
		return nil, err
	}
	if followup.Content == "" {
		return nil, fmt.Errorf("followup returned empty content")
	}
	return followup, nil
}
