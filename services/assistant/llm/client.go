// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the model-capability interface for the assistant.
//
// The agent loop depends only on the Client interface; concrete
// implementations (OpenAI, scripted mock) are injected at runtime, which
// keeps the loop deterministic under test.
//
// Thread Safety:
//
//	All types in this package are designed for concurrent use.
package llm

import (
	"context"

	"github.com/harborpoint/HarborCRM/services/assistant/tools"
)

// Client defines the interface for model interactions.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends one turn to the model and returns its response:
	// either plain text or a batch of tool invocation requests.
	Complete(ctx context.Context, request *Request) (*Response, error)

	// Name returns the provider name (e.g., "openai", "mock").
	Name() string

	// Model returns the model being used.
	Model() string
}

// Request represents one turn sent to the model.
type Request struct {
	// Instructions is the system prompt.
	Instructions string `json:"instructions,omitempty"`

	// Messages is the conversation so far, including tool results.
	Messages []Message `json:"messages"`

	// Tools defines the callable tools for this turn.
	Tools []tools.ToolDefinition `json:"tools,omitempty"`

	// ToolChoice controls tool selection ("auto" when tools are offered).
	ToolChoice string `json:"tool_choice,omitempty"`

	// PreviousID carries the prior response's identity forward so the
	// provider can preserve turn context on continuations.
	PreviousID string `json:"previous_id,omitempty"`

	// MaxTokens limits the response length (0 = provider default).
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	// Role is "user", "assistant", or "tool".
	Role string `json:"role"`

	// Content is the text content.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations (for assistant messages).
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolResults contains tool results (for tool messages).
	ToolResults []ToolCallResult `json:"tool_results,omitempty"`
}

// ToolCall represents a tool invocation issued by the model.
type ToolCall struct {
	// ID is the provider-assigned call id.
	ID string `json:"id"`

	// Name is the tool name.
	Name string `json:"name"`

	// Arguments are the raw JSON arguments. Parsing them is the
	// orchestrator's job; they may be malformed.
	Arguments string `json:"arguments"`
}

// ToolCallResult carries one tool outcome back to the model.
type ToolCallResult struct {
	// ToolCallID links back to the tool call.
	ToolCallID string `json:"tool_call_id"`

	// Content is the JSON-encoded result payload.
	Content string `json:"content"`

	// IsError marks failure payloads.
	IsError bool `json:"is_error,omitempty"`
}

// Response represents one model turn.
type Response struct {
	// ID identifies this response for continuation linkage.
	ID string `json:"id"`

	// Content is the text reply (empty when tools are requested).
	Content string `json:"content"`

	// ToolCalls contains any tool calls the model wants to make.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// StopReason indicates why generation stopped
	// (e.g. "stop", "tool_calls", "length").
	StopReason string `json:"stop_reason,omitempty"`
}

// HasToolCalls returns true if the response requests tool invocations.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
