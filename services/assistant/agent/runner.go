// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent runs the bounded tool-calling loop that turns one user
// message into zero or more validated, authorized tool executions plus a
// final natural-language reply.
//
// Every tool-level failure (allowlist rejection, validation, authorization,
// domain error) is recovered locally: it becomes an entry in the action log
// and a structured failure payload fed back to the model. Only failures of
// the model round trip itself propagate to the caller.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harborpoint/HarborCRM/services/assistant/llm"
	"github.com/harborpoint/HarborCRM/services/assistant/tools"
	"github.com/harborpoint/HarborCRM/services/crm"
)

// maxSteps bounds the model round trips per run. The cap is a safety valve
// against runaway tool-calling loops, not an error state.
const maxSteps = 8

// budgetExhaustedReply is returned when the step budget runs out before the
// model produces a plain final answer.
const budgetExhaustedReply = "I could not finish that request in a safe number " +
	"of tool steps. Please simplify and try again."

// instructions is the system prompt for the CRM assistant.
const instructions = `You are an AI CRM assistant operating a strict tool allowlist.
Rules:
1) Never guess required fields.
2) If required data is missing or ambiguous, ask a follow-up question.
3) Use search tools to resolve unknown IDs before mutating.
4) Only call provided tools; never invent tool names.
5) Keep final confirmations concise and explicit about changes.
6) This CRM focuses on leads, clients, and project/service progress.
7) If a user says a project was completed and paid, capture completion using convert_lead and/or add_service with notes.
8) Do not invent payment ledgers or invoice systems.`

// Sentinel errors for run inputs and the model round trip.
var (
	// ErrEmptyMessage indicates the user message was empty.
	ErrEmptyMessage = errors.New("message must be a non-empty string")

	// ErrEmptyUserID indicates the user id was empty.
	ErrEmptyUserID = errors.New("user id must be a non-empty string")

	// ErrCompletionFailed wraps model-capability failures. These are the
	// only errors Run propagates to its caller.
	ErrCompletionFailed = errors.New("model completion failed")
)

// CanMutateFunc is the authorization hook consulted before every mutation
// tool execution.
type CanMutateFunc func(userID string) bool

// DefaultCanMutate permits every mutation.
// TODO: enforce role-based and tenant-level authorization.
func DefaultCanMutate(_ string) bool {
	return true
}

// Action is one entry in the ordered action log.
//
// Exactly one of Result and Error is set, never both, never neither.
type Action struct {
	// Tool is the tool name as issued by the model.
	Tool string `json:"tool"`

	// Args are the parsed (for rejected calls) or validated arguments.
	Args any `json:"args"`

	// Result is the repository operation result on success.
	Result any `json:"result,omitempty"`

	// Error is the recovered failure message otherwise.
	Error string `json:"error,omitempty"`
}

// RunRequest is one invocation of the assistant.
type RunRequest struct {
	// Message is the user's natural-language instruction.
	Message string `json:"message"`

	// UserID identifies the caller for authorization and audit.
	UserID string `json:"user_id"`
}

// RunResult is the outcome of one invocation.
type RunResult struct {
	// Reply is the final natural-language answer.
	Reply string `json:"reply"`

	// Actions is the ordered action log; order matches invocation order.
	Actions []Action `json:"actions"`
}

// Runner drives the multi-turn protocol between the model capability and
// the tool contract layer.
//
// Thread Safety: Runner is safe for concurrent use, but concurrent runs
// against the same in-memory Repo must be serialized by the caller.
type Runner struct {
	model     llm.Client
	registry  *tools.Registry
	repo      *crm.Repo
	canMutate CanMutateFunc
	audit     AuditFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCanMutate sets the authorization hook.
func WithCanMutate(hook CanMutateFunc) RunnerOption {
	return func(r *Runner) {
		if hook != nil {
			r.canMutate = hook
		}
	}
}

// WithAuditFunc sets the audit sink for committed mutations.
func WithAuditFunc(audit AuditFunc) RunnerOption {
	return func(r *Runner) {
		if audit != nil {
			r.audit = audit
		}
	}
}

// NewRunner creates a Runner bound to a model client and a repository.
func NewRunner(model llm.Client, repo *crm.Repo, opts ...RunnerOption) *Runner {
	r := &Runner{
		model:     model,
		registry:  tools.NewRegistry(),
		repo:      repo,
		canMutate: DefaultCanMutate,
		audit:     LogAudit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the bounded agent loop for one user message.
//
// Description:
//
//	Sends the message to the model with the tool registry attached, then
//	repeats up to the step budget: execute every issued tool call in
//	order, feed the results back, and stop as soon as the model answers
//	in plain text. Tool calls are executed sequentially because later
//	calls in a batch may reference state produced by earlier ones.
//
// Outputs:
//
//	*RunResult - Final reply plus the ordered action log. Budget
//	             exhaustion is a successful result with a fixed reply.
//	error - Input validation errors, or ErrCompletionFailed when the
//	        model round trip itself fails.
func (r *Runner) Run(ctx context.Context, request RunRequest) (*RunResult, error) {
	if request.Message == "" {
		return nil, ErrEmptyMessage
	}
	if request.UserID == "" {
		return nil, ErrEmptyUserID
	}

	logger := slog.With("user_id", request.UserID)
	actions := make([]Action, 0, 4)
	conversation := []llm.Message{{Role: "user", Content: request.Message}}

	response, err := r.complete(ctx, conversation, "")
	if err != nil {
		runsTotal.WithLabelValues(outcomeCapabilityError).Inc()
		return nil, err
	}

	for step := 0; step < maxSteps; step++ {
		if !response.HasToolCalls() {
			runsTotal.WithLabelValues(outcomeCompleted).Inc()
			return &RunResult{Reply: replyText(response), Actions: actions}, nil
		}

		stepsTotal.Inc()
		toolResults := make([]llm.ToolCallResult, 0, len(response.ToolCalls))
		for _, call := range response.ToolCalls {
			action, result := r.executeCall(call, request.UserID, logger)
			actions = append(actions, action)
			toolResults = append(toolResults, result)
		}

		conversation = append(conversation,
			llm.Message{Role: "assistant", ToolCalls: response.ToolCalls},
			llm.Message{Role: "tool", ToolResults: toolResults},
		)

		response, err = r.complete(ctx, conversation, response.ID)
		if err != nil {
			runsTotal.WithLabelValues(outcomeCapabilityError).Inc()
			return nil, err
		}
	}

	logger.Warn("Step budget exhausted", "actions", len(actions))
	runsTotal.WithLabelValues(outcomeBudgetExhausted).Inc()
	return &RunResult{Reply: budgetExhaustedReply, Actions: actions}, nil
}

// complete performs one model round trip with the registry attached.
func (r *Runner) complete(ctx context.Context, conversation []llm.Message, previousID string) (*llm.Response, error) {
	response, err := r.model.Complete(ctx, &llm.Request{
		Instructions: instructions,
		Messages:     conversation,
		Tools:        r.registry.Definitions(),
		ToolChoice:   "auto",
		PreviousID:   previousID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	return response, nil
}

// executeCall runs one model-issued tool call through the full pipeline:
// parse, allowlist, validation, authorization, dispatch, audit.
func (r *Runner) executeCall(call llm.ToolCall, userID string, logger *slog.Logger) (Action, llm.ToolCallResult) {
	parsedArgs := parseArguments(call.Arguments)

	if !r.registry.Has(call.Name) {
		message := fmt.Sprintf("Tool %q is not allowed.", call.Name)
		logger.Warn("Rejected out-of-registry tool call", "tool", call.Name)
		toolExecutionsTotal.WithLabelValues(call.Name, outcomeRejected).Inc()
		return failure(call, parsedArgs, message)
	}

	validated, err := tools.ValidateArgs(call.Name, json.RawMessage(call.Arguments))
	if err != nil {
		message := fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err)
		logger.Warn("Tool argument validation failed", "tool", call.Name, "error", err)
		toolExecutionsTotal.WithLabelValues(call.Name, outcomeInvalid).Inc()
		return failure(call, parsedArgs, message)
	}

	if r.registry.Mutating(call.Name) && !r.canMutate(userID) {
		message := fmt.Sprintf("User %s is not allowed to mutate CRM records.", userID)
		logger.Warn("Mutation denied by authorization hook", "tool", call.Name)
		toolExecutionsTotal.WithLabelValues(call.Name, outcomeDenied).Inc()
		return failure(call, validated, message)
	}

	result, err := tools.Execute(call.Name, validated, r.repo)
	if err != nil {
		logger.Warn("Tool execution failed", "tool", call.Name, "error", err)
		toolExecutionsTotal.WithLabelValues(call.Name, outcomeError).Inc()
		return failure(call, validated, err.Error())
	}

	if r.registry.Mutating(call.Name) {
		r.audit(NewAuditEvent(userID, call.Name, validated, result))
	}
	toolExecutionsTotal.WithLabelValues(call.Name, outcomeOK).Inc()

	return Action{Tool: call.Name, Args: validated, Result: result},
		successResult(call.ID, result)
}

// failure builds the paired action entry and model-facing failure payload
// for one recovered tool-call error.
func failure(call llm.ToolCall, args any, message string) (Action, llm.ToolCallResult) {
	payload, _ := json.Marshal(map[string]any{"ok": false, "error": message})
	return Action{Tool: call.Name, Args: args, Error: message},
		llm.ToolCallResult{ToolCallID: call.ID, Content: string(payload), IsError: true}
}

// successResult builds the model-facing success payload for one tool call.
func successResult(callID string, result any) llm.ToolCallResult {
	payload, err := json.Marshal(map[string]any{"ok": true, "result": result})
	if err != nil {
		payload = []byte(`{"ok":true}`)
	}
	return llm.ToolCallResult{ToolCallID: callID, Content: string(payload)}
}

// parseArguments best-effort parses raw tool-call arguments for the action
// log. Unparseable payloads are wrapped rather than dropped, so the log
// stays replayable.
func parseArguments(raw string) any {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return map[string]any{"__raw": raw}
	}
	return parsed
}

// replyText extracts the final reply from a plain-text response.
func replyText(response *llm.Response) string {
	if response.Content != "" {
		return response.Content
	}
	return "No assistant reply generated."
}
