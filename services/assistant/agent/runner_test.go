// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harborpoint/HarborCRM/services/assistant/llm"
	"github.com/harborpoint/HarborCRM/services/crm"
)

func TestRun_EndToEnd(t *testing.T) {
	mock := llm.NewMockClient().
		QueueToolCall("create_client", map[string]any{
			"name":  "ACME Landscaping",
			"email": "a@acme.com",
		}).
		QueueFinalResponse("Done — created client ACME Landscaping.")

	repo := crm.NewRepo()
	runner := NewRunner(mock, repo)

	result, err := runner.Run(context.Background(), RunRequest{
		Message: "Create a client named ACME Landscaping, email a@acme.com",
		UserID:  "user_1",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(result.Reply, "Done") {
		t.Errorf("reply should contain Done, got %q", result.Reply)
	}
	if len(result.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(result.Actions))
	}
	action := result.Actions[0]
	if action.Tool != "create_client" {
		t.Errorf("expected create_client, got %s", action.Tool)
	}
	if action.Error != "" {
		t.Errorf("action should not carry an error, got %q", action.Error)
	}
	created, ok := action.Result.(*crm.CreateClientResult)
	if !ok {
		t.Fatalf("expected *crm.CreateClientResult, got %T", action.Result)
	}
	if created.Client.Name != "ACME Landscaping" {
		t.Errorf("unexpected client name %q", created.Client.Name)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 model turns, got %d", len(calls))
	}
	if calls[1].PreviousID != "resp_1" {
		t.Errorf("continuation should link the prior response, got %q", calls[1].PreviousID)
	}
	last := calls[1].Messages[len(calls[1].Messages)-1]
	if last.Role != "tool" || len(last.ToolResults) != 1 {
		t.Fatalf("continuation should end with a tool result message, got %+v", last)
	}
	if !strings.Contains(last.ToolResults[0].Content, `"ok":true`) {
		t.Errorf("tool result should be a success payload, got %q", last.ToolResults[0].Content)
	}
}

func TestRun_BudgetExhausted(t *testing.T) {
	seq := 0
	mock := llm.NewMockClient().WithResponseFunc(func(*llm.Request) (*llm.Response, error) {
		seq++
		return &llm.Response{
			ID:         "resp",
			StopReason: "tool_calls",
			ToolCalls: []llm.ToolCall{{
				ID:        "call",
				Name:      "search_client",
				Arguments: `{"query":"acme"}`,
			}},
		}, nil
	})

	runner := NewRunner(mock, crm.NewSeededRepo())
	result, err := runner.Run(context.Background(), RunRequest{
		Message: "keep searching forever",
		UserID:  "user_1",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Reply != budgetExhaustedReply {
		t.Errorf("expected the fixed budget reply, got %q", result.Reply)
	}
	if len(result.Actions) != maxSteps {
		t.Errorf("expected exactly %d actions, got %d", maxSteps, len(result.Actions))
	}
	// Initial turn plus one continuation per step.
	if seq != maxSteps+1 {
		t.Errorf("expected %d model turns, got %d", maxSteps+1, seq)
	}
}

func TestRun_RegistryEnforcement(t *testing.T) {
	mock := llm.NewMockClient().
		QueueToolCall("delete_client", map[string]any{"client_id": "client_0001"}).
		QueueFinalResponse("Understood.")

	repo := crm.NewSeededRepo()
	before := repo.Snapshot()
	runner := NewRunner(mock, repo)

	result, err := runner.Run(context.Background(), RunRequest{
		Message: "delete the dental client",
		UserID:  "user_1",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(result.Actions))
	}
	if result.Actions[0].Error == "" || !strings.Contains(result.Actions[0].Error, "not allowed") {
		t.Errorf("expected allowlist rejection, got %q", result.Actions[0].Error)
	}
	if result.Actions[0].Result != nil {
		t.Error("rejected call must not carry a result")
	}
	if repo.Snapshot() != before {
		t.Error("rejected call must not mutate the repository")
	}

	calls := mock.Calls()
	last := calls[1].Messages[len(calls[1].Messages)-1]
	if !last.ToolResults[0].IsError {
		t.Error("model should receive a failure payload")
	}
}

func TestRun_ValidationFailures(t *testing.T) {
	t.Run("negative qty names the field", func(t *testing.T) {
		mock := llm.NewMockClient().
			QueueToolCall("add_service", map[string]any{
				"client_id":    "client_0001",
				"service_code": "MOWING",
				"qty":          -2,
				"unit_price":   80,
			}).
			QueueFinalResponse("Sorry, that did not work.")

		runner := NewRunner(mock, crm.NewSeededRepo())
		result, err := runner.Run(context.Background(), RunRequest{
			Message: "bill mowing", UserID: "user_1",
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if !strings.Contains(result.Actions[0].Error, "qty") {
			t.Errorf("error should contain qty, got %q", result.Actions[0].Error)
		}
	})

	t.Run("missing name names the field", func(t *testing.T) {
		mock := llm.NewMockClient().
			QueueToolCall("create_client", map[string]any{"email": "a@acme.com"}).
			QueueFinalResponse("Sorry, that did not work.")

		repo := crm.NewRepo()
		runner := NewRunner(mock, repo)
		result, err := runner.Run(context.Background(), RunRequest{
			Message: "create a client", UserID: "user_1",
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if !strings.Contains(result.Actions[0].Error, "name") {
			t.Errorf("error should contain name, got %q", result.Actions[0].Error)
		}
		if repo.Snapshot().Clients != 0 {
			t.Error("invalid call must not create a record")
		}
	})

	t.Run("unparseable arguments are wrapped, not fatal", func(t *testing.T) {
		mock := llm.NewMockClient().
			QueueRawToolCall("create_client", `{not even json`).
			QueueFinalResponse("Sorry, that did not work.")

		runner := NewRunner(mock, crm.NewRepo())
		result, err := runner.Run(context.Background(), RunRequest{
			Message: "create a client", UserID: "user_1",
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		args, ok := result.Actions[0].Args.(map[string]any)
		if !ok {
			t.Fatalf("expected wrapped raw payload, got %T", result.Actions[0].Args)
		}
		if args["__raw"] != `{not even json` {
			t.Errorf("raw payload should be preserved, got %v", args)
		}
		if result.Actions[0].Error == "" {
			t.Error("unparseable call should surface a validation error")
		}
	})
}

func TestRun_AuthorizationGate(t *testing.T) {
	mock := llm.NewMockClient().
		QueueToolCall("create_client", map[string]any{"name": "ACME"}).
		QueueFinalResponse("Sorry, you cannot do that.")

	repo := crm.NewRepo()
	var audited []AuditEvent
	runner := NewRunner(mock, repo,
		WithCanMutate(func(string) bool { return false }),
		WithAuditFunc(func(event AuditEvent) { audited = append(audited, event) }),
	)

	result, err := runner.Run(context.Background(), RunRequest{
		Message: "create acme", UserID: "user_42",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	action := result.Actions[0]
	if !strings.Contains(action.Error, "user_42") ||
		!strings.Contains(action.Error, "not allowed to mutate") {
		t.Errorf("denial should name the user and restriction, got %q", action.Error)
	}
	if repo.Snapshot().Clients != 0 {
		t.Error("denied mutation must never touch the repository")
	}
	if len(audited) != 0 {
		t.Error("denied mutation must not emit an audit event")
	}
}

func TestRun_AuditEvents(t *testing.T) {
	mock := llm.NewMockClient().
		QueueToolCall("create_client", map[string]any{"name": "ACME"}).
		QueueToolCall("search_client", map[string]any{"query": "acme"}).
		QueueFinalResponse("Done.")

	var audited []AuditEvent
	runner := NewRunner(mock, crm.NewRepo(),
		WithAuditFunc(func(event AuditEvent) { audited = append(audited, event) }))

	if _, err := runner.Run(context.Background(), RunRequest{
		Message: "create then find acme", UserID: "user_7",
	}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(audited) != 1 {
		t.Fatalf("expected 1 audit event (mutations only), got %d", len(audited))
	}
	if audited[0].Tool != "create_client" || audited[0].UserID != "user_7" {
		t.Errorf("unexpected audit event %+v", audited[0])
	}
	if audited[0].Timestamp.IsZero() {
		t.Error("audit event must be timestamped")
	}
}

func TestRun_DomainErrorRecovered(t *testing.T) {
	mock := llm.NewMockClient().
		QueueToolCall("convert_lead", map[string]any{"lead_id": "lead_9999"}).
		QueueFinalResponse("That lead does not exist.")

	runner := NewRunner(mock, crm.NewSeededRepo())
	result, err := runner.Run(context.Background(), RunRequest{
		Message: "convert the ghost lead", UserID: "user_1",
	})
	if err != nil {
		t.Fatalf("domain errors must be recovered locally, got %v", err)
	}
	if !strings.Contains(result.Actions[0].Error, "lead_9999") {
		t.Errorf("error should carry the domain message, got %q", result.Actions[0].Error)
	}
	if result.Reply != "That lead does not exist." {
		t.Errorf("loop should continue to the final reply, got %q", result.Reply)
	}
}

func TestRun_BatchOrderPreserved(t *testing.T) {
	mock := llm.NewMockClient().
		QueueResponse(&llm.Response{
			StopReason: "tool_calls",
			ToolCalls: []llm.ToolCall{
				{ID: "call_a", Name: "create_client", Arguments: `{"name":"First Co"}`},
				{ID: "call_b", Name: "create_client", Arguments: `{"name":"Second Co"}`},
			},
		}).
		QueueFinalResponse("Created both.")

	runner := NewRunner(mock, crm.NewRepo())
	result, err := runner.Run(context.Background(), RunRequest{
		Message: "create two clients", UserID: "user_1",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(result.Actions))
	}
	first := result.Actions[0].Result.(*crm.CreateClientResult)
	second := result.Actions[1].Result.(*crm.CreateClientResult)
	if first.Client.Name != "First Co" || second.Client.Name != "Second Co" {
		t.Error("action log order must match invocation order")
	}
}

func TestRun_CapabilityErrorPropagates(t *testing.T) {
	mock := llm.NewMockClient().WithError(errors.New("provider unreachable"))
	runner := NewRunner(mock, crm.NewRepo())

	_, err := runner.Run(context.Background(), RunRequest{
		Message: "hello", UserID: "user_1",
	})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("expected ErrCompletionFailed, got %v", err)
	}
}

func TestRun_InputValidation(t *testing.T) {
	runner := NewRunner(llm.NewMockClient(), crm.NewRepo())

	if _, err := runner.Run(context.Background(), RunRequest{UserID: "u"}); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := runner.Run(context.Background(), RunRequest{Message: "m"}); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestRun_NoToolCalls(t *testing.T) {
	mock := llm.NewMockClient().QueueFinalResponse("Just chatting, nothing to do.")
	runner := NewRunner(mock, crm.NewRepo())

	result, err := runner.Run(context.Background(), RunRequest{
		Message: "hi there", UserID: "user_1",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Actions) != 0 {
		t.Errorf("expected zero actions, got %d", len(result.Actions))
	}
	if result.Reply != "Just chatting, nothing to do." {
		t.Errorf("unexpected reply %q", result.Reply)
	}
}
