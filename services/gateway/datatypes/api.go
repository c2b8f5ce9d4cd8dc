// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the gateway's request and response bodies.
package datatypes

import "github.com/harborpoint/HarborCRM/services/assistant/agent"

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// AssistantRequest is the body for POST /v1/assistant.
//
// UserID is a fallback only; when the request carries a valid bearer
// token the authenticated subject wins.
type AssistantRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

// AssistantResponse mirrors the assistant run result: the final reply
// plus the ordered action log of every attempted tool call.
type AssistantResponse struct {
	Reply   string         `json:"reply"`
	Actions []agent.Action `json:"actions"`
}

// SnapshotRequest is the body for POST /v1/ai/snapshot. All fields are
// optional; an empty body summarizes the repository's own stats.
type SnapshotRequest struct {
	Metrics    map[string]any `json:"metrics,omitempty"`
	TopLeads   []any          `json:"topLeads,omitempty"`
	TopClients []any          `json:"topClients,omitempty"`
}

// SnapshotResponse carries the generated ops snapshot.
type SnapshotResponse struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	OK    bool   `json:"ok"`
	Model string `json:"model"`
}

// ErrorResponse is the uniform error body for every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
