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
	"encoding/json"
	"log/slog"
	"time"
)

// AuditEvent is one committed-mutation record. The contract is append-only,
// one event per committed mutation; the sink may be swapped for a durable
// audit store without changing that shape.
type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	UserID        string    `json:"userId"`
	Tool          string    `json:"tool"`
	Args          any       `json:"args"`
	ResultSummary string    `json:"resultSummary"`
}

// AuditFunc receives one event per successful mutation tool execution.
type AuditFunc func(event AuditEvent)

// NewAuditEvent builds an event for a committed mutation.
func NewAuditEvent(userID, tool string, args, result any) AuditEvent {
	return AuditEvent{
		Timestamp:     time.Now().UTC(),
		UserID:        userID,
		Tool:          tool,
		Args:          args,
		ResultSummary: summarizeResult(result),
	}
}

// LogAudit is the default sink: one structured log line per mutation.
func LogAudit(event AuditEvent) {
	slog.Info("crm-audit",
		"timestamp", event.Timestamp.Format(time.RFC3339),
		"user_id", event.UserID,
		"tool", event.Tool,
		"args", event.Args,
		"result_summary", event.ResultSummary,
	)
}

// summarizeResult reduces a tool result to a short audit summary: the
// entity id if present, else a status field, else "ok".
func summarizeResult(result any) string {
	if text, ok := result.(string); ok {
		return text
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "ok"
	}
	var object map[string]any
	if err := json.Unmarshal(encoded, &object); err != nil {
		return "ok"
	}
	if id, ok := object["id"].(string); ok {
		return "id=" + id
	}
	if status, ok := object["status"].(string); ok {
		return "status=" + status
	}
	return "ok"
}
