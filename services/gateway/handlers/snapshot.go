// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborpoint/HarborCRM/services/assistant/llm"
	"github.com/harborpoint/HarborCRM/services/crm"
	"github.com/harborpoint/HarborCRM/services/gateway/datatypes"
)

// snapshotMaxTokens caps the ops snapshot length.
const snapshotMaxTokens = 260

// Snapshot generates a short operations briefing from CRM metrics.
//
// # Description
//
// Accepts optional {metrics, topLeads, topClients} and returns a
// one-shot model completion: most urgent lead action, most important
// client action, revenue risk and opportunity, and one 48-hour focus
// recommendation. An empty body falls back to the repository's own
// stats so the endpoint works without a reporting pipeline in front
// of it.
//
// This is a plain completion, not a tool loop; the snapshot never
// reads or writes individual records.
func Snapshot(model llm.Client, repo *crm.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SnapshotRequest
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			c.JSON(http.StatusBadRequest,
				datatypes.ErrorResponse{Error: "Invalid request body."})
			return
		}

		metrics := any(req.Metrics)
		if req.Metrics == nil && repo != nil {
			metrics = repo.Snapshot()
		}

		prompt := buildSnapshotPrompt(metrics, req.TopLeads, req.TopClients)
		response, err := model.Complete(c.Request.Context(), &llm.Request{
			Messages:  []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens: snapshotMaxTokens,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError,
				datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		text := response.Content
		if text == "" {
			text = "No summary returned."
		}
		c.JSON(http.StatusOK, datatypes.SnapshotResponse{
			Model: model.Model(),
			Text:  text,
		})
	}
}

func buildSnapshotPrompt(metrics any, topLeads, topClients []any) string {
	if topLeads == nil {
		topLeads = []any{}
	}
	if topClients == nil {
		topClients = []any{}
	}

	prompt := fmt.Sprintf(`You are a concise operations strategist for a small marketing agency.
Write a short snapshot with:
1) Most urgent lead action
2) Most important client action
3) Revenue risk and revenue opportunity
4) One focus recommendation for the next 48 hours

Keep it under 140 words and use plain language.

Metrics:
%s

Top leads:
%s

Top clients:
%s`, jsonBlock(metrics), jsonBlock(topLeads), jsonBlock(topClients))

	return strings.TrimSpace(prompt)
}

func jsonBlock(v any) string {
	if v == nil {
		v = map[string]any{}
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}
