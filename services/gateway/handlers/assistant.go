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
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborpoint/HarborCRM/services/assistant/agent"
	"github.com/harborpoint/HarborCRM/services/gateway/datatypes"
	"github.com/harborpoint/HarborCRM/services/gateway/middleware"
)

// RunAssistant drives one assistant turn.
//
// # Description
//
// Accepts {message, userId}, runs the bounded tool loop, and returns
// {reply, actions}. The authenticated subject from the bearer token
// takes precedence over the userId in the body; the body field exists
// only for clients that have not yet adopted the login flow.
//
// Tool-level failures never surface here: the run result carries them
// in the action log. Only model-capability failures become a 500.
func RunAssistant(runner *agent.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AssistantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest,
				datatypes.ErrorResponse{Error: "Invalid request body."})
			return
		}

		userID := middleware.GetUserID(c)
		if userID == "" {
			userID = req.UserID
		}

		if strings.TrimSpace(req.Message) == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "message is required and must be a non-empty string.",
			})
			return
		}
		if strings.TrimSpace(userID) == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "userId is required and must be a non-empty string.",
			})
			return
		}

		result, err := runner.Run(c.Request.Context(), agent.RunRequest{
			Message: req.Message,
			UserID:  userID,
		})
		if err != nil {
			slog.Error("assistant run failed",
				"error", err, "userId", userID,
				"requestId", middleware.GetRequestID(c))
			c.JSON(http.StatusInternalServerError,
				datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		actions := result.Actions
		if actions == nil {
			actions = []agent.Action{}
		}
		c.JSON(http.StatusOK, datatypes.AssistantResponse{
			Reply:   result.Reply,
			Actions: actions,
		})
	}
}
