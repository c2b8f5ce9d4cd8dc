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
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborpoint/HarborCRM/services/gateway/auth"
	"github.com/harborpoint/HarborCRM/services/gateway/datatypes"
)

// Login validates the single-tenant credential pair and issues a
// session token.
//
// # Description
//
// Accepts {username, password}, checks them against the configured
// pair, and returns {token, userId}. Failure modes:
//
//   - 400 on a missing or blank field
//   - 401 on a credential mismatch
//   - 500 when no authenticator is configured
//
// # Inputs
//
//   - authenticator: Credential checker and token issuer. May be nil
//     when AUTH_USERNAME/AUTH_PASSWORD/AUTH_SECRET are absent.
func Login(authenticator *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest,
				datatypes.ErrorResponse{Error: "Invalid request body."})
			return
		}

		if strings.TrimSpace(req.Username) == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "username is required and must be a non-empty string.",
			})
			return
		}
		if req.Password == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "password is required and must be a string.",
			})
			return
		}

		if authenticator == nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "Authentication service is not configured.",
			})
			return
		}

		if !authenticator.ValidateCredentials(req.Username, req.Password) {
			c.JSON(http.StatusUnauthorized, datatypes.ErrorResponse{
				Error: "Invalid credentials. Please try again.",
			})
			return
		}

		userID := strings.ToLower(strings.TrimSpace(req.Username))
		c.JSON(http.StatusOK, datatypes.LoginResponse{
			Token:  authenticator.IssueToken(userID),
			UserID: userID,
		})
	}
}
