// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the gateway service.
//
// # Authentication Flow
//
// RequireAuth extracts a bearer token from the Authorization header,
// verifies it with the configured Authenticator, and stores the token
// subject in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	RequireAuth
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► authenticator.VerifyToken(token)
//	   │
//	   └─► Store subject in context
//	           │
//	           ▼
//	       Handler (retrieves via GetUserID)
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harborpoint/HarborCRM/services/gateway/auth"
	"github.com/harborpoint/HarborCRM/services/gateway/datatypes"
)

// userIDKey is the context key for the authenticated subject.
// Using a namespaced key prevents collisions with other context values.
const userIDKey = "harborcrm_user_id"

// SetUserID stores the authenticated subject in the Gin context.
func SetUserID(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
}

// GetUserID retrieves the authenticated subject from the Gin context.
// Returns "" when the request did not pass RequireAuth.
func GetUserID(c *gin.Context) string {
	if v, exists := c.Get(userIDKey); exists {
		if userID, ok := v.(string); ok {
			return userID
		}
	}
	return ""
}

// RequireAuth creates a Gin middleware that rejects requests without a
// valid session token.
//
// # Inputs
//
//   - authenticator: Verifies tokens. Must not be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: Aborts with 401 on a missing or invalid token,
//     otherwise stores the subject and continues.
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func RequireAuth(authenticator *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				datatypes.ErrorResponse{Error: "Missing bearer token."})
			return
		}

		if authenticator == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				datatypes.ErrorResponse{Error: "Authentication service is not configured."})
			return
		}

		payload := authenticator.VerifyToken(token)
		if payload == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				datatypes.ErrorResponse{Error: "Session expired or invalid token."})
			return
		}

		SetUserID(c, payload.Sub)
		c.Next()
	}
}
