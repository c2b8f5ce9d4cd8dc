// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is the context key for the request correlation id.
const requestIDKey = "harborcrm_request_id"

// RequestIDHeader is the header the id is echoed on.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a correlation id. An id supplied by
// the client on X-Request-ID is kept so upstream proxies can trace a
// call end to end; otherwise a fresh UUID is generated. The id is
// echoed on the response and stored in the context for log lines.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID retrieves the correlation id assigned by RequestID.
// Returns "" when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	if v, exists := c.Get(requestIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
