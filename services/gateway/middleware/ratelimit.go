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
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/harborpoint/HarborCRM/services/gateway/datatypes"
)

// RateLimit creates a Gin middleware that bounds request throughput with
// a shared token bucket. The limiter is process-wide, not per client;
// the assistant endpoint fronts a single-tenant store so one bucket is
// the intended granularity.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				datatypes.ErrorResponse{Error: "Too many requests. Please slow down."})
			return
		}
		c.Next()
	}
}
