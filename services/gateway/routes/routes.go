// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/harborpoint/HarborCRM/services/assistant/agent"
	"github.com/harborpoint/HarborCRM/services/assistant/llm"
	"github.com/harborpoint/HarborCRM/services/crm"
	"github.com/harborpoint/HarborCRM/services/gateway/auth"
	"github.com/harborpoint/HarborCRM/services/gateway/config"
	"github.com/harborpoint/HarborCRM/services/gateway/handlers"
	"github.com/harborpoint/HarborCRM/services/gateway/middleware"
)

// Deps carries everything the route table needs. Authenticator may be
// nil when credentials are not configured; the login endpoint then
// reports the service as unconfigured and the protected group rejects
// every request.
type Deps struct {
	Config        config.Config
	Authenticator *auth.Authenticator
	Model         llm.Client
	Repo          *crm.Repo
	Runner        *agent.Runner
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(middleware.RequestID())

	router.GET("/health", handlers.HealthCheck(deps.Config.Model))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", handlers.Login(deps.Authenticator))

		limiter := rate.NewLimiter(
			rate.Limit(deps.Config.RateLimit.RequestsPerSecond),
			deps.Config.RateLimit.Burst)

		protected := v1.Group("")
		protected.Use(middleware.RequireAuth(deps.Authenticator))
		{
			protected.POST("/assistant",
				middleware.RateLimit(limiter), handlers.RunAssistant(deps.Runner))
			protected.POST("/ai/snapshot", handlers.Snapshot(deps.Model, deps.Repo))
		}
	}
}
