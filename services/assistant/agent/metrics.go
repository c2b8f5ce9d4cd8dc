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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	outcomeCompleted       = "completed"
	outcomeBudgetExhausted = "budget_exhausted"
	outcomeCapabilityError = "capability_error"
)

// Tool call outcomes.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeInvalid  = "invalid"
	outcomeDenied   = "denied"
	outcomeError    = "error"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harborcrm",
		Subsystem: "assistant",
		Name:      "runs_total",
		Help:      "Assistant runs by terminal outcome.",
	}, []string{"outcome"})

	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "harborcrm",
		Subsystem: "assistant",
		Name:      "steps_total",
		Help:      "Model turns that issued at least one tool call.",
	})

	toolExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harborcrm",
		Subsystem: "assistant",
		Name:      "tool_executions_total",
		Help:      "Tool call attempts by tool and outcome.",
	}, []string{"tool", "outcome"})
)
