// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockClient is a scripted model client for testing.
//
// Responses are consumed from a queue; when the queue is empty the default
// response is returned. Every request is recorded for assertions.
//
// Thread Safety:
//
//	MockClient is safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// responses are queued responses to return in order.
	responses []*Response

	// defaultResponse is returned when no queued responses remain.
	defaultResponse *Response

	// responseFunc allows dynamic response generation; it takes
	// precedence over the queue.
	responseFunc func(*Request) (*Response, error)

	// errorToReturn causes Complete to fail.
	errorToReturn error

	// calls records all requests passed to Complete.
	calls []*Request

	// seq numbers generated response ids.
	seq int
}

// NewMockClient creates a new scripted model client.
func NewMockClient() *MockClient {
	return &MockClient{
		defaultResponse: &Response{
			Content:    "Mock response",
			StopReason: "stop",
		},
	}
}

// WithError configures the client to fail every completion.
func (c *MockClient) WithError(err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorToReturn = err
	return c
}

// WithResponseFunc sets a dynamic response function.
func (c *MockClient) WithResponseFunc(f func(*Request) (*Response, error)) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseFunc = f
	return c
}

// QueueResponse appends a response to the queue, assigning an id if unset.
func (c *MockClient) QueueResponse(response *Response) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if response.ID == "" {
		response.ID = fmt.Sprintf("resp_%d", c.seq)
	}
	c.responses = append(c.responses, response)
	return c
}

// QueueToolCall queues a response requesting a single tool invocation.
func (c *MockClient) QueueToolCall(toolName string, arguments map[string]any) *MockClient {
	argsJSON, _ := json.Marshal(arguments)
	return c.QueueResponse(&Response{
		StopReason: "tool_calls",
		ToolCalls: []ToolCall{{
			ID:        fmt.Sprintf("call_%d", len(c.responses)+1),
			Name:      toolName,
			Arguments: string(argsJSON),
		}},
	})
}

// QueueRawToolCall queues a tool invocation with verbatim argument text,
// useful for exercising unparseable payloads.
func (c *MockClient) QueueRawToolCall(toolName, rawArguments string) *MockClient {
	return c.QueueResponse(&Response{
		StopReason: "tool_calls",
		ToolCalls: []ToolCall{{
			ID:        fmt.Sprintf("call_%d", len(c.responses)+1),
			Name:      toolName,
			Arguments: rawArguments,
		}},
	})
}

// QueueFinalResponse queues a plain-text response with no tool calls.
func (c *MockClient) QueueFinalResponse(content string) *MockClient {
	return c.QueueResponse(&Response{
		Content:    content,
		StopReason: "stop",
	})
}

// Calls returns the recorded requests in order.
func (c *MockClient) Calls() []*Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	recorded := make([]*Request, len(c.calls))
	copy(recorded, c.calls)
	return recorded
}

// Name implements Client.
func (c *MockClient) Name() string { return "mock" }

// Model implements Client.
func (c *MockClient) Model() string { return "mock-model" }

// Complete implements Client.
func (c *MockClient) Complete(_ context.Context, request *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, request)

	if c.errorToReturn != nil {
		return nil, c.errorToReturn
	}
	if c.responseFunc != nil {
		return c.responseFunc(request)
	}
	if len(c.responses) > 0 {
		next := c.responses[0]
		c.responses = c.responses[1:]
		return next, nil
	}

	c.seq++
	fallback := *c.defaultResponse
	fallback.ID = fmt.Sprintf("resp_%d", c.seq)
	return &fallback, nil
}
