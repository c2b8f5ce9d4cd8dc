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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/harborpoint/HarborCRM/services/assistant/tools"
)

// defaultOpenAIModel is used when OPENAI_MODEL is not set.
const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient implements Client on the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI-backed model client.
//
// Description:
//
//	The API key is read from OPENAI_API_KEY, falling back to the container
//	secret at /run/secrets/openai_api_key. An empty model argument falls
//	back to OPENAI_MODEL, then to the package default.
//
// Outputs:
//
//	*OpenAIClient - The configured client.
//	error - Non-nil if no API key is available.
func NewOpenAIClient(model string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API key from container secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found",
				"path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = defaultOpenAIModel
		slog.Warn("OPENAI_MODEL not set, defaulting", "model", model)
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name implements Client.
func (o *OpenAIClient) Name() string { return "openai" }

// Model implements Client.
func (o *OpenAIClient) Model() string { return o.model }

// Complete implements Client.
//
// Description:
//
//	Sends the request as one chat completion turn. Turn context is carried
//	by the message history in the request; PreviousID is accepted for
//	providers with native response linkage and is unused here.
func (o *OpenAIClient) Complete(ctx context.Context, request *Request) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toChatMessages(request),
	}
	if len(request.Tools) > 0 {
		req.Tools = toChatTools(request.Tools)
		if request.ToolChoice != "" {
			req.ToolChoice = request.ToolChoice
		}
	}
	if request.MaxTokens > 0 {
		req.MaxCompletionTokens = request.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	response := &Response{
		ID:         resp.ID,
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}
	for _, call := range choice.Message.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	slog.Debug("Received response from OpenAI",
		"finish_reason", choice.FinishReason,
		"tool_calls", len(response.ToolCalls))
	return response, nil
}

// toChatMessages flattens the request into chat completion messages.
func toChatMessages(request *Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.Messages)+1)
	if request.Instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: request.Instructions,
		})
	}

	for _, msg := range request.Messages {
		if len(msg.ToolResults) > 0 {
			for _, result := range msg.ToolResults {
				messages = append(messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    result.Content,
					ToolCallID: result.ToolCallID,
				})
			}
			continue
		}

		converted := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		for _, call := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		messages = append(messages, converted)
	}
	return messages
}

// toChatTools converts tool definitions to the OpenAI function format.
func toChatTools(defs []tools.ToolDefinition) []openai.Tool {
	converted := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		converted = append(converted, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Strict:      true,
				Parameters:  def.JSONSchema(),
			},
		})
	}
	return converted
}
