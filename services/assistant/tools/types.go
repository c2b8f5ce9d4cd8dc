// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools declares the closed set of operations the assistant may
// invoke against the CRM repository.
//
// Each tool is described by a ToolDefinition (serializable to JSON Schema
// for LLM tool-calling APIs), a typed argument struct with strict
// validation, and a 1:1 dispatch onto a repository operation. No tool
// outside this registry is ever dispatched.
//
// Thread Safety:
//
//	All types in this package are designed for concurrent use.
package tools

import "sort"

// Tool names form the complete allowlist. Any model-issued call naming
// anything else is rejected as an error result, never executed.
const (
	ToolCreateClient = "create_client"
	ToolConvertLead  = "convert_lead"
	ToolAddService   = "add_service"
	ToolSearchClient = "search_client"
	ToolSearchLead   = "search_lead"
)

// ParamType represents the JSON Schema type of a tool parameter.
type ParamType string

const (
	// ParamTypeString is a string parameter.
	ParamTypeString ParamType = "string"

	// ParamTypeNumber is a numeric parameter.
	ParamTypeNumber ParamType = "number"

	// ParamTypeArray is an array parameter.
	ParamTypeArray ParamType = "array"
)

// ParamDef defines a single parameter for a tool.
type ParamDef struct {
	// Type is the parameter type.
	Type ParamType `json:"type"`

	// Description explains what the parameter is for.
	Description string `json:"description,omitempty"`

	// Required indicates if the parameter must be provided.
	Required bool `json:"required"`

	// Format is an optional JSON Schema format hint (e.g. "email").
	Format string `json:"format,omitempty"`

	// Items defines the array item type (for array type).
	Items *ParamDef `json:"items,omitempty"`
}

// ToolDefinition describes a tool's interface for the LLM.
type ToolDefinition struct {
	// Name is the unique identifier for the tool.
	Name string `json:"name"`

	// Description explains what the tool does.
	Description string `json:"description"`

	// Parameters defines the input parameters.
	Parameters map[string]ParamDef `json:"parameters"`

	// SideEffects indicates if the tool mutates repository state.
	// Mutating tools are subject to the authorization hook and audit log.
	SideEffects bool `json:"side_effects"`
}

// JSONSchema renders the definition's parameters as a strict JSON Schema
// object: unknown fields rejected, required fields enforced.
func (d *ToolDefinition) JSONSchema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))

	for _, name := range sortedParamNames(d.Parameters) {
		param := d.Parameters[name]
		properties[name] = paramSchema(param)
		if param.Required {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// sortedParamNames returns parameter names in stable order so the rendered
// schema (and its required list) is deterministic.
func sortedParamNames(params map[string]ParamDef) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// paramSchema renders one ParamDef as a JSON Schema fragment.
func paramSchema(param ParamDef) map[string]any {
	schema := map[string]any{"type": string(param.Type)}
	if param.Description != "" {
		schema["description"] = param.Description
	}
	if param.Format != "" {
		schema["format"] = param.Format
	}
	if param.Items != nil {
		schema["items"] = paramSchema(*param.Items)
	}
	return schema
}

// CreateClientArgs are the validated arguments for create_client.
type CreateClientArgs struct {
	Name    string   `json:"name" validate:"required,notblank"`
	Email   string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string   `json:"phone,omitempty" validate:"omitempty,notblank"`
	OwnerID string   `json:"owner_id,omitempty" validate:"omitempty,notblank"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,dive,notblank"`
}

// ConvertLeadArgs are the validated arguments for convert_lead.
type ConvertLeadArgs struct {
	LeadID      string   `json:"lead_id" validate:"required,notblank"`
	ConvertedAt string   `json:"converted_at,omitempty" validate:"omitempty,rfc3339"`
	DealValue   *float64 `json:"deal_value,omitempty" validate:"omitempty,gte=0"`
	Notes       string   `json:"notes,omitempty" validate:"omitempty,notblank"`
}

// AddServiceArgs are the validated arguments for add_service.
//
// Qty and UnitPrice are pointers so that a missing field is reported as
// "required" rather than silently treated as zero.
type AddServiceArgs struct {
	ClientID    string   `json:"client_id" validate:"required,notblank"`
	ServiceCode string   `json:"service_code" validate:"required,notblank"`
	Qty         *float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice   *float64 `json:"unit_price" validate:"required,gte=0"`
	PerformedAt string   `json:"performed_at,omitempty" validate:"omitempty,rfc3339"`
	Notes       string   `json:"notes,omitempty" validate:"omitempty,notblank"`
}

// SearchArgs are the validated arguments for search_client and search_lead.
type SearchArgs struct {
	Query string `json:"query" validate:"required,notblank"`
}
