// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import "sort"

// Registry is the fixed allowlist of assistant tools.
//
// Unlike a general plugin registry there is no runtime registration: the
// set of five tools is closed at compile time.
//
// Thread Safety: Registry is immutable after construction.
type Registry struct {
	byName map[string]ToolDefinition
}

// NewRegistry creates the registry with the five allowlisted tools.
func NewRegistry() *Registry {
	defs := []ToolDefinition{
		{
			Name: ToolCreateClient,
			Description: "Create a CRM client. Required: name. " +
				"Optional: email, phone, owner_id, tags.",
			Parameters: map[string]ParamDef{
				"name":     {Type: ParamTypeString, Required: true},
				"email":    {Type: ParamTypeString, Format: "email"},
				"phone":    {Type: ParamTypeString},
				"owner_id": {Type: ParamTypeString},
				"tags": {
					Type:  ParamTypeArray,
					Items: &ParamDef{Type: ParamTypeString},
				},
			},
			SideEffects: true,
		},
		{
			Name: ToolConvertLead,
			Description: "Convert an existing lead to a client. Required: lead_id. " +
				"Optional: converted_at, deal_value, notes.",
			Parameters: map[string]ParamDef{
				"lead_id":      {Type: ParamTypeString, Required: true},
				"converted_at": {Type: ParamTypeString},
				"deal_value":   {Type: ParamTypeNumber},
				"notes":        {Type: ParamTypeString},
			},
			SideEffects: true,
		},
		{
			Name: ToolAddService,
			Description: "Add a performed service line item to a client. " +
				"Required: client_id, service_code, qty, unit_price.",
			Parameters: map[string]ParamDef{
				"client_id":    {Type: ParamTypeString, Required: true},
				"service_code": {Type: ParamTypeString, Required: true},
				"qty":          {Type: ParamTypeNumber, Required: true},
				"unit_price":   {Type: ParamTypeNumber, Required: true},
				"performed_at": {Type: ParamTypeString},
				"notes":        {Type: ParamTypeString},
			},
			SideEffects: true,
		},
		{
			Name:        ToolSearchClient,
			Description: "Search clients by name and return top 5 { id, name }.",
			Parameters: map[string]ParamDef{
				"query": {Type: ParamTypeString, Required: true},
			},
			SideEffects: false,
		},
		{
			Name:        ToolSearchLead,
			Description: "Search leads by name and return top 5 { id, name }.",
			Parameters: map[string]ParamDef{
				"query": {Type: ParamTypeString, Required: true},
			},
			SideEffects: false,
		},
	}

	byName := make(map[string]ToolDefinition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	return &Registry{byName: byName}
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (ToolDefinition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Has reports whether the name is in the allowlist.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Mutating reports whether the named tool alters repository state.
// Unknown names are not mutating (they are rejected before dispatch).
func (r *Registry) Mutating(name string) bool {
	def, ok := r.byName[name]
	return ok && def.SideEffects
}

// Names returns all tool names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all tool definitions in stable name order.
func (r *Registry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.byName))
	for _, name := range r.Names() {
		defs = append(defs, r.byName[name])
	}
	return defs
}
