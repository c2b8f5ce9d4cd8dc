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

import (
	"fmt"
	"time"

	"github.com/harborpoint/HarborCRM/services/crm"
)

// Execute dispatches a validated tool call onto its repository operation.
//
// Description:
//
//	Each tool maps 1:1 onto one Repo operation. The args value must come
//	from ValidateArgs for the same tool name; a name outside the registry
//	or a mismatched args type is a programming error and is reported as
//	one rather than executed.
//
// Inputs:
//
//	name - Tool name from the registry.
//	args - Typed arguments produced by ValidateArgs.
//	repo - The repository to mutate or query.
//
// Outputs:
//
//	any - The operation result (JSON-serializable).
//	error - Repository errors (e.g. crm.ErrNotFound) pass through.
func Execute(name string, args any, repo *crm.Repo) (any, error) {
	switch name {
	case ToolCreateClient:
		typed, ok := args.(*CreateClientArgs)
		if !ok {
			return nil, argsTypeError(name, args)
		}
		return repo.CreateClient(crm.CreateClientInput{
			Name:    typed.Name,
			Email:   typed.Email,
			Phone:   typed.Phone,
			OwnerID: typed.OwnerID,
			Tags:    typed.Tags,
		})

	case ToolConvertLead:
		typed, ok := args.(*ConvertLeadArgs)
		if !ok {
			return nil, argsTypeError(name, args)
		}
		return repo.ConvertLead(crm.ConvertLeadInput{
			LeadID:      typed.LeadID,
			ConvertedAt: parseTimestamp(typed.ConvertedAt),
			DealValue:   typed.DealValue,
			Notes:       typed.Notes,
		})

	case ToolAddService:
		typed, ok := args.(*AddServiceArgs)
		if !ok {
			return nil, argsTypeError(name, args)
		}
		return repo.AddService(crm.AddServiceInput{
			ClientID:    typed.ClientID,
			ServiceCode: typed.ServiceCode,
			Qty:         *typed.Qty,
			UnitPrice:   *typed.UnitPrice,
			PerformedAt: parseTimestamp(typed.PerformedAt),
			Notes:       typed.Notes,
		})

	case ToolSearchClient:
		typed, ok := args.(*SearchArgs)
		if !ok {
			return nil, argsTypeError(name, args)
		}
		return repo.SearchClients(typed.Query), nil

	case ToolSearchLead:
		typed, ok := args.(*SearchArgs)
		if !ok {
			return nil, argsTypeError(name, args)
		}
		return repo.SearchLeads(typed.Query), nil

	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// parseTimestamp converts an already-validated RFC 3339 string to a
// *time.Time, or nil when absent.
func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &parsed
}

func argsTypeError(name string, args any) error {
	return fmt.Errorf("mismatched arguments type %T for tool %q", args, name)
}
