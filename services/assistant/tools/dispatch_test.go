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
	"encoding/json"
	"errors"
	"testing"

	"github.com/harborpoint/HarborCRM/services/crm"
)

// run validates then dispatches, the way the agent loop does.
func run(t *testing.T, repo *crm.Repo, name, rawArgs string) (any, error) {
	t.Helper()
	args, err := ValidateArgs(name, json.RawMessage(rawArgs))
	if err != nil {
		t.Fatalf("validation failed for %s: %v", name, err)
	}
	return Execute(name, args, repo)
}

func TestExecute(t *testing.T) {
	t.Run("create_client maps onto the repository", func(t *testing.T) {
		repo := crm.NewRepo()
		result, err := run(t, repo, ToolCreateClient,
			`{"name":"ACME Landscaping","email":"a@acme.com"}`)
		if err != nil {
			t.Fatalf("execute failed: %v", err)
		}
		created, ok := result.(*crm.CreateClientResult)
		if !ok {
			t.Fatalf("expected *crm.CreateClientResult, got %T", result)
		}
		if created.Client.Name != "ACME Landscaping" {
			t.Errorf("unexpected client name %q", created.Client.Name)
		}
	})

	t.Run("convert_lead passes domain errors through", func(t *testing.T) {
		repo := crm.NewRepo()
		_, err := run(t, repo, ToolConvertLead, `{"lead_id":"lead_9999"}`)
		if !errors.Is(err, crm.ErrNotFound) {
			t.Errorf("expected crm.ErrNotFound, got %v", err)
		}
	})

	t.Run("add_service computes total", func(t *testing.T) {
		repo := crm.NewSeededRepo()
		result, err := run(t, repo, ToolAddService,
			`{"client_id":"client_0001","service_code":"SEO-AUDIT","qty":2,"unit_price":150}`)
		if err != nil {
			t.Fatalf("execute failed: %v", err)
		}
		added := result.(*crm.AddServiceResult)
		if added.Service.Total != 300 {
			t.Errorf("expected total 300, got %v", added.Service.Total)
		}
	})

	t.Run("search tools are read-only lookups", func(t *testing.T) {
		repo := crm.NewSeededRepo()
		result, err := run(t, repo, ToolSearchLead, `{"query":"acme"}`)
		if err != nil {
			t.Fatalf("execute failed: %v", err)
		}
		hits := result.([]crm.SearchResult)
		if len(hits) != 1 || hits[0].ID != "123" {
			t.Errorf("expected lead 123, got %v", hits)
		}
	})

	t.Run("unknown name is an error, never a dispatch", func(t *testing.T) {
		repo := crm.NewRepo()
		_, err := Execute("drop_tables", &SearchArgs{Query: "x"}, repo)
		if err == nil {
			t.Error("expected error for unknown tool")
		}
	})
}
