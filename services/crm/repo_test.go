// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crm

import (
	"errors"
	"testing"
	"time"
)

func TestCreateClient_Idempotency(t *testing.T) {
	t.Run("repeat inside window returns the same record", func(t *testing.T) {
		repo := NewRepo()

		first, err := repo.CreateClient(CreateClientInput{
			Name:  "ACME Landscaping",
			Email: "a@acme.com",
		})
		if err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		if first.Idempotent {
			t.Error("first create should not be idempotent")
		}

		second, err := repo.CreateClient(CreateClientInput{
			Name:  "acme landscaping ",
			Email: "A@ACME.COM",
		})
		if err != nil {
			t.Fatalf("second create failed: %v", err)
		}
		if !second.Idempotent {
			t.Error("second create should be idempotent")
		}
		if second.Client.ID != first.Client.ID {
			t.Errorf("expected id %s, got %s", first.Client.ID, second.Client.ID)
		}
	})

	t.Run("repeat past window creates a new record", func(t *testing.T) {
		current := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
		repo := NewRepo(WithClock(func() time.Time { return current }))

		first, err := repo.CreateClient(CreateClientInput{Name: "ACME Landscaping"})
		if err != nil {
			t.Fatalf("first create failed: %v", err)
		}

		current = current.Add(5*time.Minute + time.Second)

		second, err := repo.CreateClient(CreateClientInput{Name: "ACME Landscaping"})
		if err != nil {
			t.Fatalf("second create failed: %v", err)
		}
		if second.Idempotent {
			t.Error("create past the window should not be idempotent")
		}
		if second.Client.ID == first.Client.ID {
			t.Error("create past the window should mint a new id")
		}
	})

	t.Run("different email inside window creates a new record", func(t *testing.T) {
		repo := NewRepo()

		first, _ := repo.CreateClient(CreateClientInput{Name: "ACME", Email: "a@acme.com"})
		second, err := repo.CreateClient(CreateClientInput{Name: "ACME", Email: "b@acme.com"})
		if err != nil {
			t.Fatalf("second create failed: %v", err)
		}
		if second.Idempotent || second.Client.ID == first.Client.ID {
			t.Error("different email must not dedupe")
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		repo := NewRepo()
		_, err := repo.CreateClient(CreateClientInput{Name: "   "})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("tags trimmed and deduplicated", func(t *testing.T) {
		repo := NewRepo()
		result, err := repo.CreateClient(CreateClientInput{
			Name: "ACME",
			Tags: []string{" vip ", "vip", "", "retainer"},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		want := []string{"vip", "retainer"}
		if len(result.Client.Tags) != len(want) {
			t.Fatalf("expected tags %v, got %v", want, result.Client.Tags)
		}
		for i, tag := range want {
			if result.Client.Tags[i] != tag {
				t.Errorf("tag %d: expected %q, got %q", i, tag, result.Client.Tags[i])
			}
		}
	})
}

func TestConvertLead(t *testing.T) {
	t.Run("converts and links a client", func(t *testing.T) {
		repo := NewSeededRepo()
		dealValue := 5000.0

		result, err := repo.ConvertLead(ConvertLeadInput{
			LeadID:    "lead_0002",
			DealValue: &dealValue,
		})
		if err != nil {
			t.Fatalf("convert failed: %v", err)
		}

		if result.Lead.Status != LeadStatusConverted {
			t.Errorf("expected status converted, got %s", result.Lead.Status)
		}
		if result.Lead.ConvertedAt == nil {
			t.Error("converted_at should be stamped")
		}
		if result.Lead.DealValue == nil || *result.Lead.DealValue != 5000 {
			t.Error("deal_value should be stamped")
		}
		if result.Lead.ConvertedClientID != result.Client.ID {
			t.Errorf("lead should link to client %s, got %s",
				result.Client.ID, result.Lead.ConvertedClientID)
		}

		tagged := false
		for _, tag := range result.Client.Tags {
			if tag == "converted-lead" {
				tagged = true
			}
		}
		if !tagged {
			t.Errorf("client tags should include converted-lead, got %v", result.Client.Tags)
		}
	})

	t.Run("unknown lead returns not found", func(t *testing.T) {
		repo := NewSeededRepo()
		_, err := repo.ConvertLead(ConvertLeadInput{LeadID: "lead_9999"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("repeat conversion reuses the client", func(t *testing.T) {
		repo := NewSeededRepo()

		first, err := repo.ConvertLead(ConvertLeadInput{LeadID: "lead_0002"})
		if err != nil {
			t.Fatalf("first convert failed: %v", err)
		}
		second, err := repo.ConvertLead(ConvertLeadInput{LeadID: "lead_0002"})
		if err != nil {
			t.Fatalf("second convert failed: %v", err)
		}
		if !second.Idempotent {
			t.Error("second convert should hit the client idempotency window")
		}
		if second.Client.ID != first.Client.ID {
			t.Error("repeat conversion must not duplicate the client")
		}
	})
}

func TestAddService(t *testing.T) {
	t.Run("appends a line item with fixed total", func(t *testing.T) {
		repo := NewSeededRepo()

		result, err := repo.AddService(AddServiceInput{
			ClientID:    "client_0001",
			ServiceCode: "SEO-AUDIT",
			Qty:         3,
			UnitPrice:   150,
		})
		if err != nil {
			t.Fatalf("add service failed: %v", err)
		}
		if result.Service.Total != 450 {
			t.Errorf("expected total 450, got %v", result.Service.Total)
		}
		if result.Client.ID != "client_0001" {
			t.Errorf("expected client_0001, got %s", result.Client.ID)
		}
	})

	t.Run("repeat calls append, never dedupe", func(t *testing.T) {
		repo := NewSeededRepo()
		input := AddServiceInput{
			ClientID:    "client_0001",
			ServiceCode: "MOWING",
			Qty:         1,
			UnitPrice:   80,
		}

		first, _ := repo.AddService(input)
		second, err := repo.AddService(input)
		if err != nil {
			t.Fatalf("second add failed: %v", err)
		}
		if second.Service.ID == first.Service.ID {
			t.Error("repeat service must mint a new line item")
		}
	})

	t.Run("unknown client returns not found", func(t *testing.T) {
		repo := NewSeededRepo()
		_, err := repo.AddService(AddServiceInput{
			ClientID:    "client_9999",
			ServiceCode: "MOWING",
			Qty:         1,
			UnitPrice:   80,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	repo := NewSeededRepo()

	t.Run("case-insensitive substring on clients", func(t *testing.T) {
		results := repo.SearchClients("northline")
		if len(results) != 1 || results[0].ID != "client_0001" {
			t.Errorf("expected client_0001, got %v", results)
		}
	})

	t.Run("case-insensitive substring on leads", func(t *testing.T) {
		results := repo.SearchLeads("SUMMIT")
		if len(results) != 1 || results[0].ID != "lead_0002" {
			t.Errorf("expected lead_0002, got %v", results)
		}
	})

	t.Run("results capped at five", func(t *testing.T) {
		capped := NewRepo()
		names := []string{
			"Acme One", "Acme Two", "Acme Three", "Acme Four",
			"Acme Five", "Acme Six", "Acme Seven",
		}
		for _, name := range names {
			if _, err := capped.CreateClient(CreateClientInput{Name: name}); err != nil {
				t.Fatalf("seed create failed: %v", err)
			}
		}
		results := capped.SearchClients("acme")
		if len(results) != 5 {
			t.Errorf("expected 5 results, got %d", len(results))
		}
	})

	t.Run("newest first", func(t *testing.T) {
		ordered := NewRepo()
		_, _ = ordered.CreateClient(CreateClientInput{Name: "Acme Old"})
		newest, _ := ordered.CreateClient(CreateClientInput{Name: "Acme New"})

		results := ordered.SearchClients("acme")
		if len(results) < 2 || results[0].ID != newest.Client.ID {
			t.Errorf("expected newest client first, got %v", results)
		}
	})
}

func TestSnapshot(t *testing.T) {
	repo := NewSeededRepo()
	if _, err := repo.ConvertLead(ConvertLeadInput{LeadID: "123"}); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if _, err := repo.AddService(AddServiceInput{
		ClientID:    "client_0001",
		ServiceCode: "SEO-AUDIT",
		Qty:         2,
		UnitPrice:   200,
	}); err != nil {
		t.Fatalf("add service failed: %v", err)
	}

	stats := repo.Snapshot()
	if stats.Clients != 3 {
		t.Errorf("expected 3 clients after conversion, got %d", stats.Clients)
	}
	if stats.OpenLeads != 1 || stats.ConvertedLeads != 1 {
		t.Errorf("expected 1 open / 1 converted, got %d / %d",
			stats.OpenLeads, stats.ConvertedLeads)
	}
	if stats.ServiceRevenue != 400 {
		t.Errorf("expected revenue 400, got %v", stats.ServiceRevenue)
	}
}
