// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package crm owns the CRM entity store and its invariants.
//
// The repository is the sole owner of client, lead, and service line item
// state. Callers go through its operations; raw storage is never exposed.
// The store is process-lifetime and in-memory. Individual operations are
// mutex-protected, but cross-operation sequences (search then mutate) are
// not transactional; concurrent assistant runs against one Repo must be
// serialized by the caller.
package crm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// idempotencyWindow is the span during which a repeated client creation
// with matching identity returns the existing record instead of a new one.
const idempotencyWindow = 5 * time.Minute

// Sentinel errors for repository operations.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation indicates an input violates a repository invariant.
	ErrValidation = errors.New("invalid input")
)

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	// LeadStatusOpen is the initial state of every lead.
	LeadStatusOpen LeadStatus = "open"

	// LeadStatusConverted is terminal; entered solely via ConvertLead.
	LeadStatusConverted LeadStatus = "converted"
)

// Client is a CRM client record.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lead is a CRM lead record.
type Lead struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Status            LeadStatus `json:"status"`
	ConvertedAt       *time.Time `json:"converted_at,omitempty"`
	DealValue         *float64   `json:"deal_value,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	ConvertedClientID string     `json:"converted_client_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Service is an immutable service line item. It forms an append-only
// ledger of work performed for a client.
type Service struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	ServiceCode string    `json:"service_code"`
	Qty         float64   `json:"qty"`
	UnitPrice   float64   `json:"unit_price"`
	Total       float64   `json:"total"`
	PerformedAt time.Time `json:"performed_at"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateClientInput carries the fields for CreateClient.
type CreateClientInput struct {
	Name    string   `json:"name"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	OwnerID string   `json:"owner_id,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// ConvertLeadInput carries the fields for ConvertLead.
type ConvertLeadInput struct {
	LeadID      string     `json:"lead_id"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	DealValue   *float64   `json:"deal_value,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// AddServiceInput carries the fields for AddService.
type AddServiceInput struct {
	ClientID    string     `json:"client_id"`
	ServiceCode string     `json:"service_code"`
	Qty         float64    `json:"qty"`
	UnitPrice   float64    `json:"unit_price"`
	PerformedAt *time.Time `json:"performed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// CreateClientResult is the outcome of CreateClient.
type CreateClientResult struct {
	Client *Client `json:"client"`

	// Idempotent is true when an existing record inside the
	// idempotency window was returned instead of a new one.
	Idempotent bool `json:"idempotent"`
}

// ConvertLeadResult is the outcome of ConvertLead.
type ConvertLeadResult struct {
	Lead       *Lead   `json:"lead"`
	Client     *Client `json:"client"`
	Idempotent bool    `json:"idempotent"`
}

// AddServiceResult is the outcome of AddService.
type AddServiceResult struct {
	Service *Service `json:"service"`
	Client  *Client  `json:"client"`
}

// SearchResult is a name-resolution hit returned by the search operations.
type SearchResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Stats summarizes repository contents for the ops snapshot.
type Stats struct {
	Clients        int     `json:"clients"`
	OpenLeads      int     `json:"open_leads"`
	ConvertedLeads int     `json:"converted_leads"`
	Services       int     `json:"services"`
	ServiceRevenue float64 `json:"service_revenue"`
}

// Repo is the in-memory CRM store.
//
// Construct with NewRepo or NewSeededRepo and pass by reference; there is
// deliberately no package-level instance, so tests can run isolated stores.
//
// Thread Safety: individual operations are safe for concurrent use.
type Repo struct {
	mu sync.Mutex

	// now is injectable so tests can step across the idempotency window.
	now func() time.Time

	clients  []*Client
	leads    []*Lead
	services []*Service

	clientSeq  int
	leadSeq    int
	serviceSeq int
}

// RepoOption configures a Repo.
type RepoOption func(*Repo)

// WithClock overrides the repository clock.
func WithClock(now func() time.Time) RepoOption {
	return func(r *Repo) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepo creates an empty repository.
func NewRepo(opts ...RepoOption) *Repo {
	r := &Repo{
		now:        time.Now,
		clientSeq:  1,
		leadSeq:    1,
		serviceSeq: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewSeededRepo creates a repository pre-populated with the demo book of
// business: two clients and two open leads.
func NewSeededRepo(opts ...RepoOption) *Repo {
	r := NewRepo(opts...)
	createdAt := r.now()

	r.clients = []*Client{
		{
			ID:        "client_0001",
			Name:      "Northline Dental",
			Email:     "hello@northlinedental.com",
			Phone:     "(816) 555-0101",
			OwnerID:   "owner_kyle",
			Tags:      []string{"retainer", "healthcare"},
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
		{
			ID:        "client_0002",
			Name:      "Mosaic Fitness",
			Email:     "team@mosaicfit.co",
			Phone:     "(913) 555-0189",
			OwnerID:   "owner_kyle",
			Tags:      []string{"prospect"},
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
	}
	r.leads = []*Lead{
		{
			ID:        "123",
			Name:      "ACME Landscaping",
			Email:     "a@acme.com",
			Phone:     "(555) 010-1000",
			Status:    LeadStatusOpen,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
		{
			ID:        "lead_0002",
			Name:      "Summit Legal Group",
			Email:     "ops@summitlegalgroup.com",
			Phone:     "(555) 010-2000",
			Status:    LeadStatusOpen,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
	}
	r.clientSeq = 3
	r.leadSeq = 3
	r.serviceSeq = 1
	return r
}

// CreateClient creates a client, or returns an existing one created inside
// the idempotency window with matching identity.
//
// Description:
//
//	Logical identity during dedup is the normalized (trimmed, lowercased)
//	name, and additionally the normalized email when one is supplied. The
//	window guards against a language model re-issuing the same creation
//	call after an ambiguous prior response.
//
// Outputs:
//
//	*CreateClientResult - The created or matched client.
//	error - ErrValidation if name is empty after trimming.
func (r *Repo) CreateClient(input CreateClientInput) (*CreateClientResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createClientLocked(input)
}

// createClientLocked implements CreateClient. Caller must hold r.mu.
func (r *Repo) createClientLocked(input CreateClientInput) (*CreateClientResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	now := r.now()
	nameNorm := normalize(name)
	emailNorm := normalize(input.Email)

	for _, candidate := range r.clients {
		if now.Sub(candidate.CreatedAt) > idempotencyWindow {
			continue
		}
		if normalize(candidate.Name) != nameNorm {
			continue
		}
		if emailNorm != "" {
			if candidate.Email == "" || normalize(candidate.Email) != emailNorm {
				continue
			}
		}
		return &CreateClientResult{Client: candidate, Idempotent: true}, nil
	}

	created := &Client{
		ID:        r.nextID("client", &r.clientSeq),
		Name:      name,
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		OwnerID:   strings.TrimSpace(input.OwnerID),
		Tags:      cleanTags(input.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Newest first, so search results favor recent records.
	r.clients = append([]*Client{created}, r.clients...)
	return &CreateClientResult{Client: created, Idempotent: false}, nil
}

// ConvertLead transitions a lead to converted and creates (or matches) the
// corresponding client.
//
// Description:
//
//	Stamps status, converted_at (defaulting to now), deal_value, notes, and
//	updated_at on the lead, then runs CreateClient with the lead's contact
//	fields and the fixed "converted-lead" tag, and links the lead to the
//	resulting client. Calling this on an already-converted lead re-stamps
//	the conversion fields; the client itself is deduplicated by the
//	creation idempotency window.
//
// Outputs:
//
//	*ConvertLeadResult - The updated lead and linked client.
//	error - ErrNotFound if no lead matches the id.
func (r *Repo) ConvertLead(input ConvertLeadInput) (*ConvertLeadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead := r.findLeadLocked(input.LeadID)
	if lead == nil {
		return nil, fmt.Errorf("%w: lead %s", ErrNotFound, input.LeadID)
	}

	now := r.now()
	convertedAt := now
	if input.ConvertedAt != nil {
		convertedAt = *input.ConvertedAt
	}

	lead.Status = LeadStatusConverted
	lead.ConvertedAt = &convertedAt
	lead.DealValue = input.DealValue
	lead.Notes = input.Notes
	lead.UpdatedAt = now

	created, err := r.createClientLocked(CreateClientInput{
		Name:  lead.Name,
		Email: lead.Email,
		Phone: lead.Phone,
		Tags:  []string{"converted-lead"},
	})
	if err != nil {
		return nil, err
	}

	lead.ConvertedClientID = created.Client.ID
	return &ConvertLeadResult{
		Lead:       lead,
		Client:     created.Client,
		Idempotent: created.Idempotent,
	}, nil
}

// AddService appends a service line item for a client.
//
// Description:
//
//	There is no idempotency dedup here: legitimate repeat services are
//	common, so every call appends. Total is fixed at qty * unit_price at
//	creation time and never recomputed.
//
// Outputs:
//
//	*AddServiceResult - The created line item and its client.
//	error - ErrNotFound if client_id does not resolve.
func (r *Repo) AddService(input AddServiceInput) (*AddServiceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client := r.findClientLocked(input.ClientID)
	if client == nil {
		return nil, fmt.Errorf("%w: client %s", ErrNotFound, input.ClientID)
	}

	now := r.now()
	performedAt := now
	if input.PerformedAt != nil {
		performedAt = *input.PerformedAt
	}

	created := &Service{
		ID:          r.nextID("service", &r.serviceSeq),
		ClientID:    client.ID,
		ServiceCode: input.ServiceCode,
		Qty:         input.Qty,
		UnitPrice:   input.UnitPrice,
		Total:       input.Qty * input.UnitPrice,
		PerformedAt: performedAt,
		Notes:       input.Notes,
		CreatedAt:   now,
	}

	r.services = append([]*Service{created}, r.services...)
	return &AddServiceResult{Service: created, Client: client}, nil
}

// SearchClients returns up to 5 clients whose name contains the query,
// case-insensitively, newest first.
func (r *Repo) SearchClients(query string) []SearchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := normalize(query)
	results := make([]SearchResult, 0, 5)
	for _, client := range r.clients {
		if !strings.Contains(normalize(client.Name), q) {
			continue
		}
		results = append(results, SearchResult{ID: client.ID, Name: client.Name})
		if len(results) == 5 {
			break
		}
	}
	return results
}

// SearchLeads returns up to 5 leads whose name contains the query,
// case-insensitively, newest first.
func (r *Repo) SearchLeads(query string) []SearchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := normalize(query)
	results := make([]SearchResult, 0, 5)
	for _, lead := range r.leads {
		if !strings.Contains(normalize(lead.Name), q) {
			continue
		}
		results = append(results, SearchResult{ID: lead.ID, Name: lead.Name})
		if len(results) == 5 {
			break
		}
	}
	return results
}

// GetClientByID returns a client by id, or nil if absent.
func (r *Repo) GetClientByID(clientID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findClientLocked(clientID)
}

// GetLeadByID returns a lead by id, or nil if absent.
func (r *Repo) GetLeadByID(leadID string) *Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLeadLocked(leadID)
}

// Snapshot reports aggregate counts used by the ops snapshot endpoint.
func (r *Repo) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		Clients:  len(r.clients),
		Services: len(r.services),
	}
	for _, lead := range r.leads {
		if lead.Status == LeadStatusConverted {
			stats.ConvertedLeads++
		} else {
			stats.OpenLeads++
		}
	}
	for _, service := range r.services {
		stats.ServiceRevenue += service.Total
	}
	return stats
}

// findClientLocked returns the client with the given id. Caller holds r.mu.
func (r *Repo) findClientLocked(id string) *Client {
	for _, client := range r.clients {
		if client.ID == id {
			return client
		}
	}
	return nil
}

// findLeadLocked returns the lead with the given id. Caller holds r.mu.
func (r *Repo) findLeadLocked(id string) *Lead {
	for _, lead := range r.leads {
		if lead.ID == id {
			return lead
		}
	}
	return nil
}

// nextID mints the next zero-padded monotonic id for an entity type.
func (r *Repo) nextID(prefix string, seq *int) string {
	id := fmt.Sprintf("%s_%04d", prefix, *seq)
	*seq++
	return id
}

// normalize trims and lowercases a value for identity comparison.
func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// cleanTags trims, drops empties, and deduplicates while preserving order.
func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
	}
	return cleaned
}
