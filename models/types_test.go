// ABOUTME: Tests for CRM data models
// ABOUTME: Validates foreign-key precedence and struct validation messages
package models

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestActivityReferencePrecedence(t *testing.T) {
	a := Activity{
		LeadID:        strPtr("lead-1"),
		ClientID:      strPtr("client-1"),
		OpportunityID: strPtr("opp-1"),
	}

	ref, ok := a.Reference()
	if !ok {
		t.Fatal("expected a reference")
	}
	if ref.Type != RelatedClient || ref.ID != "client-1" {
		t.Errorf("expected client-1, got %s %s", ref.Type, ref.ID)
	}

	a.ClientID = nil
	ref, _ = a.Reference()
	if ref.Type != RelatedLead || ref.ID != "lead-1" {
		t.Errorf("expected lead-1, got %s %s", ref.Type, ref.ID)
	}

	a.LeadID = strPtr("")
	ref, _ = a.Reference()
	if ref.Type != RelatedOpportunity {
		t.Errorf("expected opportunity, got %s", ref.Type)
	}
}

func TestTaskReferenceNone(t *testing.T) {
	if _, ok := (Task{}).Reference(); ok {
		t.Error("task without foreign keys should not resolve a reference")
	}
}

func TestValidateLead(t *testing.T) {
	lead := &Lead{Name: "Ada", Status: LeadStatusNew, Score: 50}
	if err := Validate(lead); err != nil {
		t.Fatalf("expected valid lead, got %v", err)
	}

	lead.Score = 101
	lead.Status = "warm"
	lead.Email = "not-an-email"
	err := Validate(lead)
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{"score must be at most 100", "status must be one of", "email must be a valid email"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidateOpportunityStage(t *testing.T) {
	opp := &Opportunity{Title: "Renewal", ClientID: "c1", Stage: StageClosedWon}
	if err := Validate(opp); err != nil {
		t.Fatalf("expected valid opportunity, got %v", err)
	}

	opp.Stage = "closed_won"
	if err := Validate(opp); err == nil {
		t.Error("underscore stage should be rejected")
	}
}

func TestIsClosedStage(t *testing.T) {
	if !IsClosedStage(StageClosedWon) || !IsClosedStage(StageClosedLost) {
		t.Error("closed stages not detected")
	}
	if IsClosedStage(StageNegotiation) {
		t.Error("negotiation is not closed")
	}
}

func TestToSnake(t *testing.T) {
	if got := toSnake("ExpectedCloseDate"); got != "expected_close_date" {
		t.Errorf("got %s", got)
	}
}
