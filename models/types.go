// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Client, Lead, Opportunity, Task, Activity, and Profile structs
package models

import (
	"time"
)

type Client struct {
	ID          string     `json:"id"`
	Name        string     `json:"name" validate:"required"`
	Email       string     `json:"email" validate:"omitempty,email"`
	Phone       string     `json:"phone,omitempty"`
	Company     string     `json:"company"`
	Status      string     `json:"status" validate:"required,oneof=lead prospect customer inactive"`
	Value       float64    `json:"value" validate:"gte=0"`
	Tags        []string   `json:"tags"`
	Notes       string     `json:"notes"`
	Source      string     `json:"source,omitempty"`
	LastContact *time.Time `json:"last_contact,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"omitempty,email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company"`
	Source    string    `json:"source"`
	Status    string    `json:"status" validate:"required,oneof=new contacted qualified converted lost"`
	Score     int       `json:"score" validate:"gte=0,lte=100"`
	Value     float64   `json:"value" validate:"gte=0"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Opportunity struct {
	ID                string     `json:"id"`
	Title             string     `json:"title" validate:"required"`
	ClientID          string     `json:"client_id" validate:"required"`
	Value             float64    `json:"value" validate:"gte=0"`
	Stage             string     `json:"stage" validate:"required,oneof=prospecting qualification proposal negotiation closed-won closed-lost"`
	Probability       int        `json:"probability" validate:"gte=0,lte=100"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	Description       string     `json:"description"`
	Products          []string   `json:"products"`
	Competitors       []string   `json:"competitors"`
	NextSteps         string     `json:"next_steps"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title" validate:"required"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Priority      string     `json:"priority" validate:"required,oneof=low medium high"`
	Status        string     `json:"status" validate:"required,oneof=pending in-progress completed"`
	ClientID      *string    `json:"client_id,omitempty"`
	LeadID        *string    `json:"lead_id,omitempty"`
	OpportunityID *string    `json:"opportunity_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Activity struct {
	ID            string    `json:"id"`
	Type          string    `json:"type" validate:"required,oneof=call email meeting task note"`
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description"`
	Completed     bool      `json:"completed"`
	Priority      string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	ClientID      *string   `json:"client_id,omitempty"`
	LeadID        *string   `json:"lead_id,omitempty"`
	OpportunityID *string   `json:"opportunity_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile is a CRM user account.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Role      string    `json:"role" validate:"required,oneof=admin manager sales"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Client) EntityID() string      { return c.ID }
func (l Lead) EntityID() string        { return l.ID }
func (o Opportunity) EntityID() string { return o.ID }
func (t Task) EntityID() string        { return t.ID }
func (a Activity) EntityID() string    { return a.ID }
func (p Profile) EntityID() string     { return p.ID }

// Client status constants.
const (
	ClientStatusLead     = "lead"
	ClientStatusProspect = "prospect"
	ClientStatusCustomer = "customer"
	ClientStatusInactive = "inactive"
)

// Lead status constants.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

const (
	StageProspecting   = "prospecting"
	StageQualification = "qualification"
	StageProposal      = "proposal"
	StageNegotiation   = "negotiation"
	StageClosedWon     = "closed-won"
	StageClosedLost    = "closed-lost"
)

// Task status constants.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
)

// Priority constants.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Activity type constants.
const (
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityTask    = "task"
	ActivityNote    = "note"
)

// Profile role constants.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
)

// TagConvertedLead marks clients created by lead conversion.
const TagConvertedLead = "converted-lead"

// IsClosedStage reports whether an opportunity stage is terminal.
func IsClosedStage(stage string) bool {
	return stage == StageClosedWon || stage == StageClosedLost
}

// RelatedType names the kind of record a task or activity points at.
type RelatedType string

const (
	RelatedClient      RelatedType = "client"
	RelatedLead        RelatedType = "lead"
	RelatedOpportunity RelatedType = "opportunity"
	RelatedTask        RelatedType = "task"
)

// Reference is a resolved foreign key.
type Reference struct {
	Type RelatedType
	ID   string
}

// resolveReference applies the foreign-key precedence: client, then lead, then opportunity.
func resolveReference(clientID, leadID, opportunityID *string) (Reference, bool) {
	ordered := []struct {
		typ RelatedType
		id  *string
	}{
		{RelatedClient, clientID},
		{RelatedLead, leadID},
		{RelatedOpportunity, opportunityID},
	}
	for _, candidate := range ordered {
		if candidate.id != nil && *candidate.id != "" {
			return Reference{Type: candidate.typ, ID: *candidate.id}, true
		}
	}
	return Reference{}, false
}

// Reference returns the record this activity is attached to, if any.
func (a Activity) Reference() (Reference, bool) {
	return resolveReference(a.ClientID, a.LeadID, a.OpportunityID)
}

// Reference returns the record this task is attached to, if any.
func (t Task) Reference() (Reference, bool) {
	return resolveReference(t.ClientID, t.LeadID, t.OpportunityID)
}
