// ABOUTME: Fake CRM data for demos, the seed command, and tests
// ABOUTME: Built on gofakeit with a fixed seed so runs are reproducible
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

var leadSources = []string{"website", "referral", "conference", "cold-call", "linkedin", "webinar"}

var products = []string{"Starter Plan", "Pro Plan", "Enterprise Plan", "Onboarding", "Support Add-on", "Analytics"}

// Generator produces fake entities.
type Generator struct {
	f   *gofakeit.Faker
	now time.Time
}

// New returns a generator. The same seed yields the same sequence.
func New(seed int64) *Generator {
	return &Generator{f: gofakeit.New(seed), now: time.Now()}
}

func (g *Generator) pick(values ...string) string {
	return g.f.RandomString(values)
}

func (g *Generator) Client() models.Client {
	return models.Client{
		Name:    g.f.Name(),
		Email:   g.f.Email(),
		Phone:   g.f.Phone(),
		Company: g.f.Company(),
		Status: g.pick(
			models.ClientStatusLead,
			models.ClientStatusProspect,
			models.ClientStatusCustomer,
			models.ClientStatusInactive,
		),
		Value:  float64(g.f.Number(1, 300) * 1000),
		Tags:   []string{g.f.BuzzWord()},
		Notes:  g.f.Sentence(8),
		Source: g.f.RandomString(leadSources),
	}
}

func (g *Generator) Lead() models.Lead {
	return models.Lead{
		Name:    g.f.Name(),
		Email:   g.f.Email(),
		Phone:   g.f.Phone(),
		Company: g.f.Company(),
		Source:  g.f.RandomString(leadSources),
		Status: g.pick(
			models.LeadStatusNew,
			models.LeadStatusContacted,
			models.LeadStatusQualified,
		),
		Score: g.f.Number(0, 100),
		Value: float64(g.f.Number(1, 100) * 500),
		Notes: g.f.Sentence(10),
	}
}

func (g *Generator) Opportunity(clientID string) models.Opportunity {
	stage := g.pick(
		models.StageProspecting,
		models.StageQualification,
		models.StageProposal,
		models.StageNegotiation,
		models.StageClosedWon,
		models.StageClosedLost,
	)
	closeDate := g.f.DateRange(g.now, g.now.AddDate(0, 6, 0))

	return models.Opportunity{
		Title:             fmt.Sprintf("%s %s", g.f.BuzzWord(), g.f.RandomString(products)),
		ClientID:          clientID,
		Value:             float64(g.f.Number(5, 400) * 1000),
		Stage:             stage,
		Probability:       stageProbability(stage),
		ExpectedCloseDate: &closeDate,
		Description:       g.f.Sentence(12),
		Products:          []string{g.f.RandomString(products)},
		Competitors:       []string{g.f.Company()},
		NextSteps:         g.f.Sentence(6),
	}
}

func stageProbability(stage string) int {
	switch stage {
	case models.StageQualification:
		return 25
	case models.StageProposal:
		return 50
	case models.StageNegotiation:
		return 75
	case models.StageClosedWon:
		return 100
	case models.StageClosedLost:
		return 0
	default:
		return 10
	}
}

// Task attaches to ref when it is non-empty.
func (g *Generator) Task(ref models.Reference) models.Task {
	due := g.f.DateRange(g.now.AddDate(0, 0, -14), g.now.AddDate(0, 0, 21))
	t := models.Task{
		Title:       g.f.HackerVerb() + " " + g.f.Noun(),
		Description: g.f.Sentence(8),
		DueDate:     &due,
		Priority:    g.pick(models.PriorityLow, models.PriorityMedium, models.PriorityHigh),
		Status:      g.pick(models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted),
	}
	t.ClientID, t.LeadID, t.OpportunityID = foreignKeys(ref)
	return t
}

// Activity attaches to ref when it is non-empty.
func (g *Generator) Activity(ref models.Reference) models.Activity {
	kind := g.pick(
		models.ActivityCall,
		models.ActivityEmail,
		models.ActivityMeeting,
		models.ActivityNote,
	)
	a := models.Activity{
		Type:        kind,
		Title:       fmt.Sprintf("%s with %s", kind, g.f.FirstName()),
		Description: g.f.Sentence(10),
		Completed:   g.f.Bool(),
	}
	a.ClientID, a.LeadID, a.OpportunityID = foreignKeys(ref)
	return a
}

func (g *Generator) Profile() models.Profile {
	return models.Profile{
		FullName: g.f.Name(),
		Email:    g.f.Email(),
		Role:     g.pick(models.RoleAdmin, models.RoleManager, models.RoleSales),
	}
}

// foreignKeys sets exactly one key, never more.
func foreignKeys(ref models.Reference) (client, lead, opportunity *string) {
	if ref.ID == "" {
		return nil, nil, nil
	}
	id := ref.ID
	switch ref.Type {
	case models.RelatedClient:
		return &id, nil, nil
	case models.RelatedLead:
		return nil, &id, nil
	case models.RelatedOpportunity:
		return nil, nil, &id
	}
	return nil, nil, nil
}

// Counts says how many of each record Seed creates.
type Counts struct {
	Clients       int
	Leads         int
	Opportunities int
	Tasks         int
	Activities    int
	Profiles      int
}

// DefaultCounts is a small but varied demo dataset.
func DefaultCounts() Counts {
	return Counts{Clients: 8, Leads: 12, Opportunities: 10, Tasks: 15, Activities: 20, Profiles: 3}
}

func create(ctx context.Context, gw store.Gateway, table store.Table, v interface{}) (string, error) {
	if err := models.Validate(v); err != nil {
		return "", fmt.Errorf("generated invalid %s: %w", table, err)
	}
	fields, err := store.Fields(v)
	if err != nil {
		return "", err
	}
	row, err := gw.Create(ctx, table, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", table, err)
	}
	return row.ID(), nil
}

// Seed writes a generated dataset through gw and returns the counts actually created.
func (g *Generator) Seed(ctx context.Context, gw store.Gateway, counts Counts) (Counts, error) {
	var done Counts
	var refs []models.Reference

	for i := 0; i < counts.Profiles; i++ {
		if _, err := create(ctx, gw, store.TableProfiles, g.Profile()); err != nil {
			return done, err
		}
		done.Profiles++
	}

	var clientIDs []string
	for i := 0; i < counts.Clients; i++ {
		id, err := create(ctx, gw, store.TableClients, g.Client())
		if err != nil {
			return done, err
		}
		clientIDs = append(clientIDs, id)
		refs = append(refs, models.Reference{Type: models.RelatedClient, ID: id})
		done.Clients++
	}

	for i := 0; i < counts.Leads; i++ {
		id, err := create(ctx, gw, store.TableLeads, g.Lead())
		if err != nil {
			return done, err
		}
		refs = append(refs, models.Reference{Type: models.RelatedLead, ID: id})
		done.Leads++
	}

	for i := 0; i < counts.Opportunities && len(clientIDs) > 0; i++ {
		id, err := create(ctx, gw, store.TableOpportunities, g.Opportunity(clientIDs[i%len(clientIDs)]))
		if err != nil {
			return done, err
		}
		refs = append(refs, models.Reference{Type: models.RelatedOpportunity, ID: id})
		done.Opportunities++
	}

	ref := func(i int) models.Reference {
		// every fourth record stands alone
		if len(refs) == 0 || i%4 == 3 {
			return models.Reference{}
		}
		return refs[i%len(refs)]
	}

	for i := 0; i < counts.Tasks; i++ {
		if _, err := create(ctx, gw, store.TableTasks, g.Task(ref(i))); err != nil {
			return done, err
		}
		done.Tasks++
	}

	for i := 0; i < counts.Activities; i++ {
		if _, err := create(ctx, gw, store.TableActivities, g.Activity(ref(i))); err != nil {
			return done, err
		}
		done.Activities++
	}

	return done, nil
}
