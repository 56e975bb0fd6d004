// ABOUTME: Unified activity feed built from activities, tasks, clients, leads, and opportunities
// ABOUTME: Pure projection, merge, sort, truncate, and summary statistics over a snapshot
package feed

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/crmdesk/models"
)

const (
	DefaultLimit                = 20
	DefaultHighValueClient      = 100000
	DefaultHighValueOpportunity = 200000
)

// Item is one entry in the feed.
type Item struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Timestamp   time.Time          `json:"timestamp"`
	RelatedTo   string             `json:"related_to,omitempty"`
	RelatedID   string             `json:"related_id,omitempty"`
	RelatedType models.RelatedType `json:"related_type,omitempty"`
	Value       *float64           `json:"value,omitempty"`
	Status      string             `json:"status,omitempty"`
	Priority    string             `json:"priority,omitempty"`
	Completed   *bool              `json:"completed,omitempty"`
}

// Stats summarizes the limited feed.
type Stats struct {
	Today          int     `json:"today"`
	TasksCompleted int     `json:"tasks_completed"`
	NewLeads       int     `json:"new_leads"`
	DealsClosed    int     `json:"deals_closed"`
	TotalValue     float64 `json:"total_value"`
}

// Feed is the merged, ordered result of Build.
type Feed struct {
	Items []Item `json:"items"`
	Stats Stats  `json:"stats"`
}

// Snapshot is whatever the five source collections currently hold.
type Snapshot struct {
	Activities    []models.Activity
	Tasks         []models.Task
	Clients       []models.Client
	Leads         []models.Lead
	Opportunities []models.Opportunity
}

// Options tunes Build. Zero fields take the defaults.
type Options struct {
	Limit                int
	HighValueClient      float64
	HighValueOpportunity float64
	Now                  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.HighValueClient <= 0 {
		o.HighValueClient = DefaultHighValueClient
	}
	if o.HighValueOpportunity <= 0 {
		o.HighValueOpportunity = DefaultHighValueOpportunity
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Build projects the snapshot into feed items, newest first, truncated to opts.Limit.
// Missing or still-loading collections simply contribute nothing.
func Build(snap Snapshot, opts Options) Feed {
	return BuildFiltered(snap, opts, Filter{})
}

// BuildFiltered is Build with f applied before truncation, so the limit counts matching items.
func BuildFiltered(snap Snapshot, opts Options, f Filter) Feed {
	opts = opts.withDefaults()
	now := opts.Now()

	items := f.Apply(project(snap, opts, now))
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return Feed{Items: items, Stats: ComputeStats(items, now)}
}

// project returns every item the snapshot yields, newest first.
func project(snap Snapshot, opts Options, now time.Time) []Item {
	names := indexNames(snap)

	items := make([]Item, 0, len(snap.Activities)+len(snap.Tasks)+2*(len(snap.Clients)+len(snap.Leads)+len(snap.Opportunities)))
	for _, a := range snap.Activities {
		items = append(items, projectActivity(a, names))
	}
	for _, t := range snap.Tasks {
		items = append(items, projectTask(t, now, names))
	}
	for _, c := range snap.Clients {
		items = append(items, projectClient(c, opts.HighValueClient)...)
	}
	for _, l := range snap.Leads {
		items = append(items, projectLead(l)...)
	}
	for _, o := range snap.Opportunities {
		items = append(items, projectOpportunity(o, opts.HighValueOpportunity)...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items
}

// ComputeStats derives the summary counters from items.
func ComputeStats(items []Item, now time.Time) Stats {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var s Stats
	for _, it := range items {
		if !it.Timestamp.Before(startOfDay) {
			s.Today++
		}
		switch it.Kind {
		case KindTaskCompleted:
			s.TasksCompleted++
		case KindLeadCreated:
			s.NewLeads++
		case KindDealClosed:
			s.DealsClosed++
		}
		if it.Value != nil {
			s.TotalValue += *it.Value
		}
	}
	return s
}

type nameIndex map[models.RelatedType]map[string]string

func indexNames(snap Snapshot) nameIndex {
	idx := nameIndex{
		models.RelatedClient:      make(map[string]string, len(snap.Clients)),
		models.RelatedLead:        make(map[string]string, len(snap.Leads)),
		models.RelatedOpportunity: make(map[string]string, len(snap.Opportunities)),
	}
	for _, c := range snap.Clients {
		idx[models.RelatedClient][c.ID] = c.Name
	}
	for _, l := range snap.Leads {
		idx[models.RelatedLead][l.ID] = l.Name
	}
	for _, o := range snap.Opportunities {
		idx[models.RelatedOpportunity][o.ID] = o.Title
	}
	return idx
}

// relate fills the related fields. The display name falls back to the id when the
// referenced record is not in the snapshot.
func (idx nameIndex) relate(it *Item, ref models.Reference) {
	it.RelatedType = ref.Type
	it.RelatedID = ref.ID
	if name, ok := idx[ref.Type][ref.ID]; ok && name != "" {
		it.RelatedTo = name
	} else {
		it.RelatedTo = ref.ID
	}
}

func float(v float64) *float64 { return &v }
func boolean(v bool) *bool     { return &v }

func projectActivity(a models.Activity, names nameIndex) Item {
	it := Item{
		ID:          "activity-" + a.ID,
		Kind:        activityKind(a.Type),
		Title:       a.Title,
		Description: a.Description,
		Timestamp:   a.CreatedAt,
		Priority:    a.Priority,
		Completed:   boolean(a.Completed),
	}
	if ref, ok := a.Reference(); ok {
		names.relate(&it, ref)
	}
	return it
}

func projectTask(t models.Task, now time.Time, names nameIndex) Item {
	it := Item{
		ID:          "task-" + t.ID,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Completed:   boolean(t.Status == models.TaskStatusCompleted),
	}

	switch {
	case t.Status == models.TaskStatusCompleted:
		it.Kind = KindTaskCompleted
		it.Title = "Completed: " + t.Title
		it.Timestamp = t.UpdatedAt
	case t.DueDate != nil && t.DueDate.Before(now):
		it.Kind = KindTaskOverdue
		it.Title = "Overdue: " + t.Title
		it.Timestamp = t.CreatedAt
	case t.Status == models.TaskStatusInProgress:
		it.Kind = KindTask
		it.Title = "In progress: " + t.Title
		it.Timestamp = t.CreatedAt
	default:
		it.Kind = KindTask
		it.Title = "New task: " + t.Title
		it.Timestamp = t.CreatedAt
	}

	if ref, ok := t.Reference(); ok {
		names.relate(&it, ref)
	}
	return it
}

func projectClient(c models.Client, threshold float64) []Item {
	base := Item{
		Timestamp:   c.CreatedAt,
		RelatedTo:   c.Name,
		RelatedID:   c.ID,
		RelatedType: models.RelatedClient,
		Value:       float(c.Value),
		Status:      c.Status,
	}

	created := base
	created.ID = "client-" + c.ID
	created.Kind = KindClientCreated
	created.Title = "New client: " + c.Name
	created.Description = joinNonEmpty(" · ", c.Company, c.Status)

	items := []Item{created}
	if c.Value > threshold {
		hv := base
		hv.ID = "client-hv-" + c.ID
		hv.Kind = KindHighValueClient
		hv.Title = "High-value client: " + c.Name
		hv.Description = "Client value " + FormatMoney(c.Value)
		items = append(items, hv)
	}
	return items
}

func projectLead(l models.Lead) []Item {
	base := Item{
		RelatedTo:   l.Name,
		RelatedID:   l.ID,
		RelatedType: models.RelatedLead,
		Value:       float(l.Value),
		Status:      l.Status,
	}

	created := base
	created.ID = "lead-" + l.ID
	created.Kind = KindLeadCreated
	created.Title = "New lead: " + l.Name
	created.Description = joinNonEmpty(" · ", l.Company, sourceLabel(l.Source))
	created.Timestamp = l.CreatedAt

	items := []Item{created}

	// Status is read as current state; a lead shows at most one status item.
	switch l.Status {
	case models.LeadStatusQualified:
		q := base
		q.ID = "lead-status-" + l.ID
		q.Kind = KindLeadQualified
		q.Title = "Lead qualified: " + l.Name
		q.Description = "Score " + strconv.Itoa(l.Score)
		q.Timestamp = l.UpdatedAt
		items = append(items, q)
	case models.LeadStatusConverted:
		cv := base
		cv.ID = "lead-status-" + l.ID
		cv.Kind = KindLeadConverted
		cv.Title = "Lead converted: " + l.Name
		cv.Description = "Converted to client"
		cv.Timestamp = l.UpdatedAt
		items = append(items, cv)
	}
	return items
}

func projectOpportunity(o models.Opportunity, threshold float64) []Item {
	base := Item{
		RelatedTo:   o.Title,
		RelatedID:   o.ID,
		RelatedType: models.RelatedOpportunity,
		Value:       float(o.Value),
		Status:      o.Stage,
	}

	primary := base
	primary.ID = "opp-" + o.ID
	if o.Stage == models.StageClosedWon {
		primary.Kind = KindDealClosed
		primary.Title = "Deal closed: " + o.Title
		primary.Description = "Won " + FormatMoney(o.Value)
		primary.Timestamp = o.UpdatedAt
	} else {
		primary.Kind = KindOpportunityCreated
		primary.Title = "New opportunity: " + o.Title
		primary.Description = fmt.Sprintf("%s · %d%% probability", o.Stage, o.Probability)
		primary.Timestamp = o.CreatedAt
	}

	items := []Item{primary}
	if o.Value > threshold && !models.IsClosedStage(o.Stage) {
		hv := base
		hv.ID = "opp-hv-" + o.ID
		hv.Kind = KindHighValueOpportunity
		hv.Title = "High-value opportunity: " + o.Title
		hv.Description = FormatMoney(o.Value) + " in " + o.Stage
		hv.Timestamp = o.CreatedAt
		items = append(items, hv)
	}
	return items
}

func sourceLabel(source string) string {
	if source == "" {
		return ""
	}
	return "via " + source
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// FormatMoney renders whole dollars with thousands separators, e.g. $1,250,000.
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(int64(v+0.5), 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
