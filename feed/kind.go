// ABOUTME: Closed set of feed item kinds and their display styles
// ABOUTME: Every kind has exactly one style entry; there is no fallback icon
package feed

import (
	"fmt"

	"github.com/harperreed/crmdesk/models"
)

// Kind is the type of a feed item.
type Kind string

const (
	KindCall                 Kind = "call"
	KindEmail                Kind = "email"
	KindMeeting              Kind = "meeting"
	KindTask                 Kind = "task"
	KindNote                 Kind = "note"
	KindTaskCompleted        Kind = "task_completed"
	KindTaskOverdue          Kind = "task_overdue"
	KindClientCreated        Kind = "client_created"
	KindHighValueClient      Kind = "high_value_client"
	KindLeadCreated          Kind = "lead_created"
	KindLeadQualified        Kind = "lead_qualified"
	KindLeadConverted        Kind = "lead_converted"
	KindOpportunityCreated   Kind = "opportunity_created"
	KindDealClosed           Kind = "deal_closed"
	KindHighValueOpportunity Kind = "high_value_opportunity"
)

// Style is how a kind is drawn. Color is an ANSI 256 color code.
type Style struct {
	Icon  string
	Color string
	Label string
}

var styles = map[Kind]Style{
	KindCall:                 {Icon: "📞", Color: "12", Label: "Call"},
	KindEmail:                {Icon: "✉️", Color: "14", Label: "Email"},
	KindMeeting:              {Icon: "👥", Color: "13", Label: "Meeting"},
	KindTask:                 {Icon: "📋", Color: "11", Label: "Task"},
	KindNote:                 {Icon: "📝", Color: "7", Label: "Note"},
	KindTaskCompleted:        {Icon: "✅", Color: "10", Label: "Task Completed"},
	KindTaskOverdue:          {Icon: "⏰", Color: "9", Label: "Task Overdue"},
	KindClientCreated:        {Icon: "🏢", Color: "12", Label: "New Client"},
	KindHighValueClient:      {Icon: "💎", Color: "13", Label: "High-Value Client"},
	KindLeadCreated:          {Icon: "🌱", Color: "10", Label: "New Lead"},
	KindLeadQualified:        {Icon: "⭐", Color: "11", Label: "Lead Qualified"},
	KindLeadConverted:        {Icon: "🔄", Color: "10", Label: "Lead Converted"},
	KindOpportunityCreated:   {Icon: "🎯", Color: "14", Label: "New Opportunity"},
	KindDealClosed:           {Icon: "🏆", Color: "10", Label: "Deal Closed"},
	KindHighValueOpportunity: {Icon: "💰", Color: "11", Label: "High-Value Opportunity"},
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindCall, KindEmail, KindMeeting, KindTask, KindNote,
		KindTaskCompleted, KindTaskOverdue,
		KindClientCreated, KindHighValueClient,
		KindLeadCreated, KindLeadQualified, KindLeadConverted,
		KindOpportunityCreated, KindDealClosed, KindHighValueOpportunity,
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := styles[k]
	return ok
}

// Style returns the display style for k.
func (k Kind) Style() Style {
	s, ok := styles[k]
	if !ok {
		panic(fmt.Sprintf("feed: no style for kind %q", k))
	}
	return s
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown feed kind %q", s)
	}
	return k, nil
}

// activityKind maps a stored activity type onto its kind. Types outside the
// activity enum are shown as notes.
func activityKind(activityType string) Kind {
	switch activityType {
	case models.ActivityCall:
		return KindCall
	case models.ActivityEmail:
		return KindEmail
	case models.ActivityMeeting:
		return KindMeeting
	case models.ActivityTask:
		return KindTask
	default:
		return KindNote
	}
}
