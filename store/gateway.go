// ABOUTME: Generic per-entity data access contract shared by every backend
// ABOUTME: Defines Table, Row, Gateway, and the sentinel errors callers check with errors.Is
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnknownTable = errors.New("unknown table")
)

// Table names one remote entity collection.
type Table string

const (
	TableClients       Table = "clients"
	TableLeads         Table = "leads"
	TableOpportunities Table = "opportunities"
	TableTasks         Table = "tasks"
	TableActivities    Table = "activities"
	TableProfiles      Table = "profiles"
)

// Tables returns every table in a stable order.
func Tables() []Table {
	return []Table{
		TableClients,
		TableLeads,
		TableOpportunities,
		TableTasks,
		TableActivities,
		TableProfiles,
	}
}

// Valid reports whether t is one of the known tables.
func (t Table) Valid() bool {
	for _, known := range Tables() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTable converts user input into a Table.
func ParseTable(name string) (Table, error) {
	t := Table(name)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// Row is one stored record keyed by snake_case column name.
type Row map[string]interface{}

// Column names every backend maintains itself.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// ID returns the row's id column, or "" when absent.
func (r Row) ID() string {
	if id, ok := r[ColumnID].(string); ok {
		return id
	}
	return ""
}

// CreatedAt parses the created_at column; zero time when missing or malformed.
func (r Row) CreatedAt() time.Time {
	if s, ok := r[ColumnCreatedAt].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Clone returns a shallow copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies fields onto a clone of r, leaving the id column untouched.
func (r Row) Merge(fields Row) Row {
	out := r.Clone()
	for k, v := range fields {
		if k == ColumnID {
			continue
		}
		out[k] = v
	}
	return out
}

// Gateway is the remote table-oriented store. Implementations must be safe for concurrent use.
type Gateway interface {
	List(ctx context.Context, table Table) ([]Row, error)
	Get(ctx context.Context, table Table, id string) (Row, error)
	Create(ctx context.Context, table Table, fields Row) (Row, error)
	Update(ctx context.Context, table Table, id string, fields Row) (Row, error)
	Delete(ctx context.Context, table Table, id string) error
}

// TimeLayout is RFC 3339 with fixed-width nanoseconds so stored timestamps sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders timestamps the way every backend stores them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
