// ABOUTME: Cache bundles one reactive collection per table behind the Gateway interface
// ABOUTME: Writes made through it reach the backend first, then update the local snapshot
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/crmdesk/models"
	"github.com/sirupsen/logrus"
)

type rowSink interface {
	Table() Table
	Load(ctx context.Context) error
	create(ctx context.Context, fields Row) (Row, error)
	update(ctx context.Context, id string, fields Row) (Row, error)
	Delete(ctx context.Context, id string) error
	replaceRows(rows []Row) error
}

// Cache is the process-wide store of entity snapshots.
type Cache struct {
	gw  Gateway
	log logrus.FieldLogger

	Clients       *Collection[models.Client]
	Leads         *Collection[models.Lead]
	Opportunities *Collection[models.Opportunity]
	Tasks         *Collection[models.Task]
	Activities    *Collection[models.Activity]
	Profiles      *Collection[models.Profile]

	sinks map[Table]rowSink
}

// NewCache wraps gw. Call Refresh to populate it.
func NewCache(gw Gateway, log logrus.FieldLogger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Cache{
		gw:            gw,
		log:           log.WithField("component", "cache"),
		Clients:       NewCollection[models.Client](gw, TableClients),
		Leads:         NewCollection[models.Lead](gw, TableLeads),
		Opportunities: NewCollection[models.Opportunity](gw, TableOpportunities),
		Tasks:         NewCollection[models.Task](gw, TableTasks),
		Activities:    NewCollection[models.Activity](gw, TableActivities),
		Profiles:      NewCollection[models.Profile](gw, TableProfiles),
	}

	c.sinks = map[Table]rowSink{
		TableClients:       c.Clients,
		TableLeads:         c.Leads,
		TableOpportunities: c.Opportunities,
		TableTasks:         c.Tasks,
		TableActivities:    c.Activities,
		TableProfiles:      c.Profiles,
	}

	return c
}

// Refresh reloads every collection independently. A failing table does not stop the others.
func (c *Cache) Refresh(ctx context.Context) error {
	var errs []error
	for _, table := range Tables() {
		if err := c.sinks[table].Load(ctx); err != nil {
			c.log.WithError(err).WithField("table", table).Warn("refresh failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) sink(table Table) (rowSink, error) {
	s, ok := c.sinks[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return s, nil
}

// List fetches the table from the backend and replaces its snapshot.
func (c *Cache) List(ctx context.Context, table Table) ([]Row, error) {
	s, err := c.sink(table)
	if err != nil {
		return nil, err
	}

	rows, err := c.gw.List(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := s.replaceRows(rows); err != nil {
		c.log.WithError(err).WithField("table", table).Warn("snapshot not updated")
	}
	return rows, nil
}

// Get reads straight from the backend.
func (c *Cache) Get(ctx context.Context, table Table, id string) (Row, error) {
	if _, err := c.sink(table); err != nil {
		return nil, err
	}
	return c.gw.Get(ctx, table, id)
}

// Create inserts through the backend and records the stored row locally.
func (c *Cache) Create(ctx context.Context, table Table, fields Row) (Row, error) {
	s, err := c.sink(table)
	if err != nil {
		return nil, err
	}

	row, err := s.create(ctx, fields)
	if row == nil {
		return nil, err
	}
	if err != nil {
		// The backend accepted the write; only the local copy is stale.
		c.log.WithError(err).WithField("table", table).Warn("snapshot not updated after create")
	}
	return row, nil
}

// Update patches through the backend and records the stored row locally.
func (c *Cache) Update(ctx context.Context, table Table, id string, fields Row) (Row, error) {
	s, err := c.sink(table)
	if err != nil {
		return nil, err
	}

	row, err := s.update(ctx, id, fields)
	if row == nil {
		return nil, err
	}
	if err != nil {
		c.log.WithError(err).WithField("table", table).Warn("snapshot not updated after update")
	}
	return row, nil
}

// Delete removes through the backend and drops the local copy.
func (c *Cache) Delete(ctx context.Context, table Table, id string) error {
	s, err := c.sink(table)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

var _ Gateway = (*Cache)(nil)
