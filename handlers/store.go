// ABOUTME: Typed helpers over the generic gateway for tool handlers
// ABOUTME: Validates before writing and decodes rows into models
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

func createEntity[T any](ctx context.Context, gw store.Gateway, table store.Table, v T) (T, error) {
	var zero T
	if err := models.Validate(v); err != nil {
		return zero, err
	}
	fields, err := store.Fields(v)
	if err != nil {
		return zero, err
	}
	row, err := gw.Create(ctx, table, fields)
	if err != nil {
		return zero, fmt.Errorf("failed to create %s: %w", table, err)
	}
	return store.Decode[T](row)
}

func getEntity[T any](ctx context.Context, gw store.Gateway, table store.Table, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, fmt.Errorf("id is required")
	}
	row, err := gw.Get(ctx, table, id)
	if errors.Is(err, store.ErrNotFound) {
		return zero, fmt.Errorf("%s %s not found", table, id)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s: %w", table, err)
	}
	return store.Decode[T](row)
}

// updateEntity validates the merged result before sending only the changed fields.
func updateEntity[T any](ctx context.Context, gw store.Gateway, table store.Table, current T, fields store.Row) (T, error) {
	var zero T
	base, err := store.Encode(current)
	if err != nil {
		return zero, err
	}
	merged, err := store.Decode[T](base.Merge(fields))
	if err != nil {
		return zero, err
	}
	if err := models.Validate(merged); err != nil {
		return zero, err
	}
	row, err := gw.Update(ctx, table, base.ID(), fields)
	if err != nil {
		return zero, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return store.Decode[T](row)
}

func listEntities[T any](ctx context.Context, gw store.Gateway, table store.Table) ([]T, error) {
	rows, err := gw.List(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return store.DecodeAll[T](rows)
}

func reference(clientID, leadID, opportunityID string) (client, lead, opportunity *string, err error) {
	set := 0
	for _, id := range []string{clientID, leadID, opportunityID} {
		if id != "" {
			set++
		}
	}
	if set > 1 {
		return nil, nil, nil, fmt.Errorf("only one of client_id, lead_id, opportunity_id may be set")
	}
	if clientID != "" {
		client = &clientID
	}
	if leadID != "" {
		lead = &leadID
	}
	if opportunityID != "" {
		opportunity = &opportunityID
	}
	return client, lead, opportunity, nil
}
