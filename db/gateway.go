// ABOUTME: SQLite implementation of the generic entity gateway
// ABOUTME: Stores each record as a JSON document in its entity table
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmdesk/store"
)

// Gateway serves store.Gateway from a SQLite database.
type Gateway struct {
	db  *sql.DB
	now func() time.Time
}

// NewGateway wraps an open database whose schema is initialized.
func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{db: db, now: time.Now}
}

func checkTable(table store.Table) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownTable, table)
	}
	return nil
}

// List returns every row in the table, newest first.
func (g *Gateway) List(ctx context.Context, table store.Table) ([]store.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	// table is validated against the closed set above
	rows, err := g.db.QueryContext(ctx, `SELECT data FROM `+string(table)+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]store.Row, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var row store.Row
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", table, err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// Get returns one row or store.ErrNotFound.
func (g *Gateway) Get(ctx context.Context, table store.Table, id string) (store.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	return g.get(ctx, g.db, table, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (g *Gateway) get(ctx context.Context, q queryer, table store.Table, id string) (store.Row, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM `+string(table)+` WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %s: %w", table, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var row store.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to decode %s row: %w", table, err)
	}
	return row, nil
}

// Create inserts a row, assigning id and timestamps.
func (g *Gateway) Create(ctx context.Context, table store.Table, fields store.Row) (store.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	row := fields.Clone()
	if row.ID() == "" {
		row[store.ColumnID] = uuid.New().String()
	}
	now := store.FormatTime(g.now())
	row[store.ColumnCreatedAt] = now
	row[store.ColumnUpdatedAt] = now

	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s row: %w", table, err)
	}

	_, err = g.db.ExecContext(ctx,
		`INSERT INTO `+string(table)+` (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		row.ID(), string(data), now, now,
	)
	if err != nil {
		return nil, err
	}

	// Round-trip so callers see the same value types List would return
	var stored store.Row
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Update merges fields into the stored row.
func (g *Gateway) Update(ctx context.Context, table store.Table, id string, fields store.Row) (store.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	existing, err := g.get(ctx, tx, table, id)
	if err != nil {
		return nil, err
	}

	merged := existing.Merge(fields)
	merged[store.ColumnCreatedAt] = existing[store.ColumnCreatedAt]
	now := store.FormatTime(g.now())
	merged[store.ColumnUpdatedAt] = now

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s row: %w", table, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE `+string(table)+` SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), now, id,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	var stored store.Row
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete removes a row or returns store.ErrNotFound.
func (g *Gateway) Delete(ctx context.Context, table store.Table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	result, err := g.db.ExecContext(ctx, `DELETE FROM `+string(table)+` WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, store.ErrNotFound)
	}
	return nil
}

var _ store.Gateway = (*Gateway)(nil)
