// ABOUTME: Entity gateway over Charm KV, syncing CRM records across devices
// ABOUTME: Each record is a JSON value under the key "<table>/<id>"

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/charm/kv"
	"github.com/google/uuid"

	"github.com/harperreed/crmdesk/store"
)

// Gateway serves store.Gateway from a charm Client.
type Gateway struct {
	client *Client
	now    func() time.Time

	// serializes read-modify-write in Update
	mu sync.Mutex
}

// NewGateway wraps client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client, now: time.Now}
}

func key(table store.Table, id string) []byte {
	return []byte(string(table) + "/" + id)
}

func checkTable(table store.Table) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownTable, table)
	}
	return nil
}

func (g *Gateway) read(table store.Table, id string) (store.Row, error) {
	data, err := g.client.Get(key(table, id))
	if errors.Is(err, kv.ErrMissingKey) {
		return nil, fmt.Errorf("%s %s: %w", table, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", table, id, err)
	}

	var row store.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", table, id, err)
	}
	return row, nil
}

func (g *Gateway) write(table store.Table, row store.Row) (store.Row, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s row: %w", table, err)
	}
	if err := g.client.Set(key(table, row.ID()), data); err != nil {
		return nil, fmt.Errorf("failed to write %s %s: %w", table, row.ID(), err)
	}

	var stored store.Row
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// List returns every row in the table, newest first.
func (g *Gateway) List(ctx context.Context, table store.Table) ([]store.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	keys, err := g.client.KeysWithPrefix([]byte(string(table) + "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}

	rows := make([]store.Row, 0, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := string(k[len(table)+1:])
		row, err := g.read(table, id)
		if errors.Is(err, store.ErrNotFound) {
			// deleted between listing keys and reading
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt().After(rows[j].CreatedAt())
	})
	return rows, nil
}

// Get returns one row or store.ErrNotFound.
func (g *Gateway) Get(ctx context.Context, table store.Table, id string) (store.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	return g.read(table, id)
}

// Create stores a new row, assigning id and timestamps.
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

	return g.write(table, row)
}

// Update merges fields into the stored row.
func (g *Gateway) Update(ctx context.Context, table store.Table, id string, fields store.Row) (store.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	existing, err := g.read(table, id)
	if err != nil {
		return nil, err
	}

	merged := existing.Merge(fields)
	merged[store.ColumnCreatedAt] = existing[store.ColumnCreatedAt]
	merged[store.ColumnUpdatedAt] = store.FormatTime(g.now())

	return g.write(table, merged)
}

// Delete removes a row or returns store.ErrNotFound.
func (g *Gateway) Delete(ctx context.Context, table store.Table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.read(table, id); err != nil {
		return err
	}
	if err := g.client.Delete(key(table, id)); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	return nil
}

var _ store.Gateway = (*Gateway)(nil)
