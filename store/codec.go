// ABOUTME: Conversion between typed entity structs and generic rows
// ABOUTME: Uses a JSON round-trip so struct tags define the column names
package store

import (
	"encoding/json"
	"fmt"
)

// Encode turns an entity struct into a Row.
func Encode(v interface{}) (Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}

	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	return row, nil
}

// Decode turns a Row into an entity struct.
func Decode[T any](row Row) (T, error) {
	var out T
	data, err := json.Marshal(row)
	if err != nil {
		return out, fmt.Errorf("failed to decode row: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode row %s: %w", row.ID(), err)
	}
	return out, nil
}

// DecodeAll decodes every row, stopping at the first failure.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := Decode[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Fields encodes v and drops the columns a backend manages, for use as create/update input.
func Fields(v interface{}) (Row, error) {
	row, err := Encode(v)
	if err != nil {
		return nil, err
	}
	delete(row, ColumnCreatedAt)
	delete(row, ColumnUpdatedAt)
	if id, _ := row[ColumnID].(string); id == "" {
		delete(row, ColumnID)
	}
	return row, nil
}
