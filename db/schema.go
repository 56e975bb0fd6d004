// ABOUTME: Database schema definitions and migrations
// ABOUTME: Creates one JSON-document table per CRM entity
package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/harperreed/crmdesk/store"
)

// Every entity table has the same shape: typed bookkeeping columns plus the
// full record as a JSON document.
const tableTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at DESC);
`

func schema() string {
	var b strings.Builder
	for _, table := range store.Tables() {
		fmt.Fprintf(&b, tableTemplate, table)
	}
	return b.String()
}

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema())
	return err
}
