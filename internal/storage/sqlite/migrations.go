package sqlite

import "database/sql"

// schema sets up the record table. It runs on startup to ensure tables exist.
// Every collection shares one table; group_id and created_at are copied out
// of the document so group listings stay indexed.
const schema = `
CREATE TABLE IF NOT EXISTS records (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    group_id TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    data BLOB NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_records_group ON records(collection, group_id, created_at DESC);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
