package database

import (
	"fmt"
	"sort"

	dbsql "github.com/JustinHellens-SA/real-estate-auto-post/pkg/database/sql"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
)

// ApplySchema executes the embedded schema files in lexical order.
// Statements are idempotent (CREATE ... IF NOT EXISTS) so this is safe to
// run on every startup.
func ApplySchema(db PostgresConn, logger logging.Logger) error {
	entries, err := dbsql.Content.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read embedded schema: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := dbsql.Content.ReadFile("schema/" + name)
		if err != nil {
			return fmt.Errorf("read schema file %s: %w", name, err)
		}
		if _, err := db.Exec(string(contents)); err != nil {
			return fmt.Errorf("apply schema file %s: %w", name, err)
		}
		logger.WithField("file", name).Debug("Applied schema file")
	}

	return nil
}
