package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed schema/**/*.sql
var schemaFS embed.FS

// LogSchemaPath is the location of the log table schema inside Schema().
const LogSchemaPath = "log/log.sql"

// Schema returns the embedded schema tree rooted at schema/, one directory per store.
func Schema() fs.FS {
	sub, err := fs.Sub(schemaFS, "schema")
	if err != nil {
		// the embed pattern guarantees the directory exists
		panic(err)
	}
	return sub
}

// LogSchema returns the script that creates the log table.
// The script only uses CREATE ... IF NOT EXISTS and can be applied repeatedly.
func LogSchema() (string, error) {
	sqlBytes, err := fs.ReadFile(Schema(), LogSchemaPath)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded migration file %s: %w", LogSchemaPath, err)
	}
	return string(sqlBytes), nil
}
