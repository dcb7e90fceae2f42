// Package migrations embeds the SQL schema into the binary and registers it
// with the database package on import.
package migrations

import (
	"embed"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
