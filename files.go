package auth

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/templates
var templatesFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsDir is the root of the goose migrations inside GetMigrationsFS.
const MigrationsDir = "data/sql/migrations"

// GetMailTemplatesFS returns the mail templates rooted at their directory.
func GetMailTemplatesFS() fs.FS {
	sub, err := fs.Sub(templatesFS, "data/templates/mail")
	if err != nil {
		panic(err)
	}
	return sub
}
