package migrations

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

// Up applies every pending migration to the database at dbURL.
func Up(dbURL string) error {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, driverURL(dbURL))
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// driverURL rewrites a libpq style URL to the pgx/v5 driver scheme.
func driverURL(dbURL string) string {
	for _, p := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dbURL, p) {
			return "pgx5://" + strings.TrimPrefix(dbURL, p)
		}
	}
	return dbURL
}
