package postgres

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Migrate applies every pending migration under migrationsDir (a
// file:// path) to dsn. Safe to call on every process start: golang-migrate
// no-ops when the schema is already current.
func Migrate(migrationsDir, dsn string) error {
	m, err := migrate.New("file://"+migrationsDir, dsn)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return domain.NewError(domain.ErrInternal, err)
	}
	return nil
}
