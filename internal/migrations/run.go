// Package migrations применяет SQL-миграции схемы хранилища снимка.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// Источник миграций из файловой системы.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Run применяет все миграции из каталога path. Отсутствие новых миграций ошибкой не считается.
func Run(db *sql.DB, path string) error {
	const op = "migrations.Run"
	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m, err := migrate.NewWithDatabaseInstance(
		"file://"+path,
		"pgx_v5",
		driver,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
