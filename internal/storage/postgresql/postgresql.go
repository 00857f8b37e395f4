// Package postgresql реализует SnapshotStore на основе PostgreSQL.
// Снимок хранится одной строкой JSONB; запись выполняется условным UPDATE
// по номеру версии.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/slot-gate/internal/models"
	"github.com/magabrotheeeer/slot-gate/internal/storage"
)

const snapshotID = 1

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(s *Storage) error {
	var exists bool
	err := s.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'snapshots'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table snapshots missing or query error: %w", err)
	}
	return nil
}

// Load читает снимок. Если строки ещё нет, возвращает пустой снимок с версией 0.
func (s *Storage) Load(ctx context.Context) (*models.Snapshot, int64, error) {
	const op = "storage.postgresql.Load"

	var (
		version int64
		data    []byte
	)
	query := `SELECT version, data FROM snapshots WHERE id = $1`
	err := s.DB.QueryRowContext(ctx, query, snapshotID).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSnapshot(), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	snap := models.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	snap.Normalize()
	return snap, version, nil
}

// Save записывает снимок, если в базе лежит версия version.
func (s *Storage) Save(ctx context.Context, snap *models.Snapshot, version int64) (int64, error) {
	const op = "storage.postgresql.Save"

	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if version == 0 {
		query := `INSERT INTO snapshots (id, version, data, updated_at)
			      VALUES ($1, 1, $2, now())
			      ON CONFLICT (id) DO NOTHING`
		res, err := s.DB.ExecContext(ctx, query, snapshotID, string(data))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
		}
		return 1, nil
	}

	var newVersion int64
	query := `UPDATE snapshots
			  SET data = $1, version = version + 1, updated_at = now()
			  WHERE id = $2 AND version = $3
			  RETURNING version`
	err = s.DB.QueryRowContext(ctx, query, string(data), snapshotID, version).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newVersion, nil
}

// Close закрывает соединение с базой.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
