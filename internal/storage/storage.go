// Package storage описывает хранилище снимка состояния. Снимок читается и
// пишется целиком; запись выполняется условно по номеру версии, прочитанному ранее
// (оптимистичная блокировка).
package storage

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// ErrVersionConflict возвращается Save, если снимок уже изменён другим писателем.
var ErrVersionConflict = errors.New("snapshot version conflict")

// SnapshotStore — внешнее хранилище снимка.
type SnapshotStore interface {
	// Load возвращает текущий снимок и его версию. Пустое хранилище отдаёт пустой снимок с версией 0.
	Load(ctx context.Context) (*models.Snapshot, int64, error)
	// Save записывает снимок, если текущая версия равна version, и возвращает новую версию.
	Save(ctx context.Context, snap *models.Snapshot, version int64) (int64, error)
}
