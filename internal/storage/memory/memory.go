// Package memory реализует SnapshotStore в памяти процесса.
// Снимок хранится в сериализованном виде, поэтому вызывающий не может
// изменить сохранённое состояние в обход Save.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/magabrotheeeer/slot-gate/internal/models"
	"github.com/magabrotheeeer/slot-gate/internal/storage"
)

// Store — хранилище снимка в памяти.
type Store struct {
	mu      sync.Mutex
	data    []byte
	version int64
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{}
}

// Load возвращает копию сохранённого снимка.
func (s *Store) Load(_ context.Context) (*models.Snapshot, int64, error) {
	const op = "memory.Load"
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.NewSnapshot()
	if s.data != nil {
		if err := json.Unmarshal(s.data, snap); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		snap.Normalize()
	}
	return snap, s.version, nil
}

// Save сохраняет снимок при совпадении версии.
func (s *Store) Save(_ context.Context, snap *models.Snapshot, version int64) (int64, error) {
	const op = "memory.Save"
	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
	}
	s.data = data
	s.version++
	return s.version, nil
}
