package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-gate/internal/models"
	"github.com/magabrotheeeer/slot-gate/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type MockEntitlements struct {
	mock.Mock
}

func (m *MockEntitlements) Grant(ctx context.Context, userID string, tier int) error {
	args := m.Called(ctx, userID, tier)
	return args.Error(0)
}

func (m *MockEntitlements) Revoke(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context) (*models.Snapshot, int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*models.Snapshot), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) Save(ctx context.Context, snap *models.Snapshot, version int64) (int64, error) {
	args := m.Called(ctx, snap, version)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// permissiveCache — кеш, который всегда промахивается и принимает любые записи.
func permissiveCache() *MockCache {
	c := new(MockCache)
	c.On("Get", mock.Anything, mock.Anything).Return(false, nil).Maybe()
	c.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	c.On("Invalidate", mock.Anything).Return(nil).Maybe()
	return c
}

func testPlans() map[int]models.Plan {
	valueCap := 100.0
	return map[int]models.Plan{
		1: {Tier: 1, Name: "Basic", PricePerHour: 1, Slots: 2, ValueCap: &valueCap, Enabled: true},
		3: {Tier: 3, Name: "Elite", PricePerHour: 3.5, Slots: 1, Enabled: true},
		4: {Tier: 4, Name: "Staff", PricePerHour: 1, Slots: 2, Enabled: true, AdminOnly: true},
		5: {Tier: 5, Name: "Legacy", PricePerHour: 1, Slots: 5},
	}
}

func activeUser(id string, tier int, left time.Duration) *models.User {
	return &models.User{
		ID:         id,
		Role:       models.RoleUser,
		LicenseKey: "SG-" + id,
		Tier:       tier,
		ExpiresAt:  testNow.Add(left),
	}
}

func pausedUser(id string, tier int, frozen time.Duration, locked bool) *models.User {
	u := activeUser(id, tier, 0)
	u.Paused = true
	u.PauseLocked = locked
	u.FrozenRemaining = &frozen
	return u
}

func snapshotOf(users ...*models.User) *models.Snapshot {
	snap := models.NewSnapshot()
	for _, u := range users {
		snap.Users[u.ID] = u
	}
	return snap
}

type testEnv struct {
	svc   *SubscriptionService
	store *memory.Store
	ent   *MockEntitlements
}

func newTestEnv(t *testing.T, snap *models.Snapshot, opts ...Option) *testEnv {
	t.Helper()
	store := memory.New()
	_, err := store.Save(context.Background(), snap, 0)
	require.NoError(t, err)

	ent := new(MockEntitlements)
	t.Cleanup(func() { ent.AssertExpectations(t) })

	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithDefaultPlans(testPlans()),
	}, opts...)
	return &testEnv{
		svc:   NewSubscriptionService(store, ent, permissiveCache(), newNoopLogger(), opts...),
		store: store,
		ent:   ent,
	}
}

func (e *testEnv) stored(t *testing.T, userID string) *models.User {
	t.Helper()
	snap, _, err := e.store.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, snap.Users, userID)
	return snap.Users[userID]
}
