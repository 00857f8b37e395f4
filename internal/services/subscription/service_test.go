package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-gate/internal/lib/licensekey"
	"github.com/magabrotheeeer/slot-gate/internal/models"
	"github.com/magabrotheeeer/slot-gate/internal/storage/memory"
)

func TestSubscriptionService_Link(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, snapshotOf(), WithAdmins([]string{"boss"}))

	u, created, err := env.svc.Link(ctx, "u1", "Alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, licensekey.Valid(u.LicenseKey))
	assert.Zero(t, u.Balance)
	assert.Zero(t, u.Tier)

	again, created, err := env.svc.Link(ctx, "u1", "Alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.LicenseKey, again.LicenseKey)

	admin, _, err := env.svc.Link(ctx, "boss", "Boss")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEqual(t, u.LicenseKey, admin.LicenseKey)

	assert.Equal(t, "Alice", env.stored(t, "u1").DisplayName)
}

func TestSubscriptionService_Subscribe(t *testing.T) {
	ctx := context.Background()
	u := activeUser("u1", 0, 0)
	u.Balance = 50
	env := newTestEnv(t, snapshotOf(u))
	env.ent.On("Grant", mock.Anything, "u1", 1).Return(nil).Once()

	res, err := env.svc.Subscribe(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tier)
	assert.InDelta(t, 40.0, res.NewBalance, 1e-9)
	assert.Zero(t, res.ConvertedHours)
	assert.InDelta(t, 10.0, res.TotalHours, 1e-9)
	assert.True(t, res.ExpiresAt.Equal(testNow.Add(10*time.Hour)))

	stored := env.stored(t, "u1")
	assert.Equal(t, 1, stored.Tier)
	assert.InDelta(t, 40.0, stored.Balance, 1e-9)
}

func TestSubscriptionService_Subscribe_Upgrade(t *testing.T) {
	ctx := context.Background()
	u := activeUser("u1", 1, 10*time.Hour)
	u.Balance = 100
	env := newTestEnv(t, snapshotOf(u))
	env.ent.On("Grant", mock.Anything, "u1", 3).Return(nil).Once()

	res, err := env.svc.Subscribe(ctx, "u1", 3, 2)
	require.NoError(t, err)
	assert.InDelta(t, 93.0, res.NewBalance, 1e-9)
	assert.InDelta(t, 2.857, res.ConvertedHours, 0.001)
	assert.InDelta(t, 4.857, res.TotalHours, 0.001)
	assert.Equal(t, 3, env.stored(t, "u1").Tier)
}

func TestSubscriptionService_Subscribe_GrantFailureDoesNotFail(t *testing.T) {
	u := activeUser("u1", 0, 0)
	u.Balance = 10
	env := newTestEnv(t, snapshotOf(u))
	env.ent.On("Grant", mock.Anything, "u1", 1).Return(errors.New("broker down")).Once()

	_, err := env.svc.Subscribe(context.Background(), "u1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, env.stored(t, "u1").Tier)
}

func TestSubscriptionService_Subscribe_Errors(t *testing.T) {
	rich := func(id string) *models.User {
		u := activeUser(id, 0, 0)
		u.Balance = 1000
		return u
	}

	tests := []struct {
		name    string
		setup   func() *models.Snapshot
		userID  string
		tier    int
		hours   float64
		wantErr error
	}{
		{
			name:    "unknown user",
			setup:   func() *models.Snapshot { return snapshotOf() },
			userID:  "ghost",
			tier:    1,
			hours:   1,
			wantErr: ErrUnknownUser,
		},
		{
			name:    "zero hours",
			setup:   func() *models.Snapshot { return snapshotOf(rich("u1")) },
			userID:  "u1",
			tier:    1,
			hours:   0,
			wantErr: ErrInvalidHours,
		},
		{
			name:    "negative hours",
			setup:   func() *models.Snapshot { return snapshotOf(rich("u1")) },
			userID:  "u1",
			tier:    1,
			hours:   -3,
			wantErr: ErrInvalidHours,
		},
		{
			name: "global pause",
			setup: func() *models.Snapshot {
				snap := snapshotOf(rich("u1"))
				snap.GlobalPause = true
				return snap
			},
			userID:  "u1",
			tier:    1,
			hours:   1,
			wantErr: ErrGlobalPause,
		},
		{
			name: "paused",
			setup: func() *models.Snapshot {
				u := pausedUser("u1", 1, time.Hour, false)
				u.Balance = 1000
				return snapshotOf(u)
			},
			userID:  "u1",
			tier:    3,
			hours:   1,
			wantErr: ErrPaused,
		},
		{
			name: "banned by warnings",
			setup: func() *models.Snapshot {
				u := rich("u1")
				u.Warnings = 2
				return snapshotOf(u)
			},
			userID:  "u1",
			tier:    1,
			hours:   1,
			wantErr: ErrBanned,
		},
		{
			name:    "unknown plan",
			setup:   func() *models.Snapshot { return snapshotOf(rich("u1")) },
			userID:  "u1",
			tier:    9,
			hours:   1,
			wantErr: ErrUnknownPlan,
		},
		{
			name:    "disabled plan",
			setup:   func() *models.Snapshot { return snapshotOf(rich("u1")) },
			userID:  "u1",
			tier:    5,
			hours:   1,
			wantErr: ErrPlanDisabled,
		},
		{
			name:    "admin-only plan",
			setup:   func() *models.Snapshot { return snapshotOf(rich("u1")) },
			userID:  "u1",
			tier:    4,
			hours:   1,
			wantErr: ErrPlanAdminOnly,
		},
		{
			name: "slots full",
			setup: func() *models.Snapshot {
				return snapshotOf(rich("u1"), activeUser("a", 3, time.Hour))
			},
			userID:  "u1",
			tier:    3,
			hours:   1,
			wantErr: ErrSlotsFull,
		},
		{
			name: "insufficient balance",
			setup: func() *models.Snapshot {
				u := rich("u1")
				u.Balance = 3
				return snapshotOf(u)
			},
			userID:  "u1",
			tier:    3,
			hours:   1,
			wantErr: ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.setup())

			res, err := env.svc.Subscribe(context.Background(), tt.userID, tt.tier, tt.hours)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)

			snap, version, loadErr := env.store.Load(context.Background())
			require.NoError(t, loadErr)
			assert.Equal(t, int64(1), version, "failed operation must not write")
			if u, ok := snap.Users[tt.userID]; ok {
				assert.NotEqual(t, tt.tier, u.Tier)
			}
		})
	}
}

func TestSubscriptionService_Subscribe_ErrorDetails(t *testing.T) {
	u := activeUser("u1", 0, 0)
	u.Balance = 3
	env := newTestEnv(t, snapshotOf(u, activeUser("a", 1, time.Hour), activeUser("b", 1, time.Hour)))

	_, err := env.svc.Subscribe(context.Background(), "u1", 1, 1)
	var full *SlotsFullError
	require.ErrorAs(t, err, &full)
	assert.Equal(t, 2, full.Active)
	assert.Equal(t, 2, full.Max)
	assert.Equal(t, KindCapacity, KindOf(err))

	_, err = env.svc.Subscribe(context.Background(), "u1", 3, 1)
	var funds *InsufficientBalanceError
	require.ErrorAs(t, err, &funds)
	assert.InDelta(t, 3.5, funds.Needed, 1e-9)
	assert.InDelta(t, 3.0, funds.Have, 1e-9)
	assert.Equal(t, KindFunds, KindOf(err))
}

func TestSubscriptionService_Subscribe_AdminOnlyForAdmin(t *testing.T) {
	u := activeUser("boss", 0, 0)
	u.Role = models.RoleAdmin
	u.Balance = 10
	env := newTestEnv(t, snapshotOf(u))
	env.ent.On("Grant", mock.Anything, "boss", 4).Return(nil).Once()

	_, err := env.svc.Subscribe(context.Background(), "boss", 4, 1)
	require.NoError(t, err)
}

// Последний слот разыгрывают несколько горутин: допущено ровно столько, сколько слотов.
func TestSubscriptionService_Subscribe_ConcurrentAdmission(t *testing.T) {
	snap := snapshotOf()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		u := activeUser(id, 0, 0)
		u.Balance = 100
		snap.Users[id] = u
	}
	env := newTestEnv(t, snap)
	env.ent.On("Grant", mock.Anything, mock.Anything, 1).Return(nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		rejected  int
		otherErrs []error
	)
	for id := range snap.Users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.svc.Subscribe(context.Background(), id, 1, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrSlotsFull):
				rejected++
			default:
				otherErrs = append(otherErrs, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Empty(t, otherErrs)
	assert.Equal(t, 2, admitted)
	assert.Equal(t, 4, rejected)
}

// Два экземпляра сервиса над одним хранилищем: устаревший снимок обнаруживается
// по версии, и проверка слотов повторяется на свежих данных.
func TestSubscriptionService_Subscribe_StaleSnapshotRechecksSlots(t *testing.T) {
	ctx := context.Background()
	snap := snapshotOf()
	for _, id := range []string{"u1", "u2"} {
		u := activeUser(id, 0, 0)
		u.Balance = 100
		snap.Users[id] = u
	}
	store := memory.New()
	_, err := store.Save(ctx, snap, 0)
	require.NoError(t, err)

	ent := new(MockEntitlements)
	ent.On("Grant", mock.Anything, "u2", 3).Return(nil).Once()
	opts := []Option{WithClock(func() time.Time { return testNow }), WithDefaultPlans(testPlans())}
	first := NewSubscriptionService(store, ent, permissiveCache(), newNoopLogger(), opts...)
	second := NewSubscriptionService(store, ent, permissiveCache(), newNoopLogger(), opts...)

	_, err = first.ListPlans(ctx)
	require.NoError(t, err)

	_, err = second.Subscribe(ctx, "u2", 3, 1)
	require.NoError(t, err)

	_, err = first.Subscribe(ctx, "u1", 3, 1)
	assert.ErrorIs(t, err, ErrSlotsFull)
	ent.AssertExpectations(t)
}

func TestSubscriptionService_PersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	u := activeUser("u1", 1, 5*time.Hour)

	store := new(MockStore)
	store.On("Load", mock.Anything).Return(snapshotOf(u), int64(7), nil).Once()
	store.On("Save", mock.Anything, mock.Anything, int64(7)).Return(int64(0), errors.New("connection reset"))

	svc := NewSubscriptionService(store, new(MockEntitlements), permissiveCache(), newNoopLogger(),
		WithClock(func() time.Time { return testNow }), WithDefaultPlans(testPlans()))

	require.NoError(t, svc.Pause(ctx, "u1"))

	st, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, st.Status)

	// следующая запись снова использует последнюю подтверждённую версию
	require.NoError(t, svc.Unpause(ctx, "u1"))
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Save", 2)
}

func TestSubscriptionService_LoadFailure(t *testing.T) {
	store := new(MockStore)
	store.On("Load", mock.Anything).Return(nil, int64(0), errors.New("db down"))

	svc := NewSubscriptionService(store, new(MockEntitlements), permissiveCache(), newNoopLogger())

	_, err := svc.Status(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestSubscriptionService_ValidateLicense(t *testing.T) {
	ctx := context.Background()
	u := activeUser("u1", 1, 5*time.Hour)
	u.Config = map[string]any{"theme": "dark"}
	env := newTestEnv(t, snapshotOf(u))

	info, err := env.svc.ValidateLicense(ctx, "SG-u1", "hw-1", "Alice")
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.Equal(t, "u1", info.UserID)
	assert.Equal(t, 1, info.Tier)
	assert.Equal(t, "Basic", info.PlanName)
	require.NotNil(t, info.ValueCap)
	assert.InDelta(t, 100.0, *info.ValueCap, 1e-9)
	assert.True(t, info.ExpiresAt.Equal(testNow.Add(5*time.Hour)))
	assert.Equal(t, "dark", info.Config["theme"])

	stored := env.stored(t, "u1")
	assert.Equal(t, "hw-1", stored.DeviceID)
	assert.Equal(t, "Alice", stored.DisplayName)
	require.NotNil(t, stored.LastSeenAt)

	_, err = env.svc.ValidateLicense(ctx, "SG-u1", "hw-2", "")
	assert.ErrorIs(t, err, ErrHWIDMismatch)

	_, err = env.svc.ValidateLicense(ctx, "SG-nobody", "hw-1", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSubscriptionService_ValidateLicense_RepeatDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, snapshotOf(activeUser("u1", 1, time.Hour)))

	_, err := env.svc.ValidateLicense(ctx, "SG-u1", "hw-1", "")
	require.NoError(t, err)
	_, v1, err := env.store.Load(ctx)
	require.NoError(t, err)

	_, err = env.svc.ValidateLicense(ctx, "SG-u1", "hw-1", "")
	require.NoError(t, err)
	_, v2, err := env.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestSubscriptionService_Status(t *testing.T) {
	ctx := context.Background()
	u := pausedUser("u1", 3, 90*time.Minute, true)
	u.DeviceID = "hw-1"
	env := newTestEnv(t, snapshotOf(u))

	st, err := env.svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusPausedLocked, st.Status)
	assert.True(t, st.Active)
	assert.Equal(t, "Elite", st.PlanName)
	assert.Equal(t, int64(90*60), st.RemainingSeconds)
	assert.True(t, st.DeviceBound)
	assert.False(t, st.Purchasable)

	_, err = env.svc.Status(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestSubscriptionService_SlotsStatus(t *testing.T) {
	ctx := context.Background()
	snap := snapshotOf(
		activeUser("a", 1, 2*time.Hour),
		activeUser("b", 1, 30*time.Minute),
		activeUser("c", 3, -time.Hour),
	)
	store := memory.New()
	_, err := store.Save(ctx, snap, 0)
	require.NoError(t, err)

	cache := new(MockCache)
	cache.On("Get", slotsCacheKey, mock.Anything).Return(false, nil).Once()
	cache.On("Set", slotsCacheKey, mock.AnythingOfType("[]services.SlotStatus"), 5*time.Second).Return(nil).Once()

	svc := NewSubscriptionService(store, new(MockEntitlements), cache, newNoopLogger(),
		WithClock(func() time.Time { return testNow }),
		WithDefaultPlans(testPlans()),
		WithSlotsCacheTTL(5*time.Second),
	)

	status, err := svc.SlotsStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status, 3, "disabled plans are hidden")

	basic := status[0]
	assert.Equal(t, 1, basic.Tier)
	assert.Equal(t, 2, basic.ActiveUsers)
	assert.Equal(t, 2, basic.MaxSlots)
	require.NotNil(t, basic.NextSlotInSeconds)
	assert.Equal(t, int64(30*60), *basic.NextSlotInSeconds)

	elite := status[1]
	assert.Equal(t, 3, elite.Tier)
	assert.Zero(t, elite.ActiveUsers)
	assert.Nil(t, elite.NextSlotInSeconds)

	cache.AssertExpectations(t)
}

func TestSubscriptionService_SlotsStatus_CacheHit(t *testing.T) {
	cached := []SlotStatus{{Tier: 1, Name: "Basic", ActiveUsers: 1, MaxSlots: 2}}
	cache := new(MockCache)
	cache.On("Get", slotsCacheKey, mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(1).(*[]SlotStatus)
		*out = cached
	}).Return(true, nil).Once()

	store := new(MockStore)
	svc := NewSubscriptionService(store, new(MockEntitlements), cache, newNoopLogger())

	status, err := svc.SlotsStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, status)
	store.AssertNotCalled(t, "Load", mock.Anything)
}

func TestSubscriptionService_MutationInvalidatesSlotsCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.Save(ctx, snapshotOf(activeUser("u1", 1, time.Hour)), 0)
	require.NoError(t, err)

	cache := new(MockCache)
	cache.On("Invalidate", slotsCacheKey).Return(errors.New("redis down")).Once()

	svc := NewSubscriptionService(store, new(MockEntitlements), cache, newNoopLogger(),
		WithClock(func() time.Time { return testNow }))

	require.NoError(t, svc.Pause(ctx, "u1"))
	cache.AssertExpectations(t)
}

func TestSubscriptionService_ListPlans(t *testing.T) {
	ctx := context.Background()
	snap := snapshotOf()
	snap.PlanOverrides[1] = models.Plan{Tier: 1, Name: "Basic+", PricePerHour: 1.5, Slots: 30, Enabled: true}
	env := newTestEnv(t, snap)

	list, err := env.svc.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "Basic+", list[0].Name)
	assert.Equal(t, 30, list[0].Slots)
	assert.Equal(t, 5, list[3].Tier)
}

func TestSubscriptionService_PauseUnpause(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, snapshotOf(activeUser("u1", 1, 4*time.Hour), activeUser("u2", 1, -time.Hour)))

	require.NoError(t, env.svc.Pause(ctx, "u1"))
	stored := env.stored(t, "u1")
	assert.True(t, stored.Paused)
	require.NotNil(t, stored.FrozenRemaining)
	assert.Equal(t, 4*time.Hour, *stored.FrozenRemaining)

	assert.ErrorIs(t, env.svc.Pause(ctx, "u1"), ErrPaused)
	assert.ErrorIs(t, env.svc.Pause(ctx, "u2"), ErrNotActive)
	assert.ErrorIs(t, env.svc.Unpause(ctx, "u2"), ErrNotPaused)
	assert.ErrorIs(t, env.svc.Pause(ctx, "ghost"), ErrUnknownUser)

	require.NoError(t, env.svc.Unpause(ctx, "u1"))
	stored = env.stored(t, "u1")
	assert.False(t, stored.Paused)
	assert.True(t, stored.ExpiresAt.Equal(testNow.Add(4*time.Hour)))
}
