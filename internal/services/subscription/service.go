package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/lib/licensekey"
	"github.com/magabrotheeeer/slot-gate/internal/lib/metrics"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	"github.com/magabrotheeeer/slot-gate/internal/models"
	"github.com/magabrotheeeer/slot-gate/internal/plans"
	"github.com/magabrotheeeer/slot-gate/internal/storage"
)

const (
	maxSaveAttempts  = 3
	slotsCacheKey    = "slots:status"
	lastSeenInterval = time.Minute
)

// errSkipSave прерывает мутацию без записи снимка и без ошибки для вызывающего.
var errSkipSave = errors.New("skip save")

// Entitlements выдаёт и отзывает внешние права (роли). Обе операции идемпотентны.
type Entitlements interface {
	Grant(ctx context.Context, userID string, tier int) error
	Revoke(ctx context.Context, userID string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// SubscriptionService выполняет операции над подписками.
//
// Каждая операция выполняется целиком под одним мьютексом. Изменения пишутся
// в хранилище условно по версии снимка; при конфликте снимок перечитывается
// и операция, включая проверку слотов, выполняется заново.
type SubscriptionService struct {
	store    storage.SnapshotStore
	ent      Entitlements
	cache    Cache
	log      *slog.Logger
	now      func() time.Time
	defaults map[int]models.Plan
	admins   map[string]struct{}
	slotsTTL time.Duration

	mu      sync.Mutex
	snap    *models.Snapshot
	version int64
}

// Option настраивает SubscriptionService.
type Option func(*SubscriptionService)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *SubscriptionService) { s.now = now }
}

// WithDefaultPlans подменяет встроенную таблицу тарифов.
func WithDefaultPlans(defaults map[int]models.Plan) Option {
	return func(s *SubscriptionService) { s.defaults = defaults }
}

// WithAdmins задаёт идентичности, получающие роль администратора при привязке.
func WithAdmins(ids []string) Option {
	return func(s *SubscriptionService) {
		for _, id := range ids {
			s.admins[id] = struct{}{}
		}
	}
}

// WithSlotsCacheTTL задаёт время жизни кеша статуса слотов.
func WithSlotsCacheTTL(ttl time.Duration) Option {
	return func(s *SubscriptionService) { s.slotsTTL = ttl }
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(store storage.SnapshotStore, ent Entitlements, cache Cache, log *slog.Logger, opts ...Option) *SubscriptionService {
	s := &SubscriptionService{
		store:    store,
		ent:      ent,
		cache:    cache,
		log:      log,
		now:      time.Now,
		defaults: plans.DefaultPlans(),
		admins:   make(map[string]struct{}),
		slotsTTL: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadLocked перечитывает снимок из хранилища. Вызывается под s.mu.
func (s *SubscriptionService) loadLocked(ctx context.Context) error {
	const op = "subscription.load"
	snap, version, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.snap = snap
	s.version = version
	return nil
}

func (s *SubscriptionService) ensureLoadedLocked(ctx context.Context) error {
	if s.snap != nil {
		return nil
	}
	return s.loadLocked(ctx)
}

// view выполняет fn над текущим снимком без записи.
func (s *SubscriptionService) view(ctx context.Context, fn func(snap *models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}
	return fn(s.snap)
}

// mutate выполняет fn над копией снимка и записывает результат.
func (s *SubscriptionService) mutate(ctx context.Context, fn func(snap *models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(ctx, fn)
}

// mutateLocked — тело mutate. Ошибка записи, отличная от конфликта версий,
// логируется, а изменённый снимок в памяти остаётся источником истины до
// следующей успешной записи.
func (s *SubscriptionService) mutateLocked(ctx context.Context, fn func(snap *models.Snapshot) error) error {
	const op = "subscription.mutate"
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		work := s.snap.Clone()
		if err := fn(work); err != nil {
			if errors.Is(err, errSkipSave) {
				return nil
			}
			return err
		}

		version, err := s.store.Save(ctx, work, s.version)
		if errors.Is(err, storage.ErrVersionConflict) {
			s.log.Warn("snapshot version conflict, reloading", sl.Op(op), slog.Int("attempt", attempt))
			if err := s.loadLocked(ctx); err != nil {
				return err
			}
			continue
		}

		s.snap = work
		s.invalidateSlots()
		if err != nil {
			metrics.SnapshotSaveFailures.Inc()
			s.log.Error("failed to persist snapshot, keeping in-memory state", sl.Op(op), sl.Err(err))
			return nil
		}
		s.version = version
		return nil
	}
	return fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
}

func (s *SubscriptionService) invalidateSlots() {
	if err := s.cache.Invalidate(slotsCacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", slotsCacheKey), sl.Err(err))
	}
}

func (s *SubscriptionService) plan(snap *models.Snapshot, tier int) (models.Plan, bool) {
	return plans.Resolve(s.defaults, snap.PlanOverrides, tier)
}

func userOf(snap *models.Snapshot, userID string) (*models.User, error) {
	u, ok := snap.Users[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	return u, nil
}

func validHours(h float64) bool {
	return h > 0 && !math.IsInf(h, 0) && !math.IsNaN(h)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Link возвращает пользователя внешней идентичности, создавая его при первой привязке
// с новым лицензионным ключом, нулевым балансом и без тарифа.
func (s *SubscriptionService) Link(ctx context.Context, identity, displayName string) (*models.User, bool, error) {
	const op = "subscription.Link"
	var (
		result  *models.User
		created bool
	)
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		_, isAdmin := s.admins[identity]
		if u, ok := snap.Users[identity]; ok {
			changed := false
			if displayName != "" && u.DisplayName != displayName {
				u.DisplayName = displayName
				changed = true
			}
			if isAdmin && u.Role != models.RoleAdmin {
				u.Role = models.RoleAdmin
				changed = true
			}
			result, created = u.Clone(), false
			if !changed {
				return errSkipSave
			}
			return nil
		}

		key := licensekey.Generate()
		for _, taken := snap.UserByLicenseKey(key); taken; _, taken = snap.UserByLicenseKey(key) {
			key = licensekey.Generate()
		}
		role := models.RoleUser
		if isAdmin {
			role = models.RoleAdmin
		}
		u := &models.User{
			ID:          identity,
			DisplayName: displayName,
			Role:        role,
			LicenseKey:  key,
			CreatedAt:   s.now(),
		}
		snap.Users[identity] = u
		result, created = u.Clone(), true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if created {
		s.log.Info("linked new user", slog.String("user_id", identity))
	}
	return result, created, nil
}

// LicenseInfo — ответ успешной проверки лицензии. Valid всегда true,
// отказ возвращается ошибкой.
type LicenseInfo struct {
	Valid     bool           `json:"valid"`
	UserID    string         `json:"user_id"`
	Tier      int            `json:"tier"`
	PlanName  string         `json:"plan_name"`
	ValueCap  *float64       `json:"value_cap"`
	ExpiresAt time.Time      `json:"expires_at"`
	Config    map[string]any `json:"config,omitempty"`
}

// ValidateLicense проверяет ключ и устройство (heartbeat клиента). При первой
// успешной проверке привязывает устройство к ключу.
func (s *SubscriptionService) ValidateLicense(ctx context.Context, key, deviceID, displayName string) (*LicenseInfo, error) {
	const op = "subscription.ValidateLicense"
	var info *LicenseInfo
	var validationErr error
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		now := s.now()
		u, bound, err := checkBinding(snap, key, deviceID, now)
		if err != nil {
			validationErr = err
			return errSkipSave
		}
		validationErr = nil

		p, _ := s.plan(snap, u.Tier)
		info = &LicenseInfo{
			Valid:     true,
			UserID:    u.ID,
			Tier:      u.Tier,
			PlanName:  p.Name,
			ValueCap:  p.ValueCap,
			ExpiresAt: EffectiveExpires(u, now),
			Config:    u.Clone().Config,
		}

		changed := bound
		if displayName != "" && u.DisplayName != displayName {
			u.DisplayName = displayName
			changed = true
		}
		if u.LastSeenAt == nil || now.Sub(*u.LastSeenAt) >= lastSeenInterval {
			u.LastSeenAt = &now
			changed = true
		}
		if !changed {
			return errSkipSave
		}
		return nil
	})
	if err != nil {
		metrics.Validations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if validationErr != nil {
		metrics.Validations.WithLabelValues(resultLabel(validationErr)).Inc()
		return nil, validationErr
	}
	metrics.Validations.WithLabelValues("valid").Inc()
	return info, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrBanned):
		return "banned"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrHWIDMismatch):
		return "hwid_mismatch"
	case errors.Is(err, ErrSlotsFull):
		return "slots_full"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return string(KindOf(err))
	}
}

// SubscribeResult — результат успешной покупки.
type SubscribeResult struct {
	Tier           int       `json:"tier"`
	NewBalance     float64   `json:"new_balance"`
	ExpiresAt      time.Time `json:"expires"`
	ConvertedHours float64   `json:"converted_hours"`
	TotalHours     float64   `json:"total_hours"`
}

// Subscribe покупает hours часов тарифа tier с баланса пользователя. Неиспользованное
// время текущей подписки пересчитывается по цене нового тарифа.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID string, tier int, hours float64) (*SubscribeResult, error) {
	const op = "subscription.Subscribe"
	if !validHours(hours) {
		return nil, ErrInvalidHours
	}

	var result *SubscribeResult
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		now := s.now()
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		if snap.GlobalPause {
			return ErrGlobalPause
		}
		if u.Paused {
			return ErrPaused
		}
		if isBanned(snap, u) {
			return ErrBanned
		}

		newPlan, ok := s.plan(snap, tier)
		if !ok {
			return ErrUnknownPlan
		}
		if !newPlan.Enabled {
			return ErrPlanDisabled
		}
		if newPlan.AdminOnly && u.Role != models.RoleAdmin {
			return ErrPlanAdminOnly
		}

		adm := CanAdmit(snap, newPlan, u.ID, now)
		if !adm.Admit {
			return &SlotsFullError{Tier: tier, Active: adm.Active, Max: adm.Max}
		}

		cost := roundCents(hours * newPlan.PricePerHour)
		if u.Balance < cost {
			return &InsufficientBalanceError{Needed: cost, Have: u.Balance}
		}

		oldPlan, _ := s.plan(snap, u.Tier)
		conv := ConvertAndExtend(u, oldPlan, newPlan, hours, now)

		u.Balance = roundCents(u.Balance - cost)
		u.Tier = tier
		u.ExpiresAt = conv.NewExpires

		result = &SubscribeResult{
			Tier:           tier,
			NewBalance:     u.Balance,
			ExpiresAt:      conv.NewExpires,
			ConvertedHours: conv.ConvertedHours,
			TotalHours:     conv.TotalHours,
		}
		return nil
	})
	if err != nil {
		metrics.Subscriptions.WithLabelValues(metrics.Tier(tier), resultLabel(err)).Inc()
		if KindOf(err) == KindInternal {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, err
	}
	metrics.Subscriptions.WithLabelValues(metrics.Tier(tier), "ok").Inc()

	s.log.Info("subscription purchased",
		slog.String("user_id", userID),
		slog.Int("tier", tier),
		slog.Float64("total_hours", result.TotalHours),
	)
	s.grant(ctx, userID, tier)
	return result, nil
}

func (s *SubscriptionService) grant(ctx context.Context, userID string, tier int) {
	if err := s.ent.Grant(ctx, userID, tier); err != nil {
		s.log.Error("failed to grant entitlement", slog.String("user_id", userID), slog.Int("tier", tier), sl.Err(err))
	}
}

func (s *SubscriptionService) revoke(ctx context.Context, userID string) {
	if err := s.ent.Revoke(ctx, userID); err != nil {
		s.log.Error("failed to revoke entitlement", slog.String("user_id", userID), sl.Err(err))
	}
}

// UserStatus — представление подписки пользователя для него самого.
type UserStatus struct {
	UserID           string    `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	LicenseKey       string    `json:"license_key"`
	Tier             int       `json:"tier"`
	PlanName         string    `json:"plan_name,omitempty"`
	Status           Status    `json:"status"`
	Active           bool      `json:"active"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Purchasable      bool      `json:"purchasable"`
	Warnings         int       `json:"warnings"`
	Balance          float64   `json:"balance"`
	DeviceBound      bool      `json:"device_bound"`
	GlobalPause      bool      `json:"global_pause"`
}

// Status возвращает эффективное состояние подписки пользователя.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*UserStatus, error) {
	var st *UserStatus
	err := s.view(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		now := s.now()
		eff := StateOf(u, snap.GlobalPause, now)
		p, _ := s.plan(snap, u.Tier)
		st = &UserStatus{
			UserID:           u.ID,
			DisplayName:      u.DisplayName,
			LicenseKey:       u.LicenseKey,
			Tier:             u.Tier,
			PlanName:         p.Name,
			Status:           eff.Status,
			Active:           eff.Active,
			ExpiresAt:        eff.Expires,
			RemainingSeconds: int64(eff.Remaining.Seconds()),
			Purchasable:      eff.Purchasable && !isBanned(snap, u),
			Warnings:         u.Warnings,
			Balance:          u.Balance,
			DeviceBound:      u.DeviceID != "",
			GlobalPause:      snap.GlobalPause,
		}
		return nil
	})
	return st, err
}

// SlotStatus — загрузка одного тарифа.
type SlotStatus struct {
	Tier              int    `json:"tier"`
	Name              string `json:"name"`
	ActiveUsers       int    `json:"active_users"`
	MaxSlots          int    `json:"max_slots"`
	NextSlotInSeconds *int64 `json:"next_slot_in_seconds,omitempty"`
}

// SlotsStatus возвращает загрузку всех включённых тарифов.
func (s *SubscriptionService) SlotsStatus(ctx context.Context) ([]SlotStatus, error) {
	var cached []SlotStatus
	found, err := s.cache.Get(slotsCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read cache", slog.String("key", slotsCacheKey), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	var result []SlotStatus
	err = s.view(ctx, func(snap *models.Snapshot) error {
		now := s.now()
		for _, p := range plans.All(s.defaults, snap.PlanOverrides) {
			if !p.Enabled {
				continue
			}
			st := SlotStatus{
				Tier:        p.Tier,
				Name:        p.Name,
				ActiveUsers: len(activeOnTier(snap, p.Tier, now)),
				MaxSlots:    p.Slots,
			}
			if eta, ok := NextSlotETA(snap, p.Tier, now); ok {
				secs := int64(math.Ceil(eta.Seconds()))
				st.NextSlotInSeconds = &secs
			}
			metrics.ActiveSlots.WithLabelValues(metrics.Tier(p.Tier)).Set(float64(st.ActiveUsers))
			result = append(result, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(slotsCacheKey, result, s.slotsTTL); err != nil {
		s.log.Warn("failed to cache slots status", slog.String("key", slotsCacheKey), sl.Err(err))
	}
	return result, nil
}

// ListPlans возвращает действующую таблицу тарифов.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var result []models.Plan
	err := s.view(ctx, func(snap *models.Snapshot) error {
		result = plans.All(s.defaults, snap.PlanOverrides)
		return nil
	})
	return result, err
}

// Pause замораживает подписку пользователя по его запросу.
func (s *SubscriptionService) Pause(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		return pauseUser(u, s.now())
	})
}

// Unpause снимает паузу по запросу пользователя. Заблокированную паузу снять нельзя.
func (s *SubscriptionService) Unpause(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		return unpauseUser(u, s.now(), false)
	})
}
