package models

import "slices"

// Snapshot — всё изменяемое состояние системы. Хранилище читает и пишет его целиком.
type Snapshot struct {
	Users         map[string]*User `json:"users"`
	BannedDevices []string         `json:"banned_devices"`
	GlobalPause   bool             `json:"global_pause"`
	PlanOverrides map[int]Plan     `json:"plan_overrides,omitempty"`
}

// NewSnapshot возвращает пустой снимок.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Users:         make(map[string]*User),
		PlanOverrides: make(map[int]Plan),
	}
}

// Normalize инициализирует nil-коллекции после десериализации.
func (s *Snapshot) Normalize() {
	if s.Users == nil {
		s.Users = make(map[string]*User)
	}
	if s.PlanOverrides == nil {
		s.PlanOverrides = make(map[int]Plan)
	}
}

// Clone возвращает глубокую копию снимка.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Users:         make(map[string]*User, len(s.Users)),
		BannedDevices: slices.Clone(s.BannedDevices),
		GlobalPause:   s.GlobalPause,
		PlanOverrides: make(map[int]Plan, len(s.PlanOverrides)),
	}
	for id, u := range s.Users {
		c.Users[id] = u.Clone()
	}
	for tier, p := range s.PlanOverrides {
		if p.ValueCap != nil {
			v := *p.ValueCap
			p.ValueCap = &v
		}
		c.PlanOverrides[tier] = p
	}
	return c
}

// UserByLicenseKey ищет пользователя по лицензионному ключу.
func (s *Snapshot) UserByLicenseKey(key string) (*User, bool) {
	for _, u := range s.Users {
		if u.LicenseKey == key {
			return u, true
		}
	}
	return nil, false
}

// IsBanned сообщает, находится ли устройство в бан-листе.
func (s *Snapshot) IsBanned(deviceID string) bool {
	return deviceID != "" && slices.Contains(s.BannedDevices, deviceID)
}

// Ban добавляет устройство в бан-лист. Возвращает false, если оно уже там.
func (s *Snapshot) Ban(deviceID string) bool {
	if deviceID == "" || s.IsBanned(deviceID) {
		return false
	}
	s.BannedDevices = append(s.BannedDevices, deviceID)
	return true
}

// Unban удаляет устройство из бан-листа. Возвращает false, если его там не было.
func (s *Snapshot) Unban(deviceID string) bool {
	i := slices.Index(s.BannedDevices, deviceID)
	if i < 0 {
		return false
	}
	s.BannedDevices = slices.Delete(s.BannedDevices, i, i+1)
	return true
}
