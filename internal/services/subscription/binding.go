package services

import (
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// banWarnings — число предупреждений, после которого пользователь и его устройство банятся.
const banWarnings = 2

// isBanned сообщает, заблокирован ли пользователь предупреждениями или баном устройства.
func isBanned(snap *models.Snapshot, u *models.User) bool {
	return u.Warnings >= banWarnings || snap.IsBanned(u.DeviceID)
}

// checkBinding проверяет лицензию и устройство. Порядок проверок значим:
// бан устройства, ключ, предупреждения, бан привязанного устройства, срок, совпадение HWID.
// При первой успешной проверке устройство привязывается к ключу.
func checkBinding(snap *models.Snapshot, key, deviceID string, now time.Time) (*models.User, bool, error) {
	if snap.IsBanned(deviceID) {
		return nil, false, ErrBanned
	}
	u, ok := snap.UserByLicenseKey(key)
	if !ok {
		return nil, false, ErrInvalidKey
	}
	if u.Warnings >= banWarnings {
		return u, false, ErrBanned
	}
	if snap.IsBanned(u.DeviceID) {
		return u, false, ErrBanned
	}
	if !IsActive(u, now) {
		return u, false, ErrExpired
	}
	if u.DeviceID != "" && u.DeviceID != deviceID {
		return u, false, ErrHWIDMismatch
	}

	bound := false
	if u.DeviceID == "" {
		u.DeviceID = deviceID
		u.BindingHistory = append(u.BindingHistory, models.BindingEvent{
			DeviceID: deviceID,
			Action:   models.BindingActionBind,
			At:       now,
		})
		bound = true
	}
	return u, bound, nil
}

// warnUser выдаёт предупреждение. На втором предупреждении привязанное устройство попадает в бан-лист.
func warnUser(snap *models.Snapshot, u *models.User, reason string, now time.Time) (int, bool) {
	u.Warnings++
	u.WarningLog = append(u.WarningLog, models.WarningEntry{Reason: reason, At: now})

	autoBanned := false
	if u.Warnings >= banWarnings && u.DeviceID != "" {
		snap.Ban(u.DeviceID)
		autoBanned = true
	}
	return u.Warnings, autoBanned
}

// resetBinding отвязывает устройство, сохраняя старую привязку в истории.
func resetBinding(u *models.User, now time.Time) bool {
	if u.DeviceID == "" {
		return false
	}
	u.BindingHistory = append(u.BindingHistory, models.BindingEvent{
		DeviceID: u.DeviceID,
		Action:   models.BindingActionReset,
		At:       now,
	})
	u.DeviceID = ""
	return true
}
