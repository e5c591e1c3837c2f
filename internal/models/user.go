// Package models содержит доменные структуры ядра доступа: пользователя с его
// бесплатными кредитами и премиум-статусом, платёжный запрос и запись антифрода.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Tier уровень доступа пользователя.
type Tier string

const (
	// TierFree бесплатный доступ, ограниченный кредитами.
	TierFree Tier = "free"
	// TierPremium безлимитный доступ до PremiumUntil.
	TierPremium Tier = "premium"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID         string     // Уникальный идентификатор пользователя
	Email        string     // Электронная почта (уникальная)
	Username     *string    // Имя пользователя (уникальное, опционально)
	PasswordHash string     // Хэш пароля пользователя
	Role         string     // Роль пользователя, admin или user
	FreeCredits  int        // Общий счётчик бесплатных использований
	Tier         Tier       // Уровень доступа
	PremiumUntil *time.Time // Дата окончания премиума
	CreatedAt    time.Time
}

// IsPremium вычисляет премиум-статус на момент now.
// Истёкший premium_until означает бесплатный уровень, даже если Tier == premium.
func (u *User) IsPremium(now time.Time) bool {
	return u.Tier == TierPremium && u.PremiumUntil != nil && u.PremiumUntil.After(now)
}

// Entitlement снимок прав пользователя на момент проверки.
type Entitlement struct {
	UserUID      string     `json:"user_uid"`
	IsPremium    bool       `json:"is_premium"`
	FreeCredits  int        `json:"free_credits"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
}
