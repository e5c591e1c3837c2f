package models

import "time"

// PaymentStatus статус платёжного запроса. Переходы только вперёд:
// pending → completed или pending → expired.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentExpired   PaymentStatus = "expired"
)

// Terminal сообщает, является ли статус конечным.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentExpired
}

// Valid проверяет, что статус известен.
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentCompleted || s == PaymentExpired
}

// Payment представляет мгновенный платёж (PIX) пользователя.
type Payment struct {
	ID          string        `json:"id"`
	UserUID     string        `json:"user_uid"`
	Amount      int64         `json:"amount"` // в минимальных единицах валюты
	Status      PaymentStatus `json:"status"`
	PaymentCode string        `json:"payment_code"` // строка BR Code для приложения кошелька
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
}

// NeedsRepair completed без confirmed_at: восстановленное неконсистентное состояние.
func (p *Payment) NeedsRepair() bool {
	return p.Status == PaymentCompleted && p.ConfirmedAt == nil
}

// PaymentFilter задаёт выборку платежей для администратора.
type PaymentFilter struct {
	Status *PaymentStatus
	Limit  int
	Offset int
}
