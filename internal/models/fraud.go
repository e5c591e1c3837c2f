package models

import "time"

// FraudRecord фиксирует регистрацию для эвристик антифрода.
// Читается только при допуске новой регистрации.
type FraudRecord struct {
	IP              string
	FingerprintHash string
	Email           string
	CreatedAt       time.Time
}
