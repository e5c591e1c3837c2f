package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// AddFraudRecord добавляет запись о регистрации.
func (s *Storage) AddFraudRecord(ctx context.Context, rec models.FraudRecord) error {
	const op = "storage.AddFraudRecord"
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO fraud_records (ip, fingerprint_hash, email, created_at) VALUES ($1, $2, $3, $4)`,
		rec.IP, rec.FingerprintHash, rec.Email, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LastRegistrationFromIP возвращает время последней регистрации с ip после since.
func (s *Storage) LastRegistrationFromIP(ctx context.Context, ip string, since time.Time) (*time.Time, error) {
	const op = "storage.LastRegistrationFromIP"
	var last sql.NullTime
	err := s.DB.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM fraud_records WHERE ip = $1 AND created_at > $2`,
		ip, since).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// CountAccountsByFingerprint считает регистрации с устройства после since.
func (s *Storage) CountAccountsByFingerprint(ctx context.Context, fingerprintHash string, since time.Time) (int, error) {
	const op = "storage.CountAccountsByFingerprint"
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT email) FROM fraud_records WHERE fingerprint_hash = $1 AND created_at > $2`,
		fingerprintHash, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// PruneFraudRecords удаляет записи старше before.
func (s *Storage) PruneFraudRecords(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.PruneFraudRecords"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM fraud_records WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
