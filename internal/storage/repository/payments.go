package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/models"
)

const paymentColumns = `id, user_uid, amount, status, payment_code, created_at, expires_at, confirmed_at`

// CreatePayment сохраняет новый платёжный запрос.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) error {
	const op = "storage.CreatePayment"
	query := `INSERT INTO payments (id, user_uid, amount, status, payment_code, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.DB.ExecContext(ctx, query,
		p.ID, p.UserUID, p.Amount, string(p.Status), p.PaymentCode, p.CreatedAt, p.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPayment возвращает платёж по ID.
func (s *Storage) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	const op = "storage.GetPayment"
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// CompletePayment переводит pending → completed, проставляет confirmed_at и
// в той же транзакции выдаёт владельцу премиум до premiumUntil.
// transitioned == false, если платёж уже был в конечном статусе; тогда
// возвращается его текущее состояние без изменений.
func (s *Storage) CompletePayment(ctx context.Context, id string, at, premiumUntil time.Time) (*models.Payment, bool, error) {
	const op = "storage.CompletePayment"
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	p, err := scanPayment(tx.QueryRowContext(ctx, `UPDATE payments
			  SET status = 'completed', confirmed_at = $2, claimed_until = NULL
			  WHERE id = $1 AND status = 'pending'
			  RETURNING `+paymentColumns, id, at))
	if errors.Is(err, models.ErrPaymentNotFound) {
		_ = tx.Rollback()
		current, err := s.GetPayment(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if err := grantPremium(ctx, tx, p.UserUID, premiumUntil); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}

// ExpirePayment переводит pending → expired.
func (s *Storage) ExpirePayment(ctx context.Context, id string) (*models.Payment, bool, error) {
	const op = "storage.ExpirePayment"
	query := `UPDATE payments
			  SET status = 'expired', claimed_until = NULL
			  WHERE id = $1 AND status = 'pending'
			  RETURNING ` + paymentColumns
	return s.transition(ctx, op, query, id)
}

func (s *Storage) transition(ctx context.Context, op, query string, args ...any) (*models.Payment, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, args...))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, models.ErrPaymentNotFound) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	// либо платежа нет, либо он уже не pending
	id, _ := args[0].(string)
	current, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// RepairConfirmedAt проставляет confirmed_at платежу в статусе completed без неё
// и в той же транзакции выдаёт владельцу премиум до premiumUntil.
// Возвращает true, если строка была исправлена этим вызовом.
func (s *Storage) RepairConfirmedAt(ctx context.Context, id string, at, premiumUntil time.Time) (bool, error) {
	const op = "storage.RepairConfirmedAt"
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userUID string
	err = tx.QueryRowContext(ctx, `UPDATE payments
			  SET confirmed_at = $2
			  WHERE id = $1 AND status = 'completed' AND confirmed_at IS NULL
			  RETURNING user_uid`, id, at).Scan(&userUID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := grantPremium(ctx, tx, userUID, premiumUntil); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// ListPaymentsByUser возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userUID string, limit int) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByUser"
	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := collectPayments(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListPayments возвращает платежи для администратора с фильтром по статусу и пагинацией.
func (s *Storage) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	var status *string
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}
	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE ($1::text IS NULL OR status = $1)
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := collectPayments(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ClaimStalePending захватывает pending-платежи, созданные не позже createdBefore,
// на время lease. Захваченные строки не видны другим тикам до истечения аренды,
// а SKIP LOCKED не даёт двум параллельным захватам взять одну строку.
func (s *Storage) ClaimStalePending(ctx context.Context, createdBefore, now time.Time, lease time.Duration, limit int) ([]*models.Payment, error) {
	const op = "storage.ClaimStalePending"
	query := `UPDATE payments
			  SET claimed_until = $2::timestamptz + make_interval(secs => $3)
			  WHERE id IN (
			      SELECT id FROM payments
			      WHERE status = 'pending'
			        AND created_at <= $1
			        AND (claimed_until IS NULL OR claimed_until < $2)
			      ORDER BY created_at
			      LIMIT $4
			      FOR UPDATE SKIP LOCKED
			  )
			  RETURNING ` + paymentColumns
	rows, err := s.DB.QueryContext(ctx, query, createdBefore, now, lease.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := collectPayments(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func collectPayments(rows *sql.Rows) ([]*models.Payment, error) {
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var status string
	var confirmedAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserUID, &p.Amount, &status, &p.PaymentCode,
		&p.CreatedAt, &p.ExpiresAt, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	if confirmedAt.Valid {
		p.ConfirmedAt = &confirmedAt.Time
	}
	return p, nil
}
