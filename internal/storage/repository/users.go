package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/models"
)

const userColumns = `uid, email, username, password_hash, role, free_credits, tier,
			      premium_until, created_at`

// CreateUser сохраняет нового пользователя в базу данных и возвращает его ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO users (email, username, password_hash, role, free_credits, tier, premium_until)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING uid;`
	err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.FreeCredits,
		string(user.Tier), user.PremiumUntil).Scan(&newID)
	if constraint, ok := uniqueConstraint(err); ok {
		if constraint == "users_username_key" {
			return "", models.ErrUsernameTaken
		}
		return "", models.ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByLogin возвращает пользователя по email или username.
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	const op = "storage.GetUserByLogin"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE email = $1 OR username = $1
			  LIMIT 1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, login))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// EmailExists проверяет, зарегистрирован ли email.
func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.EmailExists"
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// DecrementFreeCredits атомарно списывает один кредит, только если он ещё есть.
// Возвращает остаток и признак списания. При нуле кредитов ничего не меняет.
func (s *Storage) DecrementFreeCredits(ctx context.Context, userUID string) (int, bool, error) {
	const op = "storage.DecrementFreeCredits"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET free_credits = free_credits - 1
			  WHERE uid = $1 AND free_credits > 0
			  RETURNING free_credits`
	var remaining int
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	err = s.DB.QueryRowContext(ctx,
		`SELECT free_credits FROM users WHERE uid = $1`, userUID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, models.ErrUserNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return remaining, false, nil
}

// ActivatePremium переводит пользователя на премиум до until.
// Повторный вызов перезаписывает дату окончания.
func (s *Storage) ActivatePremium(ctx context.Context, userUID string, until time.Time) error {
	const op = "storage.ActivatePremium"
	if err := grantPremium(ctx, s.DB, userUID, until); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func grantPremium(ctx context.Context, db execer, userUID string, until time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE users
		      SET tier = 'premium',
			      premium_until = $2
			  WHERE uid = $1`, userUID, until)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var username sql.NullString
	var tier string
	var premiumUntil sql.NullTime
	err := row.Scan(&u.UUID, &u.Email, &username, &u.PasswordHash, &u.Role,
		&u.FreeCredits, &tier, &premiumUntil, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if username.Valid {
		u.Username = &username.String
	}
	if premiumUntil.Valid {
		u.PremiumUntil = &premiumUntil.Time
	}
	u.Tier = models.Tier(tier)
	return u, nil
}
