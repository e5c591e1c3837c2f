// Package storagetest содержит общий набор проверок для реализаций хранилища.
// Memory и PostgreSQL прогоняют один и тот же набор, чтобы их наблюдаемое
// поведение совпадало.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// Store методы хранилища, которые проверяет набор.
type Store interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	DecrementFreeCredits(ctx context.Context, userUID string) (int, bool, error)
	ActivatePremium(ctx context.Context, userUID string, until time.Time) error

	CreatePayment(ctx context.Context, p models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	CompletePayment(ctx context.Context, id string, at, premiumUntil time.Time) (*models.Payment, bool, error)
	ExpirePayment(ctx context.Context, id string) (*models.Payment, bool, error)
	RepairConfirmedAt(ctx context.Context, id string, at, premiumUntil time.Time) (bool, error)
	ListPaymentsByUser(ctx context.Context, userUID string, limit int) ([]*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	ClaimStalePending(ctx context.Context, createdBefore, now time.Time, lease time.Duration, limit int) ([]*models.Payment, error)

	AddFraudRecord(ctx context.Context, rec models.FraudRecord) error
	LastRegistrationFromIP(ctx context.Context, ip string, since time.Time) (*time.Time, error)
	CountAccountsByFingerprint(ctx context.Context, fingerprintHash string, since time.Time) (int, error)
	PruneFraudRecords(ctx context.Context, before time.Time) (int64, error)
}

// Run прогоняет набор; newStore должен возвращать пустое хранилище.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("credits", func(t *testing.T) { testCredits(t, newStore(t)) })
	t.Run("concurrent credits", func(t *testing.T) { testConcurrentCredits(t, newStore(t)) })
	t.Run("premium", func(t *testing.T) { testPremium(t, newStore(t)) })
	t.Run("payments", func(t *testing.T) { testPayments(t, newStore(t)) })
	t.Run("claim", func(t *testing.T) { testClaim(t, newStore(t)) })
	t.Run("fraud", func(t *testing.T) { testFraud(t, newStore(t)) })
}

// Base опорное время набора, с точностью до микросекунд, как в PostgreSQL.
var Base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// CreateUser создаёт пользователя с заданным числом кредитов.
func CreateUser(t *testing.T, s Store, email string, credits int) string {
	t.Helper()
	uid, err := s.CreateUser(context.Background(), models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         "user",
		FreeCredits:  credits,
		Tier:         models.TierFree,
	})
	require.NoError(t, err)
	return uid
}

// CreatePayment создаёт pending-платёж пользователя с createdAt.
func CreatePayment(t *testing.T, s Store, userUID string, createdAt time.Time) models.Payment {
	t.Helper()
	p := models.Payment{
		ID:          uuid.NewString(),
		UserUID:     userUID,
		Amount:      1990,
		Status:      models.PaymentPending,
		PaymentCode: "000201",
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(30 * time.Minute),
	}
	require.NoError(t, s.CreatePayment(context.Background(), p))
	return p
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	name := "shark"
	uid, err := s.CreateUser(ctx, models.User{
		Email: "shark@example.com", Username: &name, PasswordHash: "h", Role: "user",
		FreeCredits: 7, Tier: models.TierFree,
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	u, err := s.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "shark@example.com", u.Email)
	require.NotNil(t, u.Username)
	assert.Equal(t, "shark", *u.Username)
	assert.Equal(t, 7, u.FreeCredits)
	assert.Equal(t, models.TierFree, u.Tier)
	assert.Nil(t, u.PremiumUntil)

	byEmail, err := s.GetUserByLogin(ctx, "shark@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, byEmail.UUID)
	byName, err := s.GetUserByLogin(ctx, "shark")
	require.NoError(t, err)
	assert.Equal(t, uid, byName.UUID)

	exists, err := s.EmailExists(ctx, "shark@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.EmailExists(ctx, "fish@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.CreateUser(ctx, models.User{Email: "shark@example.com", PasswordHash: "h", Role: "user", Tier: models.TierFree})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
	_, err = s.CreateUser(ctx, models.User{Email: "other@example.com", Username: &name, PasswordHash: "h", Role: "user", Tier: models.TierFree})
	assert.ErrorIs(t, err, models.ErrUsernameTaken)

	_, err = s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = s.GetUserByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func testCredits(t *testing.T, s Store) {
	ctx := context.Background()
	uid := CreateUser(t, s, "credits@example.com", 2)

	remaining, ok, err := s.DecrementFreeCredits(ctx, uid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	remaining, ok, err = s.DecrementFreeCredits(ctx, uid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	remaining, ok, err = s.DecrementFreeCredits(ctx, uid)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)

	u, err := s.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, u.FreeCredits)

	_, _, err = s.DecrementFreeCredits(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func testConcurrentCredits(t *testing.T, s Store) {
	ctx := context.Background()
	uid := CreateUser(t, s, "tabs@example.com", 1)

	const k = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	start := make(chan struct{})
	for range k {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, ok, err := s.DecrementFreeCredits(ctx, uid)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	u, err := s.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, u.FreeCredits)
}

func testPremium(t *testing.T, s Store) {
	ctx := context.Background()
	uid := CreateUser(t, s, "premium@example.com", 3)

	first := Base.Add(30 * 24 * time.Hour)
	require.NoError(t, s.ActivatePremium(ctx, uid, first))
	second := Base.Add(31 * 24 * time.Hour)
	require.NoError(t, s.ActivatePremium(ctx, uid, second))

	u, err := s.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, u.Tier)
	require.NotNil(t, u.PremiumUntil)
	assert.True(t, u.PremiumUntil.Equal(second))
	assert.Equal(t, 3, u.FreeCredits)

	assert.ErrorIs(t, s.ActivatePremium(ctx, uuid.NewString(), first), models.ErrUserNotFound)
}

func testPayments(t *testing.T, s Store) {
	ctx := context.Background()
	uid := CreateUser(t, s, "payer@example.com", 0)

	p := CreatePayment(t, s, uid, Base)
	got, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.Status)
	assert.Equal(t, int64(1990), got.Amount)
	assert.True(t, got.CreatedAt.Equal(Base))
	assert.Nil(t, got.ConfirmedAt)

	at := Base.Add(time.Minute)
	until := at.AddDate(0, 0, 30)
	done, transitioned, err := s.CompletePayment(ctx, p.ID, at, until)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.PaymentCompleted, done.Status)
	require.NotNil(t, done.ConfirmedAt)
	assert.True(t, done.ConfirmedAt.Equal(at))
	assertPremiumUntil(t, s, uid, until)

	again, transitioned, err := s.CompletePayment(ctx, p.ID, at.Add(time.Minute), until.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.True(t, again.ConfirmedAt.Equal(at))
	assertPremiumUntil(t, s, uid, until)

	expired, transitioned, err := s.ExpirePayment(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, models.PaymentCompleted, expired.Status)

	q := CreatePayment(t, s, uid, Base.Add(time.Second))
	exp, transitioned, err := s.ExpirePayment(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.PaymentExpired, exp.Status)
	back, transitioned, err := s.CompletePayment(ctx, q.ID, at, until.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, models.PaymentExpired, back.Status)
	assert.Nil(t, back.ConfirmedAt)

	assertPremiumUntil(t, s, uid, until)

	repaired, err := s.RepairConfirmedAt(ctx, p.ID, at, until.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, repaired)
	assertPremiumUntil(t, s, uid, until)

	_, _, err = s.CompletePayment(ctx, uuid.NewString(), at, until)
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)
	_, err = s.GetPayment(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)

	list, err := s.ListPaymentsByUser(ctx, uid, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, q.ID, list[0].ID)

	completed := models.PaymentCompleted
	filtered, err := s.ListPayments(ctx, models.PaymentFilter{Status: &completed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, p.ID, filtered[0].ID)

	all, err := s.ListPayments(ctx, models.PaymentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, p.ID, all[0].ID)
}

// assertPremiumUntil проверяет, что пользователь премиум ровно до until.
func assertPremiumUntil(t *testing.T, s Store, uid string, until time.Time) {
	t.Helper()
	u, err := s.GetUser(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, u.Tier)
	require.NotNil(t, u.PremiumUntil)
	assert.True(t, u.PremiumUntil.Equal(until), "premium_until %s, want %s", u.PremiumUntil, until)
}

func testClaim(t *testing.T, s Store) {
	ctx := context.Background()
	uid := CreateUser(t, s, "claim@example.com", 0)

	old := CreatePayment(t, s, uid, Base)
	young := CreatePayment(t, s, uid, Base.Add(50*time.Second))
	done := CreatePayment(t, s, uid, Base.Add(-time.Minute))
	_, _, err := s.CompletePayment(ctx, done.ID, Base, Base.AddDate(0, 0, 30))
	require.NoError(t, err)

	now := Base.Add(60 * time.Second)
	cutoff := now.Add(-30 * time.Second)

	claimed, err := s.ClaimStalePending(ctx, cutoff, now, time.Minute, 100)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, old.ID, claimed[0].ID)

	// во время аренды повторный захват пуст
	again, err := s.ClaimStalePending(ctx, cutoff, now.Add(time.Second), time.Minute, 100)
	require.NoError(t, err)
	assert.Empty(t, again)

	// после истечения аренды платёж снова доступен
	later := now.Add(2 * time.Minute)
	reclaimed, err := s.ClaimStalePending(ctx, later.Add(-30*time.Second), later, time.Minute, 100)
	require.NoError(t, err)
	ids := make([]string, 0, len(reclaimed))
	for _, p := range reclaimed {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{old.ID, young.ID}, ids)
}

func testFraud(t *testing.T, s Store) {
	ctx := context.Background()
	since := Base.Add(-24 * time.Hour)

	last, err := s.LastRegistrationFromIP(ctx, "10.0.0.1", since)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, s.AddFraudRecord(ctx, models.FraudRecord{IP: "10.0.0.1", FingerprintHash: "fp", Email: "a@x.com", CreatedAt: Base.Add(-time.Hour)}))
	require.NoError(t, s.AddFraudRecord(ctx, models.FraudRecord{IP: "10.0.0.2", FingerprintHash: "fp", Email: "b@x.com", CreatedAt: Base.Add(-2 * time.Hour)}))
	require.NoError(t, s.AddFraudRecord(ctx, models.FraudRecord{IP: "10.0.0.1", FingerprintHash: "old", Email: "c@x.com", CreatedAt: Base.Add(-40 * 24 * time.Hour)}))

	last, err = s.LastRegistrationFromIP(ctx, "10.0.0.1", since)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(Base.Add(-time.Hour)))

	n, err := s.CountAccountsByFingerprint(ctx, "fp", Base.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	removed, err := s.PruneFraudRecords(ctx, Base.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err = s.CountAccountsByFingerprint(ctx, "old", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
