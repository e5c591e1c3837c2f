// Package memory реализует хранилище пользователей, платежей и записей антифрода
// в памяти процесса. Данные не переживают перезапуск; годится только для
// единственного экземпляра сервиса и для тестов. Все методы защищены одним
// мьютексом, поэтому условные переходы атомарны внутри процесса.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// Storage хранилище в памяти процесса.
type Storage struct {
	mu       sync.Mutex
	users    map[string]*models.User
	payments map[string]*paymentRow
	fraud    []models.FraudRecord
	now      func() time.Time
}

type paymentRow struct {
	payment      models.Payment
	claimedUntil time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:    make(map[string]*models.User),
		payments: make(map[string]*paymentRow),
		now:      time.Now,
	}
}

// CreateUser сохраняет пользователя и возвращает его UID.
func (s *Storage) CreateUser(_ context.Context, user models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return "", models.ErrEmailTaken
		}
		if user.Username != nil && u.Username != nil && *u.Username == *user.Username {
			return "", models.ErrUsernameTaken
		}
	}
	if user.UUID == "" {
		user.UUID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	if user.Tier == "" {
		user.Tier = models.TierFree
	}
	s.users[user.UUID] = cloneUser(&user)
	return user.UUID, nil
}

// GetUser возвращает копию пользователя по UID.
func (s *Storage) GetUser(_ context.Context, userUID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetUserByLogin ищет пользователя по email или username.
func (s *Storage) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == login || (u.Username != nil && *u.Username == login) {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

// EmailExists проверяет, зарегистрирован ли email.
func (s *Storage) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// DecrementFreeCredits списывает кредит, если он есть.
func (s *Storage) DecrementFreeCredits(_ context.Context, userUID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok {
		return 0, false, models.ErrUserNotFound
	}
	if u.FreeCredits <= 0 {
		return u.FreeCredits, false, nil
	}
	u.FreeCredits--
	return u.FreeCredits, true, nil
}

// ActivatePremium переводит пользователя на премиум до until.
func (s *Storage) ActivatePremium(_ context.Context, userUID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok {
		return models.ErrUserNotFound
	}
	grantPremium(u, until)
	return nil
}

func grantPremium(u *models.User, until time.Time) {
	u.Tier = models.TierPremium
	u.PremiumUntil = &until
}

// CreatePayment сохраняет платёжный запрос.
func (s *Storage) CreatePayment(_ context.Context, p models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserUID]; !ok {
		return models.ErrUserNotFound
	}
	s.payments[p.ID] = &paymentRow{payment: clonePayment(&p)}
	return nil
}

// GetPayment возвращает копию платежа.
func (s *Storage) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.payments[id]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	p := clonePayment(&row.payment)
	return &p, nil
}

// CompletePayment переводит pending → completed и тем же шагом выдаёт
// владельцу премиум до premiumUntil.
func (s *Storage) CompletePayment(_ context.Context, id string, at, premiumUntil time.Time) (*models.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.payments[id]
	if !ok {
		return nil, false, models.ErrPaymentNotFound
	}
	transitioned := false
	if row.payment.Status == models.PaymentPending {
		u, ok := s.users[row.payment.UserUID]
		if !ok {
			return nil, false, models.ErrUserNotFound
		}
		row.payment.Status = models.PaymentCompleted
		row.payment.ConfirmedAt = &at
		row.claimedUntil = time.Time{}
		grantPremium(u, premiumUntil)
		transitioned = true
	}
	p := clonePayment(&row.payment)
	return &p, transitioned, nil
}

// ExpirePayment переводит pending → expired.
func (s *Storage) ExpirePayment(_ context.Context, id string) (*models.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.payments[id]
	if !ok {
		return nil, false, models.ErrPaymentNotFound
	}
	transitioned := false
	if row.payment.Status == models.PaymentPending {
		row.payment.Status = models.PaymentExpired
		row.claimedUntil = time.Time{}
		transitioned = true
	}
	p := clonePayment(&row.payment)
	return &p, transitioned, nil
}

// RepairConfirmedAt проставляет confirmed_at завершённому платежу без неё
// и выдаёт владельцу премиум до premiumUntil.
func (s *Storage) RepairConfirmedAt(_ context.Context, id string, at, premiumUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.payments[id]
	if !ok {
		return false, models.ErrPaymentNotFound
	}
	if !row.payment.NeedsRepair() {
		return false, nil
	}
	u, ok := s.users[row.payment.UserUID]
	if !ok {
		return false, models.ErrUserNotFound
	}
	row.payment.ConfirmedAt = &at
	grantPremium(u, premiumUntil)
	return true, nil
}

// ListPaymentsByUser возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(_ context.Context, userUID string, limit int) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Payment
	for _, row := range s.payments {
		if row.payment.UserUID == userUID {
			p := clonePayment(&row.payment)
			result = append(result, &p)
		}
	}
	sortNewestFirst(result)
	return page(result, limit, 0), nil
}

// ListPayments возвращает платежи с фильтром по статусу.
func (s *Storage) ListPayments(_ context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Payment
	for _, row := range s.payments {
		if filter.Status != nil && row.payment.Status != *filter.Status {
			continue
		}
		p := clonePayment(&row.payment)
		result = append(result, &p)
	}
	sortNewestFirst(result)
	return page(result, filter.Limit, filter.Offset), nil
}

// ClaimStalePending захватывает старые pending-платежи на время lease.
func (s *Storage) ClaimStalePending(_ context.Context, createdBefore, now time.Time, lease time.Duration, limit int) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Payment
	for _, row := range s.payments {
		if row.payment.Status != models.PaymentPending || row.payment.CreatedAt.After(createdBefore) {
			continue
		}
		if !row.claimedUntil.IsZero() && !row.claimedUntil.Before(now) {
			continue
		}
		p := clonePayment(&row.payment)
		result = append(result, &p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	result = page(result, limit, 0)
	for _, p := range result {
		s.payments[p.ID].claimedUntil = now.Add(lease)
	}
	return result, nil
}

// AddFraudRecord добавляет запись антифрода.
func (s *Storage) AddFraudRecord(_ context.Context, rec models.FraudRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fraud = append(s.fraud, rec)
	return nil
}

// LastRegistrationFromIP возвращает время последней регистрации с ip после since.
func (s *Storage) LastRegistrationFromIP(_ context.Context, ip string, since time.Time) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *time.Time
	for i := range s.fraud {
		rec := s.fraud[i]
		if rec.IP != ip || !rec.CreatedAt.After(since) {
			continue
		}
		if last == nil || rec.CreatedAt.After(*last) {
			t := rec.CreatedAt
			last = &t
		}
	}
	return last, nil
}

// CountAccountsByFingerprint считает различные email с устройства после since.
func (s *Storage) CountAccountsByFingerprint(_ context.Context, fingerprintHash string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emails := make(map[string]struct{})
	for _, rec := range s.fraud {
		if rec.FingerprintHash == fingerprintHash && rec.CreatedAt.After(since) {
			emails[rec.Email] = struct{}{}
		}
	}
	return len(emails), nil
}

// PruneFraudRecords удаляет записи старше before.
func (s *Storage) PruneFraudRecords(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.fraud[:0]
	var removed int64
	for _, rec := range s.fraud {
		if rec.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.fraud = kept
	return removed, nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.Username != nil {
		name := *u.Username
		c.Username = &name
	}
	if u.PremiumUntil != nil {
		until := *u.PremiumUntil
		c.PremiumUntil = &until
	}
	return &c
}

func clonePayment(p *models.Payment) models.Payment {
	c := *p
	if p.ConfirmedAt != nil {
		at := *p.ConfirmedAt
		c.ConfirmedAt = &at
	}
	return c
}

func sortNewestFirst(ps []*models.Payment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
}

func page(ps []*models.Payment, limit, offset int) []*models.Payment {
	if offset >= len(ps) {
		return nil
	}
	ps = ps[offset:]
	if limit > 0 && limit < len(ps) {
		ps = ps[:limit]
	}
	return ps
}
