// Package auth содержит регистрацию и вход пользователей. Регистрация
// проходит через проверку антифрода и начисляет стартовые бесплатные кредиты.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/magabrotheeeer/credit-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/credit-gate/internal/lib/password"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/antifraud"
)

const defaultRole = "user"

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, user models.User) (string, error)

	// GetUserByLogin ищет пользователя по email или username.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}

// Guard проверка антифрода при регистрации.
type Guard interface {
	CanRegister(ctx context.Context, ip, fingerprint, email string) (antifraud.Decision, error)
	Register(ctx context.Context, ip, fingerprint, email string) error
}

// RejectedError регистрация отклонена антифродом.
type RejectedError struct {
	Decision antifraud.Decision
}

func (e *RejectedError) Error() string {
	return "registration rejected: " + e.Decision.Reason
}

// RegisterInput данные регистрации.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	IP          string
	Fingerprint string
}

// Registration результат успешной регистрации.
type Registration struct {
	UserUID     string
	Token       string
	FreeCredits int
}

// Service отвечает за регистрацию и вход.
type Service struct {
	// regMu держит проверку антифрода, создание пользователя и запись
	// регистрации как одну операцию в пределах процесса.
	regMu sync.Mutex

	users       UserRepository
	guard       Guard
	hasher      *password.Hasher
	jwtMaker    jwt.Maker
	freeCredits int
	log         *slog.Logger
}

// New создаёт сервис. freeCredits начисляется каждому новому пользователю.
func New(users UserRepository, guard Guard, hasher *password.Hasher, jwtMaker jwt.Maker, freeCredits int, log *slog.Logger) *Service {
	return &Service{
		users:       users,
		guard:       guard,
		hasher:      hasher,
		jwtMaker:    jwtMaker,
		freeCredits: freeCredits,
		log:         log,
	}
}

// Register проверяет антифрод, создаёт пользователя с freeCredits кредитов и
// выдаёт токен. Отказ антифрода возвращается как *RejectedError.
// Регистрации одного процесса выполняются по очереди, иначе два запроса
// с одного IP или устройства проходят CanRegister до записи друг друга.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	const op = "auth.Register"
	email := antifraud.NormalizeEmail(in.Email)

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uid, err := s.createChecked(ctx, in, email, hashed)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtMaker.GenerateToken(uid, email, defaultRole)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Registration{UserUID: uid, Token: token, FreeCredits: s.freeCredits}, nil
}

func (s *Service) createChecked(ctx context.Context, in RegisterInput, email, hashed string) (string, error) {
	const op = "auth.Register"
	s.regMu.Lock()
	defer s.regMu.Unlock()

	decision, err := s.guard.CanRegister(ctx, in.IP, in.Fingerprint, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !decision.Allowed {
		return "", &RejectedError{Decision: decision}
	}

	user := models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         defaultRole,
		FreeCredits:  s.freeCredits,
		Tier:         models.TierFree,
	}
	if name := strings.TrimSpace(in.Username); name != "" {
		user.Username = &name
	}

	uid, err := s.users.CreateUser(ctx, user)
	if errors.Is(err, models.ErrEmailTaken) {
		// email занят другим процессом
		return "", &RejectedError{Decision: antifraud.Decision{Reason: antifraud.ReasonEmailTaken}}
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.guard.Register(ctx, in.IP, in.Fingerprint, email); err != nil {
		s.log.Error("failed to record registration", slog.String("user_uid", uid), sl.Err(err))
	}
	return uid, nil
}

// Login проверяет пароль и выдаёт токен. Неизвестный логин и неверный
// пароль неразличимы: оба дают models.ErrInvalidCredentials. Email
// сравнивается без учёта регистра, username как есть.
func (s *Service) Login(ctx context.Context, login, rawPassword string) (string, *models.User, error) {
	const op = "auth.Login"
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = antifraud.NormalizeEmail(login)
	}
	user, err := s.users.GetUserByLogin(ctx, login)
	if errors.Is(err, models.ErrUserNotFound) {
		return "", nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.hasher.Compare(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", nil, models.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(user.UUID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}
