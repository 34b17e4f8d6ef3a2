// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marlinkeeper/aquatrack/internal/lib/jwt"
	"github.com/marlinkeeper/aquatrack/internal/lib/password"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

// trialDays — длительность пробного периода при регистрации. На время
// триала резолвер отдаёт тариф pro.
const trialDays = 14

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
// Текст одинаков для несуществующего пользователя и неверного пароля.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// SubscriptionCreator создаёт запись подписки для нового пользователя.
type SubscriptionCreator interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	subs     SubscriptionCreator
	jwtMaker jwt.Maker
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, subs SubscriptionCreator, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		subs:     subs,
		jwtMaker: jwtMaker,
		now:      time.Now,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной
// ролью "user", и заводит ему подписку в статусе trialing: первые две
// недели пользователь получает тариф pro без оплаты.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = "auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         "user", // дефолтная роль при регистрации
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	trialEndsAt := s.now().UTC().AddDate(0, 0, trialDays)
	sub := models.Subscription{
		UserUID:     uid,
		Tier:        models.TierFree, // номинальный тариф, до оплаты доступ даёт триал
		Status:      models.StatusTrialing,
		TrialEndsAt: &trialEndsAt,
	}
	if _, err := s.subs.CreateSubscription(ctx, sub); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе и признак валидности.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Username: claims.Username,
		Role:     claims.Role,
		UID:      claims.UserUID,
	}
	return user, true, nil
}
