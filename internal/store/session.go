package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pharmacy-system/internal/repository"
)

// Время жизни сессии покупателя.
const sessionTTL = 30 * 24 * time.Hour

// SessionStore — единственный источник истины о том, авторизован ли
// покупатель. Флаг обновляется по запросу и не привязан к экрану.
type SessionStore struct {
	repo   Repository
	logger *zap.Logger

	mu            sync.RWMutex
	authenticated bool
}

// NewSessionStore создаёт стор сессии с указанным репозиторием.
func NewSessionStore(repo Repository, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		repo:   repo,
		logger: logger,
	}
}

// SignUp регистрирует покупателя и сразу открывает сессию.
func (s *SessionStore) SignUp(ctx context.Context, login, password string) (string, error) {
	hashed := hashPassword(login, password)

	userID, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		return "", err
	}

	return s.openSession(ctx, userID)
}

// SignIn проверяет логин и пароль и открывает новую сессию.
func (s *SessionStore) SignIn(ctx context.Context, login, password string) (string, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.openSession(ctx, u.ID)
}

func (s *SessionStore) openSession(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()

	if err := s.repo.CreateSession(ctx, token, userID, time.Now().Add(sessionTTL)); err != nil {
		return "", err
	}

	s.setAuthenticated(true)
	return token, nil
}

// CheckAuth проверяет наличие активной сессии по токену и обновляет флаг.
// Отсутствие сессии — нормальный отрицательный результат, а не ошибка;
// повторные вызовы безопасны.
func (s *SessionStore) CheckAuth(ctx context.Context, token string) (int64, bool) {
	if token == "" {
		s.setAuthenticated(false)
		return 0, false
	}

	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Error("check session error", zap.Error(err))
		}
		s.setAuthenticated(false)
		return 0, false
	}

	s.setAuthenticated(true)
	return sess.UserID, true
}

// SignOut аннулирует сессию. Флаг сбрасывается независимо от того,
// подтвердил ли бекенд удаление.
func (s *SessionStore) SignOut(ctx context.Context, token string) {
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		s.logger.Error("sign out error", zap.Error(err))
	}
	s.setAuthenticated(false)
}

// IsAuthenticated возвращает текущее значение флага авторизации.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *SessionStore) setAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}
