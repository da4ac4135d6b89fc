// Package store реализует сторы состояния витрины аптеки: сессию,
// заказы и избранное. Каждый стор — явный объект с внедряемыми
// зависимостями, а не процессный синглтон.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mmeshcher/pharmacy-system/internal/model"
)

// ErrUnauthenticated возвращается операциями, требующими входа в аккаунт.
var (
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyOrder возвращается при попытке оформить заказ без позиций.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidOrderStatus возвращается при запросе неизвестного статуса заказа.
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

// Repository описывает контракт доступа к данным, используемый сторами.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	CreateOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	DeleteOrphanedOrders(ctx context.Context, olderThan time.Duration) (int64, error)
	AddWishlistItem(ctx context.Context, userID int64, productID string) error
	RemoveWishlistItem(ctx context.Context, userID int64, productID string) error
	GetWishlist(ctx context.Context, userID int64) ([]string, error)
	UpsertCartItem(ctx context.Context, userID int64, item model.CartItem) error
	RemoveCartItem(ctx context.Context, userID int64, productID string) error
	ClearCart(ctx context.Context, userID int64) error
	GetCart(ctx context.Context, userID int64) ([]model.CartItem, error)
}

// Notifier доставляет пользователю уведомления об исходе операций стора.
// Успех и мягкие ошибки (конфликт, неавторизованность) не меняют
// локальное состояние и различаются только уровнем уведомления.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Error(msg string)
}
