package store

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pharmacy-system/internal/model"
)

// OwnerNotifier извещает владельца аптеки о новых заказах по внешнему
// каналу. Отправка best-effort: сбой не влияет на исход оформления.
type OwnerNotifier interface {
	NotifyOrderPlaced(ctx context.Context, order *model.Order, items []model.OrderItem) error
}

// OrderStore оформляет заказы и отслеживает текущий заказ покупателя.
type OrderStore struct {
	repo     Repository
	notifier Notifier
	owner    OwnerNotifier
	logger   *zap.Logger

	mu           sync.Mutex
	currentOrder *model.Order
}

// NewOrderStore создаёт стор заказов. ownerNotifier может быть nil —
// тогда извещения владельцу не отправляются.
func NewOrderStore(repo Repository, notifier Notifier, owner OwnerNotifier, logger *zap.Logger) *OrderStore {
	return &OrderStore{
		repo:     repo,
		notifier: notifier,
		owner:    owner,
		logger:   logger,
	}
}

// CreateOrder оформляет заказ: шапка и позиции записываются одной
// транзакцией, так что заказ без позиций в БД появиться не может.
// Возвращает идентификатор созданного заказа.
func (s *OrderStore) CreateOrder(
	ctx context.Context,
	userID int64,
	items []model.OrderItem,
	address model.DeliveryAddress,
	totalAmount float64,
	discountApplied float64,
	paymentMethod string,
	notes *string,
) (string, error) {
	if userID == 0 {
		s.notifier.Error("Please sign in to place an order")
		return "", ErrUnauthenticated
	}

	if len(items) == 0 {
		s.notifier.Error("Failed to create order")
		return "", ErrEmptyOrder
	}

	order := &model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Number:          generateOrderNumber(time.Now()),
		Status:          model.OrderStatusPending,
		TotalAmount:     totalAmount,
		DiscountApplied: discountApplied,
		DeliveryAddress: address,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   model.PaymentStatusPending,
		Notes:           notes,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.repo.CreateOrder(ctx, order, items); err != nil {
		s.logger.Error("order creation error", zap.Error(err), zap.Int64("userID", userID))
		s.notifier.Error("Failed to create order")
		return "", fmt.Errorf("create order: %w", err)
	}

	s.mu.Lock()
	s.currentOrder = order
	s.mu.Unlock()

	s.notifier.Success("Order placed successfully!")

	if s.owner != nil {
		if err := s.owner.NotifyOrderPlaced(ctx, order, items); err != nil {
			s.logger.Warn("owner notification error", zap.Error(err), zap.String("order", order.Number))
		}
	}

	return order.ID, nil
}

// GetUserOrders возвращает заказы покупателя от новых к старым.
// Пустой список без ошибки означает именно отсутствие заказов.
func (s *OrderStore) GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	orders, err := s.repo.GetOrdersByUser(ctx, userID)
	if err != nil {
		s.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		s.notifier.Error("Failed to load orders")
		return nil, fmt.Errorf("get user orders: %w", err)
	}

	return orders, nil
}

// GetOrderByNumber возвращает заказ и его позиции по публичному номеру.
func (s *OrderStore) GetOrderByNumber(ctx context.Context, number string) (*model.Order, []model.OrderItem, error) {
	order, err := s.repo.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.repo.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get order items: %w", err)
	}

	return order, items, nil
}

// UpdateOrderStatus запрашивает смену статуса заказа. Переходы
// подтверждает бекенд; стор лишь отражает подтверждённое значение.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status string) (bool, error) {
	if !model.IsValidOrderStatus(status) {
		return false, fmt.Errorf("%w: %s", ErrInvalidOrderStatus, status)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, model.OrderStatus(status)); err != nil {
		s.logger.Error("update order status error", zap.Error(err), zap.String("orderID", orderID))
		s.notifier.Error("Failed to update order status")
		return false, fmt.Errorf("update order status: %w", err)
	}

	s.mu.Lock()
	if s.currentOrder != nil && s.currentOrder.ID == orderID {
		s.currentOrder.Status = model.OrderStatus(status)
	}
	s.mu.Unlock()

	s.notifier.Success("Order status updated")
	return true, nil
}

// CurrentOrder возвращает копию текущего заказа либо nil.
func (s *OrderStore) CurrentOrder() *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentOrder == nil {
		return nil
	}

	cp := *s.currentOrder
	return &cp
}

// ClearCurrentOrder сбрасывает текущий заказ. Бекенд не затрагивается.
func (s *OrderStore) ClearCurrentOrder() {
	s.mu.Lock()
	s.currentOrder = nil
	s.mu.Unlock()
}

// StartOrphanSweep запускает фоновую зачистку заказов без позиций,
// оставшихся от версий витрины, писавших заказ в два приёма.
func (s *OrderStore) StartOrphanSweep(ctx context.Context, interval, grace time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.repo.DeleteOrphanedOrders(ctx, grace)
				if err != nil {
					s.logger.Error("orphan sweep error", zap.Error(err))
					continue
				}
				if deleted > 0 {
					s.logger.Warn("removed orphaned order headers", zap.Int64("count", deleted))
				}
			}
		}
	}()
}

func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%06d", now.Format("20060102"), rand.Intn(1000000))
}
