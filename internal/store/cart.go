package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/pharmacy-system/internal/model"
)

// CartCache описывает контракт локального persistent-кэша корзины.
type CartCache interface {
	LoadCart(ctx context.Context) ([]model.CartItem, error)
	SaveCart(ctx context.Context, items []model.CartItem) error
}

// CartStore — корзина покупателя: позиции хранятся в бекенде и
// дублируются в локальном кэше, из которого собирается заказ.
type CartStore struct {
	repo     Repository
	cache    CartCache
	notifier Notifier
	logger   *zap.Logger

	mu    sync.RWMutex
	items []model.CartItem
}

// NewCartStore создаёт стор корзины и сразу поднимает сохранённые
// позиции из локального кэша.
func NewCartStore(ctx context.Context, repo Repository, cache CartCache, notifier Notifier, logger *zap.Logger) *CartStore {
	s := &CartStore{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}

	if cache != nil {
		items, err := cache.LoadCart(ctx)
		if err != nil {
			logger.Error("load persisted cart error", zap.Error(err))
		} else {
			s.items = items
		}
	}

	return s
}

// AddItem кладёт товар в корзину. Если товар уже лежит в корзине,
// количества складываются.
func (s *CartStore) AddItem(ctx context.Context, userID int64, item model.CartItem) error {
	if userID == 0 {
		s.notifier.Error("Please sign in to add items to cart")
		return ErrUnauthenticated
	}

	if item.Quantity < 1 {
		item.Quantity = 1
	}

	s.mu.RLock()
	idx := slices.IndexFunc(s.items, func(it model.CartItem) bool { return it.ProductID == item.ProductID })
	var existingQty int32
	if idx >= 0 {
		existingQty = s.items[idx].Quantity
	}
	s.mu.RUnlock()

	if idx >= 0 {
		return s.UpdateQuantity(ctx, userID, item.ProductID, existingQty+item.Quantity)
	}

	if err := s.repo.UpsertCartItem(ctx, userID, item); err != nil {
		s.logger.Error("add cart item error", zap.Error(err), zap.String("productID", item.ProductID))
		s.notifier.Error("Failed to add item to cart")
		return fmt.Errorf("add cart item: %w", err)
	}

	s.mu.Lock()
	s.items = append(s.items, item)
	snapshot := slices.Clone(s.items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.notifier.Success("Added to cart")
	return nil
}

// RemoveItem убирает товар из корзины. Для неавторизованного
// покупателя операция молча ничего не делает.
func (s *CartStore) RemoveItem(ctx context.Context, userID int64, productID string) error {
	if userID == 0 {
		return nil
	}

	if err := s.repo.RemoveCartItem(ctx, userID, productID); err != nil {
		s.logger.Error("remove cart item error", zap.Error(err), zap.String("productID", productID))
		s.notifier.Error("Failed to remove item")
		return fmt.Errorf("remove cart item: %w", err)
	}

	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(it model.CartItem) bool { return it.ProductID == productID })
	snapshot := slices.Clone(s.items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.notifier.Success("Removed from cart")
	return nil
}

// UpdateQuantity задаёт количество товара в корзине. Количество меньше
// единицы означает удаление позиции.
func (s *CartStore) UpdateQuantity(ctx context.Context, userID int64, productID string, quantity int32) error {
	if quantity < 1 {
		return s.RemoveItem(ctx, userID, productID)
	}

	if userID == 0 {
		return nil
	}

	s.mu.RLock()
	idx := slices.IndexFunc(s.items, func(it model.CartItem) bool { return it.ProductID == productID })
	var item model.CartItem
	if idx >= 0 {
		item = s.items[idx]
	}
	s.mu.RUnlock()

	if idx < 0 {
		return nil
	}

	item.Quantity = quantity
	if err := s.repo.UpsertCartItem(ctx, userID, item); err != nil {
		s.logger.Error("update cart quantity error", zap.Error(err), zap.String("productID", productID))
		s.notifier.Error("Failed to update quantity")
		return fmt.Errorf("update cart quantity: %w", err)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items[i].Quantity = quantity
		}
	}
	snapshot := slices.Clone(s.items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return nil
}

// ClearCart опустошает корзину. Для неавторизованного покупателя
// операция молча ничего не делает.
func (s *CartStore) ClearCart(ctx context.Context, userID int64) error {
	if userID == 0 {
		return nil
	}

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		s.logger.Error("clear cart error", zap.Error(err), zap.Int64("userID", userID))
		s.notifier.Error("Failed to clear cart")
		return fmt.Errorf("clear cart: %w", err)
	}

	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.persist(ctx, nil)
	return nil
}

// LoadCart целиком замещает локальные позиции данными бекенда.
// Для неавторизованного покупателя корзина сбрасывается в пустую.
func (s *CartStore) LoadCart(ctx context.Context, userID int64) error {
	if userID == 0 {
		s.mu.Lock()
		s.items = nil
		s.mu.Unlock()
		s.persist(ctx, nil)
		return nil
	}

	items, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		s.logger.Error("load cart error", zap.Error(err), zap.Int64("userID", userID))
		return fmt.Errorf("load cart: %w", err)
	}

	s.mu.Lock()
	s.items = items
	snapshot := slices.Clone(items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return nil
}

// Items возвращает копию локальных позиций корзины.
func (s *CartStore) Items() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// ItemCount возвращает суммарное количество товаров в корзине.
func (s *CartStore) ItemCount() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int32
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

// Total возвращает стоимость корзины с учётом процентной скидки.
func (s *CartStore) Total(discountPercentage float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, it := range s.items {
		price := it.UnitPrice * (1 - discountPercentage/100)
		total += price * float64(it.Quantity)
	}
	return total
}

func (s *CartStore) persist(ctx context.Context, items []model.CartItem) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveCart(ctx, items); err != nil {
		s.logger.Error("persist cart error", zap.Error(err))
	}
}
