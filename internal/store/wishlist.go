package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/pharmacy-system/internal/repository"
)

// WishlistCache — локальное durable-хранилище списка избранного.
// Кэш не является источником истины: им остаётся бекенд.
type WishlistCache interface {
	LoadWishlist(ctx context.Context) ([]string, error)
	SaveWishlist(ctx context.Context, items []string) error
}

// WishlistStore поддерживает список избранных товаров покупателя,
// зеркалируя его между бекендом и локальным кэшем, чтобы при повторном
// открытии витрина показывала данные до завершения похода в сеть.
type WishlistStore struct {
	repo     Repository
	cache    WishlistCache
	notifier Notifier
	logger   *zap.Logger

	mu    sync.RWMutex
	items []string
}

// NewWishlistStore создаёт стор избранного и сразу поднимает
// сохранённый список из локального кэша.
func NewWishlistStore(ctx context.Context, repo Repository, cache WishlistCache, notifier Notifier, logger *zap.Logger) *WishlistStore {
	s := &WishlistStore{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}

	if cache != nil {
		items, err := cache.LoadWishlist(ctx)
		if err != nil {
			logger.Error("load persisted wishlist error", zap.Error(err))
		} else {
			s.items = items
		}
	}

	return s
}

// AddItem добавляет товар в избранное. Повторное добавление — мягкий
// информационный исход, локальный список при этом не меняется.
func (s *WishlistStore) AddItem(ctx context.Context, userID int64, productID string) error {
	if userID == 0 {
		s.notifier.Error("Please sign in to add to wishlist")
		return ErrUnauthenticated
	}

	err := s.repo.AddWishlistItem(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateWishlistEntry) {
			s.notifier.Info("Already in wishlist")
			return nil
		}
		s.logger.Error("add wishlist item error", zap.Error(err), zap.String("productID", productID))
		s.notifier.Error("Failed to add to wishlist")
		return fmt.Errorf("add wishlist item: %w", err)
	}

	s.mu.Lock()
	s.items = append(s.items, productID)
	snapshot := slices.Clone(s.items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.notifier.Success("Added to wishlist")
	return nil
}

// RemoveItem убирает товар из избранного. Для неавторизованного
// покупателя операция молча ничего не делает.
func (s *WishlistStore) RemoveItem(ctx context.Context, userID int64, productID string) error {
	if userID == 0 {
		return nil
	}

	if err := s.repo.RemoveWishlistItem(ctx, userID, productID); err != nil {
		s.logger.Error("remove wishlist item error", zap.Error(err), zap.String("productID", productID))
		s.notifier.Error("Failed to remove from wishlist")
		return fmt.Errorf("remove wishlist item: %w", err)
	}

	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(id string) bool { return id == productID })
	snapshot := slices.Clone(s.items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.notifier.Success("Removed from wishlist")
	return nil
}

// ToggleItem добавляет или убирает товар, отталкиваясь от локального
// списка. Список не перечитывается из бекенда, поэтому параллельная
// мутация из другой сессии может направить вызов не в ту ветку.
func (s *WishlistStore) ToggleItem(ctx context.Context, userID int64, productID string) error {
	if s.IsInWishlist(productID) {
		return s.RemoveItem(ctx, userID, productID)
	}
	return s.AddItem(ctx, userID, productID)
}

// IsInWishlist проверяет принадлежность товара избранному по локальному
// списку, без похода в бекенд.
func (s *WishlistStore) IsInWishlist(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.items, productID)
}

// Items возвращает копию локального списка избранного.
func (s *WishlistStore) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// LoadWishlist целиком замещает локальный список данными бекенда.
// Для неавторизованного покупателя список сбрасывается в пустой.
func (s *WishlistStore) LoadWishlist(ctx context.Context, userID int64) error {
	if userID == 0 {
		s.mu.Lock()
		s.items = nil
		s.mu.Unlock()
		s.persist(ctx, nil)
		return nil
	}

	items, err := s.repo.GetWishlist(ctx, userID)
	if err != nil {
		s.logger.Error("load wishlist error", zap.Error(err), zap.Int64("userID", userID))
		return fmt.Errorf("load wishlist: %w", err)
	}

	s.mu.Lock()
	s.items = items
	snapshot := slices.Clone(items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return nil
}

func (s *WishlistStore) persist(ctx context.Context, items []string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveWishlist(ctx, items); err != nil {
		s.logger.Error("persist wishlist error", zap.Error(err))
	}
}
