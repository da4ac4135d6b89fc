// Package handler содержит HTTP-обработчики API витрины аптеки.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/pharmacy-system/internal/middleware"
	"github.com/mmeshcher/pharmacy-system/internal/model"
	"github.com/mmeshcher/pharmacy-system/internal/repository"
	"github.com/mmeshcher/pharmacy-system/internal/store"
	"github.com/mmeshcher/pharmacy-system/internal/validation"
)

// SessionService определяет контракт стора сессии, используемый обработчиками.
type SessionService interface {
	SignUp(ctx context.Context, login, password string) (string, error)
	SignIn(ctx context.Context, login, password string) (string, error)
	SignOut(ctx context.Context, token string)
	CheckAuth(ctx context.Context, token string) (int64, bool)
}

// OrderService определяет контракт стора заказов, используемый обработчиками.
type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, items []model.OrderItem, address model.DeliveryAddress,
		totalAmount, discountApplied float64, paymentMethod string, notes *string) (string, error)
	GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, []model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string) (bool, error)
	CurrentOrder() *model.Order
	ClearCurrentOrder()
}

// WishlistService определяет контракт стора избранного, используемый обработчиками.
type WishlistService interface {
	AddItem(ctx context.Context, userID int64, productID string) error
	RemoveItem(ctx context.Context, userID int64, productID string) error
	ToggleItem(ctx context.Context, userID int64, productID string) error
	IsInWishlist(productID string) bool
	LoadWishlist(ctx context.Context, userID int64) error
	Items() []string
}

// CartService определяет контракт стора корзины, используемый обработчиками.
type CartService interface {
	AddItem(ctx context.Context, userID int64, item model.CartItem) error
	RemoveItem(ctx context.Context, userID int64, productID string) error
	UpdateQuantity(ctx context.Context, userID int64, productID string, quantity int32) error
	ClearCart(ctx context.Context, userID int64) error
	LoadCart(ctx context.Context, userID int64) error
	Items() []model.CartItem
	ItemCount() int32
	Total(discountPercentage float64) float64
}

// AnnouncementFeed определяет контракт ленты объявлений, используемый обработчиками.
type AnnouncementFeed interface {
	Current() []model.Announcement
	Subscribe(ctx context.Context) <-chan []model.Announcement
	Publish(ctx context.Context, text string, priority model.AnnouncementPriority) (*model.Announcement, error)
	Remove(ctx context.Context, id string) error
}

// Handler реализует HTTP-обработчики API витрины аптеки.
type Handler struct {
	sessions       SessionService
	orders         OrderService
	wishlist       WishlistService
	cart           CartService
	feed           AnnouncementFeed
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(sessions SessionService, orders OrderService, wishlist WishlistService,
	cart CartService, feed AnnouncementFeed, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		sessions:       sessions,
		orders:         orders,
		wishlist:       wishlist,
		cart:           cart,
		feed:           feed,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	token, err := h.sessions.SignUp(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, token)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет вход покупателя и установку cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	token, err := h.sessions.SignIn(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, token)
	w.WriteHeader(http.StatusOK)
}

// Logout аннулирует сессию и cookie текущего покупателя.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetSessionTokenFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.sessions.SignOut(r.Context(), token)
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// GetSession сообщает, авторизован ли покупатель. Отсутствие сессии —
// нормальный отрицательный ответ, а не ошибка.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	authenticated := false

	if token, ok := h.authMiddleware.TokenFromRequest(r); ok {
		_, authenticated = h.sessions.CheckAuth(r.Context(), token)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sessionResponse{Authenticated: authenticated}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type orderItemPayload struct {
	ProductID          string  `json:"product_id"`
	ProductName        string  `json:"product_name"`
	Quantity           int32   `json:"quantity"`
	UnitPrice          float64 `json:"unit_price"`
	DiscountPercentage float64 `json:"discount_percentage"`
	Subtotal           float64 `json:"subtotal"`
}

type createOrderRequest struct {
	Items           []orderItemPayload    `json:"items"`
	DeliveryAddress model.DeliveryAddress `json:"delivery_address"`
	TotalAmount     float64               `json:"total_amount"`
	DiscountApplied float64               `json:"discount_applied"`
	PaymentMethod   string                `json:"payment_method"`
	Notes           *string               `json:"notes,omitempty"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder оформляет заказ текущего покупателя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.OrderItem{
			ProductID:          it.ProductID,
			ProductName:        it.ProductName,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			DiscountPercentage: it.DiscountPercentage,
			Subtotal:           it.Subtotal,
		})
	}

	orderID, err := h.orders.CreateOrder(r.Context(), userID, items, req.DeliveryAddress,
		req.TotalAmount, req.DiscountApplied, req.PaymentMethod, req.Notes)
	if err != nil {
		if errors.Is(err, store.ErrEmptyOrder) {
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, store.ErrUnauthenticated) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("create order error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createOrderResponse{ID: orderID}); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

type orderResponse struct {
	ID              string                `json:"id"`
	Number          string                `json:"order_number"`
	Status          string                `json:"status"`
	TotalAmount     float64               `json:"total_amount"`
	DiscountApplied float64               `json:"discount_applied"`
	DeliveryAddress model.DeliveryAddress `json:"delivery_address"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentStatus   string                `json:"payment_status"`
	Notes           *string               `json:"notes,omitempty"`
	CreatedAt       string                `json:"created_at"`
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		Number:          o.Number,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		DiscountApplied: o.DiscountApplied,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   string(o.PaymentStatus),
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

// GetOrders возвращает заказы текущего покупателя от новых к старым.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.orders.GetUserOrders(r.Context(), userID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetCurrentOrder возвращает заказ, оформленный в текущей сессии витрины.
func (h *Handler) GetCurrentOrder(w http.ResponseWriter, r *http.Request) {
	order := h.orders.CurrentOrder()
	if order == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toOrderResponse(*order)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// ClearCurrentOrder сбрасывает текущий заказ витрины. Сам заказ в БД
// не затрагивается.
func (h *Handler) ClearCurrentOrder(w http.ResponseWriter, r *http.Request) {
	h.orders.ClearCurrentOrder()
	w.WriteHeader(http.StatusOK)
}

type trackOrderResponse struct {
	orderResponse
	Items []orderItemPayload `json:"items"`
}

// TrackOrder возвращает заказ с позициями по публичному номеру.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := routeParam(r, "number")

	if !validation.IsValidOrderNumber(number) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	order, items, err := h.orders.GetOrderByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("track order error", zap.Error(err), zap.String("order", number))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := trackOrderResponse{orderResponse: toOrderResponse(*order)}
	for _, it := range items {
		resp.Items = append(resp.Items, orderItemPayload{
			ProductID:          it.ProductID,
			ProductName:        it.ProductName,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			DiscountPercentage: it.DiscountPercentage,
			Subtotal:           it.Subtotal,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateStatusResponse struct {
	Updated bool `json:"updated"`
}

// UpdateOrderStatus запрашивает смену статуса заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := routeParam(r, "orderID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	updated, err := h.orders.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrInvalidOrderStatus) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("update order status error", zap.Error(err), zap.String("orderID", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(updateStatusResponse{Updated: updated}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type wishlistItemRequest struct {
	ProductID string `json:"product_id"`
}

type toggleResponse struct {
	InWishlist bool `json:"in_wishlist"`
}

// GetWishlist синхронизирует избранное с бекендом и возвращает список.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.wishlist.LoadWishlist(r.Context(), userID); err != nil {
		h.logger.Error("load wishlist error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	items := h.wishlist.Items()
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(items); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// AddWishlistItem добавляет товар в избранное текущего покупателя.
func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req wishlistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.wishlist.AddItem(r.Context(), userID, req.ProductID); err != nil {
		if errors.Is(err, store.ErrUnauthenticated) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("add wishlist item error", zap.Error(err), zap.String("productID", req.ProductID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveWishlistItem убирает товар из избранного текущего покупателя.
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := routeParam(r, "productID")
	if productID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.wishlist.RemoveItem(r.Context(), userID, productID); err != nil {
		h.logger.Error("remove wishlist item error", zap.Error(err), zap.String("productID", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ToggleWishlistItem добавляет либо убирает товар, отталкиваясь от
// локального списка избранного.
func (h *Handler) ToggleWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := routeParam(r, "productID")
	if productID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.wishlist.ToggleItem(r.Context(), userID, productID); err != nil {
		if errors.Is(err, store.ErrUnauthenticated) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("toggle wishlist item error", zap.Error(err), zap.String("productID", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toggleResponse{InWishlist: h.wishlist.IsInWishlist(productID)}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type cartItemPayload struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int32   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type cartResponse struct {
	Items     []cartItemPayload `json:"items"`
	ItemCount int32             `json:"item_count"`
	Total     float64           `json:"total"`
}

type updateQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

// GetCart синхронизирует корзину с бекендом и возвращает её содержимое.
// Необязательный query-параметр discount задаёт процентную скидку для
// расчёта итоговой стоимости.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.cart.LoadCart(r.Context(), userID); err != nil {
		h.logger.Error("load cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	discount := 0.0
	if v := r.URL.Query().Get("discount"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 100 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		discount = parsed
	}

	items := h.cart.Items()
	resp := cartResponse{
		Items:     make([]cartItemPayload, 0, len(items)),
		ItemCount: h.cart.ItemCount(),
		Total:     h.cart.Total(discount),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, cartItemPayload{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// AddCartItem кладёт товар в корзину текущего покупателя.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req cartItemPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	item := model.CartItem{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
	}

	if err := h.cart.AddItem(r.Context(), userID, item); err != nil {
		if errors.Is(err, store.ErrUnauthenticated) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("add cart item error", zap.Error(err), zap.String("productID", req.ProductID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// UpdateCartQuantity задаёт количество товара в корзине.
func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := routeParam(r, "productID")
	if productID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.cart.UpdateQuantity(r.Context(), userID, productID, req.Quantity); err != nil {
		h.logger.Error("update cart quantity error", zap.Error(err), zap.String("productID", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveCartItem убирает товар из корзины текущего покупателя.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := routeParam(r, "productID")
	if productID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.cart.RemoveItem(r.Context(), userID, productID); err != nil {
		h.logger.Error("remove cart item error", zap.Error(err), zap.String("productID", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ClearCart опустошает корзину текущего покупателя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.cart.ClearCart(r.Context(), userID); err != nil {
		h.logger.Error("clear cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type announcementResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Priority  string `json:"priority"`
	CreatedAt string `json:"created_at"`
}

func toAnnouncementResponses(items []model.Announcement) []announcementResponse {
	resp := make([]announcementResponse, 0, len(items))
	for _, a := range items {
		resp = append(resp, announcementResponse{
			ID:        a.ID,
			Text:      a.Text,
			Priority:  string(a.Priority),
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

// GetAnnouncements возвращает текущий набор объявлений бегущей строки.
func (h *Handler) GetAnnouncements(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toAnnouncementResponses(h.feed.Current())); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// StreamAnnouncements отдаёт живую ленту объявлений через SSE.
// Подписка снимается при закрытии соединения клиентом.
func (h *Handler) StreamAnnouncements(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for items := range h.feed.Subscribe(r.Context()) {
		payload, err := json.Marshal(toAnnouncementResponses(items))
		if err != nil {
			h.logger.Error("encode announcements error", zap.Error(err))
			continue
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

type createAnnouncementRequest struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

// CreateAnnouncement публикует объявление оператора.
func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req createAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	priority := model.AnnouncementPriority(req.Priority)
	if priority == "" {
		priority = model.AnnouncementPriorityNormal
	}
	if priority != model.AnnouncementPriorityNormal && priority != model.AnnouncementPriorityHigh {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	a, err := h.feed.Publish(r.Context(), req.Text, priority)
	if err != nil {
		h.logger.Error("create announcement error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toAnnouncementResponses([]model.Announcement{*a})[0]); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// DeleteAnnouncement удаляет объявление оператора.
func (h *Handler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")

	if err := h.feed.Remove(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete announcement error", zap.Error(err), zap.String("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
