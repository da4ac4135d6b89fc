package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/pharmacy-system/internal/model"
	"github.com/mmeshcher/pharmacy-system/internal/repository"
)

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user", "pass")
	b := hashPassword("user", "pass")
	c := hashPassword("user", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	number := generateOrderNumber(now)
	if len(number) != len("ORD-20260314-000000") {
		t.Fatalf("unexpected number length: %q", number)
	}
	if number[:13] != "ORD-20260314-" {
		t.Fatalf("unexpected number prefix: %q", number)
	}
}

type stubRepo struct {
	createUserID  int64
	createUserErr error

	getUser    *model.User
	getUserErr error

	session    *model.Session
	sessionErr error

	deletedSessions []string

	createOrderErr error
	createdOrder   *model.Order
	createdItems   []model.OrderItem

	orders    []model.Order
	ordersErr error

	orderByNumber    *model.Order
	orderByNumberErr error

	orderItems []model.OrderItem

	updateStatusErr error
	updatedStatus   model.OrderStatus

	addWishlistErr    error
	removeWishlistErr error
	wishlist          []string
	wishlistErr       error

	upsertCartErr error
	upsertedItem  *model.CartItem
	removeCartErr error
	clearCartErr  error
	cart          []model.CartItem
	cartErr       error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	return nil
}

func (s *stubRepo) GetSession(ctx context.Context, token string) (*model.Session, error) {
	return s.session, s.sessionErr
}

func (s *stubRepo) DeleteSession(ctx context.Context, token string) error {
	s.deletedSessions = append(s.deletedSessions, token)
	return nil
}

func (s *stubRepo) CreateOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	if s.createOrderErr != nil {
		return s.createOrderErr
	}
	s.createdOrder = order
	s.createdItems = items
	return nil
}

func (s *stubRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubRepo) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	return s.orderByNumber, s.orderByNumberErr
}

func (s *stubRepo) GetOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	return s.orderItems, nil
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if s.updateStatusErr != nil {
		return s.updateStatusErr
	}
	s.updatedStatus = status
	return nil
}

func (s *stubRepo) DeleteOrphanedOrders(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (s *stubRepo) AddWishlistItem(ctx context.Context, userID int64, productID string) error {
	return s.addWishlistErr
}

func (s *stubRepo) RemoveWishlistItem(ctx context.Context, userID int64, productID string) error {
	return s.removeWishlistErr
}

func (s *stubRepo) GetWishlist(ctx context.Context, userID int64) ([]string, error) {
	return s.wishlist, s.wishlistErr
}

func (s *stubRepo) UpsertCartItem(ctx context.Context, userID int64, item model.CartItem) error {
	if s.upsertCartErr != nil {
		return s.upsertCartErr
	}
	s.upsertedItem = &item
	return nil
}

func (s *stubRepo) RemoveCartItem(ctx context.Context, userID int64, productID string) error {
	return s.removeCartErr
}

func (s *stubRepo) ClearCart(ctx context.Context, userID int64) error {
	return s.clearCartErr
}

func (s *stubRepo) GetCart(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.cart, s.cartErr
}

type recordingNotifier struct {
	successes []string
	infos     []string
	errs      []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Info(msg string)    { n.infos = append(n.infos, msg) }
func (n *recordingNotifier) Error(msg string)   { n.errs = append(n.errs, msg) }

type stubCache struct {
	stored  []string
	saves   int
	loadErr error

	cartStored []model.CartItem
	cartSaves  int
}

func (c *stubCache) LoadWishlist(ctx context.Context) ([]string, error) {
	return c.stored, c.loadErr
}

func (c *stubCache) SaveWishlist(ctx context.Context, items []string) error {
	c.stored = items
	c.saves++
	return nil
}

func (c *stubCache) LoadCart(ctx context.Context) ([]model.CartItem, error) {
	return c.cartStored, c.loadErr
}

func (c *stubCache) SaveCart(ctx context.Context, items []model.CartItem) error {
	c.cartStored = items
	c.cartSaves++
	return nil
}

func TestSignUp_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrUserExists,
	}
	s := NewSessionStore(repo, zap.NewNop())

	_, err := s.SignUp(context.Background(), "login", "pass")
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatalf("failed sign up must not set the authenticated flag")
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	hashed := hashPassword("user", "correct")
	repo := &stubRepo{
		getUser: &model.User{
			ID:           1,
			Login:        "user",
			PasswordHash: hashed,
		},
	}
	s := NewSessionStore(repo, zap.NewNop())

	_, err := s.SignIn(context.Background(), "user", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignIn_UnknownUserMapsToInvalidCredentials(t *testing.T) {
	repo := &stubRepo{
		getUserErr: repository.ErrUserNotFound,
	}
	s := NewSessionStore(repo, zap.NewNop())

	_, err := s.SignIn(context.Background(), "ghost", "pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignIn_OpensSessionAndSetsFlag(t *testing.T) {
	hashed := hashPassword("user", "pass")
	repo := &stubRepo{
		getUser: &model.User{ID: 7, Login: "user", PasswordHash: hashed},
	}
	s := NewSessionStore(repo, zap.NewNop())

	token, err := s.SignIn(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a non-empty session token")
	}
	if !s.IsAuthenticated() {
		t.Fatalf("successful sign in must set the authenticated flag")
	}
}

func TestCheckAuth_MissingSessionIsNotAnError(t *testing.T) {
	repo := &stubRepo{
		sessionErr: repository.ErrSessionNotFound,
	}
	s := NewSessionStore(repo, zap.NewNop())
	s.setAuthenticated(true)

	userID, ok := s.CheckAuth(context.Background(), "stale-token")
	if ok || userID != 0 {
		t.Fatalf("expected negative check, got userID=%d ok=%v", userID, ok)
	}
	if s.IsAuthenticated() {
		t.Fatalf("negative check must reset the authenticated flag")
	}

	// Повторная проверка безопасна и даёт тот же результат.
	if _, ok := s.CheckAuth(context.Background(), "stale-token"); ok {
		t.Fatalf("repeated check must stay negative")
	}
}

func TestCheckAuth_EmptyToken(t *testing.T) {
	s := NewSessionStore(&stubRepo{}, zap.NewNop())

	if _, ok := s.CheckAuth(context.Background(), ""); ok {
		t.Fatalf("empty token must not authenticate")
	}
}

func TestSignOut_ResetsFlagAndDeletesSession(t *testing.T) {
	repo := &stubRepo{
		session: &model.Session{Token: "tok", UserID: 1},
	}
	s := NewSessionStore(repo, zap.NewNop())
	s.setAuthenticated(true)

	s.SignOut(context.Background(), "tok")

	if s.IsAuthenticated() {
		t.Fatalf("sign out must reset the authenticated flag")
	}
	if len(repo.deletedSessions) != 1 || repo.deletedSessions[0] != "tok" {
		t.Fatalf("unexpected deleted sessions: %v", repo.deletedSessions)
	}
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewOrderStore(&stubRepo{}, notifier, nil, zap.NewNop())

	_, err := s.CreateOrder(context.Background(), 0, []model.OrderItem{{ProductID: "p1"}},
		model.DeliveryAddress{}, 10, 0, "cod", nil)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(notifier.errs) != 1 {
		t.Fatalf("expected one error notification, got %v", notifier.errs)
	}
	if s.CurrentOrder() != nil {
		t.Fatalf("failed creation must not set the current order")
	}
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	s := NewOrderStore(&stubRepo{}, &recordingNotifier{}, nil, zap.NewNop())

	_, err := s.CreateOrder(context.Background(), 1, nil, model.DeliveryAddress{}, 0, 0, "cod", nil)
	if !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo := &stubRepo{}
	notifier := &recordingNotifier{}
	s := NewOrderStore(repo, notifier, nil, zap.NewNop())

	items := []model.OrderItem{
		{ProductID: "p1", ProductName: "Paracetamol", Quantity: 2, UnitPrice: 3.5, Subtotal: 7},
	}
	id, err := s.CreateOrder(context.Background(), 42, items,
		model.DeliveryAddress{City: "Pune"}, 7, 0, "upi", nil)
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a non-empty order id")
	}

	if repo.createdOrder == nil || repo.createdOrder.UserID != 42 {
		t.Fatalf("order header was not persisted: %+v", repo.createdOrder)
	}
	if len(repo.createdItems) != 1 {
		t.Fatalf("order items were not persisted: %+v", repo.createdItems)
	}
	if repo.createdOrder.Status != model.OrderStatusPending {
		t.Fatalf("new order status = %q, want pending", repo.createdOrder.Status)
	}
	if repo.createdOrder.PaymentStatus != model.PaymentStatusPending {
		t.Fatalf("new payment status = %q, want pending", repo.createdOrder.PaymentStatus)
	}

	current := s.CurrentOrder()
	if current == nil || current.ID != id {
		t.Fatalf("current order not tracked after creation: %+v", current)
	}
	if len(notifier.successes) != 1 {
		t.Fatalf("expected one success notification, got %v", notifier.successes)
	}
}

func TestCreateOrder_RepoFailure(t *testing.T) {
	repo := &stubRepo{createOrderErr: errors.New("db down")}
	notifier := &recordingNotifier{}
	s := NewOrderStore(repo, notifier, nil, zap.NewNop())

	_, err := s.CreateOrder(context.Background(), 1, []model.OrderItem{{ProductID: "p1"}},
		model.DeliveryAddress{}, 5, 0, "cod", nil)
	if err == nil {
		t.Fatalf("expected error when repository fails")
	}
	if s.CurrentOrder() != nil {
		t.Fatalf("failed creation must not set the current order")
	}
	if len(notifier.errs) != 1 {
		t.Fatalf("expected one error notification, got %v", notifier.errs)
	}
}

type recordingOwner struct {
	notified int
	err      error
}

func (o *recordingOwner) NotifyOrderPlaced(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	o.notified++
	return o.err
}

func TestCreateOrder_OwnerNotificationBestEffort(t *testing.T) {
	owner := &recordingOwner{err: errors.New("whatsapp unavailable")}
	s := NewOrderStore(&stubRepo{}, &recordingNotifier{}, owner, zap.NewNop())

	_, err := s.CreateOrder(context.Background(), 1, []model.OrderItem{{ProductID: "p1"}},
		model.DeliveryAddress{}, 5, 0, "cod", nil)
	if err != nil {
		t.Fatalf("owner notification failure must not fail the order: %v", err)
	}
	if owner.notified != 1 {
		t.Fatalf("owner was not notified")
	}
}

func TestGetUserOrders_Unauthenticated(t *testing.T) {
	s := NewOrderStore(&stubRepo{}, &recordingNotifier{}, nil, zap.NewNop())

	_, err := s.GetUserOrders(context.Background(), 0)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestGetUserOrders_DistinguishesEmptyFromFailure(t *testing.T) {
	s := NewOrderStore(&stubRepo{}, &recordingNotifier{}, nil, zap.NewNop())

	orders, err := s.GetUserOrders(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetUserOrders error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %+v", orders)
	}

	s = NewOrderStore(&stubRepo{ordersErr: errors.New("db down")}, &recordingNotifier{}, nil, zap.NewNop())
	if _, err := s.GetUserOrders(context.Background(), 1); err == nil {
		t.Fatalf("repository failure must surface as an error, not an empty list")
	}
}

func TestUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	s := NewOrderStore(&stubRepo{}, &recordingNotifier{}, nil, zap.NewNop())

	ok, err := s.UpdateOrderStatus(context.Background(), "some-id", "teleported")
	if ok || !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("expected ErrInvalidOrderStatus, got ok=%v err=%v", ok, err)
	}
}

func TestUpdateOrderStatus_UpdatesCurrentOrder(t *testing.T) {
	repo := &stubRepo{}
	s := NewOrderStore(repo, &recordingNotifier{}, nil, zap.NewNop())

	id, err := s.CreateOrder(context.Background(), 1, []model.OrderItem{{ProductID: "p1"}},
		model.DeliveryAddress{}, 5, 0, "cod", nil)
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	ok, err := s.UpdateOrderStatus(context.Background(), id, "shipped")
	if err != nil || !ok {
		t.Fatalf("UpdateOrderStatus = %v, %v", ok, err)
	}
	if repo.updatedStatus != model.OrderStatusShipped {
		t.Fatalf("persisted status = %q, want shipped", repo.updatedStatus)
	}
	if current := s.CurrentOrder(); current == nil || current.Status != model.OrderStatusShipped {
		t.Fatalf("current order status not refreshed: %+v", current)
	}
}

func TestClearCurrentOrder(t *testing.T) {
	s := NewOrderStore(&stubRepo{}, &recordingNotifier{}, nil, zap.NewNop())

	_, err := s.CreateOrder(context.Background(), 1, []model.OrderItem{{ProductID: "p1"}},
		model.DeliveryAddress{}, 5, 0, "cod", nil)
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if s.CurrentOrder() == nil {
		t.Fatalf("expected a tracked current order")
	}

	s.ClearCurrentOrder()

	if s.CurrentOrder() != nil {
		t.Fatalf("current order must be nil after clearing")
	}
}

func TestWishlistAddItem_Unauthenticated(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewWishlistStore(context.Background(), &stubRepo{}, &stubCache{}, notifier, zap.NewNop())

	err := s.AddItem(context.Background(), 0, "p1")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(notifier.errs) != 1 {
		t.Fatalf("expected one error notification, got %v", notifier.errs)
	}
	if len(s.Items()) != 0 {
		t.Fatalf("local list must stay empty: %v", s.Items())
	}
}

func TestWishlistAddItem_DuplicateIsInformational(t *testing.T) {
	cache := &stubCache{}
	notifier := &recordingNotifier{}
	s := NewWishlistStore(context.Background(), &stubRepo{}, cache, notifier, zap.NewNop())

	if err := s.AddItem(context.Background(), 1, "p1"); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	savesAfterFirst := cache.saves

	repo := &stubRepo{addWishlistErr: repository.ErrDuplicateWishlistEntry}
	s.repo = repo

	if err := s.AddItem(context.Background(), 1, "p1"); err != nil {
		t.Fatalf("duplicate add must be a soft outcome, got %v", err)
	}
	if len(notifier.infos) != 1 {
		t.Fatalf("expected one informational notification, got %v", notifier.infos)
	}
	if got := s.Items(); len(got) != 1 {
		t.Fatalf("duplicate add must not grow the local list: %v", got)
	}
	if cache.saves != savesAfterFirst {
		t.Fatalf("duplicate add must not rewrite the cache")
	}
}

func TestWishlistRemoveItem_UnauthenticatedIsSilentNoop(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewWishlistStore(context.Background(), &stubRepo{}, &stubCache{}, notifier, zap.NewNop())

	if err := s.RemoveItem(context.Background(), 0, "p1"); err != nil {
		t.Fatalf("unauthenticated removal must be a no-op, got %v", err)
	}
	if len(notifier.errs)+len(notifier.infos)+len(notifier.successes) != 0 {
		t.Fatalf("unauthenticated removal must not notify: %+v", notifier)
	}
}

func TestWishlistToggleItem(t *testing.T) {
	cache := &stubCache{}
	s := NewWishlistStore(context.Background(), &stubRepo{}, cache, &recordingNotifier{}, zap.NewNop())

	if err := s.ToggleItem(context.Background(), 1, "p1"); err != nil {
		t.Fatalf("ToggleItem add error: %v", err)
	}
	if !s.IsInWishlist("p1") {
		t.Fatalf("toggle of an absent item must add it")
	}

	if err := s.ToggleItem(context.Background(), 1, "p1"); err != nil {
		t.Fatalf("ToggleItem remove error: %v", err)
	}
	if s.IsInWishlist("p1") {
		t.Fatalf("toggle of a present item must remove it")
	}
}

func TestWishlistLoadWishlist_OverwritesLocalList(t *testing.T) {
	cache := &stubCache{}
	repo := &stubRepo{wishlist: []string{"p2", "p3"}}
	s := NewWishlistStore(context.Background(), repo, cache, &recordingNotifier{}, zap.NewNop())

	if err := s.AddItem(context.Background(), 1, "p1"); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if err := s.LoadWishlist(context.Background(), 1); err != nil {
		t.Fatalf("LoadWishlist error: %v", err)
	}
	got := s.Items()
	if len(got) != 2 || got[0] != "p2" || got[1] != "p3" {
		t.Fatalf("load must replace the local list, got %v", got)
	}
	if len(cache.stored) != 2 {
		t.Fatalf("load must persist the fresh list, cache has %v", cache.stored)
	}

	// Повторная загрузка идемпотентна.
	if err := s.LoadWishlist(context.Background(), 1); err != nil {
		t.Fatalf("repeated LoadWishlist error: %v", err)
	}
	if got := s.Items(); len(got) != 2 {
		t.Fatalf("repeated load changed the list: %v", got)
	}
}

func TestWishlistLoadWishlist_UnauthenticatedResets(t *testing.T) {
	cache := &stubCache{}
	s := NewWishlistStore(context.Background(), &stubRepo{}, cache, &recordingNotifier{}, zap.NewNop())

	if err := s.AddItem(context.Background(), 1, "p1"); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if err := s.LoadWishlist(context.Background(), 0); err != nil {
		t.Fatalf("LoadWishlist error: %v", err)
	}
	if len(s.Items()) != 0 {
		t.Fatalf("load without a user must reset the list: %v", s.Items())
	}
	if len(cache.stored) != 0 {
		t.Fatalf("reset must clear the persisted list: %v", cache.stored)
	}
}

func TestNewWishlistStore_RestoresPersistedList(t *testing.T) {
	cache := &stubCache{stored: []string{"p1", "p2"}}
	s := NewWishlistStore(context.Background(), &stubRepo{}, cache, &recordingNotifier{}, zap.NewNop())

	if got := s.Items(); len(got) != 2 {
		t.Fatalf("persisted list not restored: %v", got)
	}
	if !s.IsInWishlist("p2") {
		t.Fatalf("restored list must answer membership checks")
	}
}

func TestCartAddItem_Unauthenticated(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewCartStore(context.Background(), &stubRepo{}, &stubCache{}, notifier, zap.NewNop())

	err := s.AddItem(context.Background(), 0, model.CartItem{ProductID: "p1", Quantity: 1})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(notifier.errs) != 1 {
		t.Fatalf("expected one error notification, got %v", notifier.errs)
	}
	if len(s.Items()) != 0 {
		t.Fatalf("cart must stay empty: %v", s.Items())
	}
}

func TestCartAddItem_NewProduct(t *testing.T) {
	repo := &stubRepo{}
	cache := &stubCache{}
	notifier := &recordingNotifier{}
	s := NewCartStore(context.Background(), repo, cache, notifier, zap.NewNop())

	item := model.CartItem{ProductID: "p1", ProductName: "Paracetamol", Quantity: 2, UnitPrice: 3.5}
	if err := s.AddItem(context.Background(), 1, item); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if repo.upsertedItem == nil || repo.upsertedItem.ProductID != "p1" {
		t.Fatalf("item was not persisted: %+v", repo.upsertedItem)
	}
	if got := s.Items(); len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("unexpected cart contents: %+v", got)
	}
	if cache.cartSaves != 1 {
		t.Fatalf("add must persist the cart, saves = %d", cache.cartSaves)
	}
	if len(notifier.successes) != 1 {
		t.Fatalf("expected one success notification, got %v", notifier.successes)
	}
}

func TestCartAddItem_ExistingProductSumsQuantities(t *testing.T) {
	repo := &stubRepo{}
	s := NewCartStore(context.Background(), repo, &stubCache{}, &recordingNotifier{}, zap.NewNop())

	item := model.CartItem{ProductID: "p1", ProductName: "Paracetamol", Quantity: 2, UnitPrice: 3.5}
	if err := s.AddItem(context.Background(), 1, item); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if err := s.AddItem(context.Background(), 1, item); err != nil {
		t.Fatalf("repeated AddItem error: %v", err)
	}

	got := s.Items()
	if len(got) != 1 {
		t.Fatalf("repeated add must not create a second line: %+v", got)
	}
	if got[0].Quantity != 4 {
		t.Fatalf("quantity = %d, want 4", got[0].Quantity)
	}
	if repo.upsertedItem.Quantity != 4 {
		t.Fatalf("persisted quantity = %d, want 4", repo.upsertedItem.Quantity)
	}
}

func TestCartUpdateQuantity_BelowOneRemoves(t *testing.T) {
	s := NewCartStore(context.Background(), &stubRepo{}, &stubCache{}, &recordingNotifier{}, zap.NewNop())

	if err := s.AddItem(context.Background(), 1, model.CartItem{ProductID: "p1", Quantity: 2}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if err := s.UpdateQuantity(context.Background(), 1, "p1", 0); err != nil {
		t.Fatalf("UpdateQuantity error: %v", err)
	}
	if len(s.Items()) != 0 {
		t.Fatalf("quantity below one must remove the line: %+v", s.Items())
	}
}

func TestCartRemoveItem_UnauthenticatedIsSilentNoop(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewCartStore(context.Background(), &stubRepo{}, &stubCache{}, notifier, zap.NewNop())

	if err := s.RemoveItem(context.Background(), 0, "p1"); err != nil {
		t.Fatalf("unauthenticated removal must be a no-op, got %v", err)
	}
	if len(notifier.errs)+len(notifier.infos)+len(notifier.successes) != 0 {
		t.Fatalf("unauthenticated removal must not notify: %+v", notifier)
	}
}

func TestCartClearCart(t *testing.T) {
	cache := &stubCache{}
	s := NewCartStore(context.Background(), &stubRepo{}, cache, &recordingNotifier{}, zap.NewNop())

	if err := s.AddItem(context.Background(), 1, model.CartItem{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if err := s.ClearCart(context.Background(), 1); err != nil {
		t.Fatalf("ClearCart error: %v", err)
	}
	if len(s.Items()) != 0 {
		t.Fatalf("cart not emptied: %+v", s.Items())
	}
	if len(cache.cartStored) != 0 {
		t.Fatalf("clear must empty the persisted cart: %v", cache.cartStored)
	}
}

func TestCartLoadCart_OverwritesLocalItems(t *testing.T) {
	repo := &stubRepo{
		cart: []model.CartItem{
			{ProductID: "p2", ProductName: "Ibuprofen", Quantity: 1, UnitPrice: 5},
		},
	}
	s := NewCartStore(context.Background(), repo, &stubCache{}, &recordingNotifier{}, zap.NewNop())

	if err := s.AddItem(context.Background(), 1, model.CartItem{ProductID: "p1", Quantity: 3}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if err := s.LoadCart(context.Background(), 1); err != nil {
		t.Fatalf("LoadCart error: %v", err)
	}
	got := s.Items()
	if len(got) != 1 || got[0].ProductID != "p2" {
		t.Fatalf("load must replace local items, got %+v", got)
	}
}

func TestCartLoadCart_UnauthenticatedResets(t *testing.T) {
	cache := &stubCache{}
	s := NewCartStore(context.Background(), &stubRepo{}, cache, &recordingNotifier{}, zap.NewNop())

	if err := s.AddItem(context.Background(), 1, model.CartItem{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if err := s.LoadCart(context.Background(), 0); err != nil {
		t.Fatalf("LoadCart error: %v", err)
	}
	if len(s.Items()) != 0 {
		t.Fatalf("load without a user must reset the cart: %+v", s.Items())
	}
	if len(cache.cartStored) != 0 {
		t.Fatalf("reset must clear the persisted cart: %v", cache.cartStored)
	}
}

func TestCartTotals(t *testing.T) {
	cache := &stubCache{
		cartStored: []model.CartItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: 10},
			{ProductID: "p2", Quantity: 1, UnitPrice: 30},
		},
	}
	s := NewCartStore(context.Background(), &stubRepo{}, cache, &recordingNotifier{}, zap.NewNop())

	if got := s.ItemCount(); got != 3 {
		t.Fatalf("ItemCount = %d, want 3", got)
	}
	if got := s.Total(0); got != 50 {
		t.Fatalf("Total(0) = %v, want 50", got)
	}
	if got := s.Total(10); got != 45 {
		t.Fatalf("Total(10) = %v, want 45", got)
	}
}

func TestStartOrphanSweep_StopsOnContextCancel(t *testing.T) {
	s := NewOrderStore(&stubRepo{}, &recordingNotifier{}, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s.StartOrphanSweep(ctx, 10*time.Millisecond, time.Hour)

	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
}
