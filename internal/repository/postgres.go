// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/pharmacy-system/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound возвращается, если активная сессия отсутствует или истекла.
	ErrSessionNotFound = errors.New("session not found")
	// ErrOrderNotFound возвращается, если заказ с указанным идентификатором не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateWishlistEntry возвращается при повторном добавлении товара в избранное.
	ErrDuplicateWishlistEntry = errors.New("product already in wishlist")
	// ErrAnnouncementNotFound возвращается, если объявление не найдено.
	ErrAnnouncementNotFound = errors.New("announcement not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных витрины в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраим только конфликты сериализации, дедлоки и сетевые сбои.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// CreateSession сохраняет новую сессию пользователя.
func (r *PostgresRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession возвращает активную (неистёкшую) сессию по токену.
func (r *PostgresRepository) GetSession(ctx context.Context, token string) (*model.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT token, user_id, created_at, expires_at
		 FROM sessions
		 WHERE token = $1 AND expires_at > now()`,
		token,
	)

	var s model.Session
	err := row.Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

// DeleteSession удаляет сессию по токену. Отсутствие сессии ошибкой не считается.
func (r *PostgresRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CreateOrder сохраняет заказ вместе с позициями в одной транзакции.
// Заказ без позиций в БД появиться не может: при любой ошибке транзакция
// откатывается целиком.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	addressJSON, err := json.Marshal(order.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("marshal delivery address: %w", err)
	}

	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO orders
			 (id, user_id, order_number, status, total_amount, discount_applied,
			  delivery_address, payment_method, payment_status, notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			order.ID, order.UserID, order.Number, string(order.Status),
			toCents(order.TotalAmount), toCents(order.DiscountApplied),
			addressJSON, order.PaymentMethod, string(order.PaymentStatus), order.Notes,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range items {
			_, err = tx.Exec(ctx,
				`INSERT INTO order_items
				 (order_id, product_id, product_name, quantity, unit_price, discount_percentage, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				order.ID, item.ProductID, item.ProductName, item.Quantity,
				toCents(item.UnitPrice), item.DiscountPercentage, toCents(item.Subtotal),
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// GetOrdersByUser возвращает заказы пользователя от новых к старым.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, order_number, status, total_amount, discount_applied,
		        delivery_address, payment_method, payment_status, notes, created_at, updated_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func scanOrder(rows pgx.Rows) (*model.Order, error) {
	var (
		o             model.Order
		status        string
		paymentStatus string
		totalCents    int64
		discountCents int64
		addressJSON   []byte
	)
	if err := rows.Scan(&o.ID, &o.UserID, &o.Number, &status, &totalCents, &discountCents,
		&addressJSON, &o.PaymentMethod, &paymentStatus, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(addressJSON, &o.DeliveryAddress); err != nil {
		return nil, fmt.Errorf("unmarshal delivery address: %w", err)
	}

	o.Status = model.OrderStatus(status)
	o.PaymentStatus = model.PaymentStatus(paymentStatus)
	o.TotalAmount = fromCents(totalCents)
	o.DiscountApplied = fromCents(discountCents)

	return &o, nil
}

// GetOrderByNumber возвращает заказ по его публичному номеру.
func (r *PostgresRepository) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, order_number, status, total_amount, discount_applied,
		        delivery_address, payment_method, payment_status, notes, created_at, updated_at
		 FROM orders
		 WHERE order_number = $1`,
		number,
	)
	if err != nil {
		return nil, fmt.Errorf("select order by number: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows error: %w", err)
		}
		return nil, ErrOrderNotFound
	}

	return scanOrder(rows)
}

// GetOrderItems возвращает позиции заказа в порядке добавления.
func (r *PostgresRepository) GetOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, product_name, quantity, unit_price, discount_percentage, subtotal
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var (
			item       model.OrderItem
			priceCents int64
			subCents   int64
		)
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity,
			&priceCents, &item.DiscountPercentage, &subCents); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.UnitPrice = fromCents(priceCents)
		item.Subtotal = fromCents(subCents)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// UpdateOrderStatus обновляет статус заказа и отметку времени изменения.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// DeleteOrphanedOrders удаляет заказы без позиций старше указанного возраста.
// Такие строки могли остаться от версий витрины, писавших заказ в два приёма.
func (r *PostgresRepository) DeleteOrphanedOrders(ctx context.Context, olderThan time.Duration) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM orders o
		 WHERE o.created_at < now() - $1::interval
		   AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)`,
		fmt.Sprintf("%d seconds", int64(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned orders: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// AddWishlistItem добавляет товар в избранное пользователя.
func (r *PostgresRepository) AddWishlistItem(ctx context.Context, userID int64, productID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wishlist (user_id, product_id) VALUES ($1, $2)`,
		userID, productID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateWishlistEntry, productID)
		}
		return fmt.Errorf("insert wishlist item: %w", err)
	}
	return nil
}

// RemoveWishlistItem удаляет товар из избранного пользователя.
func (r *PostgresRepository) RemoveWishlistItem(ctx context.Context, userID int64, productID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return nil
}

// GetWishlist возвращает идентификаторы избранных товаров пользователя
// в порядке добавления.
func (r *PostgresRepository) GetWishlist(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id FROM wishlist WHERE user_id = $1 ORDER BY added_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select wishlist: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, productID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// UpsertCartItem добавляет товар в корзину пользователя либо обновляет
// количество уже лежащего там товара.
func (r *PostgresRepository) UpsertCartItem(ctx context.Context, userID int64, item model.CartItem) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cart (user_id, product_id, product_name, quantity, unit_price)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = excluded.quantity`,
		userID, item.ProductID, item.ProductName, item.Quantity, toCents(item.UnitPrice),
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// RemoveCartItem удаляет товар из корзины пользователя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID int64, productID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// ClearCart удаляет все позиции корзины пользователя.
func (r *PostgresRepository) ClearCart(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// GetCart возвращает позиции корзины пользователя в порядке добавления.
func (r *PostgresRepository) GetCart(ctx context.Context, userID int64) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, product_name, quantity, unit_price
		 FROM cart
		 WHERE user_id = $1
		 ORDER BY added_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var (
			item       model.CartItem
			priceCents int64
		)
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &priceCents); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.UnitPrice = fromCents(priceCents)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetLatestAnnouncements возвращает последние объявления от новых к старым.
func (r *PostgresRepository) GetLatestAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, text, priority, created_at
		 FROM announcements
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select announcements: %w", err)
	}
	defer rows.Close()

	var res []model.Announcement
	for rows.Next() {
		var (
			a        model.Announcement
			priority string
		)
		if err := rows.Scan(&a.ID, &a.Text, &priority, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		a.Priority = model.AnnouncementPriority(priority)
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateAnnouncement сохраняет новое объявление оператора.
func (r *PostgresRepository) CreateAnnouncement(ctx context.Context, text string, priority model.AnnouncementPriority) (*model.Announcement, error) {
	id := uuid.NewString()

	row := r.pool.QueryRow(ctx,
		`INSERT INTO announcements (id, text, priority) VALUES ($1, $2, $3)
		 RETURNING id, text, priority, created_at`,
		id, text, string(priority),
	)

	var (
		a model.Announcement
		p string
	)
	if err := row.Scan(&a.ID, &a.Text, &p, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert announcement: %w", err)
	}
	a.Priority = model.AnnouncementPriority(p)

	return &a, nil
}

// DeleteAnnouncement удаляет объявление по идентификатору.
func (r *PostgresRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrAnnouncementNotFound
	}

	return nil
}

// Суммы хранятся в БД в копейках.
func toCents(v float64) int64 {
	if v >= 0 {
		return int64(v*100 + 0.5)
	}
	return int64(v*100 - 0.5)
}

func fromCents(v int64) float64 {
	return float64(v) / 100
}
