// Package cache реализует локальный persistent-кэш витрины поверх SQLite.
// Кэш переживает перезапуск процесса и отдаёт данные до первого похода в БД.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mmeshcher/pharmacy-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ключи, под которыми хранятся сериализованные списки витрины.
const (
	wishlistKey = "wishlist"
	cartKey     = "shopping-cart"
)

// Cache хранит значения в таблице ключ-значение файла SQLite.
type Cache struct {
	db *sql.DB
}

// Open открывает (или создаёт) файл кэша и приводит его схему к актуальной.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run cache migrations: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close закрывает файл кэша.
func (c *Cache) Close() error {
	return c.db.Close()
}

// LoadWishlist возвращает сохранённый список идентификаторов товаров.
// Отсутствие записи — нормальный результат с пустым списком.
func (c *Cache) LoadWishlist(ctx context.Context) ([]string, error) {
	var items []string
	if err := c.load(ctx, wishlistKey, &items); err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	return items, nil
}

// SaveWishlist атомарно заменяет сохранённый список идентификаторов товаров.
func (c *Cache) SaveWishlist(ctx context.Context, items []string) error {
	if items == nil {
		items = []string{}
	}
	if err := c.save(ctx, wishlistKey, items); err != nil {
		return fmt.Errorf("save wishlist: %w", err)
	}
	return nil
}

// LoadCart возвращает сохранённые позиции корзины.
// Отсутствие записи — нормальный результат с пустой корзиной.
func (c *Cache) LoadCart(ctx context.Context) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := c.load(ctx, cartKey, &items); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return items, nil
}

// SaveCart атомарно заменяет сохранённые позиции корзины.
func (c *Cache) SaveCart(ctx context.Context, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	if err := c.save(ctx, cartKey, items); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) error {
	row := c.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}

	return nil
}

func (c *Cache) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw),
	)
	return err
}
