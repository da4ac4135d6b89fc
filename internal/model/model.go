// Package model содержит доменные сущности витрины аптеки.
package model

import "time"

// User представляет зарегистрированного покупателя.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session описывает активную сессию покупателя.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValidOrderStatus проверяет, что строка является известным статусом заказа.
func IsValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// DeliveryAddress — адрес доставки, встроенное значение заказа.
// Отдельного жизненного цикла не имеет, хранится внутри строки заказа.
type DeliveryAddress struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// Order описывает заказ покупателя.
type Order struct {
	ID              string
	UserID          int64
	Number          string
	Status          OrderStatus
	TotalAmount     float64
	DiscountApplied float64
	DeliveryAddress DeliveryAddress
	PaymentMethod   string
	PaymentStatus   PaymentStatus
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem описывает позицию заказа.
type OrderItem struct {
	ProductID          string
	ProductName        string
	Quantity           int32
	UnitPrice          float64
	DiscountPercentage float64
	Subtotal           float64
}

// CartItem описывает позицию корзины покупателя. Название и цена
// фиксируются при добавлении, как и в позициях заказа.
type CartItem struct {
	ProductID   string
	ProductName string
	Quantity    int32
	UnitPrice   float64
}

// AnnouncementPriority описывает приоритет объявления в бегущей строке.
type AnnouncementPriority string

const (
	AnnouncementPriorityNormal AnnouncementPriority = "normal"
	AnnouncementPriorityHigh   AnnouncementPriority = "high"
)

// Announcement — короткое промо-объявление, публикуемое оператором.
// Со стороны витрины объявления доступны только на чтение.
type Announcement struct {
	ID        string
	Text      string
	Priority  AnnouncementPriority
	CreatedAt time.Time
}
