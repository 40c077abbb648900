package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Ward      string `json:"ward,omitempty"`
	District  string `json:"district,omitempty"`
	Province  string `json:"province,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Image     string `json:"image,omitempty"`
	Role      string `json:"role,omitempty"`
	Status    Flag   `json:"status"`
	Trash     Flag   `json:"trash"`
	CreatedAt Time   `json:"createdAt"`
	UpdatedAt Time   `json:"updatedAt"`
}

const RoleAdmin = "ADMIN"

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == "ROLE_ADMIN"
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parentId,omitempty"`
	Status      Flag   `json:"status"`
	Trash       Flag   `json:"trash"`
	CreatedAt   Time   `json:"createdAt"`
	UpdatedAt   Time   `json:"updatedAt"`
}

type Product struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Image         string              `json:"image,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	PriceSale     decimal.NullDecimal `json:"priceSale"`
	DiscountPrice decimal.NullDecimal `json:"discountPrice"`
	Quantity      int                 `json:"quantity"`
	OnSale        Flag                `json:"isOnSale"`
	View          int                 `json:"view"`
	Status        Flag                `json:"status"`
	Trash         Flag                `json:"trash"`
	Category      *Category           `json:"category,omitempty"`
	CreatedAt     Time                `json:"createdAt"`
	UpdatedAt     Time                `json:"updatedAt"`
}

// LineItem is one row of a user's cart.
type LineItem struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

var PaymentStatuses = []PaymentStatus{
	PaymentStatusUnpaid,
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
)

var PaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodBankTransfer,
	PaymentMethodCreditCard,
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	Username        string          `json:"username,omitempty"`
	OrderDate       Time            `json:"orderDate"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingName    string          `json:"shippingName"`
	ShippingPhone   string          `json:"shippingPhone"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	OrderDetails    []OrderItem     `json:"orderDetails,omitempty"`
	CreatedAt       Time            `json:"createdAt"`
	UpdatedAt       Time            `json:"updatedAt"`
}

type OrderItem struct {
	ID             int64               `json:"id"`
	OrderID        int64               `json:"orderId"`
	ProductID      int64               `json:"productId"`
	ProductName    string              `json:"productName"`
	ProductImage   string              `json:"productImage,omitempty"`
	Quantity       int                 `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"unitPrice"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.NullDecimal `json:"discountAmount"`
	FinalPrice     decimal.NullDecimal `json:"finalPrice"`
	CreatedAt      Time                `json:"createdAt"`
}

// BestSeller is one row of the best-selling products report.
type BestSeller struct {
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage,omitempty"`
	Price        decimal.Decimal `json:"price"`
	TotalSold    int64           `json:"totalSold"`
}

// OrderStats maps an order status to the number of orders in it.
type OrderStats map[string]int64

type Banner struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Link      string `json:"link,omitempty"`
	Image     string `json:"image,omitempty"`
	Status    Flag   `json:"status"`
	Trash     Flag   `json:"trash"`
	CreatedAt Time   `json:"createdAt"`
	UpdatedAt Time   `json:"updatedAt"`
}

type Topic struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      Flag   `json:"status"`
	Trash       Flag   `json:"trash"`
	CreatedAt   Time   `json:"createdAt"`
	UpdatedAt   Time   `json:"updatedAt"`
}

type Post struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Image     string `json:"image,omitempty"`
	TopicID   int64  `json:"topicId,omitempty"`
	Topic     *Topic `json:"topic,omitempty"`
	Status    Flag   `json:"status"`
	Trash     Flag   `json:"trash"`
	CreatedAt Time   `json:"createdAt"`
	UpdatedAt Time   `json:"updatedAt"`
}

type Contact struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Message   string `json:"message"`
	Read      Flag   `json:"status"`
	Trash     Flag   `json:"trash"`
	CreatedAt Time   `json:"createdAt"`
	UpdatedAt Time   `json:"updatedAt"`
}

// Session is a server-side session row. Data holds the encoded identity.
type Session struct {
	ID        string    `json:"id"`
	Data      []byte    `json:"-"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Visible reports whether the record should appear on the storefront.
func (c Category) Visible() bool { return bool(c.Status) && !bool(c.Trash) }
func (p Product) Visible() bool  { return bool(p.Status) && !bool(p.Trash) }
func (b Banner) Visible() bool   { return bool(b.Status) && !bool(b.Trash) }
func (t Topic) Visible() bool    { return bool(t.Status) && !bool(t.Trash) }
func (p Post) Visible() bool     { return bool(p.Status) && !bool(p.Trash) }
