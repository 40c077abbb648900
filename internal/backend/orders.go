package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/phuocduongts/storefront/internal/models"
)

type OrderService struct {
	c *Client
}

// CreateOrderRequest is the write-only order aggregate built at checkout.
type CreateOrderRequest struct {
	UserID          int64                `json:"userId"`
	ShippingAddress string               `json:"shippingAddress"`
	RecipientName   string               `json:"recipientName"`
	RecipientPhone  string               `json:"recipientPhone"`
	RecipientEmail  string               `json:"recipientEmail"`
	ShippingName    string               `json:"shippingName"`
	ShippingPhone   string               `json:"shippingPhone"`
	OrderStatus     models.OrderStatus   `json:"orderStatus"`
	PaymentStatus   models.PaymentStatus `json:"paymentStatus"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	Subtotal        int64                `json:"subtotal"`
	Shipping        int64                `json:"shipping"`
	Total           int64                `json:"total"`
	Notes           string               `json:"notes"`
	Items           []OrderItemRequest   `json:"items"`
}

type OrderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// Create posts the order. idempotencyKey travels as X-Idempotency-Key; the
// backend may ignore it. The returned id is read from data.id or id.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (int64, error) {
	var raw struct {
		ID   json.Number `json:"id"`
		Data *struct {
			ID json.Number `json:"id"`
		} `json:"data"`
	}

	call := Request{Method: http.MethodPost, Path: "orders", Body: req}
	if idempotencyKey != "" {
		call.Header = http.Header{"X-Idempotency-Key": {idempotencyKey}}
	}
	if err := s.c.Do(ctx, call, &raw); err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}

	id := raw.ID
	if raw.Data != nil && raw.Data.ID != "" {
		id = raw.Data.ID
	}
	n, err := id.Int64()
	if err != nil || n == 0 {
		return 0, fmt.Errorf("create order: %w", &APIError{Status: http.StatusOK, Message: "response carried no order id"})
	}
	return n, nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	if err := s.c.get(ctx, fmt.Sprintf("orders/%d", id), nil, &o); err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &o, nil
}

func (s *OrderService) ByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var items []models.Order
	if err := s.c.get(ctx, fmt.Sprintf("orders/user/%d", userID), nil, &items); err != nil {
		return nil, fmt.Errorf("list orders of user %d: %w", userID, err)
	}
	return items, nil
}

func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	var items []models.Order
	if err := s.c.get(ctx, "orders", nil, &items); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return items, nil
}

func (s *OrderService) Search(ctx context.Context, term string) ([]models.Order, error) {
	var items []models.Order
	if err := s.c.get(ctx, "orders/search", url.Values{"term": {term}}, &items); err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return items, nil
}

// UpdateStatus sends the requested target state. Transition legality is the
// backend's business.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	q := url.Values{"status": {string(status)}}
	if err := s.c.put(ctx, fmt.Sprintf("orders/%d/status", id), q, nil, nil); err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	return nil
}

func (s *OrderService) UpdatePayment(ctx context.Context, id int64, status models.PaymentStatus) error {
	q := url.Values{"status": {string(status)}}
	if err := s.c.put(ctx, fmt.Sprintf("orders/%d/payment", id), q, nil, nil); err != nil {
		return fmt.Errorf("update order %d payment: %w", id, err)
	}
	return nil
}

func (s *OrderService) UpdateTracking(ctx context.Context, id int64, trackingNumber string) error {
	q := url.Values{"trackingNumber": {trackingNumber}}
	if err := s.c.put(ctx, fmt.Sprintf("orders/%d/tracking", id), q, nil, nil); err != nil {
		return fmt.Errorf("update order %d tracking: %w", id, err)
	}
	return nil
}

func (s *OrderService) Cancel(ctx context.Context, id int64) error {
	if err := s.c.put(ctx, fmt.Sprintf("orders/%d/cancel", id), nil, nil, nil); err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}
	return nil
}

// MoveToTrash soft-deletes the order.
func (s *OrderService) MoveToTrash(ctx context.Context, id int64) error {
	if err := s.c.delete(ctx, fmt.Sprintf("orders/%d", id), nil); err != nil {
		return fmt.Errorf("trash order %d: %w", id, err)
	}
	return nil
}

func (s *OrderService) Restore(ctx context.Context, id int64) error {
	if err := s.c.put(ctx, fmt.Sprintf("orders/%d/restore", id), nil, nil, nil); err != nil {
		return fmt.Errorf("restore order %d: %w", id, err)
	}
	return nil
}

func (s *OrderService) Recent(ctx context.Context, limit int) ([]models.Order, error) {
	var items []models.Order
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := s.c.get(ctx, "orders/recent", q, &items); err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	return items, nil
}

func (s *OrderService) Stats(ctx context.Context) (models.OrderStats, error) {
	stats := models.OrderStats{}
	if err := s.c.get(ctx, "orders/status", nil, &stats); err != nil {
		return nil, fmt.Errorf("get order stats: %w", err)
	}
	return stats, nil
}

type OrderDetailService struct {
	c *Client
}

func (s *OrderDetailService) ByOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := s.c.get(ctx, fmt.Sprintf("order-details/order/%d", orderID), nil, &items); err != nil {
		return nil, fmt.Errorf("list items of order %d: %w", orderID, err)
	}
	return items, nil
}

func (s *OrderDetailService) Get(ctx context.Context, id int64) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := s.c.get(ctx, fmt.Sprintf("order-details/%d", id), nil, &item); err != nil {
		return nil, fmt.Errorf("get order item %d: %w", id, err)
	}
	return &item, nil
}

func (s *OrderDetailService) BestSelling(ctx context.Context, limit int) ([]models.BestSeller, error) {
	var items []models.BestSeller
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := s.c.get(ctx, "order-details/best-selling", q, &items); err != nil {
		return nil, fmt.Errorf("list best sellers: %w", err)
	}
	return items, nil
}
