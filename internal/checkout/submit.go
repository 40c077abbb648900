// Package checkout turns the selected cart lines and the shipping form into
// one backend order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/metrics"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/pricing"
	"github.com/phuocduongts/storefront/internal/session"
)

var (
	ErrEmptySelection   = errors.New("checkout: no cart items selected")
	ErrNotAuthenticated = errors.New("checkout: user is not signed in")
)

// Orders creates orders on the backend. backend.OrderService implements it.
type Orders interface {
	Create(ctx context.Context, req backend.CreateOrderRequest, idempotencyKey string) (int64, error)
}

// CartClearer empties a user's cart. cart.Store implements it.
type CartClearer interface {
	Clear(ctx context.Context, userID int64) error
}

// Confirmation is what the confirmation screen needs right after checkout:
// the order summary and the items as they were priced at submission.
type Confirmation struct {
	Order  models.Order       `json:"order"`
	Items  []models.OrderItem `json:"items"`
	Totals pricing.Totals     `json:"totals"`
}

func (c *Confirmation) OrderID() int64 {
	if c == nil {
		return 0
	}
	return c.Order.ID
}

type Submitter struct {
	orders Orders
	cart   CartClearer
	calc   pricing.Calculator
	now    func() time.Time
	newKey func() string
}

func NewSubmitter(orders Orders, cart CartClearer, policy pricing.Policy) *Submitter {
	return &Submitter{
		orders: orders,
		cart:   cart,
		calc:   pricing.Calculator{Policy: policy},
		now:    time.Now,
		newKey: uuid.NewString,
	}
}

// Submit validates the form, posts the order for the selected items and
// clears the cart. Nothing is sent when the form is invalid or the selection
// is empty. A failed cart clear is logged only; the order already exists.
func (s *Submitter) Submit(ctx context.Context, id *session.Identity, items []models.LineItem, selected pricing.Selected, form ShippingForm) (*Confirmation, error) {
	if err := form.Validate(); err != nil {
		metrics.OrdersSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if id.UserID() <= 0 {
		return nil, ErrNotAuthenticated
	}

	chosen := selectedItems(items, selected)
	if len(chosen) == 0 {
		metrics.OrdersSubmitted.WithLabelValues("invalid").Inc()
		return nil, ErrEmptySelection
	}

	totals := s.calc.Compute(items, selected)
	req := buildRequest(id.UserID(), form, chosen, totals)

	orderID, err := s.orders.Create(ctx, req, s.newKey())
	if err != nil {
		metrics.OrdersSubmitted.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("submit order: %w", err)
	}
	metrics.OrdersSubmitted.WithLabelValues("created").Inc()

	log := logging.FromCtx(ctx)
	log.Info("order created", "order_id", orderID, "user_id", id.UserID(), "items", len(chosen), "total", int64(totals.Total))

	if err := s.cart.Clear(ctx, id.UserID()); err != nil {
		log.Warn("clear cart after order failed", "order_id", orderID, "error", err)
	}

	return s.confirmation(orderID, req, chosen, totals), nil
}

func selectedItems(items []models.LineItem, selected pricing.Selected) []models.LineItem {
	if selected == nil {
		return nil
	}
	out := make([]models.LineItem, 0, len(items))
	for _, it := range items {
		if selected.Contains(it.ID) {
			out = append(out, it)
		}
	}
	return out
}

func buildRequest(userID int64, form ShippingForm, items []models.LineItem, totals pricing.Totals) backend.CreateOrderRequest {
	lines := make([]backend.OrderItemRequest, 0, len(items))
	for _, it := range items {
		lines = append(lines, backend.OrderItemRequest{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
			Price:     int64(pricing.EffectivePrice(it.Product)),
		})
	}

	return backend.CreateOrderRequest{
		UserID:          userID,
		ShippingAddress: form.ShippingAddress(),
		RecipientName:   form.FullName,
		RecipientPhone:  form.Phone,
		RecipientEmail:  form.Email,
		ShippingName:    form.FullName,
		ShippingPhone:   form.Phone,
		OrderStatus:     models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusUnpaid,
		PaymentMethod:   models.PaymentMethod(form.PaymentMethod),
		Subtotal:        int64(totals.Subtotal),
		Shipping:        int64(totals.Shipping),
		Total:           int64(totals.Total),
		Notes:           form.Notes,
		Items:           lines,
	}
}

func (s *Submitter) confirmation(orderID int64, req backend.CreateOrderRequest, items []models.LineItem, totals pricing.Totals) *Confirmation {
	snapshot := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		price := pricing.EffectivePrice(it.Product)
		snapshot = append(snapshot, models.OrderItem{
			OrderID:      orderID,
			ProductID:    it.Product.ID,
			ProductName:  it.Product.Name,
			ProductImage: it.Product.Image,
			Quantity:     it.Quantity,
			UnitPrice:    decimal.NewFromInt(int64(price)),
			Subtotal:     decimal.NewFromInt(int64(price) * int64(it.Quantity)),
		})
	}

	return &Confirmation{
		Order: models.Order{
			ID:              orderID,
			UserID:          req.UserID,
			OrderDate:       models.Time{Time: s.now()},
			TotalAmount:     decimal.NewFromInt(req.Total),
			ShippingName:    req.ShippingName,
			ShippingPhone:   req.ShippingPhone,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   req.PaymentStatus,
			OrderStatus:     req.OrderStatus,
			Notes:           req.Notes,
		},
		Items:  snapshot,
		Totals: totals,
	}
}
