// Package orderview loads an order for the confirmation and order detail
// screens.
package orderview

import (
	"context"
	"errors"
	"sync"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/checkout"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/metrics"
	"github.com/phuocduongts/storefront/internal/models"
)

type State int

const (
	Loading State = iota
	Ready
	Error
	NotFound
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type Orders interface {
	Get(ctx context.Context, id int64) (*models.Order, error)
}

type OrderItems interface {
	ByOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

type Products interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
}

// View is one order as rendered. Items always hold what the order carried;
// Product adds fuller detail where enrichment succeeded.
type View struct {
	State   State
	Order   *models.Order
	Items   []models.OrderItem
	Err     error
	Carried bool

	source   Products
	mu       sync.RWMutex
	products map[int64]models.Product
}

// Message is the user-facing text for the Error state.
func (v *View) Message() string {
	return backend.Message(v.Err)
}

// Product returns the enriched product for an item, if its lookup succeeded.
func (v *View) Product(id int64) (models.Product, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.products[id]
	return p, ok
}

// Enrich looks up every distinct product of the order in parallel. A failed
// lookup leaves its item on the carried snapshot and never stops the others.
// Results that arrive after ctx is done are dropped. It returns the number of
// products enriched.
func (v *View) Enrich(ctx context.Context) int {
	if v.State != Ready || v.source == nil {
		return 0
	}
	log := logging.FromCtx(ctx)

	var wg sync.WaitGroup
	for _, id := range v.productIDs() {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()

			p, err := v.source.Get(ctx, id)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				metrics.EnrichFailures.Inc()
				log.Warn("enrich order item failed", "order_id", v.Order.ID, "product_id", id, "error", err)
				return
			}

			v.mu.Lock()
			v.products[id] = *p
			v.mu.Unlock()
		}(id)
	}
	wg.Wait()

	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.products)
}

func (v *View) productIDs() []int64 {
	seen := make(map[int64]bool, len(v.Items))
	ids := make([]int64, 0, len(v.Items))
	for _, it := range v.Items {
		if it.ProductID <= 0 || seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		ids = append(ids, it.ProductID)
	}
	return ids
}

type Loader struct {
	orders   Orders
	items    OrderItems
	products Products
}

func NewLoader(orders Orders, items OrderItems, products Products) *Loader {
	return &Loader{orders: orders, items: items, products: products}
}

// Load resolves the view once, with no retry. A carried confirmation for the
// same order is used as is and makes no backend call. Otherwise the order is
// fetched and then its items.
func (l *Loader) Load(ctx context.Context, orderID int64, carried *checkout.Confirmation) *View {
	v := &View{
		State:    Loading,
		source:   l.products,
		products: make(map[int64]models.Product),
	}

	if carried != nil && carried.OrderID() == orderID {
		order := carried.Order
		v.Order = &order
		v.Items = carried.Items
		v.Carried = true
		v.State = Ready
		return v
	}

	order, err := l.orders.Get(ctx, orderID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		v.State = NotFound
		return v
	case err != nil:
		v.State, v.Err = Error, err
		return v
	case order == nil || order.ID == 0:
		v.State = NotFound
		return v
	}
	v.Order = order

	items, err := l.items.ByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		v.State, v.Err = Error, err
		return v
	}
	if len(items) == 0 {
		items = order.OrderDetails
	}
	v.Items = items
	v.State = Ready
	return v
}
