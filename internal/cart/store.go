package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/phuocduongts/storefront/internal/models"
)

var (
	ErrInvalidQuantity  = errors.New("cart: quantity must be at least 1")
	ErrNotAuthenticated = errors.New("cart: user is not signed in")
	ErrLineNotFound     = errors.New("cart: line item not found after add")
)

// Backend is the server-resident cart. backend.CartService implements it.
type Backend interface {
	List(ctx context.Context, userID int64) ([]models.LineItem, error)
	Add(ctx context.Context, userID, productID int64, qty int) error
	UpdateQuantity(ctx context.Context, lineID int64, qty int) (*models.LineItem, error)
	Remove(ctx context.Context, lineID int64) error
	Clear(ctx context.Context, userID int64) error
	Count(ctx context.Context, userID int64) (int, error)
}

// Store wraps the backend cart. Each call is one round trip with no client
// transaction across calls; failures are returned as is and never retried.
// Every successful mutation publishes exactly one CartChanged.
type Store struct {
	backend Backend
	bus     *Bus
}

func NewStore(backend Backend, bus *Bus) *Store {
	return &Store{backend: backend, bus: bus}
}

func (s *Store) List(ctx context.Context, userID int64) ([]models.LineItem, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	return s.backend.List(ctx, userID)
}

// Add puts qty of a product in the cart. An existing line for the product is
// incremented instead of creating a second line.
func (s *Store) Add(ctx context.Context, userID, productID int64, qty int) (models.LineItem, error) {
	if qty < 1 {
		return models.LineItem{}, ErrInvalidQuantity
	}
	if userID <= 0 {
		return models.LineItem{}, ErrNotAuthenticated
	}

	items, err := s.backend.List(ctx, userID)
	if err != nil {
		return models.LineItem{}, err
	}

	if existing, ok := findProduct(items, productID); ok {
		updated, err := s.backend.UpdateQuantity(ctx, existing.ID, existing.Quantity+qty)
		if err != nil {
			return models.LineItem{}, err
		}
		s.publish(userID)
		return *updated, nil
	}

	if err := s.backend.Add(ctx, userID, productID, qty); err != nil {
		return models.LineItem{}, err
	}
	// The line exists from here on, so the change is announced even if the
	// re-list below fails.
	s.publish(userID)

	items, err = s.backend.List(ctx, userID)
	if err != nil {
		return models.LineItem{}, err
	}
	created, ok := findProduct(items, productID)
	if !ok {
		return models.LineItem{}, fmt.Errorf("add product %d: %w", productID, ErrLineNotFound)
	}
	return created, nil
}

func (s *Store) UpdateQuantity(ctx context.Context, userID, lineID int64, qty int) (models.LineItem, error) {
	if qty < 1 {
		return models.LineItem{}, ErrInvalidQuantity
	}

	updated, err := s.backend.UpdateQuantity(ctx, lineID, qty)
	if err != nil {
		return models.LineItem{}, err
	}
	s.publish(userID)
	return *updated, nil
}

func (s *Store) Remove(ctx context.Context, userID, lineID int64) error {
	if err := s.backend.Remove(ctx, lineID); err != nil {
		return err
	}
	s.publish(userID)
	return nil
}

func (s *Store) Clear(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrNotAuthenticated
	}
	if err := s.backend.Clear(ctx, userID); err != nil {
		return err
	}
	s.publish(userID)
	return nil
}

func (s *Store) publish(userID int64) {
	if s.bus != nil {
		s.bus.Publish(CartChanged{UserID: userID})
	}
}

func findProduct(items []models.LineItem, productID int64) (models.LineItem, bool) {
	for _, it := range items {
		if it.Product.ID == productID {
			return it, true
		}
	}
	return models.LineItem{}, false
}
