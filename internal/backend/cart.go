package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/phuocduongts/storefront/internal/models"
)

type CartService struct {
	c *Client
}

func (s *CartService) List(ctx context.Context, userID int64) ([]models.LineItem, error) {
	var items []models.LineItem
	if err := s.c.get(ctx, fmt.Sprintf("cart/user/%d", userID), nil, &items); err != nil {
		return nil, fmt.Errorf("list cart of user %d: %w", userID, err)
	}
	return items, nil
}

// Add posts a new line. The backend answers with a bare message, not the line.
func (s *CartService) Add(ctx context.Context, userID, productID int64, qty int) error {
	body := map[string]any{"userId": userID, "productId": productID, "quantity": qty}
	if err := s.c.post(ctx, "cart/add", body, nil); err != nil {
		return fmt.Errorf("add product %d to cart: %w", productID, err)
	}
	return nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, lineID int64, qty int) (*models.LineItem, error) {
	var item models.LineItem
	q := url.Values{"quantity": {strconv.Itoa(qty)}}
	if err := s.c.put(ctx, fmt.Sprintf("cart/update/%d", lineID), q, nil, &item); err != nil {
		return nil, fmt.Errorf("update cart line %d: %w", lineID, err)
	}
	return &item, nil
}

func (s *CartService) Remove(ctx context.Context, lineID int64) error {
	if err := s.c.delete(ctx, fmt.Sprintf("cart/delete/%d", lineID), nil); err != nil {
		return fmt.Errorf("remove cart line %d: %w", lineID, err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID int64) error {
	if err := s.c.delete(ctx, fmt.Sprintf("cart/clear/%d", userID), nil); err != nil {
		return fmt.Errorf("clear cart of user %d: %w", userID, err)
	}
	return nil
}

// Count returns the total quantity in the user's cart. The backend has
// answered with a bare number, {"count": n} and the item array over time.
func (s *CartService) Count(ctx context.Context, userID int64) (int, error) {
	var raw json.RawMessage
	if err := s.c.get(ctx, fmt.Sprintf("cart/count/%d", userID), nil, &raw); err != nil {
		return 0, fmt.Errorf("count cart of user %d: %w", userID, err)
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Count != nil {
		return *obj.Count, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return len(items), nil
	}
	return 0, fmt.Errorf("count cart of user %d: unexpected payload %s", userID, raw)
}
