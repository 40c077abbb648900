package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/phuocduongts/storefront/internal/models"
)

type ProductService struct {
	*Resource[models.Product]
	c *Client
}

// ProductPage is the paged answer of search and category listings.
type ProductPage struct {
	Products    []models.Product `json:"products"`
	Total       int64            `json:"total"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

type ProductQuery struct {
	Q        string
	Category int64
	MinPrice int64
	MaxPrice int64
	OnSale   bool
	Page     int
	Limit    int
	Sort     string
	Order    string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Category > 0 {
		v.Set("category", strconv.FormatInt(q.Category, 10))
	}
	if q.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatInt(q.MinPrice, 10))
	}
	if q.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatInt(q.MaxPrice, 10))
	}
	if q.OnSale {
		v.Set("onSale", "true")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
		v.Set("order", q.Order)
	}
	return v
}

func (s *ProductService) OnSale(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := s.c.get(ctx, "products/on-sale", nil, &items); err != nil {
		return nil, fmt.Errorf("list on-sale products: %w", err)
	}
	return items, nil
}

func (s *ProductService) MostViewed(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := s.c.get(ctx, "products/most-viewed", nil, &items); err != nil {
		return nil, fmt.Errorf("list most viewed products: %w", err)
	}
	return items, nil
}

func (s *ProductService) ByCategory(ctx context.Context, categoryID int64, q ProductQuery) (*ProductPage, error) {
	var page ProductPage
	path := fmt.Sprintf("products/category/%d", categoryID)
	if err := s.c.get(ctx, path, q.values(), &page); err != nil {
		return nil, fmt.Errorf("list products of category %d: %w", categoryID, err)
	}
	return &page, nil
}

func (s *ProductService) Search(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	var page ProductPage
	if err := s.c.get(ctx, "products/search", q.values(), &page); err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return &page, nil
}
