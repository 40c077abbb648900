package backend

import "github.com/phuocduongts/storefront/internal/models"

// Services groups one typed client per backend resource.
type Services struct {
	Auth         *AuthService
	Products     *ProductService
	Categories   *Resource[models.Category]
	Banners      *Resource[models.Banner]
	Topics       *Resource[models.Topic]
	Posts        *PostService
	Contacts     *ContactService
	Users        *UserService
	Cart         *CartService
	Orders       *OrderService
	OrderDetails *OrderDetailService
}

func NewServices(c *Client) *Services {
	return &Services{
		Auth:         &AuthService{c: c},
		Products:     &ProductService{Resource: newResource[models.Product](c, "products", "%s/%d", true), c: c},
		Categories:   newResource[models.Category](c, "categories", "%s/%d", false),
		Banners:      newResource[models.Banner](c, "banners", "%s/delete/%d", true),
		Topics:       newResource[models.Topic](c, "topics", "%s/delete/%d", false),
		Posts:        &PostService{Resource: newResource[models.Post](c, "posts", "%s/delete/%d", true), c: c},
		Contacts:     &ContactService{c: c},
		Users:        &UserService{Resource: newResource[models.User](c, "users", "%s/%d/permanent", false), c: c},
		Cart:         &CartService{c: c},
		Orders:       &OrderService{c: c},
		OrderDetails: &OrderDetailService{c: c},
	}
}
