// Package web serves the storefront and the back office as server-rendered
// pages over the backend API.
package web

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/cart"
	"github.com/phuocduongts/storefront/internal/checkout"
	"github.com/phuocduongts/storefront/internal/metrics"
	"github.com/phuocduongts/storefront/internal/orderview"
	"github.com/phuocduongts/storefront/internal/pricing"
	"github.com/phuocduongts/storefront/internal/session"
)

type Deps struct {
	API       *backend.Services
	Sessions  session.Store
	Jar       sessions.Store
	Cart      *cart.Store
	Counter   *cart.Counter
	Checkout  *checkout.Submitter
	Handoff   *checkout.Handoff
	Orders    *orderview.Loader
	Pricing   pricing.Calculator
	Templates *TemplateCache
	// EnrichTimeout bounds how long a page waits for product enrichment.
	EnrichTimeout time.Duration
}

type Server struct {
	api           *backend.Services
	sessions      session.Store
	jar           sessions.Store
	cart          *cart.Store
	counter       *cart.Counter
	checkout      *checkout.Submitter
	handoff       *checkout.Handoff
	orders        *orderview.Loader
	pricing       pricing.Calculator
	templates     *TemplateCache
	enrichTimeout time.Duration
	now           func() time.Time
}

func NewServer(d Deps) *Server {
	if d.EnrichTimeout <= 0 {
		d.EnrichTimeout = 3 * time.Second
	}
	return &Server{
		api:           d.API,
		sessions:      d.Sessions,
		jar:           d.Jar,
		cart:          d.Cart,
		counter:       d.Counter,
		checkout:      d.Checkout,
		handoff:       d.Handoff,
		orders:        d.Orders,
		pricing:       d.Pricing,
		templates:     d.Templates,
		enrichTimeout: d.EnrichTimeout,
		now:           time.Now,
	}
}

// Routes builds the full handler. extra wraps the mux inside the identity
// loader; main passes the CSRF middleware there.
func (s *Server) Routes(extra ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, withRoute(pattern, h))
	}

	handle("GET /metrics", metrics.Handler().ServeHTTP)

	// storefront
	handle("GET /{$}", s.Home)
	handle("GET /products", s.Products)
	handle("GET /products/{id}", s.ProductDetail)
	handle("GET /categories/{id}", s.Category)
	handle("GET /posts", s.Posts)
	handle("GET /posts/{id}", s.PostDetail)
	handle("GET /topics/{id}", s.Topic)
	handle("GET /contact", s.ContactForm)
	handle("POST /contact", s.SubmitContact)

	// account
	handle("GET /login", s.LoginForm)
	handle("POST /login", s.Login)
	handle("POST /logout", s.Logout)
	handle("GET /register", s.RegisterForm)
	handle("POST /register", s.Register)
	handle("GET /forgot-password", s.ForgotPasswordForm)
	handle("POST /forgot-password", s.ForgotPassword)
	handle("GET /reset-password", s.ResetPasswordForm)
	handle("POST /reset-password", s.ResetPassword)
	handle("GET /account", s.RequireUser(s.Account))
	handle("POST /account", s.RequireUser(s.UpdateAccount))
	handle("GET /account/password", s.RequireUser(s.PasswordForm))
	handle("POST /account/password", s.RequireUser(s.ChangePassword))
	handle("GET /account/orders", s.RequireUser(s.MyOrders))
	handle("GET /account/orders/{id}", s.RequireUser(s.MyOrder))
	handle("POST /account/orders/{id}/cancel", s.RequireUser(s.CancelMyOrder))

	// cart and checkout
	handle("GET /cart", s.RequireUser(s.CartPage))
	handle("GET /cart/count", s.CartCount)
	handle("POST /cart/add", s.RequireUser(s.AddToCart))
	handle("POST /cart/items/{id}", s.RequireUser(s.UpdateCartItem))
	handle("POST /cart/items/{id}/remove", s.RequireUser(s.RemoveCartItem))
	handle("POST /cart/items/{id}/select", s.RequireUser(s.ToggleCartItem))
	handle("POST /cart/select-all", s.RequireUser(s.SelectAllCartItems))
	handle("POST /cart/clear", s.RequireUser(s.ClearCart))
	handle("GET /checkout", s.RequireUser(s.CheckoutForm))
	handle("POST /checkout", s.RequireUser(s.SubmitCheckout))
	handle("GET /orders/{id}/success", s.RequireUser(s.OrderSuccess))

	// back office
	handle("GET /admin/login", s.AdminLoginForm)
	handle("POST /admin/login", s.AdminLogin)
	handle("POST /admin/logout", s.AdminLogout)
	handle("GET /admin", s.RequireAdmin(s.Dashboard))
	for _, res := range s.adminResources() {
		res.register(handle, s.RequireAdmin)
	}
	handle("GET /admin/orders", s.RequireAdmin(s.AdminOrders))
	handle("GET /admin/orders/{id}", s.RequireAdmin(s.AdminOrder))
	handle("POST /admin/orders/{id}/status", s.RequireAdmin(s.AdminOrderStatus))
	handle("POST /admin/orders/{id}/payment", s.RequireAdmin(s.AdminOrderPayment))
	handle("POST /admin/orders/{id}/tracking", s.RequireAdmin(s.AdminOrderTracking))
	handle("POST /admin/orders/{id}/cancel", s.RequireAdmin(s.AdminOrderCancel))
	handle("POST /admin/orders/{id}/trash", s.RequireAdmin(s.AdminOrderTrash))
	handle("POST /admin/orders/{id}/restore", s.RequireAdmin(s.AdminOrderRestore))
	handle("GET /admin/contacts", s.RequireAdmin(s.AdminContacts))
	handle("GET /admin/contacts/{id}", s.RequireAdmin(s.AdminContact))
	handle("POST /admin/contacts/{id}/trash", s.RequireAdmin(s.AdminContactTrash))
	handle("POST /admin/contacts/{id}/restore", s.RequireAdmin(s.AdminContactRestore))
	handle("POST /admin/contacts/{id}/delete", s.RequireAdmin(s.AdminContactDelete))

	handle("/", s.notFound)

	var h http.Handler = mux
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	h = s.identityMiddleware(h)
	return LoggingMiddleware(SecurityHeadersMiddleware(RecoverMiddleware(h)))
}
