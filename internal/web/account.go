package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/checkout"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/orderview"
	"github.com/phuocduongts/storefront/internal/session"
)

func (s *Server) LoginForm(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	form := LoginForm{Next: r.URL.Query().Get("next")}
	s.render(w, r, http.StatusOK, "login.html", "Sign in", formView[LoginForm]{Form: form})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if errs := parseForm(r, &form); errs != nil {
		form.Password = ""
		s.render(w, r, http.StatusUnprocessableEntity, "login.html", "Sign in", formView[LoginForm]{Form: form, Errors: errs})
		return
	}

	res, err := s.api.Auth.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		form.Password = ""
		msg := backend.Message(err)
		if errorIsAuth(err) {
			msg = "Invalid username or password."
		}
		s.render(w, r, http.StatusUnauthorized, "login.html", "Sign in", formView[LoginForm]{Form: form, Error: msg})
		return
	}

	if !s.signIn(w, r, &session.Identity{Token: res.Token, User: res.User}) {
		return
	}
	s.flash(w, r, "success", "Welcome back, "+res.User.DisplayName()+"!")
	http.Redirect(w, r, safeNext(form.Next, "/"), http.StatusSeeOther)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, id *session.Identity) bool {
	if err := s.sessions.Save(w, r, id); err != nil {
		logging.FromCtx(r.Context()).Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return false
	}
	logging.FromCtx(r.Context()).Info("signed in", "user_id", id.UserID(), "admin", id.IsAdmin())
	return true
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	s.dropIdentity(w, r)
	s.flash(w, r, "success", "You have been signed out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) RegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", "Register", formView[RegisterForm]{})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var form RegisterForm
	errs := parseForm(r, &form)
	reject := func(status int, errs map[string]string, msg string) {
		form.Password, form.ConfirmPassword = "", ""
		s.render(w, r, status, "register.html", "Register", formView[RegisterForm]{Form: form, Errors: errs, Error: msg})
	}
	if errs != nil {
		reject(http.StatusUnprocessableEntity, errs, "")
		return
	}

	res, err := s.api.Auth.Register(r.Context(), backend.RegisterRequest{
		Username:  form.Username,
		Password:  form.Password,
		Email:     form.Email,
		FullName:  form.FullName,
		BirthDate: form.BirthDate,
		Gender:    form.Gender,
		Role:      "user",
		Status:    1,
	})
	if err != nil {
		reject(http.StatusBadGateway, nil, backend.Message(err))
		return
	}

	if res.Token != "" {
		if !s.signIn(w, r, &session.Identity{Token: res.Token, User: res.User}) {
			return
		}
		s.flash(w, r, "success", "Your account has been created.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.flash(w, r, "success", "Your account has been created. Please sign in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) ForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "forgot_password.html", "Forgot password", formView[ForgotPasswordForm]{})
}

func (s *Server) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var form ForgotPasswordForm
	if errs := parseForm(r, &form); errs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "forgot_password.html", "Forgot password", formView[ForgotPasswordForm]{Form: form, Errors: errs})
		return
	}

	if err := s.api.Auth.ForgotPassword(r.Context(), form.Email); err != nil {
		s.render(w, r, http.StatusBadGateway, "forgot_password.html", "Forgot password", formView[ForgotPasswordForm]{Form: form, Error: backend.Message(err)})
		return
	}

	s.flash(w, r, "success", "A verification code has been sent to your email.")
	http.Redirect(w, r, "/reset-password?email="+url.QueryEscape(form.Email), http.StatusSeeOther)
}

func (s *Server) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	form := ResetPasswordForm{Email: r.URL.Query().Get("email")}
	s.render(w, r, http.StatusOK, "reset_password.html", "Reset password", formView[ResetPasswordForm]{Form: form})
}

func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var form ResetPasswordForm
	errs := parseForm(r, &form)
	reject := func(status int, errs map[string]string, msg string) {
		form.NewPassword, form.ConfirmPassword = "", ""
		s.render(w, r, status, "reset_password.html", "Reset password", formView[ResetPasswordForm]{Form: form, Errors: errs, Error: msg})
	}
	if errs != nil {
		reject(http.StatusUnprocessableEntity, errs, "")
		return
	}

	err := s.api.Auth.ResetPassword(r.Context(), backend.ResetPasswordRequest{
		Email:            form.Email,
		VerificationCode: form.VerificationCode,
		NewPassword:      form.NewPassword,
	})
	if err != nil {
		reject(http.StatusBadGateway, nil, backend.Message(err))
		return
	}

	s.flash(w, r, "success", "Your password has been reset. Please sign in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func accountFormFor(u models.User) AccountForm {
	return AccountForm{
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Address:  u.Address,
		Ward:     u.Ward,
		District: u.District,
		Province: u.Province,
		Gender:   u.Gender,
	}
}

// Account shows the profile as the backend has it now, not the copy stored
// at sign-in.
func (s *Server) Account(w http.ResponseWriter, r *http.Request) {
	u, err := s.api.Auth.Me(r.Context())
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.render(w, r, http.StatusOK, "account.html", "My account", formView[AccountForm]{Form: accountFormFor(*u), Extra: u})
}

func (s *Server) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := session.FromContext(ctx)

	var form AccountForm
	if errs := parseForm(r, &form); errs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "account.html", "My account", formView[AccountForm]{Form: form, Errors: errs, Extra: &id.User})
		return
	}

	u := id.User
	u.FullName, u.Email, u.Phone = form.FullName, form.Email, form.Phone
	u.Address, u.Ward, u.District, u.Province = form.Address, form.Ward, form.District, form.Province
	u.Gender = form.Gender

	updated, err := s.api.Auth.Update(ctx, u)
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/account")
			return
		}
		s.render(w, r, http.StatusBadGateway, "account.html", "My account", formView[AccountForm]{Form: form, Error: backend.Message(err), Extra: &id.User})
		return
	}
	if updated.ID == 0 {
		updated = &u
	}

	if !s.signIn(w, r, &session.Identity{Token: id.Token, User: *updated}) {
		return
	}
	s.flash(w, r, "success", "Your profile has been updated.")
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

func (s *Server) PasswordForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "password.html", "Change password", formView[PasswordForm]{})
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var form PasswordForm
	errs := parseForm(r, &form)
	if errs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "password.html", "Change password", formView[PasswordForm]{Errors: errs})
		return
	}

	err := s.api.Auth.ChangePassword(r.Context(), backend.ChangePasswordRequest{
		OldPassword: form.OldPassword,
		NewPassword: form.NewPassword,
	})
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/account")
			return
		}
		s.render(w, r, http.StatusBadGateway, "password.html", "Change password", formView[PasswordForm]{Error: backend.Message(err)})
		return
	}

	// Other devices signed in with the old password are signed out.
	if rev, ok := s.sessions.(session.Revoker); ok {
		id := session.FromContext(r.Context())
		if err := rev.RevokeUser(r.Context(), id.UserID()); err != nil {
			logging.FromCtx(r.Context()).Warn("revoke sessions failed", "error", err)
		} else if !s.signIn(w, r, id) {
			return
		}
	}

	s.flash(w, r, "success", "Your password has been changed.")
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

type ordersPage struct {
	Page OffsetPage[models.Order]
	Err  string
}

func (s *Server) MyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data ordersPage

	orders, err := s.api.Orders.ByUser(ctx, session.FromContext(ctx).UserID())
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/")
			return
		}
		data.Err = backend.Message(err)
	}
	sortNewestFirst(orders)

	page, pageSize := pageParams(r)
	data.Page = Paginate(orders, page, pageSize)
	s.render(w, r, http.StatusOK, "my_orders.html", "My orders", data)
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OrderDate.After(orders[j].OrderDate.Time)
	})
}

// orderPage is the data of order.html, shared by the confirmation page, the
// customer's order detail and the back office.
type orderPage struct {
	View     *orderview.View
	Success  bool
	Admin    bool
	Back     string
	Statuses []models.OrderStatus
	Payments []models.PaymentStatus
}

func (p orderPage) Cancellable() bool {
	return p.View.Order != nil && p.View.Order.OrderStatus == models.OrderStatusPending
}

// ItemImage prefers the image stored on the line, then the enriched product.
func (p orderPage) ItemImage(it models.OrderItem) string {
	if it.ProductImage != "" {
		return it.ProductImage
	}
	if prod, ok := p.View.Product(it.ProductID); ok {
		return prod.Image
	}
	return ""
}

func (p orderPage) ItemName(it models.OrderItem) string {
	if it.ProductName != "" {
		return it.ProductName
	}
	if prod, ok := p.View.Product(it.ProductID); ok {
		return prod.Name
	}
	return fmt.Sprintf("Product #%d", it.ProductID)
}

// loadOrder resolves the view and gives enrichment a bounded time. The page
// renders once the order and its items are known, enriched or not.
func (s *Server) loadOrder(ctx context.Context, id int64, carried *checkout.Confirmation) *orderview.View {
	v := s.orders.Load(ctx, id, carried)
	if v.State == orderview.Ready {
		ectx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
		v.Enrich(ectx)
		cancel()
	}
	return v
}

func (s *Server) MyOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	v := s.loadOrder(ctx, id, nil)
	if v.State == orderview.Ready && v.Order.UserID != session.FromContext(ctx).UserID() {
		v = &orderview.View{State: orderview.NotFound}
	}
	if v.State == orderview.Error && errorIsAuth(v.Err) {
		s.fail(w, r, v.Err, "/account/orders")
		return
	}

	s.render(w, r, statusFor(v), "order.html", "Order", orderPage{View: v, Back: "/account/orders"})
}

func statusFor(v *orderview.View) int {
	switch v.State {
	case orderview.NotFound:
		return http.StatusNotFound
	case orderview.Error:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func (s *Server) CancelMyOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()
	back := "/account/orders/" + r.PathValue("id")

	order, err := s.api.Orders.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err, "/account/orders")
		return
	}
	if order.UserID != session.FromContext(ctx).UserID() {
		s.notFound(w, r)
		return
	}
	if order.OrderStatus != models.OrderStatusPending {
		s.flash(w, r, "error", "Only pending orders can be cancelled.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if err := s.api.Orders.Cancel(ctx, id); err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, back)
			return
		}
		s.flash(w, r, "error", backend.Message(err))
	} else {
		s.flash(w, r, "success", "Your order has been cancelled.")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
