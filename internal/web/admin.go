package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/session"
)

func (s *Server) AdminLoginForm(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "admin_login.html", "Administration", formView[LoginForm]{})
}

// AdminLogin trades the credentials for a token, then asks the backend who
// the token belongs to. Non-admin accounts are turned away.
func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var form LoginForm
	reject := func(status int, errs map[string]string, msg string) {
		form.Password = ""
		s.render(w, r, status, "admin_login.html", "Administration", formView[LoginForm]{Form: form, Errors: errs, Error: msg})
	}
	if errs := parseForm(r, &form); errs != nil {
		reject(http.StatusUnprocessableEntity, errs, "")
		return
	}

	token, err := s.api.Users.AdminLogin(ctx, form.Username, form.Password)
	if err != nil || token == "" {
		msg := "Invalid username or password."
		if err != nil && !errorIsAuth(err) {
			msg = backend.Message(err)
		}
		reject(http.StatusUnauthorized, nil, msg)
		return
	}

	id := &session.Identity{Token: token}
	user, err := s.api.Auth.Me(session.WithIdentity(ctx, id))
	if err != nil {
		reject(http.StatusBadGateway, nil, backend.Message(err))
		return
	}
	id.User = *user
	if !id.IsAdmin() {
		logging.FromCtx(ctx).Warn("non-admin tried the back office", "user_id", user.ID)
		reject(http.StatusForbidden, nil, "This account is not an administrator.")
		return
	}

	if !s.signIn(w, r, id) {
		return
	}
	s.flash(w, r, "success", "Welcome, "+user.DisplayName()+"!")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) AdminLogout(w http.ResponseWriter, r *http.Request) {
	s.dropIdentity(w, r)
	s.flash(w, r, "success", "Logged out successfully!")
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

type dashboardPage struct {
	Stats       models.OrderStats
	Recent      []models.Order
	Unread      []models.Contact
	BestSellers []models.BestSeller
	// Failed names the sections that could not be loaded.
	Failed []string
}

func (p dashboardPage) TotalOrders() int64 {
	var n int64
	for _, c := range p.Stats {
		n += c
	}
	return n
}

func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromCtx(ctx)

	var (
		data dashboardPage
		mu   sync.Mutex
		wg   sync.WaitGroup
		auth error
	)
	load := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Warn("dashboard section failed", "section", name, "error", err)
				mu.Lock()
				data.Failed = append(data.Failed, name)
				if errorIsAuth(err) {
					auth = err
				}
				mu.Unlock()
			}
		}()
	}

	load("order statistics", func(ctx context.Context) (err error) {
		data.Stats, err = s.api.Orders.Stats(ctx)
		return err
	})
	load("recent orders", func(ctx context.Context) (err error) {
		data.Recent, err = s.api.Orders.Recent(ctx, 5)
		return err
	})
	load("unread contacts", func(ctx context.Context) (err error) {
		data.Unread, err = s.api.Contacts.Unread(ctx)
		return err
	})
	load("best sellers", func(ctx context.Context) (err error) {
		data.BestSellers, err = s.api.OrderDetails.BestSelling(ctx, 5)
		return err
	})
	wg.Wait()

	if auth != nil {
		s.fail(w, r, auth, "/admin")
		return
	}
	s.render(w, r, http.StatusOK, "admin_dashboard.html", "Dashboard", data)
}
