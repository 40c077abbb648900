package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/orderview"
)

type adminOrdersPage struct {
	Page  OffsetPage[models.Order]
	Query string
	Err   string
}

func (s *Server) AdminOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := adminOrdersPage{Query: strings.TrimSpace(r.URL.Query().Get("q"))}

	var (
		orders []models.Order
		err    error
	)
	if data.Query != "" {
		orders, err = s.api.Orders.Search(ctx, data.Query)
	} else {
		orders, err = s.api.Orders.List(ctx)
	}
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/admin")
			return
		}
		data.Err = backend.Message(err)
	}
	sortNewestFirst(orders)

	page, pageSize := pageParams(r)
	data.Page = Paginate(orders, page, pageSize)
	s.render(w, r, http.StatusOK, "admin_orders.html", "Orders", data)
}

func (s *Server) AdminOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}

	v := s.loadOrder(r.Context(), id, nil)
	if v.State == orderview.Error && errorIsAuth(v.Err) {
		s.fail(w, r, v.Err, "/admin/orders")
		return
	}

	s.render(w, r, statusFor(v), "order.html", fmt.Sprintf("Order #%d", id), orderPage{
		View:     v,
		Admin:    true,
		Back:     "/admin/orders",
		Statuses: models.OrderStatuses,
		Payments: models.PaymentStatuses,
	})
}

// orderCommand runs one back-office command against the order in the path
// and returns to the order page, or to list when it is set.
func (s *Server) orderCommand(w http.ResponseWriter, r *http.Request, done, list string, fn func(ctx context.Context, id int64) error) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	back := fmt.Sprintf("/admin/orders/%d", id)
	if list != "" {
		back = list
	}

	if err := fn(r.Context(), id); err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, back)
			return
		}
		logging.FromCtx(r.Context()).Warn("order command failed", "order_id", id, "error", err)
		s.flash(w, r, "error", backend.Message(err))
	} else {
		s.flash(w, r, "success", done)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) AdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	status := models.OrderStatus(strings.ToUpper(r.FormValue("status")))
	if !status.Valid() {
		s.flash(w, r, "error", "Unknown order status.")
		http.Redirect(w, r, "/admin/orders/"+r.PathValue("id"), http.StatusSeeOther)
		return
	}
	s.orderCommand(w, r, "Order status updated.", "", func(ctx context.Context, id int64) error {
		return s.api.Orders.UpdateStatus(ctx, id, status)
	})
}

func (s *Server) AdminOrderPayment(w http.ResponseWriter, r *http.Request) {
	status := models.PaymentStatus(strings.ToUpper(r.FormValue("paymentStatus")))
	if !status.Valid() {
		s.flash(w, r, "error", "Unknown payment status.")
		http.Redirect(w, r, "/admin/orders/"+r.PathValue("id"), http.StatusSeeOther)
		return
	}
	s.orderCommand(w, r, "Payment status updated.", "", func(ctx context.Context, id int64) error {
		return s.api.Orders.UpdatePayment(ctx, id, status)
	})
}

func (s *Server) AdminOrderTracking(w http.ResponseWriter, r *http.Request) {
	tracking := strings.TrimSpace(r.FormValue("trackingNumber"))
	if tracking == "" {
		s.flash(w, r, "error", "Tracking number is required.")
		http.Redirect(w, r, "/admin/orders/"+r.PathValue("id"), http.StatusSeeOther)
		return
	}
	s.orderCommand(w, r, "Tracking number saved.", "", func(ctx context.Context, id int64) error {
		return s.api.Orders.UpdateTracking(ctx, id, tracking)
	})
}

func (s *Server) AdminOrderCancel(w http.ResponseWriter, r *http.Request) {
	s.orderCommand(w, r, "Order cancelled.", "", s.api.Orders.Cancel)
}

func (s *Server) AdminOrderTrash(w http.ResponseWriter, r *http.Request) {
	s.orderCommand(w, r, "Order moved to trash.", "/admin/orders", s.api.Orders.MoveToTrash)
}

func (s *Server) AdminOrderRestore(w http.ResponseWriter, r *http.Request) {
	s.orderCommand(w, r, "Order restored.", "", s.api.Orders.Restore)
}

type adminContactsPage struct {
	Page   OffsetPage[models.Contact]
	Unread bool
	Err    string
}

func (s *Server) AdminContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := adminContactsPage{Unread: r.URL.Query().Get("filter") == "unread"}

	var (
		contacts []models.Contact
		err      error
	)
	if data.Unread {
		contacts, err = s.api.Contacts.Unread(ctx)
	} else {
		contacts, err = s.api.Contacts.List(ctx)
	}
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/admin")
			return
		}
		data.Err = backend.Message(err)
	}

	page, pageSize := pageParams(r)
	data.Page = Paginate(contacts, page, pageSize)
	s.render(w, r, http.StatusOK, "admin_contacts.html", "Contacts", data)
}

// AdminContact shows one message and marks it read on first view.
func (s *Server) AdminContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	c, err := s.api.Contacts.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err, "/admin/contacts")
		return
	}
	if !bool(c.Read) {
		if err := s.api.Contacts.MarkRead(ctx, id); err != nil {
			logging.FromCtx(ctx).Warn("mark contact read failed", "contact_id", id, "error", err)
		} else {
			c.Read = true
		}
	}
	s.render(w, r, http.StatusOK, "admin_contact.html", "Message from "+c.Name, c)
}

func (s *Server) contactCommand(w http.ResponseWriter, r *http.Request, done string, fn func(ctx context.Context, id int64) error) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	const back = "/admin/contacts"

	if err := fn(r.Context(), id); err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, back)
			return
		}
		s.flash(w, r, "error", backend.Message(err))
	} else {
		s.flash(w, r, "success", done)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) AdminContactTrash(w http.ResponseWriter, r *http.Request) {
	s.contactCommand(w, r, "Message moved to trash.", s.api.Contacts.MoveToTrash)
}

func (s *Server) AdminContactRestore(w http.ResponseWriter, r *http.Request) {
	s.contactCommand(w, r, "Message restored.", s.api.Contacts.Restore)
}

func (s *Server) AdminContactDelete(w http.ResponseWriter, r *http.Request) {
	s.contactCommand(w, r, "Message deleted.", s.api.Contacts.Delete)
}
