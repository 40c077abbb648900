package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/cart"
	"github.com/phuocduongts/storefront/internal/checkout"
	"github.com/phuocduongts/storefront/internal/forms"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/orderview"
	"github.com/phuocduongts/storefront/internal/pricing"
	"github.com/phuocduongts/storefront/internal/session"
)

const (
	cartSession  = "storefront_cart"
	selectionKey = "selected"
)

// selection returns the stored selection narrowed to the current items.
// Until the user picks lines explicitly every line is selected.
func (s *Server) selection(r *http.Request, items []models.LineItem) *cart.Selection {
	sess, _ := s.jar.Get(r, cartSession)
	raw, ok := sess.Values[selectionKey].(string)
	if !ok {
		sel := cart.NewSelection()
		sel.SelectAll(items)
		return sel
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	sel := cart.NewSelection(ids...)
	sel.Retain(items)
	return sel
}

func (s *Server) saveSelection(w http.ResponseWriter, r *http.Request, sel *cart.Selection) {
	sess, _ := s.jar.Get(r, cartSession)
	if sel == nil {
		delete(sess.Values, selectionKey)
	} else {
		parts := make([]string, 0, sel.Len())
		for _, id := range sel.IDs() {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		sess.Values[selectionKey] = strings.Join(parts, ",")
	}
	if err := sess.Save(r, w); err != nil {
		logging.FromCtx(r.Context()).Warn("save cart selection failed", "error", err)
	}
}

type cartPage struct {
	Items       []models.LineItem
	Selection   *cart.Selection
	Totals      pricing.Totals
	AllSelected bool
	Err         string
}

func (s *Server) CartPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data cartPage

	items, err := s.cart.List(ctx, session.FromContext(ctx).UserID())
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/")
			return
		}
		data.Err = backend.Message(err)
	}

	sel := s.selection(r, items)
	data.Items = items
	data.Selection = sel
	data.Totals = s.pricing.Compute(items, sel)
	data.AllSelected = sel.AllSelected(items)

	s.render(w, r, http.StatusOK, "cart.html", "Cart", data)
}

// cartFailed reports a failed cart action as a flash, or re-authenticates.
func (s *Server) cartFailed(w http.ResponseWriter, r *http.Request, err error, back string) {
	switch {
	case errorIsAuth(err):
		s.fail(w, r, err, back)
		return
	case errors.Is(err, cart.ErrInvalidQuantity):
		s.flash(w, r, "error", "Quantity must be at least 1.")
	default:
		s.flash(w, r, "error", backend.Message(err))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	back := safeNext(r.FormValue("next"), "/cart")

	productID, err := strconv.ParseInt(r.FormValue("productId"), 10, 64)
	if err != nil || productID <= 0 {
		s.flash(w, r, "error", "Unknown product.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	qty := formInt(r, "quantity", 1)

	if _, err := s.cart.Add(ctx, session.FromContext(ctx).UserID(), productID, qty); err != nil {
		s.cartFailed(w, r, err, back)
		return
	}

	s.saveSelection(w, r, nil)
	s.flash(w, r, "success", "The product has been added to your cart.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	_, err := s.cart.UpdateQuantity(ctx, session.FromContext(ctx).UserID(), lineID, formInt(r, "quantity", 0))
	if err != nil {
		s.cartFailed(w, r, err, "/cart")
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	if err := s.cart.Remove(ctx, session.FromContext(ctx).UserID(), lineID); err != nil {
		s.cartFailed(w, r, err, "/cart")
		return
	}
	s.flash(w, r, "success", "The product has been removed from your cart.")
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.cart.Clear(ctx, session.FromContext(ctx).UserID()); err != nil {
		s.cartFailed(w, r, err, "/cart")
		return
	}
	s.saveSelection(w, r, nil)
	s.flash(w, r, "success", "Your cart is now empty.")
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) ToggleCartItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	s.updateSelection(w, r, func(sel *cart.Selection, _ []models.LineItem) { sel.Toggle(lineID) })
}

// SelectAllCartItems selects every line, or none when all already are.
func (s *Server) SelectAllCartItems(w http.ResponseWriter, r *http.Request) {
	s.updateSelection(w, r, func(sel *cart.Selection, items []models.LineItem) {
		if sel.AllSelected(items) {
			for _, id := range sel.IDs() {
				sel.Deselect(id)
			}
			return
		}
		sel.SelectAll(items)
	})
}

func (s *Server) updateSelection(w http.ResponseWriter, r *http.Request, change func(*cart.Selection, []models.LineItem)) {
	ctx := r.Context()

	items, err := s.cart.List(ctx, session.FromContext(ctx).UserID())
	if err != nil {
		s.cartFailed(w, r, err, "/cart")
		return
	}
	sel := s.selection(r, items)
	change(sel, items)
	s.saveSelection(w, r, sel)
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// CartCount feeds the header badge. Anonymous visitors get 0.
func (s *Server) CartCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n := 0
	if id := session.FromContext(ctx); id != nil {
		count, err := s.counter.Count(ctx, id.UserID())
		if err != nil {
			logging.FromCtx(ctx).Warn("cart count failed", "error", err)
		}
		n = count
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]int{"count": n})
}

type checkoutPage struct {
	Items  []models.LineItem
	Totals pricing.Totals
	Form   checkout.ShippingForm
	Errors forms.Errors
	Error  string
	// Methods lists the payment choices in display order.
	Methods []models.PaymentMethod
}

func (s *Server) checkoutItems(w http.ResponseWriter, r *http.Request) ([]models.LineItem, *cart.Selection, bool) {
	ctx := r.Context()

	items, err := s.cart.List(ctx, session.FromContext(ctx).UserID())
	if err != nil {
		s.cartFailed(w, r, err, "/cart")
		return nil, nil, false
	}
	sel := s.selection(r, items)
	if len(sel.Items(items)) == 0 {
		s.flash(w, r, "error", "Please select at least one product to check out.")
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return nil, nil, false
	}
	return items, sel, true
}

func (s *Server) CheckoutForm(w http.ResponseWriter, r *http.Request) {
	items, sel, ok := s.checkoutItems(w, r)
	if !ok {
		return
	}

	s.render(w, r, http.StatusOK, "checkout.html", "Checkout", checkoutPage{
		Items:   sel.Items(items),
		Totals:  s.pricing.Compute(items, sel),
		Form:    checkout.ShippingFormFor(*sessionUser(r)),
		Methods: models.PaymentMethods,
	})
}

func (s *Server) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	items, sel, ok := s.checkoutItems(w, r)
	if !ok {
		return
	}

	var form checkout.ShippingForm
	forms.Decode(r.PostForm, &form)

	conf, err := s.checkout.Submit(ctx, session.FromContext(ctx), items, sel, form)
	if err != nil {
		page := checkoutPage{
			Items:   sel.Items(items),
			Totals:  s.pricing.Compute(items, sel),
			Form:    form,
			Methods: models.PaymentMethods,
		}

		var verrs checkout.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			page.Errors = verrs
			s.render(w, r, http.StatusUnprocessableEntity, "checkout.html", "Checkout", page)
		case errors.Is(err, checkout.ErrEmptySelection):
			s.flash(w, r, "error", "Please select at least one product to check out.")
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
		case errorIsAuth(err):
			s.fail(w, r, err, "/cart")
		default:
			page.Error = "Your order could not be placed. " + backend.Message(err)
			s.render(w, r, http.StatusBadGateway, "checkout.html", "Checkout", page)
		}
		return
	}

	if err := s.handoff.Put(w, r, conf); err != nil {
		logging.FromCtx(ctx).Warn("carry confirmation failed", "order_id", conf.OrderID(), "error", err)
	}
	s.saveSelection(w, r, nil)
	http.Redirect(w, r, "/orders/"+strconv.FormatInt(conf.OrderID(), 10)+"/success", http.StatusSeeOther)
}

// OrderSuccess is the confirmation page. Right after checkout it renders
// from the carried confirmation; on reload it fetches the order.
func (s *Server) OrderSuccess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	carried := s.handoff.Take(w, r, id)
	v := s.loadOrder(ctx, id, carried)
	if v.State == orderview.Ready && !v.Carried && v.Order.UserID != session.FromContext(ctx).UserID() {
		v = &orderview.View{State: orderview.NotFound}
	}
	if v.State == orderview.Error && errorIsAuth(v.Err) {
		s.fail(w, r, v.Err, "/")
		return
	}

	s.render(w, r, statusFor(v), "order.html", "Order placed", orderPage{View: v, Success: true, Back: "/account/orders"})
}
