package checkout

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/phuocduongts/storefront/internal/logging"
)

const (
	handoffSession = "storefront_flash"
	handoffKey     = "checkout"
)

// Handoff carries a Confirmation from the checkout POST to the confirmation
// page. The confirmation itself stays in a ConfirmationStore; the session
// flash only holds "orderID:key", so it survives exactly one read and stays
// the same size whatever the order holds.
type Handoff struct {
	jar   sessions.Store
	store ConfirmationStore
	ttl   time.Duration
}

func NewHandoff(jar sessions.Store, store ConfirmationStore, ttl time.Duration) *Handoff {
	return &Handoff{jar: jar, store: store, ttl: ttl}
}

func (h *Handoff) Put(w http.ResponseWriter, r *http.Request, c *Confirmation) error {
	key := uuid.NewString()
	if err := h.store.Put(r.Context(), key, c, h.ttl); err != nil {
		return err
	}

	sess, _ := h.jar.Get(r, handoffSession)
	sess.AddFlash(strconv.FormatInt(c.OrderID(), 10)+":"+key, handoffKey)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save confirmation key: %w", err)
	}
	return nil
}

// Take consumes the carried confirmation. It returns nil when none was
// carried or when it belongs to a different order.
func (h *Handoff) Take(w http.ResponseWriter, r *http.Request, orderID int64) *Confirmation {
	sess, err := h.jar.Get(r, handoffSession)
	if err != nil {
		return nil
	}
	flashes := sess.Flashes(handoffKey)
	if len(flashes) == 0 {
		return nil
	}
	_ = sess.Save(r, w)

	ref, ok := flashes[len(flashes)-1].(string)
	if !ok {
		return nil
	}
	id, key, ok := strings.Cut(ref, ":")
	if !ok || id != strconv.FormatInt(orderID, 10) {
		return nil
	}

	c, err := h.store.Take(r.Context(), key)
	if err != nil {
		logging.FromCtx(r.Context()).Warn("take confirmation", "order_id", orderID, "error", err)
		return nil
	}
	if c == nil || c.Order.ID != orderID {
		return nil
	}
	return c
}
