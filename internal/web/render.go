package web

import (
	"bytes"
	"encoding/gob"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/session"
)

const flashSession = "storefront_flash"

func init() {
	gob.Register(FlashMessage{})
}

type FlashMessage struct {
	Type    string
	Message string
}

// GetFlash drains the flash messages of the session.
func GetFlash(sess *sessions.Session) []FlashMessage {
	var messages []FlashMessage
	for _, f := range sess.Flashes() {
		if fm, ok := f.(FlashMessage); ok {
			messages = append(messages, fm)
		}
	}
	return messages
}

func (s *Server) flash(w http.ResponseWriter, r *http.Request, typ, msg string) {
	sess, _ := s.jar.Get(r, flashSession)
	sess.AddFlash(FlashMessage{Type: typ, Message: msg})
	if err := sess.Save(r, w); err != nil {
		logging.FromCtx(r.Context()).Warn("save flash failed", "error", err)
	}
}

// pageData is what every template receives.
type pageData struct {
	Title     string
	Identity  *session.Identity
	CartCount int
	Flashes   []FlashMessage
	CSRFField template.HTML
	Data      any
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	ctx := r.Context()
	log := logging.FromCtx(ctx)

	tmpl := s.templates.Get(name)
	if tmpl == nil {
		log.Error("template not found", "name", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	id := session.FromContext(ctx)
	if id != nil && tokenRejected(ctx) {
		s.dropIdentity(w, r)
		id = nil
	}

	sess, _ := s.jar.Get(r, flashSession)
	page := pageData{
		Title:     title,
		Identity:  id,
		Flashes:   GetFlash(sess),
		CSRFField: csrf.TemplateField(r),
		Data:      data,
	}
	if len(page.Flashes) > 0 {
		if err := sess.Save(r, w); err != nil {
			log.Warn("save flash failed", "error", err)
		}
	}
	if id != nil && !id.IsAdmin() {
		if n, err := s.counter.Count(ctx, id.UserID()); err == nil {
			page.CartCount = n
		}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", page); err != nil {
		log.Error("render template failed", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) dropIdentity(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(w, r); err != nil {
		logging.FromCtx(r.Context()).Warn("clear session failed", "error", err)
	}
}

// errorPage is the data of error.html.
type errorPage struct {
	Message string
	Back    string
}

// fail renders err for the user. A backend 401 drops the identity and sends
// the user to the matching login page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	ctx := r.Context()

	if errors.Is(err, backend.ErrUnauthorized) {
		admin := session.FromContext(ctx).IsAdmin()
		s.dropIdentity(w, r)
		s.flash(w, r, "error", backend.Message(err))
		if admin {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, backend.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, backend.ErrNetwork):
		status = http.StatusGatewayTimeout
	}
	logging.FromCtx(ctx).Warn("request failed", "error", err)
	s.render(w, r, status, "error.html", "Error", errorPage{Message: backend.Message(err), Back: back})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "error.html", "Not found", errorPage{Message: "The page you are looking for does not exist.", Back: "/"})
}

// pathID reads a positive integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func formInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.FormValue(name))
	if err != nil {
		return def
	}
	return n
}

// safeNext keeps post-login redirects on this site.
func safeNext(next, def string) string {
	if len(next) < 1 || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return def
	}
	return next
}

func errorIsAuth(err error) bool {
	return errors.Is(err, backend.ErrUnauthorized)
}

// sessionUser is the signed-in user's record, or nil.
func sessionUser(r *http.Request) *models.User {
	id := session.FromContext(r.Context())
	if id == nil {
		return nil
	}
	return &id.User
}
