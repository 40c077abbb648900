package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/forms"
	"github.com/phuocduongts/storefront/internal/models"
)

// adminBackend is the shared back-office lifecycle. backend.Resource and the
// services embedding it implement it.
type adminBackend[T any] interface {
	List(ctx context.Context) ([]T, error)
	Trash(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in backend.Fields) (*T, error)
	Update(ctx context.Context, id int64, in backend.Fields) (*T, error)
	ToggleStatus(ctx context.Context, id int64) error
	MoveToTrash(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	EmptyTrash(ctx context.Context) error
}

type option struct {
	Value string
	Label string
}

type field struct {
	Name     string
	Label    string
	Kind     string // text, textarea, number, checkbox, select
	Required bool
	Options  func(ctx context.Context) ([]option, error)
}

type column[T any] struct {
	Label string
	Value func(T) string
}

type adminResource[T any] struct {
	s         *Server
	name      string
	title     string
	svc       adminBackend[T]
	id        func(T) int64
	label     func(T) string
	status    func(T) bool
	columns   []column[T]
	fields    []field
	values    func(T) backend.Fields
	creatable bool
}

type routeRegistrar interface {
	register(handle func(string, http.HandlerFunc), guard func(http.HandlerFunc) http.HandlerFunc)
}

func (a *adminResource[T]) register(handle func(string, http.HandlerFunc), guard func(http.HandlerFunc) http.HandlerFunc) {
	base := "/admin/" + a.name
	handle("GET "+base, guard(a.list))
	handle("GET "+base+"/trash", guard(a.trash))
	handle("POST "+base+"/trash/empty", guard(a.emptyTrash))
	if a.creatable {
		handle("GET "+base+"/new", guard(a.newForm))
		handle("POST "+base, guard(a.create))
	}
	handle("GET "+base+"/{id}", guard(a.show))
	handle("GET "+base+"/{id}/edit", guard(a.editForm))
	handle("POST "+base+"/{id}", guard(a.update))
	handle("POST "+base+"/{id}/status", guard(a.action("toggle status", a.svc.ToggleStatus, "Status updated.", false)))
	handle("POST "+base+"/{id}/trash", guard(a.action("move to trash", a.svc.MoveToTrash, "Moved to trash.", false)))
	handle("POST "+base+"/{id}/restore", guard(a.action("restore", a.svc.Restore, "Restored.", true)))
	handle("POST "+base+"/{id}/delete", guard(a.action("delete", a.svc.Delete, "Deleted permanently.", true)))
}

type adminRow struct {
	ID     int64
	Label  string
	Cells  []string
	Status bool
}

type adminListPage struct {
	Name      string
	Title     string
	Columns   []string
	Rows      OffsetPage[adminRow]
	Query     string
	Trash     bool
	Creatable bool
	Err       string
}

func (a *adminResource[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.List(r.Context())
	a.renderList(w, r, items, err, false)
}

func (a *adminResource[T]) trash(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Trash(r.Context())
	a.renderList(w, r, items, err, true)
}

func (a *adminResource[T]) renderList(w http.ResponseWriter, r *http.Request, items []T, err error, trash bool) {
	data := adminListPage{
		Name:      a.name,
		Title:     a.title,
		Query:     strings.TrimSpace(r.URL.Query().Get("q")),
		Trash:     trash,
		Creatable: a.creatable,
	}
	if err != nil {
		if errorIsAuth(err) {
			a.s.fail(w, r, err, "/admin")
			return
		}
		data.Err = backend.Message(err)
	}
	for _, c := range a.columns {
		data.Columns = append(data.Columns, c.Label)
	}

	rows := make([]adminRow, 0, len(items))
	needle := strings.ToLower(data.Query)
	for _, it := range items {
		label := a.label(it)
		if needle != "" && !strings.Contains(strings.ToLower(label), needle) {
			continue
		}
		row := adminRow{ID: a.id(it), Label: label, Status: a.status(it)}
		for _, c := range a.columns {
			row.Cells = append(row.Cells, c.Value(it))
		}
		rows = append(rows, row)
	}

	page, pageSize := pageParams(r)
	data.Rows = Paginate(rows, page, pageSize)

	title := a.title
	if trash {
		title += " - trash"
	}
	a.s.render(w, r, http.StatusOK, "admin_list.html", title, data)
}

type fieldView struct {
	field
	Value   string
	Choices []option
}

type adminFormPage struct {
	Name   string
	Title  string
	ID     int64
	Fields []fieldView
	Errors forms.Errors
	Error  string
}

func (a *adminResource[T]) renderForm(w http.ResponseWriter, r *http.Request, status int, id int64, values backend.Fields, errs forms.Errors, msg string) {
	ctx := r.Context()
	data := adminFormPage{Name: a.name, Title: a.title, ID: id, Errors: errs, Error: msg}
	for _, f := range a.fields {
		fv := fieldView{field: f, Value: values[f.Name]}
		if f.Options != nil {
			opts, err := f.Options(ctx)
			if err != nil {
				data.Error = "Could not load the choices for " + strings.ToLower(f.Label) + "."
			}
			fv.Choices = opts
		}
		data.Fields = append(data.Fields, fv)
	}

	title := "New " + strings.ToLower(a.title)
	if id > 0 {
		title = "Edit " + strings.ToLower(a.title)
	}
	a.s.render(w, r, status, "admin_form.html", title, data)
}

func (a *adminResource[T]) newForm(w http.ResponseWriter, r *http.Request) {
	a.renderForm(w, r, http.StatusOK, 0, backend.Fields{"status": "true"}, nil, "")
}

// readFields collects the posted values of the resource's fields. Checkboxes
// are sent as "true" or "false".
func (a *adminResource[T]) readFields(r *http.Request) (backend.Fields, forms.Errors) {
	if err := r.ParseForm(); err != nil {
		return nil, forms.Errors{"form": "The form could not be read."}
	}

	in := backend.Fields{}
	errs := forms.Errors{}
	for _, f := range a.fields {
		v := strings.TrimSpace(r.PostForm.Get(f.Name))
		switch f.Kind {
		case "checkbox":
			in[f.Name] = strconv.FormatBool(v != "")
			continue
		case "number":
			if v != "" {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					errs[f.Name] = "Must be a number"
				}
			}
		}
		if f.Required && v == "" {
			errs[f.Name] = "This field is required"
		}
		if v != "" {
			in[f.Name] = v
		}
	}
	if len(errs) > 0 {
		return in, errs
	}
	return in, nil
}

func (a *adminResource[T]) create(w http.ResponseWriter, r *http.Request) {
	in, errs := a.readFields(r)
	if errs != nil {
		a.renderForm(w, r, http.StatusUnprocessableEntity, 0, in, errs, "")
		return
	}

	item, err := a.svc.Create(r.Context(), in)
	if err != nil {
		if errorIsAuth(err) {
			a.s.fail(w, r, err, "/admin/"+a.name)
			return
		}
		a.renderForm(w, r, http.StatusBadGateway, 0, in, nil, backend.Message(err))
		return
	}

	a.s.flash(w, r, "success", fmt.Sprintf("%s %q created.", a.title, a.label(*item)))
	http.Redirect(w, r, "/admin/"+a.name, http.StatusSeeOther)
}

type adminDetailPage struct {
	Name   string
	Title  string
	ID     int64
	Label  string
	Status bool
	Rows   []option
}

func (a *adminResource[T]) show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		a.s.notFound(w, r)
		return
	}

	item, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.s.fail(w, r, err, "/admin/"+a.name)
		return
	}

	data := adminDetailPage{Name: a.name, Title: a.title, ID: id, Label: a.label(*item), Status: a.status(*item)}
	values := a.values(*item)
	for _, c := range a.columns {
		data.Rows = append(data.Rows, option{Label: c.Label, Value: c.Value(*item)})
	}
	for _, f := range a.fields {
		if f.Kind == "textarea" {
			data.Rows = append(data.Rows, option{Label: f.Label, Value: values[f.Name]})
		}
	}
	a.s.render(w, r, http.StatusOK, "admin_detail.html", data.Label, data)
}

func (a *adminResource[T]) editForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		a.s.notFound(w, r)
		return
	}

	item, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.s.fail(w, r, err, "/admin/"+a.name)
		return
	}
	a.renderForm(w, r, http.StatusOK, id, a.values(*item), nil, "")
}

func (a *adminResource[T]) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		a.s.notFound(w, r)
		return
	}

	in, errs := a.readFields(r)
	if errs != nil {
		a.renderForm(w, r, http.StatusUnprocessableEntity, id, in, errs, "")
		return
	}

	if _, err := a.svc.Update(r.Context(), id, in); err != nil {
		if errorIsAuth(err) {
			a.s.fail(w, r, err, "/admin/"+a.name)
			return
		}
		a.renderForm(w, r, http.StatusBadGateway, id, in, nil, backend.Message(err))
		return
	}

	a.s.flash(w, r, "success", a.title+" updated.")
	http.Redirect(w, r, fmt.Sprintf("/admin/%s/%d", a.name, id), http.StatusSeeOther)
}

// action runs a single-id command and returns to the list, or to the trash
// list for commands issued from there.
func (a *adminResource[T]) action(verb string, fn func(context.Context, int64) error, done string, fromTrash bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		back := "/admin/" + a.name
		if fromTrash {
			back += "/trash"
		}

		id, ok := pathID(r, "id")
		if !ok {
			a.s.notFound(w, r)
			return
		}

		if err := fn(r.Context(), id); err != nil {
			if errorIsAuth(err) {
				a.s.fail(w, r, err, back)
				return
			}
			a.s.flash(w, r, "error", fmt.Sprintf("Could not %s: %s", verb, backend.Message(err)))
		} else {
			a.s.flash(w, r, "success", done)
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func (a *adminResource[T]) emptyTrash(w http.ResponseWriter, r *http.Request) {
	back := "/admin/" + a.name + "/trash"
	if err := a.svc.EmptyTrash(r.Context()); err != nil {
		if errorIsAuth(err) {
			a.s.fail(w, r, err, back)
			return
		}
		a.s.flash(w, r, "error", backend.Message(err))
	} else {
		a.s.flash(w, r, "success", "Trash emptied.")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func (s *Server) categoryOptions(ctx context.Context) ([]option, error) {
	cats, err := s.api.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]option, 0, len(cats))
	for _, c := range cats {
		opts = append(opts, option{Value: formatID(c.ID), Label: c.Name})
	}
	return opts, nil
}

func (s *Server) topicOptions(ctx context.Context) ([]option, error) {
	topics, err := s.api.Topics.List(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]option, 0, len(topics))
	for _, t := range topics {
		opts = append(opts, option{Value: formatID(t.ID), Label: t.Name})
	}
	return opts, nil
}

func roleOptions(context.Context) ([]option, error) {
	return []option{{Value: "USER", Label: "Customer"}, {Value: models.RoleAdmin, Label: "Administrator"}}, nil
}

func flagField() field {
	return field{Name: "status", Label: "Visible", Kind: "checkbox"}
}

func flagValue(f models.Flag) string {
	return strconv.FormatBool(bool(f))
}

func (s *Server) adminResources() []routeRegistrar {
	return []routeRegistrar{
		&adminResource[models.Banner]{
			s: s, name: "banners", title: "Banner", svc: s.api.Banners, creatable: true,
			id:     func(b models.Banner) int64 { return b.ID },
			label:  func(b models.Banner) string { return b.Title },
			status: func(b models.Banner) bool { return bool(b.Status) },
			columns: []column[models.Banner]{
				{"Title", func(b models.Banner) string { return b.Title }},
				{"Link", func(b models.Banner) string { return b.Link }},
			},
			fields: []field{
				{Name: "title", Label: "Title", Kind: "text", Required: true},
				{Name: "link", Label: "Link", Kind: "text"},
				{Name: "image", Label: "Image", Kind: "text"},
				flagField(),
			},
			values: func(b models.Banner) backend.Fields {
				return backend.Fields{"title": b.Title, "link": b.Link, "image": b.Image, "status": flagValue(b.Status)}
			},
		},
		&adminResource[models.Category]{
			s: s, name: "categories", title: "Category", svc: s.api.Categories, creatable: true,
			id:     func(c models.Category) int64 { return c.ID },
			label:  func(c models.Category) string { return c.Name },
			status: func(c models.Category) bool { return bool(c.Status) },
			columns: []column[models.Category]{
				{"Name", func(c models.Category) string { return c.Name }},
				{"Description", func(c models.Category) string { return c.Description }},
			},
			fields: []field{
				{Name: "name", Label: "Name", Kind: "text", Required: true},
				{Name: "description", Label: "Description", Kind: "textarea"},
				{Name: "parentId", Label: "Parent", Kind: "select", Options: s.categoryOptions},
				flagField(),
			},
			values: func(c models.Category) backend.Fields {
				parent := ""
				if c.ParentID != nil {
					parent = formatID(*c.ParentID)
				}
				return backend.Fields{"name": c.Name, "description": c.Description, "parentId": parent, "status": flagValue(c.Status)}
			},
		},
		&adminResource[models.Topic]{
			s: s, name: "topics", title: "Topic", svc: s.api.Topics, creatable: true,
			id:     func(t models.Topic) int64 { return t.ID },
			label:  func(t models.Topic) string { return t.Name },
			status: func(t models.Topic) bool { return bool(t.Status) },
			columns: []column[models.Topic]{
				{"Name", func(t models.Topic) string { return t.Name }},
			},
			fields: []field{
				{Name: "name", Label: "Name", Kind: "text", Required: true},
				{Name: "description", Label: "Description", Kind: "textarea"},
				flagField(),
			},
			values: func(t models.Topic) backend.Fields {
				return backend.Fields{"name": t.Name, "description": t.Description, "status": flagValue(t.Status)}
			},
		},
		&adminResource[models.Post]{
			s: s, name: "posts", title: "Post", svc: s.api.Posts, creatable: true,
			id:     func(p models.Post) int64 { return p.ID },
			label:  func(p models.Post) string { return p.Title },
			status: func(p models.Post) bool { return bool(p.Status) },
			columns: []column[models.Post]{
				{"Title", func(p models.Post) string { return p.Title }},
				{"Topic", func(p models.Post) string {
					if p.Topic != nil {
						return p.Topic.Name
					}
					return ""
				}},
			},
			fields: []field{
				{Name: "title", Label: "Title", Kind: "text", Required: true},
				{Name: "content", Label: "Content", Kind: "textarea", Required: true},
				{Name: "image", Label: "Image", Kind: "text"},
				{Name: "topicId", Label: "Topic", Kind: "select", Options: s.topicOptions},
				flagField(),
			},
			values: func(p models.Post) backend.Fields {
				topic := formatID(p.TopicID)
				if p.Topic != nil {
					topic = formatID(p.Topic.ID)
				}
				return backend.Fields{"title": p.Title, "content": p.Content, "image": p.Image, "topicId": topic, "status": flagValue(p.Status)}
			},
		},
		&adminResource[models.Product]{
			s: s, name: "products", title: "Product", svc: s.api.Products, creatable: true,
			id:     func(p models.Product) int64 { return p.ID },
			label:  func(p models.Product) string { return p.Name },
			status: func(p models.Product) bool { return bool(p.Status) },
			columns: []column[models.Product]{
				{"Name", func(p models.Product) string { return p.Name }},
				{"Price", func(p models.Product) string { return money(p.Price) }},
				{"Sale price", func(p models.Product) string { return money(p.PriceSale) }},
				{"Stock", func(p models.Product) string { return strconv.Itoa(p.Quantity) }},
				{"Category", func(p models.Product) string {
					if p.Category != nil {
						return p.Category.Name
					}
					return ""
				}},
			},
			fields: []field{
				{Name: "name", Label: "Name", Kind: "text", Required: true},
				{Name: "description", Label: "Description", Kind: "textarea"},
				{Name: "price", Label: "Price", Kind: "number", Required: true},
				{Name: "priceSale", Label: "Sale price", Kind: "number"},
				{Name: "discountPrice", Label: "Discount price", Kind: "number"},
				{Name: "quantity", Label: "Stock", Kind: "number", Required: true},
				{Name: "categoryId", Label: "Category", Kind: "select", Required: true, Options: s.categoryOptions},
				{Name: "image", Label: "Image", Kind: "text"},
				{Name: "isOnSale", Label: "On sale", Kind: "checkbox"},
				flagField(),
			},
			values: func(p models.Product) backend.Fields {
				in := backend.Fields{
					"name":        p.Name,
					"description": p.Description,
					"price":       p.Price.String(),
					"quantity":    strconv.Itoa(p.Quantity),
					"image":       p.Image,
					"isOnSale":    flagValue(p.OnSale),
					"status":      flagValue(p.Status),
				}
				if p.PriceSale.Valid {
					in["priceSale"] = p.PriceSale.Decimal.String()
				}
				if p.DiscountPrice.Valid {
					in["discountPrice"] = p.DiscountPrice.Decimal.String()
				}
				if p.Category != nil {
					in["categoryId"] = formatID(p.Category.ID)
				}
				return in
			},
		},
		&adminResource[models.User]{
			s: s, name: "users", title: "User", svc: s.api.Users,
			id:     func(u models.User) int64 { return u.ID },
			label:  func(u models.User) string { return u.Username },
			status: func(u models.User) bool { return bool(u.Status) },
			columns: []column[models.User]{
				{"Username", func(u models.User) string { return u.Username }},
				{"Full name", func(u models.User) string { return u.FullName }},
				{"Email", func(u models.User) string { return u.Email }},
				{"Role", func(u models.User) string { return u.Role }},
			},
			fields: []field{
				{Name: "fullName", Label: "Full name", Kind: "text"},
				{Name: "email", Label: "Email", Kind: "text", Required: true},
				{Name: "phone", Label: "Phone", Kind: "text"},
				{Name: "address", Label: "Address", Kind: "text"},
				{Name: "role", Label: "Role", Kind: "select", Required: true, Options: roleOptions},
				flagField(),
			},
			values: func(u models.User) backend.Fields {
				return backend.Fields{"fullName": u.FullName, "email": u.Email, "phone": u.Phone, "address": u.Address, "role": u.Role, "status": flagValue(u.Status)}
			},
		},
	}
}
