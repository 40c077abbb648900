package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/models"
)

const homeSectionSize = 8

type homePage struct {
	Banners    []models.Banner
	OnSale     []models.Product
	MostViewed []models.Product
	Categories []models.Category
	Posts      []models.Post
}

// Home loads its sections in parallel. A failed section renders empty; the
// page never fails as a whole.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromCtx(ctx)

	var (
		page homePage
		wg   sync.WaitGroup
	)
	load := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Warn("home section failed", "section", name, "error", err)
			}
		}()
	}

	load("banners", func(ctx context.Context) (err error) {
		page.Banners, err = s.api.Banners.List(ctx)
		page.Banners = activeOnly(page.Banners, models.Banner.Visible)
		return err
	})
	load("on-sale", func(ctx context.Context) (err error) {
		page.OnSale, err = s.api.Products.OnSale(ctx)
		page.OnSale = firstN(page.OnSale, homeSectionSize)
		return err
	})
	load("most-viewed", func(ctx context.Context) (err error) {
		page.MostViewed, err = s.api.Products.MostViewed(ctx)
		page.MostViewed = firstN(page.MostViewed, homeSectionSize)
		return err
	})
	load("categories", func(ctx context.Context) (err error) {
		page.Categories, err = s.api.Categories.List(ctx)
		page.Categories = activeOnly(page.Categories, models.Category.Visible)
		return err
	})
	load("posts", func(ctx context.Context) (err error) {
		page.Posts, err = s.api.Posts.List(ctx)
		page.Posts = firstN(activeOnly(page.Posts, models.Post.Visible), 4)
		return err
	})
	wg.Wait()

	s.render(w, r, http.StatusOK, "home.html", "Home", page)
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func activeOnly[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

type productsPage struct {
	Query      string
	Category   *models.Category
	Categories []models.Category
	Sort       string
	Page       *backend.ProductPage
	Err        string
}

func productQuery(r *http.Request) backend.ProductQuery {
	q := r.URL.Query()
	page, pageSize := pageParams(r)
	pq := backend.ProductQuery{
		Q:     strings.TrimSpace(q.Get("q")),
		Page:  page,
		Limit: pageSize,
	}
	pq.Category, _ = strconv.ParseInt(q.Get("category"), 10, 64)
	pq.MinPrice, _ = strconv.ParseInt(q.Get("minPrice"), 10, 64)
	pq.MaxPrice, _ = strconv.ParseInt(q.Get("maxPrice"), 10, 64)
	pq.OnSale = q.Get("onSale") == "true"

	switch q.Get("sort") {
	case "price-asc":
		pq.Sort, pq.Order = "price", "asc"
	case "price-desc":
		pq.Sort, pq.Order = "price", "desc"
	case "newest":
		pq.Sort, pq.Order = "createdAt", "desc"
	case "popular":
		pq.Sort, pq.Order = "view", "desc"
	}
	return pq
}

// Products lists and searches the catalog.
func (s *Server) Products(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pq := productQuery(r)

	data := productsPage{Query: pq.Q, Sort: r.URL.Query().Get("sort")}
	if cats, err := s.api.Categories.List(ctx); err == nil {
		data.Categories = activeOnly(cats, models.Category.Visible)
	}

	page, err := s.api.Products.Search(ctx, pq)
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/")
			return
		}
		data.Err = backend.Message(err)
	}
	data.Page = page

	s.render(w, r, http.StatusOK, "products.html", "Products", data)
}

func (s *Server) Category(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	cat, err := s.api.Categories.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err, "/products")
		return
	}

	data := productsPage{Category: cat, Sort: r.URL.Query().Get("sort")}
	page, err := s.api.Products.ByCategory(ctx, id, productQuery(r))
	if err != nil {
		data.Err = backend.Message(err)
	}
	data.Page = page

	s.render(w, r, http.StatusOK, "products.html", cat.Name, data)
}

type productPage struct {
	Product models.Product
	Related []models.Product
}

func (s *Server) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	p, err := s.api.Products.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err, "/products")
		return
	}

	data := productPage{Product: *p}
	if p.Category != nil {
		related, err := s.api.Products.ByCategory(ctx, p.Category.ID, backend.ProductQuery{Limit: 5})
		if err != nil {
			logging.FromCtx(ctx).Warn("load related products failed", "product_id", id, "error", err)
		} else {
			for _, rp := range related.Products {
				if rp.ID != p.ID && len(data.Related) < 4 {
					data.Related = append(data.Related, rp)
				}
			}
		}
	}

	s.render(w, r, http.StatusOK, "product.html", p.Name, data)
}

type postsPage struct {
	Query  string
	Topic  *models.Topic
	Topics []models.Topic
	Page   OffsetPage[models.Post]
	Err    string
}

func (s *Server) Posts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		posts []models.Post
		err   error
	)
	if q != "" {
		posts, err = s.api.Posts.Search(ctx, q)
	} else {
		posts, err = s.api.Posts.List(ctx)
	}
	s.renderPosts(w, r, postsPage{Query: q}, posts, err)
}

func (s *Server) Topic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx := r.Context()

	topic, err := s.api.Topics.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err, "/posts")
		return
	}
	posts, err := s.api.Posts.ByTopic(ctx, id)
	s.renderPosts(w, r, postsPage{Topic: topic}, posts, err)
}

func (s *Server) renderPosts(w http.ResponseWriter, r *http.Request, data postsPage, posts []models.Post, err error) {
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/")
			return
		}
		data.Err = backend.Message(err)
	}
	if topics, terr := s.api.Topics.List(r.Context()); terr == nil {
		data.Topics = activeOnly(topics, models.Topic.Visible)
	}

	page, pageSize := pageParams(r)
	data.Page = Paginate(activeOnly(posts, models.Post.Visible), page, pageSize)

	title := "News"
	if data.Topic != nil {
		title = data.Topic.Name
	}
	s.render(w, r, http.StatusOK, "posts.html", title, data)
}

func (s *Server) PostDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.notFound(w, r)
		return
	}

	p, err := s.api.Posts.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "/posts")
		return
	}
	s.render(w, r, http.StatusOK, "post.html", p.Title, p)
}

func (s *Server) ContactForm(w http.ResponseWriter, r *http.Request) {
	var form ContactForm
	if id := sessionUser(r); id != nil {
		form.Name = id.DisplayName()
		form.Email = id.Email
		form.Phone = id.Phone
	}
	s.render(w, r, http.StatusOK, "contact.html", "Contact", formView[ContactForm]{Form: form})
}

func (s *Server) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var form ContactForm
	if errs := parseForm(r, &form); errs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "contact.html", "Contact", formView[ContactForm]{Form: form, Errors: errs})
		return
	}

	err := s.api.Contacts.Submit(r.Context(), backend.ContactRequest{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Message: form.Message,
	})
	if err != nil {
		if errorIsAuth(err) {
			s.fail(w, r, err, "/contact")
			return
		}
		s.render(w, r, http.StatusBadGateway, "contact.html", "Contact", formView[ContactForm]{Form: form, Error: backend.Message(err)})
		return
	}

	s.flash(w, r, "success", "Thank you! Your message has been sent.")
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}
