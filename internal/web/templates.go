package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/pricing"
)

//go:embed templates
var templateFS embed.FS

// TemplateCache holds parsed page templates. Every page is parsed together
// with the shared layout files.
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
}

func NewTemplateCache(imageBaseURL string) *TemplateCache {
	tc := &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: make(template.FuncMap),
	}
	tc.funcs["money"] = money
	tc.funcs["price"] = func(p models.Product) string { return pricing.EffectivePrice(p).String() }
	tc.funcs["lineTotal"] = func(it models.LineItem) pricing.Amount {
		return pricing.EffectivePrice(it.Product) * pricing.Amount(it.Quantity)
	}
	tc.funcs["onSale"] = func(p models.Product) bool { return pricing.EffectivePrice(p) < pricing.Amount(p.Price.Round(0).IntPart()) }
	tc.funcs["image"] = func(name string) string { return imageURL(imageBaseURL, name) }
	tc.funcs["date"] = func(t models.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	}
	tc.funcs["prevPage"] = func(currentPage int) int { return currentPage - 1 }
	tc.funcs["nextPage"] = func(currentPage int) int { return currentPage + 1 }
	tc.funcs["selected"] = func(sel interface{ Contains(int64) bool }, id int64) bool { return sel != nil && sel.Contains(id) }
	return tc
}

func (tc *TemplateCache) AddFunc(name string, fn any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every page under templates/ of fsys. A nil fsys uses the
// embedded templates.
func (tc *TemplateCache) Load(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if fsys == nil {
		fsys = templateFS
	}

	pages, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return err
	}
	for _, page := range pages {
		name := path.Base(page)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, "templates/layout/*.html", page)
		if err != nil {
			slog.Error("Failed to parse template", "file", page, "error", err)
			return fmt.Errorf("parse %s: %w", name, err)
		}
		tc.cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

func money(v any) string {
	switch x := v.(type) {
	case pricing.Amount:
		return x.String()
	case int64:
		return pricing.Amount(x).String()
	case int:
		return pricing.Amount(x).String()
	case decimal.Decimal:
		return pricing.Amount(x.Round(0).IntPart()).String()
	case decimal.NullDecimal:
		if !x.Valid {
			return ""
		}
		return pricing.Amount(x.Decimal.Round(0).IntPart()).String()
	default:
		return fmt.Sprint(v)
	}
}

func imageURL(base, name string) string {
	if name == "" || strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") || strings.HasPrefix(name, "/") {
		return name
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}
