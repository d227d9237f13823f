package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"authorsite/internal/currency"
	"authorsite/internal/entity"

	"github.com/russross/blackfriday/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticHandler serves the embedded /static/ assets.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

var funcs = template.FuncMap{
	"price":    currency.FormatPrice,
	"amount":   currency.FormatAmount,
	"markdown": renderMarkdown,
	"date":     formatDate,
	"excerpt":  excerpt,
	"stars":    stars,
}

func renderMarkdown(src string) template.HTML {
	// blog content is written by admins only
	return template.HTML(blackfriday.Run([]byte(src)))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

func stars(rating int) string {
	rating = min(max(rating, 0), 5)
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

var pageNames = []string{
	"home", "about", "contact", "books", "book", "blog", "post", "gallery", "reviews",
	"cart", "wishlist", "checkout", "order", "login", "signup", "account", "error",
	"admin_home", "admin_books", "admin_blog", "admin_gallery", "admin_reviews",
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// view is what every page template receives.
type view struct {
	Title         string
	User          *entity.User
	IsAdmin       bool
	CartCount     int
	WishlistCount int
	Flash         string
	Errors        map[string]string
	Form          any
	Data          any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	if visitor := VisitorFrom(r.Context()); visitor != nil {
		if u, ok := visitor.Auth.User(); ok {
			v.User = &u
			v.IsAdmin = u.IsAdmin()
		}
		v.CartCount = visitor.Cart.GetTotalItems()
		v.WishlistCount = len(visitor.Wishlist.Items())
		if v.Flash == "" {
			v.Flash = visitor.takeFlash()
		}
	}

	t, ok := h.pages[name]
	if !ok {
		log.Printf("render unknown page=%s", name)
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}

	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, "layout.html", v); err != nil {
		log.Printf("render failed page=%s err=%v", name, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "error", view{Title: "Not found", Data: "The page you were looking for does not exist."})
}

// redirect answers a form POST with 303 so a reload does not resubmit.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
