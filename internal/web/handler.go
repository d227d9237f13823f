// Package web renders the site's pages. Page handlers read content through
// the fallback-aware accessor and keep per-visitor state (login, cart,
// wishlist, checkout) in server-side sessions.
package web

import (
	"context"
	"html/template"
	"net/http"
	"net/url"

	"authorsite/internal/content"
	"authorsite/internal/platform/backend"
	"authorsite/internal/platform/upload"
)

type Handler struct {
	backend  backend.Doer
	content  *content.Accessor
	sessions *Sessions
	uploader upload.Uploader
	pages    map[string]*template.Template
}

func NewHandler(doer backend.Doer, accessor *content.Accessor, sessions *Sessions, uploader upload.Uploader) (*Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Handler{
		backend:  doer,
		content:  accessor,
		sessions: sessions,
		uploader: uploader,
		pages:    pages,
	}, nil
}

// Register mounts the pages on mux. Every page runs inside a visitor
// session; /admin pages additionally need an admin login.
func (h *Handler) Register(mux *http.ServeMux) {
	page := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.sessions.Middleware(fn))
	}
	adminPage := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.sessions.Middleware(requireAdmin(fn)))
	}

	mux.Handle("GET /static/", StaticHandler())

	page("GET /{$}", h.Home)
	page("GET /about", h.About)
	page("GET /contact", h.Contact)
	page("GET /books", h.Books)
	page("GET /books/{id}", h.Book)
	page("GET /blog", h.Blog)
	page("GET /blog/{id}", h.Post)
	page("GET /gallery", h.Gallery)
	page("GET /reviews", h.Reviews)
	page("POST /reviews", h.SubmitReview)

	page("GET /cart", h.Cart)
	page("POST /cart/add", h.CartAdd)
	page("POST /cart/update", h.CartUpdate)
	page("POST /cart/remove", h.CartRemove)
	page("POST /cart/clear", h.CartClear)
	page("GET /wishlist", h.Wishlist)
	page("POST /wishlist/add", h.WishlistAdd)
	page("POST /wishlist/remove", h.WishlistRemove)
	page("POST /wishlist/move", h.WishlistMoveToCart)
	page("GET /checkout", h.Checkout)
	page("POST /checkout/shipping", h.CheckoutShipping)
	page("POST /checkout/back", h.CheckoutBack)
	page("POST /checkout/place", h.CheckoutPlace)
	page("GET /orders/{id}", h.Order)

	page("GET /login", h.Login)
	page("POST /login", h.LoginSubmit)
	page("GET /signup", h.Signup)
	page("POST /signup", h.SignupSubmit)
	page("POST /logout", h.Logout)
	page("GET /account", h.Account)

	adminPage("GET /admin", h.AdminHome)
	adminPage("GET /admin/books", h.AdminBooks)
	adminPage("POST /admin/books", h.AdminBookSave)
	adminPage("POST /admin/books/{id}/delete", h.AdminBookDelete)
	adminPage("POST /admin/books/{id}/feature", h.AdminBookFeature)
	adminPage("GET /admin/blog", h.AdminBlog)
	adminPage("POST /admin/blog", h.AdminPostSave)
	adminPage("POST /admin/blog/{id}/delete", h.AdminPostDelete)
	adminPage("GET /admin/gallery", h.AdminGallery)
	adminPage("POST /admin/gallery", h.AdminImageSave)
	adminPage("POST /admin/gallery/{id}/delete", h.AdminImageDelete)
	adminPage("GET /admin/reviews", h.AdminReviews)
	adminPage("POST /admin/reviews/{id}/approve", h.AdminReviewApprove)
	adminPage("POST /admin/reviews/{id}/delete", h.AdminReviewDelete)

	page("/", h.notFound)
}

// requireAdmin sends anyone without an admin session to the login page.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := VisitorFrom(r.Context())
		if v == nil || !v.Auth.IsAdmin() {
			redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireLogin reports whether the visitor is logged in, redirecting to the
// login page when not.
func requireLogin(w http.ResponseWriter, r *http.Request) (*Visitor, bool) {
	v := VisitorFrom(r.Context())
	if v == nil || !v.Auth.IsAuthenticated() {
		redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()))
		return nil, false
	}
	return v, true
}

// get fetches one backend resource with the visitor's token, if any.
func (h *Handler) get(ctx context.Context, path, token string) (*backend.Response, error) {
	resp, err := h.backend.Do(ctx, backend.Request{Method: http.MethodGet, Path: path, Token: token})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
