package proxy

import (
	"log"
	"net/http"
	"time"

	"authorsite/internal/content"
	"authorsite/internal/entity"
	"authorsite/internal/fallback"
	"authorsite/internal/httpx"
	"authorsite/internal/platform/backend"
)

// Register mounts every /api route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	authed := func(fn http.HandlerFunc) http.Handler { return httpx.RequireBearer(fn) }

	mux.HandleFunc("GET /api/books", h.ListBooks)
	mux.Handle("POST /api/books", authed(h.BookWrite))
	mux.HandleFunc("GET /api/books/featured", h.FeaturedBook)
	mux.HandleFunc("GET /api/books/{id}", h.Book)
	mux.Handle("PUT /api/books/{id}", authed(h.BookWrite))
	mux.Handle("DELETE /api/books/{id}", authed(h.BookWrite))

	mux.HandleFunc("GET /api/blog", h.ListBlog)
	mux.Handle("POST /api/blog", authed(h.BlogWrite))
	mux.HandleFunc("GET /api/blog/{id}", h.BlogPost)
	mux.Handle("PUT /api/blog/{id}", authed(h.BlogWrite))
	mux.Handle("DELETE /api/blog/{id}", authed(h.BlogWrite))

	mux.HandleFunc("GET /api/gallery", h.ListGallery)
	mux.Handle("POST /api/gallery", authed(h.GalleryWrite))
	mux.HandleFunc("GET /api/gallery/{id}", h.GalleryImage)
	mux.Handle("PUT /api/gallery/{id}", authed(h.GalleryWrite))
	mux.Handle("DELETE /api/gallery/{id}", authed(h.GalleryWrite))

	mux.HandleFunc("GET /api/reviews", h.ListReviews)
	mux.HandleFunc("POST /api/reviews", h.SubmitReview)
	mux.HandleFunc("GET /api/reviews/{id}", h.Review)
	mux.Handle("PUT /api/reviews/{id}", authed(h.ReviewWrite))
	mux.Handle("DELETE /api/reviews/{id}", authed(h.ReviewWrite))

	mux.Handle("GET /api/orders", authed(h.Orders))
	mux.Handle("POST /api/orders", authed(h.Orders))
	mux.Handle("GET /api/orders/{id}", authed(h.Orders))

	mux.HandleFunc("POST /api/auth/login", h.Auth)
	mux.HandleFunc("POST /api/auth/register", h.Auth)
	mux.HandleFunc("POST /api/auth/auto-register", h.Auth)
	mux.Handle("GET /api/auth/me", authed(h.Auth))

	mux.HandleFunc("POST /api/revalidate", h.Revalidate)
	mux.Handle("POST /api/upload", authed(h.Upload))
}

// @Summary List books
// @Description Lists books from the backend, or the fallback catalogue when the backend fails
// @Tags books
// @Produce json
// @Success 200 {array} entity.Book
// @Router /api/books [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "/api/books", route{}, func() any { return fallback.Books() })
}

// @Summary Get the featured book
// @Tags books
// @Produce json
// @Success 200 {object} entity.Book
// @Router /api/books/featured [get]
func (h *Handler) FeaturedBook(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, "/api/books/featured", route{})
}

// @Summary Get book by id
// @Tags books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} entity.Book
// @Failure 404 {object} map[string]string
// @Router /api/books/{id} [get]
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.ItemPath("/api/books", r.PathValue("id")), route{})
}

// @Summary Create, update or delete a book
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/books/{id} [put]
func (h *Handler) BookWrite(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, itemPath("/api/books", r), route{toBackend: true, tags: []content.Type{content.Books, content.FeaturedBook}})
}

// @Summary List blog posts
// @Description Lists posts with "published" derived from status, or the fallback posts when the backend fails
// @Tags blog
// @Produce json
// @Success 200 {array} entity.BlogPost
// @Router /api/blog [get]
func (h *Handler) ListBlog(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "/api/blog", route{fromBackend: true}, func() any { return fallback.BlogPosts() })
}

// @Summary Get blog post by id
// @Tags blog
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} entity.BlogPost
// @Failure 404 {object} map[string]string
// @Router /api/blog/{id} [get]
func (h *Handler) BlogPost(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.ItemPath("/api/blog", r.PathValue("id")), route{fromBackend: true})
}

// @Summary Create, update or delete a blog post
// @Description A boolean "published" in the body is sent to the backend as status Draft or Published
// @Tags blog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/blog [post]
func (h *Handler) BlogWrite(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, itemPath("/api/blog", r), route{toBackend: true, fromBackend: true, tags: []content.Type{content.Blog}})
}

// @Summary List gallery images
// @Description Public requests fall back to the static gallery; bearer requests list the admin variant and fall back to an empty list
// @Tags gallery
// @Produce json
// @Success 200 {array} entity.GalleryImage
// @Router /api/gallery [get]
func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	if httpx.BearerToken(r) != "" {
		h.list(w, r, "/api/gallery/admin", route{}, func() any { return []entity.GalleryImage{} })
		return
	}
	h.list(w, r, "/api/gallery", route{}, func() any { return fallback.GalleryImages() })
}

func (h *Handler) GalleryImage(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.ItemPath("/api/gallery", r.PathValue("id")), route{})
}

// @Summary Create, update or delete a gallery image
// @Tags gallery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/gallery [post]
func (h *Handler) GalleryWrite(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, itemPath("/api/gallery", r), route{toBackend: true, tags: []content.Type{content.Gallery}})
}

// @Summary List reviews
// @Description Backend failures are passed through, unlike the other lists
// @Tags reviews
// @Produce json
// @Router /api/reviews [get]
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, "/api/reviews", route{})
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.ItemPath("/api/reviews", r.PathValue("id")), route{})
}

// @Summary Submit a review
// @Description Reader submissions are always stored unapproved
// @Tags reviews
// @Accept json
// @Produce json
// @Router /api/reviews [post]
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	raw, err := requestBody(r, false)
	if err != nil || raw == nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}
	payload, err := decodeObject(raw.([]byte))
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}
	payload["approved"] = false
	delete(payload, "isVerified")

	resp, err := h.backend.Do(r.Context(), backendRequest(r, "/api/reviews", payload))
	if err != nil {
		backendFailure(w, r, "/api/reviews", err)
		return
	}
	httpx.WriteRaw(w, resp.StatusCode, resp.Body)
}

// @Summary Update or delete a review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/reviews/{id} [put]
func (h *Handler) ReviewWrite(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, itemPath("/api/reviews", r), route{tags: []content.Type{content.Reviews}})
}

// @Summary List, create or fetch orders
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/orders [post]
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, itemPath("/api/orders", r), route{})
}

// @Summary Login, register, auto-register or fetch the current user
// @Tags auth
// @Accept json
// @Produce json
// @Router /api/auth/login [post]
func (h *Handler) Auth(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, r.URL.Path, route{})
}

// @Summary Expire cached content for one tag
// @Tags content
// @Produce json
// @Param tag query string true "featured-book, books, blog, reviews or gallery"
// @Param secret query string false "Required when a revalidation secret is configured"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} httpx.ErrorResponse
// @Router /api/revalidate [post]
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if h.revalidateSecret != "" && q.Get("secret") != h.revalidateSecret {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid revalidation secret", nil)
		return
	}
	tag := q.Get("tag")
	if tag == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Missing tag parameter", nil)
		return
	}
	if !h.content.Revalidate(tag) {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Unknown tag", []httpx.ErrorDetail{{Field: "tag", Message: tag}})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"revalidated": true,
		"tag":         tag,
		"now":         time.Now().UnixMilli(),
	})
}

// @Summary Upload an image
// @Description Stores the multipart "file" field with the image host and returns its public URL
// @Tags upload
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "No file provided", nil)
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		log.Printf("proxy upload failed file=%s err=%v", header.Filename, err)
		httpx.JSONError(w, r, http.StatusBadGateway, "UPLOAD_FAILED", "Upload failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func itemPath(base string, r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return backend.ItemPath(base, id)
	}
	return base
}
