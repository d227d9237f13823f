package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"authorsite/internal/entity"
	"authorsite/internal/fallback"
	"authorsite/internal/httpx"
	"authorsite/internal/platform/backend"
	"authorsite/internal/publish"
)

type homeData struct {
	Featured entity.Book
	Posts    []entity.BlogPost
	Reviews  []entity.Review
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data homeData

	featured, _, err := h.content.FeaturedBook(ctx)
	if err != nil {
		log.Printf("home featured err=%v", err)
		featured = fallback.FeaturedBook()
	}
	data.Featured = featured

	if posts, _, err := h.content.BlogPosts(ctx); err == nil {
		data.Posts = firstN(publishedPosts(posts), 3)
	}
	if reviews, _, err := h.content.Reviews(ctx); err == nil {
		data.Reviews = firstN(approved(reviews), 3)
	}

	h.render(w, r, http.StatusOK, "home", view{Title: "Home", Data: data})
}

func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "about", view{Title: "About the Author"})
}

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "contact", view{Title: "Contact"})
}

func (h *Handler) Books(w http.ResponseWriter, r *http.Request) {
	books, _, err := h.content.Books(r.Context())
	if err != nil {
		books = fallback.Books()
	}
	var visible []entity.Book
	for _, b := range books {
		if isVisible(b.Status) {
			visible = append(visible, b)
		}
	}
	h.render(w, r, http.StatusOK, "books", view{Title: "Books", Data: visible})
}

type bookData struct {
	Book       entity.Book
	Reviews    []entity.Review
	Wishlisted bool
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	book, ok := h.findBook(r.Context(), r.PathValue("id"))
	if !ok || !isVisible(book.Status) {
		h.notFound(w, r)
		return
	}

	data := bookData{Book: book}
	if reviews, _, err := h.content.Reviews(r.Context()); err == nil {
		for _, rv := range approved(reviews) {
			if rv.BookID == book.ID {
				data.Reviews = append(data.Reviews, rv)
			}
		}
	}
	if v := VisitorFrom(r.Context()); v != nil {
		data.Wishlisted = v.Wishlist.IsInWishlist(book.ID)
	}
	h.render(w, r, http.StatusOK, "book", view{Title: book.Title, Data: data})
}

// findBook asks the backend for one book and falls back to the static
// catalogue when it cannot answer.
func (h *Handler) findBook(ctx context.Context, id string) (entity.Book, bool) {
	if id == "" {
		return entity.Book{}, false
	}
	resp, err := h.get(ctx, backend.ItemPath("/api/books", id), "")
	if err == nil {
		var book entity.Book
		if err := resp.DecodeRecord(&book); err == nil && book.ID != "" {
			return book, true
		}
	} else if !isNotFound(err) {
		log.Printf("book lookup failed id=%s err=%v", id, err)
	}
	return fallback.BookByID(id)
}

func (h *Handler) Blog(w http.ResponseWriter, r *http.Request) {
	posts, _, err := h.content.BlogPosts(r.Context())
	if err != nil {
		posts = fallback.BlogPosts()
	}
	posts = publishedPosts(posts)
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []entity.BlogPost
		for _, p := range posts {
			if strings.EqualFold(p.Category, category) {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	h.render(w, r, http.StatusOK, "blog", view{Title: "Blog", Data: posts})
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var post entity.BlogPost
	resp, err := h.get(r.Context(), backend.ItemPath("/api/blog", id), "")
	if err == nil {
		err = resp.DecodeRecord(&post)
	}
	if err != nil || post.ID == "" {
		if err != nil && !isNotFound(err) {
			log.Printf("post lookup failed id=%s err=%v", id, err)
		}
		var ok bool
		if post, ok = fallback.BlogPostByID(id); !ok {
			h.notFound(w, r)
			return
		}
	}
	post.Published = publish.IsPublished(post.Status)

	v := VisitorFrom(r.Context())
	if !post.Published && (v == nil || !v.Auth.IsAdmin()) {
		h.notFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, "post", view{Title: post.Title, Data: post})
}

func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	images, _, err := h.content.Gallery(r.Context())
	if err != nil {
		images = fallback.GalleryImages()
	}
	var visible []entity.GalleryImage
	for _, img := range images {
		if isVisible(img.Status) {
			visible = append(visible, img)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].Order < visible[j].Order })
	h.render(w, r, http.StatusOK, "gallery", view{Title: "Gallery", Data: visible})
}

type reviewForm struct {
	Name    string `form:"name" validate:"required"`
	Email   string `form:"email" validate:"omitempty,email"`
	Rating  int    `form:"rating" validate:"required,gte=1,lte=5"`
	Comment string `form:"comment" validate:"required,min=10"`
	BookID  string `form:"bookId"`
}

type reviewsData struct {
	Reviews []entity.Review
	Average float64
}

func (h *Handler) Reviews(w http.ResponseWriter, r *http.Request) {
	h.renderReviews(w, r, http.StatusOK, reviewForm{Rating: 5}, nil)
}

func (h *Handler) renderReviews(w http.ResponseWriter, r *http.Request, status int, form reviewForm, errs map[string]string) {
	var data reviewsData
	reviews, _, err := h.content.Reviews(r.Context())
	if err != nil {
		log.Printf("reviews load failed err=%v", err)
	}
	data.Reviews = approved(reviews)
	if len(data.Reviews) > 0 {
		total := 0
		for _, rv := range data.Reviews {
			total += rv.Rating
		}
		data.Average = float64(total) / float64(len(data.Reviews))
	}
	h.render(w, r, status, "reviews", view{Title: "Reviews", Form: form, Errors: errs, Data: data})
}

// SubmitReview validates a reader review and files it for moderation.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	rating, _ := strconv.Atoi(r.FormValue("rating"))
	form := reviewForm{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Rating:  rating,
		Comment: strings.TrimSpace(r.FormValue("comment")),
		BookID:  strings.TrimSpace(r.FormValue("bookId")),
	}
	if problems := httpx.ValidateStruct(form); len(problems) > 0 {
		h.renderReviews(w, r, http.StatusUnprocessableEntity, form, httpx.FieldErrors(problems))
		return
	}

	review := entity.Review{
		Name:    form.Name,
		Email:   form.Email,
		Rating:  form.Rating,
		Comment: form.Comment,
		BookID:  form.BookID,
	}
	resp, err := h.backend.Do(r.Context(), backend.Request{Method: http.MethodPost, Path: "/api/reviews", Body: review})
	if err == nil {
		err = resp.Err()
	}
	v := VisitorFrom(r.Context())
	if err != nil {
		log.Printf("review submit failed err=%v", err)
		h.renderReviews(w, r, http.StatusBadGateway, form, map[string]string{"": userMessage(err)})
		return
	}

	v.Flash("Thank you! Your review will appear once it has been approved.")
	if form.BookID != "" {
		redirect(w, r, "/books/"+form.BookID)
		return
	}
	redirect(w, r, "/reviews")
}

// isVisible hides drafts. Records without a status are shown.
func isVisible(s publish.Status) bool {
	return s == "" || publish.IsPublished(s)
}

func publishedPosts(posts []entity.BlogPost) []entity.BlogPost {
	var out []entity.BlogPost
	for _, p := range posts {
		if p.Published || p.Status == "" {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func approved(reviews []entity.Review) []entity.Review {
	var out []entity.Review
	for _, rv := range reviews {
		if rv.Approved {
			out = append(out, rv)
		}
	}
	return out
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func isNotFound(err error) bool {
	var apiErr *backend.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// userMessage is the text shown to a visitor for a failed backend call:
// the backend's own message when it sent one.
func userMessage(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, backend.ErrTimeout):
		return "The server took too long to respond. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
