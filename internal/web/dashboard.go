package web

import (
	"errors"
	"io"
	"log"
	"maps"
	"math"
	"net/http"
	"strconv"
	"strings"

	"authorsite/internal/admin"
	"authorsite/internal/content"
	"authorsite/internal/entity"
	"authorsite/internal/httpx"
	"authorsite/internal/publish"
)

const maxFormMemory = 10 << 20

type adminHomeData struct {
	Books, Posts, Images, PendingReviews int
	Featured                             []entity.Book
}

func (h *Handler) AdminHome(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	d := v.Admin
	token := v.Auth.Token()
	flash := ""
	for name, load := range map[string]func() error{
		"books":   func() error { return d.Books.Load(r.Context(), token) },
		"blog":    func() error { return d.Blog.Load(r.Context(), token) },
		"gallery": func() error { return d.Gallery.Load(r.Context(), token) },
		"reviews": func() error { return d.Reviews.Load(r.Context(), token) },
	} {
		if err := load(); err != nil {
			log.Printf("admin load failed collection=%s err=%v", name, err)
			flash = "Some collections could not be loaded."
		}
	}
	h.render(w, r, http.StatusOK, "admin_home", view{Title: "Dashboard", Flash: flash, Data: adminHomeData{
		Books:          len(d.Books.Items()),
		Posts:          len(d.Blog.Items()),
		Images:         len(d.Gallery.Items()),
		PendingReviews: len(d.Reviews.Pending()),
		Featured:       d.Books.Featured(),
	}})
}

// adminList is the shared shape of the collection screens: the list plus
// the add/edit form, which is open when Editing is set.
type adminList[T any] struct {
	Items   []T
	Editing bool
}

type bookForm struct {
	ID              string  `form:"id"`
	Title           string  `form:"title" validate:"required"`
	Author          string  `form:"author" validate:"required"`
	Description     string  `form:"description" validate:"required"`
	LongDescription string  `form:"longDescription"`
	Price           float64 `form:"price" validate:"gte=0"`
	Inventory       int     `form:"inventory" validate:"gte=0"`
	CoverImage      string  `form:"coverImage" validate:"omitempty,url_or_path"`
	Status          string  `form:"status" validate:"oneof=Draft Published"`
	Genre           string  `form:"genre"`
	ISBN            string  `form:"isbn"`
}

func (h *Handler) AdminBooks(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	flash := loadFlash(v.Admin.Books.Load(r.Context(), v.Auth.Token()), "books")

	form := bookForm{Status: string(publish.Published)}
	editing := r.URL.Query().Has("new")
	if id := r.URL.Query().Get("edit"); id != "" {
		if b, ok := v.Admin.Books.Get(id); ok {
			form = bookFormFrom(b)
			editing = true
		}
	}
	h.render(w, r, http.StatusOK, "admin_books", view{Title: "Books", Flash: flash, Form: form, Data: adminList[entity.Book]{Items: v.Admin.Books.Items(), Editing: editing}})
}

func bookFormFrom(b entity.Book) bookForm {
	return bookForm{
		ID: b.ID, Title: b.Title, Author: b.Author, Description: b.Description,
		LongDescription: b.LongDescription, Price: b.Price, Inventory: b.Inventory,
		CoverImage: b.CoverImage, Status: string(b.Status), Genre: b.Genre, ISBN: b.ISBN,
	}
}

// AdminBookSave creates the book when the form has no id and updates it
// otherwise.
func (h *Handler) AdminBookSave(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if err := parseForm(r); err != nil {
		h.badForm(w, r, err)
		return
	}
	nums := numberFields{}
	form := bookForm{
		ID:              r.FormValue("id"),
		Title:           strings.TrimSpace(r.FormValue("title")),
		Author:          strings.TrimSpace(r.FormValue("author")),
		Description:     strings.TrimSpace(r.FormValue("description")),
		LongDescription: strings.TrimSpace(r.FormValue("longDescription")),
		Price:           nums.floatValue(r, "price"),
		Inventory:       nums.intValue(r, "inventory"),
		Status:          r.FormValue("status"),
		Genre:           strings.TrimSpace(r.FormValue("genre")),
		ISBN:            strings.TrimSpace(r.FormValue("isbn")),
	}
	cover, err := h.resolveImage(r, "coverImage", "coverFile")
	if err != nil {
		h.adminFormError(w, r, "admin_books", form, v.Admin.Books.Items(), map[string]string{"coverImage": userMessage(err)})
		return
	}
	form.CoverImage = cover
	if errs := formErrors(form, nums); len(errs) > 0 {
		h.adminFormError(w, r, "admin_books", form, v.Admin.Books.Items(), errs)
		return
	}

	book, _ := v.Admin.Books.Get(form.ID)
	book.Title = form.Title
	book.Author = form.Author
	book.Description = form.Description
	book.LongDescription = form.LongDescription
	book.Price = form.Price
	book.Inventory = form.Inventory
	book.CoverImage = form.CoverImage
	book.Status = publish.Status(form.Status)
	book.Genre = form.Genre
	book.ISBN = form.ISBN

	token := v.Auth.Token()
	if form.ID == "" {
		_, err = v.Admin.Books.Create(r.Context(), token, book)
	} else {
		_, err = v.Admin.Books.Update(r.Context(), token, form.ID, book)
	}
	h.afterWrite(w, r, v, err, "Book saved.", "/admin/books")
}

func (h *Handler) AdminBookDelete(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	err := v.Admin.Books.Delete(r.Context(), v.Auth.Token(), r.PathValue("id"))
	h.afterWrite(w, r, v, err, "Book deleted.", "/admin/books")
}

func (h *Handler) AdminBookFeature(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if len(v.Admin.Books.Items()) == 0 {
		if err := v.Admin.Books.Load(r.Context(), v.Auth.Token()); err != nil {
			h.afterWrite(w, r, v, err, "", "/admin/books")
			return
		}
	}
	err := v.Admin.Books.SetFeatured(r.Context(), v.Auth.Token(), r.PathValue("id"))
	h.afterWrite(w, r, v, err, "Featured book updated.", "/admin/books")
}

type postForm struct {
	ID        string `form:"id"`
	Title     string `form:"title" validate:"required"`
	Content   string `form:"content" validate:"required"`
	Category  string `form:"category"`
	Image     string `form:"image" validate:"omitempty,url_or_path"`
	Published bool   `form:"published"`
}

func (h *Handler) AdminBlog(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	flash := loadFlash(v.Admin.Blog.Load(r.Context(), v.Auth.Token()), "blog")

	var form postForm
	editing := r.URL.Query().Has("new")
	if id := r.URL.Query().Get("edit"); id != "" {
		if p, ok := v.Admin.Blog.Get(id); ok {
			form = postForm{ID: p.ID, Title: p.Title, Content: p.Content, Category: p.Category, Image: p.Image, Published: p.Published}
			editing = true
		}
	}
	h.render(w, r, http.StatusOK, "admin_blog", view{Title: "Blog", Flash: flash, Form: form, Data: adminList[entity.BlogPost]{Items: v.Admin.Blog.Items(), Editing: editing}})
}

func (h *Handler) AdminPostSave(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if err := parseForm(r); err != nil {
		h.badForm(w, r, err)
		return
	}
	form := postForm{
		ID:        r.FormValue("id"),
		Title:     strings.TrimSpace(r.FormValue("title")),
		Content:   r.FormValue("content"),
		Category:  strings.TrimSpace(r.FormValue("category")),
		Published: r.FormValue("published") != "",
	}
	image, err := h.resolveImage(r, "image", "imageFile")
	if err != nil {
		h.adminFormError(w, r, "admin_blog", form, v.Admin.Blog.Items(), map[string]string{"image": userMessage(err)})
		return
	}
	form.Image = image
	if problems := httpx.ValidateStruct(form); len(problems) > 0 {
		h.adminFormError(w, r, "admin_blog", form, v.Admin.Blog.Items(), httpx.FieldErrors(problems))
		return
	}

	post, _ := v.Admin.Blog.Get(form.ID)
	post.Title = form.Title
	post.Content = form.Content
	post.Category = form.Category
	post.Image = form.Image
	post.Published = form.Published

	token := v.Auth.Token()
	if form.ID == "" {
		_, err = v.Admin.Blog.Create(r.Context(), token, post)
	} else {
		_, err = v.Admin.Blog.Update(r.Context(), token, form.ID, post)
	}
	h.afterWrite(w, r, v, err, "Post saved.", "/admin/blog")
}

func (h *Handler) AdminPostDelete(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	err := v.Admin.Blog.Delete(r.Context(), v.Auth.Token(), r.PathValue("id"))
	h.afterWrite(w, r, v, err, "Post deleted.", "/admin/blog")
}

type imageForm struct {
	ID          string `form:"id"`
	Title       string `form:"title" validate:"required"`
	Description string `form:"description"`
	Alt         string `form:"alt"`
	Src         string `form:"src" validate:"required"`
	Status      string `form:"status" validate:"oneof=Draft Published"`
	Order       int    `form:"order" validate:"gte=0"`
}

func (h *Handler) AdminGallery(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	flash := loadFlash(v.Admin.Gallery.Load(r.Context(), v.Auth.Token()), "gallery")

	form := imageForm{Status: string(publish.Published)}
	editing := r.URL.Query().Has("new")
	if id := r.URL.Query().Get("edit"); id != "" {
		if img, ok := v.Admin.Gallery.Get(id); ok {
			form = imageForm{ID: img.ID, Title: img.Title, Description: img.Description, Alt: img.Alt, Src: img.Src, Status: string(img.Status), Order: img.Order}
			editing = true
		}
	}
	h.render(w, r, http.StatusOK, "admin_gallery", view{Title: "Gallery", Flash: flash, Form: form, Data: adminList[entity.GalleryImage]{Items: v.Admin.Gallery.Items(), Editing: editing}})
}

func (h *Handler) AdminImageSave(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if err := parseForm(r); err != nil {
		h.badForm(w, r, err)
		return
	}
	nums := numberFields{}
	form := imageForm{
		ID:          r.FormValue("id"),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Alt:         strings.TrimSpace(r.FormValue("alt")),
		Status:      r.FormValue("status"),
		Order:       nums.intValue(r, "order"),
	}
	src, err := h.resolveImage(r, "src", "file")
	if err != nil {
		h.adminFormError(w, r, "admin_gallery", form, v.Admin.Gallery.Items(), map[string]string{"src": userMessage(err)})
		return
	}
	form.Src = src
	if errs := formErrors(form, nums); len(errs) > 0 {
		h.adminFormError(w, r, "admin_gallery", form, v.Admin.Gallery.Items(), errs)
		return
	}

	img, _ := v.Admin.Gallery.Get(form.ID)
	img.Title = form.Title
	img.Description = form.Description
	img.Alt = form.Alt
	img.Src = form.Src
	img.Status = publish.Status(form.Status)
	img.Order = form.Order

	token := v.Auth.Token()
	if form.ID == "" {
		_, err = v.Admin.Gallery.Create(r.Context(), token, img)
	} else {
		_, err = v.Admin.Gallery.Update(r.Context(), token, form.ID, img)
	}
	h.afterWrite(w, r, v, err, "Image saved.", "/admin/gallery")
}

func (h *Handler) AdminImageDelete(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	err := v.Admin.Gallery.Delete(r.Context(), v.Auth.Token(), r.PathValue("id"))
	h.afterWrite(w, r, v, err, "Image deleted.", "/admin/gallery")
}

func (h *Handler) AdminReviews(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	flash := loadFlash(v.Admin.Reviews.Load(r.Context(), v.Auth.Token()), "reviews")
	h.render(w, r, http.StatusOK, "admin_reviews", view{Title: "Reviews", Flash: flash, Data: adminList[entity.Review]{Items: v.Admin.Reviews.Items()}})
}

func (h *Handler) AdminReviewApprove(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	id := r.PathValue("id")
	if _, ok := v.Admin.Reviews.Get(id); !ok {
		if err := v.Admin.Reviews.Load(r.Context(), v.Auth.Token()); err != nil {
			h.afterWrite(w, r, v, err, "", "/admin/reviews")
			return
		}
	}
	approved := r.FormValue("approved") != "false"
	_, err := v.Admin.Reviews.SetApproved(r.Context(), v.Auth.Token(), id, approved)
	msg := "Review approved."
	if !approved {
		msg = "Review hidden."
	}
	h.afterWrite(w, r, v, err, msg, "/admin/reviews")
}

func (h *Handler) AdminReviewDelete(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	err := v.Admin.Reviews.Delete(r.Context(), v.Auth.Token(), r.PathValue("id"))
	h.afterWrite(w, r, v, err, "Review deleted.", "/admin/reviews")
}

// afterWrite flashes the outcome of a dashboard write and returns to the
// list. The list is reconciled locally, so no reload is needed.
func (h *Handler) afterWrite(w http.ResponseWriter, r *http.Request, v *Visitor, err error, ok, to string) {
	switch {
	case err == nil:
		v.Flash(ok)
		for _, tag := range collectionTags(to) {
			h.content.Revalidate(tag)
		}
	case errors.Is(err, admin.ErrNotFound):
		v.Flash("That record no longer exists.")
	default:
		log.Printf("admin write failed path=%s err=%v", r.URL.Path, err)
		v.Flash(userMessage(err))
	}
	redirect(w, r, to)
}

// collectionTags names the cached content a dashboard write invalidates.
func collectionTags(listPath string) []string {
	switch listPath {
	case "/admin/books":
		return []string{string(content.Books), string(content.FeaturedBook)}
	case "/admin/blog":
		return []string{string(content.Blog)}
	case "/admin/gallery":
		return []string{string(content.Gallery)}
	default:
		return []string{string(content.Reviews)}
	}
}

func (h *Handler) badForm(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("admin form unreadable path=%s err=%v", r.URL.Path, err)
	h.render(w, r, http.StatusBadRequest, "error", view{Title: "Bad request", Data: "The form could not be read."})
}

func (h *Handler) adminFormError(w http.ResponseWriter, r *http.Request, page string, form any, items any, errs map[string]string) {
	var data any
	switch it := items.(type) {
	case []entity.Book:
		data = adminList[entity.Book]{Items: it, Editing: true}
	case []entity.BlogPost:
		data = adminList[entity.BlogPost]{Items: it, Editing: true}
	case []entity.GalleryImage:
		data = adminList[entity.GalleryImage]{Items: it, Editing: true}
	}
	h.render(w, r, http.StatusUnprocessableEntity, page, view{Title: "Fix the form", Form: form, Errors: errs, Data: data})
}

// resolveImage reads an optional file upload and typed URL from the form.
func (h *Handler) resolveImage(r *http.Request, urlField, fileField string) (string, error) {
	var (
		file     io.Reader
		filename string
	)
	f, header, err := r.FormFile(fileField)
	switch {
	case err == nil:
		defer f.Close()
		file, filename = f, header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return "", err
	}
	return admin.ResolveImage(r.Context(), h.uploader, r.FormValue(urlField), file, filename)
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

func loadFlash(err error, collection string) string {
	if err == nil {
		return ""
	}
	log.Printf("admin load failed collection=%s err=%v", collection, err)
	return "Could not load " + collection + ": " + userMessage(err)
}

// numberFields reads numeric form values, recording a field error for any
// that is not a number. Blank values read as zero.
type numberFields map[string]string

func (nf numberFields) floatValue(r *http.Request, name string) float64 {
	s := strings.TrimSpace(r.FormValue(name))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		nf[name] = name + " must be a number"
		return 0
	}
	return f
}

func (nf numberFields) intValue(r *http.Request, name string) int {
	s := strings.TrimSpace(r.FormValue(name))
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		nf[name] = name + " must be a whole number"
		return 0
	}
	return n
}

// formErrors merges validation problems with numeric parse errors; the
// parse error wins for a field that has both.
func formErrors(form any, nums numberFields) map[string]string {
	errs := httpx.FieldErrors(httpx.ValidateStruct(form))
	maps.Copy(errs, nums)
	return errs
}
