package admin

import (
	"context"
	"encoding/json"
	"log"

	"authorsite/internal/entity"
	"authorsite/internal/platform/backend"
	"authorsite/internal/publish"

	"golang.org/x/sync/errgroup"
)

// Books is the book collection plus the featured-book operation.
type Books struct {
	*Collection[entity.Book]
}

func NewBooks(doer backend.Doer) *Books {
	return &Books{Collection: NewCollection[entity.Book](doer, "/api/books", Options[entity.Book]{})}
}

// SetFeatured marks id as the featured book, then unfeatures every other
// locally known featured book in parallel. There is no rollback: a failed
// unfeature leaves that book featured and its error is returned after all
// requests have settled.
func (b *Books) SetFeatured(ctx context.Context, token, id string) error {
	target, ok := b.Get(id)
	if !ok {
		return ErrNotFound
	}
	target.Featured = true
	if _, err := b.Update(ctx, token, id, target); err != nil {
		return err
	}

	var g errgroup.Group
	for _, other := range b.Items() {
		if other.ID == id || !other.Featured {
			continue
		}
		other.Featured = false
		g.Go(func() error {
			if _, err := b.Update(ctx, token, other.ID, other); err != nil {
				log.Printf("admin unfeature failed book=%s err=%v", other.ID, err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Featured returns the locally known featured books.
func (b *Books) Featured() []entity.Book {
	var out []entity.Book
	for _, it := range b.Items() {
		if it.Featured {
			out = append(out, it)
		}
	}
	return out
}

// NewBlog sends the boolean published flag as the backend's status enum and
// derives it back on every record read.
func NewBlog(doer backend.Doer) *Collection[entity.BlogPost] {
	return NewCollection(doer, "/api/blog", Options[entity.BlogPost]{
		Encode: encodeBlogPost,
		Decoded: func(p *entity.BlogPost) {
			p.Published = publish.IsPublished(p.Status)
		},
	})
}

func encodeBlogPost(p entity.BlogPost) (any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return publish.ToBackend(payload)
}

// NewGallery lists through the admin variant so drafts are included.
func NewGallery(doer backend.Doer) *Collection[entity.GalleryImage] {
	return NewCollection(doer, "/api/gallery", Options[entity.GalleryImage]{ListPath: "/api/gallery/admin"})
}

// Reviews is the review collection plus moderation.
type Reviews struct {
	*Collection[entity.Review]
}

func NewReviews(doer backend.Doer) *Reviews {
	return &Reviews{Collection: NewCollection[entity.Review](doer, "/api/reviews", Options[entity.Review]{})}
}

func (r *Reviews) SetApproved(ctx context.Context, token, id string, approved bool) (entity.Review, error) {
	review, ok := r.Get(id)
	if !ok {
		return entity.Review{}, ErrNotFound
	}
	review.Approved = approved
	return r.Update(ctx, token, id, review)
}

// Pending lists reviews awaiting approval.
func (r *Reviews) Pending() []entity.Review {
	var out []entity.Review
	for _, it := range r.Items() {
		if !it.Approved {
			out = append(out, it)
		}
	}
	return out
}

// Dashboard groups the four collections an admin edits.
type Dashboard struct {
	Books   *Books
	Blog    *Collection[entity.BlogPost]
	Gallery *Collection[entity.GalleryImage]
	Reviews *Reviews
}

func NewDashboard(doer backend.Doer) *Dashboard {
	return &Dashboard{
		Books:   NewBooks(doer),
		Blog:    NewBlog(doer),
		Gallery: NewGallery(doer),
		Reviews: NewReviews(doer),
	}
}
