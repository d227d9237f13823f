package content

import (
	"context"
	"encoding/json"
	"log"

	"authorsite/internal/entity"
	"authorsite/internal/fallback"
	"authorsite/internal/publish"
)

func (a *Accessor) FeaturedBook(ctx context.Context) (entity.Book, Source, error) {
	res, err := a.Get(ctx, FeaturedBook)
	if err != nil {
		return entity.Book{}, "", err
	}
	var book entity.Book
	if err := json.Unmarshal(unwrap(res.Payload), &book); err != nil || book.ID == "" {
		log.Printf("content decode failed type=%s err=%v", FeaturedBook, err)
		return fallback.FeaturedBook(), SourceFallback, nil
	}
	return book, res.Source, nil
}

func (a *Accessor) Books(ctx context.Context) ([]entity.Book, Source, error) {
	return decodeList(ctx, a, Books, fallback.Books)
}

func (a *Accessor) BlogPosts(ctx context.Context) ([]entity.BlogPost, Source, error) {
	posts, src, err := decodeList(ctx, a, Blog, fallback.BlogPosts)
	for i := range posts {
		posts[i].Published = publish.IsPublished(posts[i].Status)
	}
	return posts, src, err
}

func (a *Accessor) Reviews(ctx context.Context) ([]entity.Review, Source, error) {
	return decodeList(ctx, a, Reviews, fallback.Reviews)
}

func (a *Accessor) Gallery(ctx context.Context) ([]entity.GalleryImage, Source, error) {
	return decodeList(ctx, a, Gallery, fallback.GalleryImages)
}

func decodeList[T any](ctx context.Context, a *Accessor, t Type, fb func() []T) ([]T, Source, error) {
	res, err := a.Get(ctx, t)
	if err != nil {
		return nil, "", err
	}
	var items []T
	if err := json.Unmarshal(unwrap(res.Payload), &items); err != nil || len(items) == 0 {
		log.Printf("content decode failed type=%s err=%v", t, err)
		return fb(), SourceFallback, nil
	}
	return items, res.Source, nil
}
