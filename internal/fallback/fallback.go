// Package fallback holds the static content served when the backend is
// unreachable or has nothing to show.
package fallback

import (
	"time"

	"authorsite/internal/entity"
	"authorsite/internal/publish"
)

var published = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func FeaturedBook() entity.Book {
	return entity.Book{
		ID:     "fallback-book-1",
		Title:  "The River Remembers",
		Author: "Amna Rauf",
		Description: "A family saga that follows three generations along the banks of the Indus, " +
			"where every flood washes something away and leaves something behind.",
		LongDescription: "When Zainab returns to her grandmother's house in Thatta after twenty years abroad, " +
			"she finds letters hidden beneath the floorboards that rewrite everything she believed about " +
			"her family. Moving between 1947 and the present day, The River Remembers is a story of " +
			"partition, belonging and the stubborn memory of water.",
		Price:       1500,
		CoverImage:  "/static/img/the-river-remembers.jpg",
		Status:      publish.Published,
		Inventory:   100,
		Featured:    true,
		Genre:       "Literary Fiction",
		Year:        2024,
		Pages:       312,
		ISBN:        "978-969-0-00000-1",
		Language:    "English",
		Publisher:   "Independent",
		Rating:      4.8,
		ReviewCount: 3,
		CreatedAt:   published,
		UpdatedAt:   published,
	}
}

func Books() []entity.Book {
	return []entity.Book{FeaturedBook()}
}

func BlogPosts() []entity.BlogPost {
	posts := []entity.BlogPost{
		{
			ID:       "fallback-post-1",
			Title:    "Why I Keep Writing About Rivers",
			Content:  "Rivers were the first stories I ever heard.\n\nMy grandmother measured her life in floods: the year the water reached the mango trees, the year it took the school. When I sat down to write my first novel, the river was already there, waiting.",
			Category: "Writing",
			Image:    "/static/img/blog-rivers.jpg",
			Status:   publish.Published,
			Views:    0,
		},
		{
			ID:       "fallback-post-2",
			Title:    "Notes From the Launch Tour",
			Content:  "Thank you to everyone who came out in **Karachi**, **Lahore** and **Islamabad**.\n\nA few highlights:\n\n- a reader who brought her grandmother's letters\n- a bookshop that stayed open past midnight\n- more chai than any one person should drink",
			Category: "Events",
			Image:    "/static/img/blog-tour.jpg",
			Status:   publish.Published,
			Views:    0,
		},
		{
			ID:       "fallback-post-3",
			Title:    "What I'm Reading This Season",
			Content:  "A short list of books that have kept me company while drafting the next novel. None of them are about rivers, which is probably the point.",
			Category: "Reading",
			Status:   publish.Published,
			Views:    0,
		},
	}
	for i := range posts {
		posts[i].Published = publish.IsPublished(posts[i].Status)
		posts[i].CreatedAt = published.AddDate(0, 0, i*14)
		posts[i].UpdatedAt = posts[i].CreatedAt
	}
	return posts
}

func GalleryImages() []entity.GalleryImage {
	images := []entity.GalleryImage{
		{ID: "fallback-gallery-1", Title: "Launch night", Alt: "Author signing books at the launch", Src: "/static/img/gallery-launch.jpg", Order: 1},
		{ID: "fallback-gallery-2", Title: "Writing desk", Alt: "A desk with notebooks and a cup of tea", Src: "/static/img/gallery-desk.jpg", Order: 2},
		{ID: "fallback-gallery-3", Title: "The Indus at dusk", Alt: "The Indus river at sunset", Src: "/static/img/gallery-indus.jpg", Order: 3},
		{ID: "fallback-gallery-4", Title: "Book club visit", Alt: "Readers discussing the novel", Src: "/static/img/gallery-bookclub.jpg", Order: 4},
	}
	for i := range images {
		images[i].Status = publish.Published
		images[i].CreatedAt = published
		images[i].UpdatedAt = published
	}
	return images
}

func Reviews() []entity.Review {
	book := FeaturedBook().ID
	reviews := []entity.Review{
		{ID: "fallback-review-1", Name: "Sana K.", Rating: 5, Comment: "I finished it in one sitting and then called my grandmother.", BookID: book},
		{ID: "fallback-review-2", Name: "Bilal A.", Rating: 5, Comment: "Quietly devastating. The letters chapter will stay with me.", BookID: book},
		{ID: "fallback-review-3", Name: "Hira M.", Rating: 4, Comment: "Beautiful writing, and the river really does feel like a character.", BookID: book},
	}
	for i := range reviews {
		reviews[i].Approved = true
		reviews[i].CreatedAt = published.AddDate(0, 1, i)
		reviews[i].UpdatedAt = reviews[i].CreatedAt
	}
	return reviews
}

// BookByID returns the fallback book with the given id, if any.
func BookByID(id string) (entity.Book, bool) {
	for _, b := range Books() {
		if b.ID == id {
			return b, true
		}
	}
	return entity.Book{}, false
}

// BlogPostByID returns the fallback post with the given id, if any.
func BlogPostByID(id string) (entity.BlogPost, bool) {
	for _, p := range BlogPosts() {
		if p.ID == id {
			return p, true
		}
	}
	return entity.BlogPost{}, false
}
