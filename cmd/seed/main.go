package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"authorsite/internal/admin"
	"authorsite/internal/config"
	"authorsite/internal/entity"
	"authorsite/internal/fallback"
	"authorsite/internal/platform/backend"
)

func main() {
	force := flag.Bool("force", false, "Seed collections that already have records")
	flag.Parse()

	cfg := config.Load()
	token := os.Getenv("SEED_TOKEN")
	if token == "" {
		log.Fatal("SEED_TOKEN is required (an admin bearer token for the backend)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendRPS)
	dash := admin.NewDashboard(client)

	log.Printf("Seeding %s", cfg.BackendURL)
	seed(ctx, "books", dash.Books.Collection, token, *force, fallback.Books(), func(b entity.Book) entity.Book {
		b.ID = ""
		return b
	})
	seed(ctx, "blog", dash.Blog, token, *force, fallback.BlogPosts(), func(p entity.BlogPost) entity.BlogPost {
		p.ID = ""
		return p
	})
	seed(ctx, "gallery", dash.Gallery, token, *force, fallback.GalleryImages(), func(g entity.GalleryImage) entity.GalleryImage {
		g.ID = ""
		return g
	})
	seed(ctx, "reviews", dash.Reviews.Collection, token, *force, fallback.Reviews(), func(r entity.Review) entity.Review {
		r.ID = ""
		r.Approved = true
		return r
	})
	log.Println("Seeding finished")
}

// seed creates every item in an empty collection. Failures are logged per
// item so one rejected record does not stop the rest.
func seed[T admin.Record](ctx context.Context, name string, c *admin.Collection[T], token string, force bool, items []T, prepare func(T) T) {
	if err := c.Load(ctx, token); err != nil {
		log.Printf("seed %s: cannot list existing records: %v", name, err)
		return
	}
	if n := len(c.Items()); n > 0 && !force {
		log.Printf("seed %s: skipped, backend already has %d records", name, n)
		return
	}

	created := 0
	for _, item := range items {
		if _, err := c.Create(ctx, token, prepare(item)); err != nil {
			log.Printf("seed %s: create failed: %v", name, err)
			continue
		}
		created++
	}
	log.Printf("seed %s: created %d/%d", name, created, len(items))
}
