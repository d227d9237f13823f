package entity

import "time"

// CartItem lives only in visitor storage. A line is identified by ID and
// Format together.
type CartItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Format     string  `json:"format"`
	CoverImage string  `json:"coverImage"`
}

func (c CartItem) LineTotal() float64 {
	return c.Price * float64(c.Quantity)
}

type WishlistItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Price      float64   `json:"price"`
	CoverImage string    `json:"coverImage"`
	AddedAt    time.Time `json:"addedAt"`
}
