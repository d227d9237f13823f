package entity

import (
	"time"

	"authorsite/internal/publish"
)

type Book struct {
	ID              string         `json:"_id"`
	Title           string         `json:"title"`
	Author          string         `json:"author"`
	Description     string         `json:"description"`
	LongDescription string         `json:"longDescription,omitempty"`
	Price           float64        `json:"price"`
	CoverImage      string         `json:"coverImage"`
	Status          publish.Status `json:"status"`
	Inventory       int            `json:"inventory"`
	// Featured marks the homepage book. Only one book should carry it, but
	// nothing here enforces that.
	Featured    bool      `json:"featured"`
	Genre       string    `json:"genre,omitempty"`
	Year        int       `json:"year,omitempty"`
	Pages       int       `json:"pages,omitempty"`
	ISBN        string    `json:"isbn,omitempty"`
	Language    string    `json:"language,omitempty"`
	Publisher   string    `json:"publisher,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	ReviewCount int       `json:"reviewCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

func (b Book) GetID() string { return b.ID }

func (b Book) InStock() bool { return b.Inventory > 0 }
