package entity

import (
	"time"

	"authorsite/internal/publish"
)

type GalleryImage struct {
	ID          string         `json:"_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Alt         string         `json:"alt,omitempty"`
	Src         string         `json:"src"`
	Status      publish.Status `json:"status"`
	Order       int            `json:"order,omitempty"`
	CreatedAt   time.Time      `json:"createdAt,omitzero"`
	UpdatedAt   time.Time      `json:"updatedAt,omitzero"`
}

func (g GalleryImage) GetID() string { return g.ID }
