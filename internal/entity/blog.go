package entity

import (
	"time"

	"authorsite/internal/publish"
)

type BlogPost struct {
	ID       string         `json:"_id"`
	Title    string         `json:"title"`
	Content  string         `json:"content"` // markdown
	Category string         `json:"category,omitempty"`
	Image    string         `json:"image,omitempty"`
	Status   publish.Status `json:"status"`
	// Published is derived from Status at the proxy boundary.
	Published bool      `json:"published"`
	Views     int       `json:"views"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func (p BlogPost) GetID() string { return p.ID }
