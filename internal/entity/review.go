package entity

import "time"

type Review struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Rating   int    `json:"rating"` // 1-5
	Comment  string `json:"comment"`
	BookID   string `json:"bookId,omitempty"`
	Approved bool   `json:"approved"`
	OrderID  string `json:"orderId,omitempty"`
	Verified bool   `json:"isVerified,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func (r Review) GetID() string { return r.ID }
