package entity

import "time"

const PaymentCOD = "COD"

type OrderItem struct {
	Book     string  `json:"book"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Format   string  `json:"format,omitempty"`
}

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// Order is built once at checkout and handed to the backend.
type Order struct {
	ID              string          `json:"_id,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        float64         `json:"subtotal"`
	ShippingCharge  float64         `json:"shippingCharge"`
	PaymentMethod   string          `json:"paymentMethod"`
	TotalAmount     float64         `json:"totalAmount"`
	Status          string          `json:"status,omitempty"`
	CreatedAt       time.Time       `json:"createdAt,omitzero"`
}
