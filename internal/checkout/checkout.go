// Package checkout runs the two-step purchase flow: shipping details, then
// review and submit as a cash-on-delivery order.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"authorsite/internal/auth"
	"authorsite/internal/entity"
	"authorsite/internal/httpx"
	"authorsite/internal/platform/backend"
)

var (
	ErrIncomplete = errors.New("shipping details incomplete")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrWrongStep  = errors.New("order can only be placed from the review step")
)

type Step int

const (
	StepShipping Step = 1
	StepReview   Step = 2
)

type ShippingDetails struct {
	FullName   string `json:"fullName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=7"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country" validate:"required,len=2"`
}

func (d ShippingDetails) normalized() ShippingDetails {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.PostalCode = strings.TrimSpace(d.PostalCode)
	d.Country = strings.ToUpper(strings.TrimSpace(d.Country))
	return d
}

// Session is the part of the auth store checkout needs.
type Session interface {
	Token() string
	IsAuthenticated() bool
	AutoRegister(ctx context.Context, req auth.AutoRegisterRequest) (auth.AutoRegisterResult, error)
}

// Cart is the part of the cart store checkout needs.
type Cart interface {
	Items() []entity.CartItem
	GetSubtotal() float64
	ClearCart(ctx context.Context) error
}

type Summary struct {
	Subtotal float64
	Shipping float64
	Total    float64
}

// Wizard holds one visitor's progress through checkout.
type Wizard struct {
	backend backend.Doer
	session Session
	cart    Cart

	Step       Step
	Shipping   ShippingDetails
	Errors     map[string]string
	NewAccount bool
}

func NewWizard(doer backend.Doer, session Session, cart Cart) *Wizard {
	return &Wizard{backend: doer, session: session, cart: cart, Step: StepShipping}
}

// Continue validates the shipping step and advances to review. Guests are
// signed in or registered by email first; a failure there keeps the
// visitor on the shipping step.
func (w *Wizard) Continue(ctx context.Context, details ShippingDetails) error {
	details = details.normalized()
	w.Shipping = details
	w.Errors = nil

	if len(w.cart.Items()) == 0 {
		return ErrEmptyCart
	}
	if problems := httpx.ValidateStruct(details); len(problems) > 0 {
		w.Errors = httpx.FieldErrors(problems)
		return ErrIncomplete
	}

	if !w.session.IsAuthenticated() {
		res, err := w.session.AutoRegister(ctx, auth.AutoRegisterRequest{
			Name:  details.FullName,
			Email: details.Email,
			Phone: details.Phone,
		})
		if err != nil {
			return fmt.Errorf("auto-register: %w", err)
		}
		w.NewAccount = res.IsNewUser
	}

	w.Step = StepReview
	return nil
}

func (w *Wizard) Back() {
	w.Step = StepShipping
}

func (w *Wizard) Summary() Summary {
	subtotal := w.cart.GetSubtotal()
	shipping := ShippingCharge(w.Shipping.Country, subtotal)
	return Summary{Subtotal: subtotal, Shipping: shipping, Total: subtotal + shipping}
}

// PlaceOrder submits the order with the visitor's token, empties the cart
// and resets the wizard. The returned order carries the backend's id.
func (w *Wizard) PlaceOrder(ctx context.Context) (entity.Order, error) {
	if w.Step != StepReview {
		return entity.Order{}, ErrWrongStep
	}
	token := w.session.Token()
	if token == "" {
		return entity.Order{}, auth.ErrNoSession
	}
	items := w.cart.Items()
	if len(items) == 0 {
		return entity.Order{}, ErrEmptyCart
	}

	order := BuildOrder(items, w.Shipping)
	resp, err := w.backend.Do(ctx, backend.Request{Method: http.MethodPost, Path: "/api/orders", Token: token, Body: order})
	if err != nil {
		return entity.Order{}, err
	}
	if err := resp.Err(); err != nil {
		return entity.Order{}, err
	}

	created, err := decodeOrder(resp.Body)
	if err != nil {
		return entity.Order{}, err
	}
	if created.Items == nil {
		created.Items = order.Items
		created.ShippingAddress = order.ShippingAddress
		created.Subtotal = order.Subtotal
		created.ShippingCharge = order.ShippingCharge
		created.PaymentMethod = order.PaymentMethod
		created.TotalAmount = order.TotalAmount
	}

	if err := w.cart.ClearCart(ctx); err != nil {
		log.Printf("checkout order=%s placed but cart not cleared: %v", created.ID, err)
	}
	*w = Wizard{backend: w.backend, session: w.session, cart: w.cart, Step: StepShipping}
	return created, nil
}

// BuildOrder snapshots the cart into a cash-on-delivery order.
func BuildOrder(items []entity.CartItem, shipping ShippingDetails) entity.Order {
	order := entity.Order{
		Items: make([]entity.OrderItem, 0, len(items)),
		ShippingAddress: entity.ShippingAddress{
			FullName:   shipping.FullName,
			Email:      shipping.Email,
			Phone:      shipping.Phone,
			Address:    shipping.Address,
			City:       shipping.City,
			PostalCode: shipping.PostalCode,
			Country:    shipping.Country,
		},
		PaymentMethod: entity.PaymentCOD,
	}
	for _, it := range items {
		order.Items = append(order.Items, entity.OrderItem{
			Book:     it.ID,
			Title:    it.Title,
			Price:    it.Price,
			Quantity: it.Quantity,
			Format:   it.Format,
		})
		order.Subtotal += it.LineTotal()
	}
	order.ShippingCharge = ShippingCharge(shipping.Country, order.Subtotal)
	order.TotalAmount = order.Subtotal + order.ShippingCharge
	return order
}

func decodeOrder(body []byte) (entity.Order, error) {
	var wrapped struct {
		Order *entity.Order `json:"order"`
		Data  *entity.Order `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return entity.Order{}, fmt.Errorf("decode order: %w", err)
	}
	switch {
	case wrapped.Order != nil && wrapped.Order.ID != "":
		return *wrapped.Order, nil
	case wrapped.Data != nil && wrapped.Data.ID != "":
		return *wrapped.Data, nil
	}
	var bare entity.Order
	if err := json.Unmarshal(body, &bare); err != nil {
		return entity.Order{}, fmt.Errorf("decode order: %w", err)
	}
	if bare.ID == "" {
		return entity.Order{}, errors.New("order response has no id")
	}
	return bare, nil
}
