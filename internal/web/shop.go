package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"authorsite/internal/auth"
	"authorsite/internal/checkout"
	"authorsite/internal/entity"
	"authorsite/internal/platform/backend"
)

const defaultFormat = "Paperback"

type cartData struct {
	Items    []entity.CartItem
	Subtotal float64
}

func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	h.render(w, r, http.StatusOK, "cart", view{Title: "Your Cart", Data: cartData{
		Items:    v.Cart.Items(),
		Subtotal: v.Cart.GetSubtotal(),
	}})
}

// CartAdd looks the book up server-side so the price always comes from the
// catalogue, never from the form.
func (h *Handler) CartAdd(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	book, ok := h.findBook(r.Context(), r.FormValue("id"))
	if !ok {
		h.notFound(w, r)
		return
	}
	format := strings.TrimSpace(r.FormValue("format"))
	if format == "" {
		format = defaultFormat
	}

	if err := v.Cart.AddToCart(r.Context(), entity.CartItem{
		ID:         book.ID,
		Title:      book.Title,
		Author:     book.Author,
		Price:      book.Price,
		Format:     format,
		CoverImage: book.CoverImage,
	}); err != nil {
		log.Printf("cart add failed session=%s err=%v", v.ID, err)
		v.Flash("Could not update your cart. Please try again.")
	} else {
		v.Flash(book.Title + " was added to your cart.")
	}
	redirect(w, r, backTo(r, "/cart"))
}

// CartUpdate sets a line's quantity. Anything below one removes the line.
func (h *Handler) CartUpdate(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	id := r.FormValue("id")
	qty, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil {
		redirect(w, r, "/cart")
		return
	}
	if qty < 1 {
		err = v.Cart.RemoveFromCart(r.Context(), id)
	} else {
		err = v.Cart.UpdateQuantity(r.Context(), id, qty)
	}
	if err != nil {
		log.Printf("cart update failed session=%s err=%v", v.ID, err)
		v.Flash("Could not update your cart. Please try again.")
	}
	redirect(w, r, "/cart")
}

func (h *Handler) CartRemove(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if err := v.Cart.RemoveFromCart(r.Context(), r.FormValue("id")); err != nil {
		log.Printf("cart remove failed session=%s err=%v", v.ID, err)
		v.Flash("Could not update your cart. Please try again.")
	}
	redirect(w, r, "/cart")
}

func (h *Handler) CartClear(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if err := v.Cart.ClearCart(r.Context()); err != nil {
		log.Printf("cart clear failed session=%s err=%v", v.ID, err)
	}
	redirect(w, r, "/cart")
}

func (h *Handler) Wishlist(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	h.render(w, r, http.StatusOK, "wishlist", view{Title: "Wishlist", Data: v.Wishlist.Items()})
}

func (h *Handler) WishlistAdd(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	book, ok := h.findBook(r.Context(), r.FormValue("id"))
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := v.Wishlist.AddToWishlist(r.Context(), entity.WishlistItem{
		ID:         book.ID,
		Title:      book.Title,
		Author:     book.Author,
		Price:      book.Price,
		CoverImage: book.CoverImage,
	}); err != nil {
		log.Printf("wishlist add failed session=%s err=%v", v.ID, err)
		v.Flash("Could not update your wishlist. Please try again.")
	}
	redirect(w, r, backTo(r, "/wishlist"))
}

func (h *Handler) WishlistRemove(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if err := v.Wishlist.RemoveFromWishlist(r.Context(), r.FormValue("id")); err != nil {
		log.Printf("wishlist remove failed session=%s err=%v", v.ID, err)
	}
	redirect(w, r, backTo(r, "/wishlist"))
}

// WishlistMoveToCart adds a wishlisted book to the cart and drops it from
// the wishlist.
func (h *Handler) WishlistMoveToCart(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	id := r.FormValue("id")
	var item *entity.WishlistItem
	for _, it := range v.Wishlist.Items() {
		if it.ID == id {
			item = &it
			break
		}
	}
	if item == nil {
		redirect(w, r, "/wishlist")
		return
	}

	err := v.Cart.AddToCart(r.Context(), entity.CartItem{
		ID:         item.ID,
		Title:      item.Title,
		Author:     item.Author,
		Price:      item.Price,
		Format:     defaultFormat,
		CoverImage: item.CoverImage,
	})
	if err == nil {
		err = v.Wishlist.RemoveFromWishlist(r.Context(), id)
	}
	if err != nil {
		log.Printf("wishlist move failed session=%s err=%v", v.ID, err)
		v.Flash("Could not move the book to your cart. Please try again.")
	}
	redirect(w, r, "/wishlist")
}

type checkoutData struct {
	Step    checkout.Step
	Items   []entity.CartItem
	Summary checkout.Summary
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.renderCheckout(w, r, http.StatusOK, "")
}

func (h *Handler) renderCheckout(w http.ResponseWriter, r *http.Request, status int, flash string) {
	v := VisitorFrom(r.Context())
	wiz := v.Checkout
	form := wiz.Shipping
	if u, ok := v.Auth.User(); ok {
		if form.FullName == "" {
			form.FullName = u.Name
		}
		if form.Email == "" {
			form.Email = u.Email
		}
	}
	if form.Country == "" {
		form.Country = checkout.DomesticCountry
	}
	h.render(w, r, status, "checkout", view{
		Title:  "Checkout",
		Flash:  flash,
		Form:   form,
		Errors: wiz.Errors,
		Data: checkoutData{
			Step:    wiz.Step,
			Items:   v.Cart.Items(),
			Summary: wiz.Summary(),
		},
	})
}

func (h *Handler) CheckoutShipping(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	details := checkout.ShippingDetails{
		FullName:   r.FormValue("fullName"),
		Email:      r.FormValue("email"),
		Phone:      r.FormValue("phone"),
		Address:    r.FormValue("address"),
		City:       r.FormValue("city"),
		PostalCode: r.FormValue("postalCode"),
		Country:    r.FormValue("country"),
	}

	err := v.Checkout.Continue(r.Context(), details)
	switch {
	case err == nil:
		if v.Checkout.NewAccount {
			v.Flash("We created an account for " + v.Checkout.Shipping.Email + " so you can track this order.")
		}
		redirect(w, r, "/checkout")
	case errors.Is(err, checkout.ErrEmptyCart):
		redirect(w, r, "/cart")
	case errors.Is(err, checkout.ErrIncomplete):
		h.renderCheckout(w, r, http.StatusUnprocessableEntity, "Please fix the highlighted fields.")
	default:
		log.Printf("checkout shipping failed session=%s err=%v", v.ID, err)
		h.renderCheckout(w, r, http.StatusBadGateway, userMessage(err))
	}
}

func (h *Handler) CheckoutBack(w http.ResponseWriter, r *http.Request) {
	VisitorFrom(r.Context()).Checkout.Back()
	redirect(w, r, "/checkout")
}

func (h *Handler) CheckoutPlace(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	order, err := v.Checkout.PlaceOrder(r.Context())
	switch {
	case err == nil:
		v.Flash("Thank you! Your order has been placed.")
		redirect(w, r, "/orders/"+order.ID)
	case errors.Is(err, checkout.ErrWrongStep), errors.Is(err, checkout.ErrEmptyCart):
		redirect(w, r, "/checkout")
	case errors.Is(err, auth.ErrNoSession):
		redirect(w, r, "/login?next=/checkout")
	default:
		log.Printf("checkout place failed session=%s err=%v", v.ID, err)
		h.renderCheckout(w, r, http.StatusBadGateway, userMessage(err))
	}
}

// Order shows one of the visitor's orders.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	v, ok := requireLogin(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	order := entity.Order{ID: id}
	flash := ""
	resp, err := h.get(r.Context(), backend.ItemPath("/api/orders", id), v.Auth.Token())
	if err == nil {
		err = resp.DecodeRecord(&order)
	}
	if err != nil {
		if isNotFound(err) {
			h.notFound(w, r)
			return
		}
		log.Printf("order lookup failed id=%s err=%v", id, err)
		flash = "We could not load the order details right now."
	}
	h.render(w, r, http.StatusOK, "order", view{Title: "Order " + id, Flash: flash, Data: order})
}

// backTo returns the local "back" form value or def.
func backTo(r *http.Request, def string) string {
	if back := r.FormValue("back"); back != "" {
		if next := safeNext(back); next != "/" || back == "/" {
			return next
		}
	}
	return def
}
