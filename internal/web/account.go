package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"authorsite/internal/auth"
	"authorsite/internal/entity"
	"authorsite/internal/httpx"
)

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type signupForm struct {
	Name            string `form:"name" validate:"required"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
	Next            string `form:"next"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if VisitorFrom(r.Context()).Auth.IsAuthenticated() {
		redirect(w, r, safeNext(r.URL.Query().Get("next")))
		return
	}
	h.render(w, r, http.StatusOK, "login", view{Title: "Log in", Form: loginForm{Next: r.URL.Query().Get("next")}})
}

func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	form := loginForm{
		Email:    strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password: r.FormValue("password"),
		Next:     r.FormValue("next"),
	}
	if problems := httpx.ValidateStruct(form); len(problems) > 0 {
		form.Password = ""
		h.render(w, r, http.StatusUnprocessableEntity, "login", view{Title: "Log in", Form: form, Errors: httpx.FieldErrors(problems)})
		return
	}

	_, err := v.Auth.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		form.Password = ""
		msg := userMessage(err)
		status := http.StatusBadGateway
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = "Invalid email or password."
			status = http.StatusUnauthorized
		}
		h.render(w, r, status, "login", view{Title: "Log in", Form: form, Flash: msg})
		return
	}
	redirect(w, r, safeNext(form.Next))
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup", view{Title: "Create an account", Form: signupForm{Next: r.URL.Query().Get("next")}})
}

// SignupSubmit checks the form locally, including the password match, before
// anything reaches the backend.
func (h *Handler) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	form := signupForm{
		Name:            strings.TrimSpace(r.FormValue("name")),
		Email:           strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
		Next:            r.FormValue("next"),
	}
	if problems := httpx.ValidateStruct(form); len(problems) > 0 {
		form.Password, form.ConfirmPassword = "", ""
		h.render(w, r, http.StatusUnprocessableEntity, "signup", view{Title: "Create an account", Form: form, Errors: httpx.FieldErrors(problems)})
		return
	}

	_, err := v.Auth.Register(r.Context(), auth.RegisterRequest{Name: form.Name, Email: form.Email, Password: form.Password})
	if err != nil {
		form.Password, form.ConfirmPassword = "", ""
		h.render(w, r, http.StatusBadRequest, "signup", view{Title: "Create an account", Form: form, Flash: userMessage(err)})
		return
	}
	v.Flash("Welcome, " + form.Name + "!")
	redirect(w, r, safeNext(form.Next))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	v := VisitorFrom(r.Context())
	if err := v.Auth.Logout(r.Context()); err != nil {
		log.Printf("logout failed session=%s err=%v", v.ID, err)
	}
	v.Checkout.Back()
	redirect(w, r, "/")
}

type accountData struct {
	Orders []entity.Order
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	v, ok := requireLogin(w, r)
	if !ok {
		return
	}
	var data accountData
	flash := ""
	resp, err := h.get(r.Context(), "/api/orders", v.Auth.Token())
	if err == nil {
		err = resp.DecodeList(&data.Orders)
	}
	if err != nil {
		log.Printf("account orders failed session=%s err=%v", v.ID, err)
		flash = "We could not load your orders right now."
	}
	h.render(w, r, http.StatusOK, "account", view{Title: "My Account", Flash: flash, Data: data})
}
