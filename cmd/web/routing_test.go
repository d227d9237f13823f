package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type registerFunc func(mux *http.ServeMux)

func (f registerFunc) Register(mux *http.ServeMux) { f(mux) }

func TestRouter_Probes(t *testing.T) {
	var healthy bool
	router := newRouter(pingFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("connection refused")
	}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	healthy = true
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", rr.Body.String())
}

func TestRouter_MountsHandlers(t *testing.T) {
	router := newRouter(pingFunc(func(context.Context) error { return nil }),
		registerFunc(func(mux *http.ServeMux) {
			mux.HandleFunc("GET /api/books", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			})
		}),
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://***@db:5432/authorsite", redactDSN("postgres://user:secret@db:5432/authorsite"))
	assert.Equal(t, "not-a-dsn", redactDSN("not-a-dsn"))
}
