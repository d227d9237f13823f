package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"authorsite/internal/entity"
	"authorsite/internal/platform/backend"
	"authorsite/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAccounts is a tiny stand-in for the backend's auth endpoints.
type fakeAccounts struct {
	mu       sync.Mutex
	users    map[string]entity.User // by email
	password map[string]string
	tokens   map[string]string // token -> email
	seq      int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:    make(map[string]entity.User),
		password: make(map[string]string),
		tokens:   make(map[string]string),
	}
}

func (f *fakeAccounts) issue(email string) string {
	f.seq++
	token := "token-" + email + "-" + string(rune('a'+f.seq))
	f.tokens[token] = email
	return token
}

func (f *fakeAccounts) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch r.URL.Path {
	case "/api/auth/register":
		if _, exists := f.users[body["email"]]; exists {
			reply(http.StatusConflict, map[string]string{"message": "User already exists"})
			return
		}
		f.seq++
		u := entity.User{ID: "u" + string(rune('0'+f.seq)), Name: body["name"], Email: body["email"], Role: entity.RoleCustomer}
		f.users[u.Email] = u
		f.password[u.Email] = body["password"]
		reply(http.StatusCreated, map[string]any{"token": f.issue(u.Email), "user": u})
	case "/api/auth/login":
		u, ok := f.users[body["email"]]
		if !ok || f.password[u.Email] != body["password"] {
			reply(http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		reply(http.StatusOK, map[string]any{"token": f.issue(u.Email), "user": u})
	case "/api/auth/auto-register":
		u, exists := f.users[body["email"]]
		if !exists {
			f.seq++
			u = entity.User{ID: "u" + string(rune('0'+f.seq)), Name: body["name"], Email: body["email"], Role: entity.RoleCustomer}
			f.users[u.Email] = u
		}
		reply(http.StatusOK, map[string]any{"token": f.issue(u.Email), "user": u, "isNewUser": !exists})
	case "/api/auth/me":
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		email, ok := f.tokens[token]
		if !ok {
			reply(http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		reply(http.StatusOK, map[string]any{"user": f.users[email]})
	default:
		reply(http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func newTestStore(t *testing.T, accounts *fakeAccounts) (*Store, store.LocalStorage) {
	t.Helper()
	srv := httptest.NewServer(accounts)
	t.Cleanup(srv.Close)
	storage := store.NewMemory().Namespace("visitor")
	return NewStore(backend.NewClient(srv.URL, time.Second, 100), storage), storage
}

func TestStore_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	s, storage := newTestStore(t, newFakeAccounts())

	notified := 0
	s.Subscribe(func() { notified++ })

	u, err := s.Register(ctx, RegisterRequest{Name: "Ayesha", Email: "ayesha@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ayesha@example.com", u.Email)
	assert.True(t, s.IsAuthenticated())
	assert.False(t, s.IsAdmin())

	stored, ok, _ := storage.GetItem(ctx, TokenKey)
	assert.True(t, ok)
	assert.Equal(t, s.Token(), stored)

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsAuthenticated())
	_, ok, _ = storage.GetItem(ctx, TokenKey)
	assert.False(t, ok)

	_, err = s.Login(ctx, "ayesha@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, 3, notified)
}

func TestStore_BackendMessagePassesThrough(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	s, _ := newTestStore(t, accounts)

	_, err := s.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw1234"})
	require.NoError(t, err)

	_, err = s.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw1234"})
	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "User already exists", apiErr.Message)

	_, err = s.Login(ctx, "a@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestStore_AutoRegister(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	s, _ := newTestStore(t, accounts)

	first, err := s.AutoRegister(ctx, AutoRegisterRequest{Name: "Guest", Email: "guest@example.com", Phone: "0300"})
	require.NoError(t, err)
	assert.True(t, first.IsNewUser)

	require.NoError(t, s.Logout(ctx))

	second, err := s.AutoRegister(ctx, AutoRegisterRequest{Name: "Guest Again", Email: "guest@example.com"})
	require.NoError(t, err)
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Len(t, accounts.users, 1)
	assert.True(t, s.IsAuthenticated())
}

func TestStore_Bootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeAccounts())
		assert.True(t, s.Loading())

		require.NoError(t, s.Bootstrap(ctx))

		assert.False(t, s.Loading())
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("valid token restores session", func(t *testing.T) {
		accounts := newFakeAccounts()
		s, storage := newTestStore(t, accounts)
		_, err := s.Register(ctx, RegisterRequest{Name: "R", Email: "r@example.com", Password: "pw1234"})
		require.NoError(t, err)

		fresh := NewStore(s.backend, storage)
		require.NoError(t, fresh.Bootstrap(ctx))

		u, ok := fresh.User()
		assert.True(t, ok)
		assert.Equal(t, "r@example.com", u.Email)
	})

	t.Run("rejected token is cleared", func(t *testing.T) {
		s, storage := newTestStore(t, newFakeAccounts())
		require.NoError(t, storage.SetItem(ctx, TokenKey, "forged"))

		require.NoError(t, s.Bootstrap(ctx))

		assert.False(t, s.IsAuthenticated())
		assert.Empty(t, s.Token())
		_, ok, _ := storage.GetItem(ctx, TokenKey)
		assert.False(t, ok)
	})

	t.Run("expired jwt is cleared without a network call", func(t *testing.T) {
		storage := store.NewMemory().Namespace("visitor")
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"id":  "u1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}).SignedString([]byte("k"))
		require.NoError(t, err)
		require.NoError(t, storage.SetItem(ctx, TokenKey, expired))

		// an unreachable backend proves no call is made
		s := NewStore(backend.NewClient("http://127.0.0.1:1", time.Second, 100), storage)
		require.NoError(t, s.Bootstrap(ctx))

		_, ok, _ := storage.GetItem(ctx, TokenKey)
		assert.False(t, ok)
	})

	t.Run("network failure keeps token", func(t *testing.T) {
		storage := store.NewMemory().Namespace("visitor")
		require.NoError(t, storage.SetItem(ctx, TokenKey, "opaque"))

		s := NewStore(backend.NewClient("http://127.0.0.1:1", time.Second, 100), storage)
		err := s.Bootstrap(ctx)

		require.Error(t, err)
		assert.False(t, s.IsAuthenticated())
		_, ok, _ := storage.GetItem(ctx, TokenKey)
		assert.True(t, ok)
	})
}

func TestDecodeMe(t *testing.T) {
	u, err := decodeMe([]byte(`{"user":{"id":"1","email":"a@b.c","role":"admin"}}`))
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	u, err = decodeMe([]byte(`{"id":"2","email":"x@y.z","role":"customer"}`))
	require.NoError(t, err)
	assert.Equal(t, "2", u.ID)

	_, err = decodeMe([]byte(`{}`))
	assert.Error(t, err)
}
