// Package auth holds a visitor's login session: the backend-issued bearer
// token in visitor storage plus the user record it belongs to.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"authorsite/internal/entity"
	"authorsite/internal/httpx"
	"authorsite/internal/platform/backend"
	"authorsite/internal/store"
)

// TokenKey is the visitor storage key holding the bearer token.
const TokenKey = "token"

var (
	ErrNoSession          = errors.New("not logged in")
	ErrEmptyResponse      = errors.New("backend returned no token")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AutoRegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type AutoRegisterResult struct {
	User      entity.User
	IsNewUser bool
}

type authResponse struct {
	Token     string       `json:"token"`
	User      *entity.User `json:"user"`
	IsNewUser bool         `json:"isNewUser"`
}

type Store struct {
	backend   backend.Doer
	storage   store.LocalStorage
	listeners store.Listeners
	now       func() time.Time

	mu      sync.RWMutex
	token   string
	user    *entity.User
	loading bool
}

func NewStore(doer backend.Doer, storage store.LocalStorage) *Store {
	return &Store{
		backend: doer,
		storage: storage,
		now:     time.Now,
		loading: true,
	}
}

// Bootstrap restores the session from visitor storage. A stored token the
// backend rejects is discarded and the visitor is treated as logged out.
// Network failures keep the token and return the error.
func (s *Store) Bootstrap(ctx context.Context) error {
	defer s.finishLoading()

	token, ok, err := s.storage.GetItem(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	if httpx.TokenExpired(token, s.now()) {
		log.Printf("auth bootstrap discarding expired token")
		return s.clear(ctx)
	}

	resp, err := s.backend.Do(ctx, backend.Request{Method: http.MethodGet, Path: "/api/auth/me", Token: token})
	if err != nil {
		return fmt.Errorf("validate token: %w", err)
	}
	if !resp.OK() {
		log.Printf("auth bootstrap discarding rejected token status=%d", resp.StatusCode)
		return s.clear(ctx)
	}

	user, err := decodeMe(resp.Body)
	if err != nil {
		log.Printf("auth bootstrap discarding token: %v", err)
		return s.clear(ctx)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	s.listeners.Notify()
	return nil
}

func (s *Store) Login(ctx context.Context, email, password string) (entity.User, error) {
	res, err := s.authenticate(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// keep the backend's wording reachable through errors.As
		return entity.User{}, errors.Join(ErrInvalidCredentials, err)
	}
	if err != nil {
		return entity.User{}, err
	}
	return *res.User, nil
}

func (s *Store) Register(ctx context.Context, req RegisterRequest) (entity.User, error) {
	res, err := s.authenticate(ctx, "/api/auth/register", req)
	if err != nil {
		return entity.User{}, err
	}
	return *res.User, nil
}

// AutoRegister creates an account for the email or logs into the existing
// one. IsNewUser tells the caller which happened.
func (s *Store) AutoRegister(ctx context.Context, req AutoRegisterRequest) (AutoRegisterResult, error) {
	res, err := s.authenticate(ctx, "/api/auth/auto-register", req)
	if err != nil {
		return AutoRegisterResult{}, err
	}
	return AutoRegisterResult{User: *res.User, IsNewUser: res.IsNewUser}, nil
}

func (s *Store) Logout(ctx context.Context) error {
	return s.clear(ctx)
}

func (s *Store) User() (entity.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return entity.User{}, false
	}
	return *s.user, true
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) IsAuthenticated() bool {
	_, ok := s.User()
	return ok
}

func (s *Store) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.IsAdmin()
}

// Loading is true until Bootstrap has finished.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Subscribe(fn func()) func() {
	return s.listeners.Add(fn)
}

func (s *Store) authenticate(ctx context.Context, path string, body any) (authResponse, error) {
	resp, err := s.backend.Do(ctx, backend.Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return authResponse{}, err
	}
	if err := resp.Err(); err != nil {
		return authResponse{}, err
	}

	var res authResponse
	if err := resp.Decode(&res); err != nil {
		return authResponse{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if res.Token == "" || res.User == nil {
		return authResponse{}, ErrEmptyResponse
	}

	if err := s.storage.SetItem(ctx, TokenKey, res.Token); err != nil {
		return authResponse{}, fmt.Errorf("store token: %w", err)
	}

	s.mu.Lock()
	s.token = res.Token
	user := *res.User
	s.user = &user
	s.mu.Unlock()
	s.listeners.Notify()
	return res, nil
}

func (s *Store) clear(ctx context.Context) error {
	err := s.storage.RemoveItem(ctx, TokenKey)
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	s.listeners.Notify()
	return err
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// decodeMe accepts either {"user": {...}} or a bare user object.
func decodeMe(body []byte) (entity.User, error) {
	var wrapped struct {
		User *entity.User `json:"user"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return entity.User{}, err
	}
	if wrapped.User != nil && wrapped.User.Email != "" {
		return *wrapped.User, nil
	}
	var bare entity.User
	if err := json.Unmarshal(body, &bare); err != nil {
		return entity.User{}, err
	}
	if bare.Email == "" {
		return entity.User{}, errors.New("me response has no user")
	}
	return bare, nil
}
