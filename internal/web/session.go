package web

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"authorsite/internal/admin"
	"authorsite/internal/auth"
	"authorsite/internal/cart"
	"authorsite/internal/checkout"
	"authorsite/internal/httpx"
	"authorsite/internal/platform/backend"
	"authorsite/internal/store"
	"authorsite/internal/wishlist"

	"github.com/google/uuid"
)

const (
	CookieName  = "sid"
	IdleTimeout = 24 * time.Hour
	// MaxVisitors caps the in-memory registry. Past it the least recently
	// seen visitor is dropped; its stored state survives.
	MaxVisitors = 10000
)

// Visitor is everything the site remembers about one browser: the state a
// single-page app would keep in its contexts and local storage.
type Visitor struct {
	ID       string
	Auth     *auth.Store
	Cart     *cart.Store
	Wishlist *wishlist.Store
	Checkout *checkout.Wizard
	Admin    *admin.Dashboard

	// mu serialises requests from the same visitor.
	mu       sync.Mutex
	flash    string
	lastSeen time.Time
}

// Flash queues a message for the next rendered page.
func (v *Visitor) Flash(msg string) {
	v.flash = msg
}

func (v *Visitor) takeFlash() string {
	msg := v.flash
	v.flash = ""
	return msg
}

type visitorKey struct{}

func VisitorFrom(ctx context.Context) *Visitor {
	v, _ := ctx.Value(visitorKey{}).(*Visitor)
	return v
}

// Sessions maps session cookies to visitors. Visitor state is rebuilt from
// storage whenever a cookie arrives that is not in memory.
type Sessions struct {
	backend backend.Doer
	storage store.Namespacer
	idle    time.Duration
	secure  bool
	limit   int
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*Visitor
}

func NewSessions(doer backend.Doer, storage store.Namespacer, idle time.Duration, secureCookie bool) *Sessions {
	if idle <= 0 {
		idle = IdleTimeout
	}
	return &Sessions{
		backend:  doer,
		storage:  storage,
		idle:     idle,
		secure:   secureCookie,
		limit:    MaxVisitors,
		now:      time.Now,
		visitors: make(map[string]*Visitor),
	}
}

// Middleware attaches the caller's visitor to the request context, issuing
// a session cookie on first contact.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(CookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		v, err := s.lookup(r.Context(), id)
		if err != nil {
			log.Printf("session load failed session=%s err=%v", id, err)
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}

		v.mu.Lock()
		defer v.mu.Unlock()

		ctx := httpx.ContextWithSessionID(r.Context(), id)
		ctx = context.WithValue(ctx, visitorKey{}, v)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Sessions) lookup(ctx context.Context, id string) (*Visitor, error) {
	s.mu.Lock()
	if v, ok := s.visitors[id]; ok {
		v.lastSeen = s.now()
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, settled, err := s.restore(ctx, id)
	if err != nil {
		return nil, err
	}
	if !settled {
		// serve this request without caching so the next one retries login
		return v, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.visitors[id]; ok {
		existing.lastSeen = s.now()
		return existing, nil
	}
	if len(s.visitors) >= s.limit {
		s.dropOldestLocked()
	}
	s.visitors[id] = v
	return v, nil
}

func (s *Sessions) dropOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, v := range s.visitors {
		if oldestID == "" || v.lastSeen.Before(oldest) {
			oldestID, oldest = id, v.lastSeen
		}
	}
	delete(s.visitors, oldestID)
}

// restore hydrates a visitor from storage. settled is false when the
// backend could not validate a stored token; the token stays in storage
// and the visitor is anonymous until a later request succeeds.
func (s *Sessions) restore(ctx context.Context, id string) (v *Visitor, settled bool, err error) {
	ns := s.storage.Namespace(id)

	settled = true
	authStore := auth.NewStore(s.backend, ns)
	if err := authStore.Bootstrap(ctx); err != nil {
		log.Printf("session auth bootstrap session=%s err=%v", id, err)
		settled = false
	}
	cartStore := cart.NewStore(ns)
	if err := cartStore.Hydrate(ctx); err != nil {
		return nil, false, err
	}
	wishlistStore := wishlist.NewStore(ns)
	if err := wishlistStore.Hydrate(ctx); err != nil {
		return nil, false, err
	}

	return &Visitor{
		ID:       id,
		Auth:     authStore,
		Cart:     cartStore,
		Wishlist: wishlistStore,
		Checkout: checkout.NewWizard(s.backend, authStore, cartStore),
		Admin:    admin.NewDashboard(s.backend),
		lastSeen: s.now(),
	}, settled, nil
}

// Evict forgets visitors not seen since cutoff. Their storage is kept.
func (s *Sessions) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(s.visitors, id)
			n++
		}
	}
	return n
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RunJanitor evicts idle visitors every interval until ctx is done.
func (s *Sessions) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(s.now().Add(-s.idle)); n > 0 {
				log.Printf("sessions evicted=%d remaining=%d", n, s.Len())
			}
		}
	}
}
