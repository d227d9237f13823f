package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"authorsite/internal/config"
	"authorsite/internal/content"
	"authorsite/internal/httpx"
	"authorsite/internal/platform/backend"
	"authorsite/internal/platform/upload"
	"authorsite/internal/proxy"
	"authorsite/internal/store"
	"authorsite/internal/web"

	"github.com/jackc/pgx/v5/pgxpool"
)

// storedVisitorRetention is how long persisted carts and logins survive
// without a visit when the postgres driver is in use.
const storedVisitorRetention = 30 * 24 * time.Hour

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendRPS)
	accessor := content.NewAccessor(client, cfg.ContentTTL)
	uploader := upload.NewClient(cfg.UploadURL)

	var storage store.Namespacer
	switch cfg.StorageDriver {
	case "postgres":
		pool := mustOpenDB(cfg.DatabaseDSN)
		defer pool.Close()
		pg := store.NewLocalStoragePG(pool, 2*time.Second)
		go purgeIdle(ctx, pg)
		storage = pg
	case "memory":
		storage = store.NewMemory()
	default:
		log.Fatalf("unknown STORAGE_DRIVER %q (use memory or postgres)", cfg.StorageDriver)
	}

	sessions := web.NewSessions(client, storage, web.IdleTimeout, cfg.CookieSecure)
	go sessions.RunJanitor(ctx, 10*time.Minute)

	pages, err := web.NewHandler(client, accessor, sessions, uploader)
	if err != nil {
		log.Fatalf("cannot load templates: %v", err)
	}

	router := newRouter(client, proxy.NewHandler(client, accessor, uploader, cfg.RevalidateSecret), pages)
	limiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware,
		httpx.CORSMiddleware(cfg.AllowedOrigins),
		limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.BackendTimeout + 20*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on %s backend=%s storage=%s", cfg.Addr, cfg.BackendURL, cfg.StorageDriver)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	log.Println("server stopped")
}

type pinger interface {
	Ping(ctx context.Context) error
}

type registrar interface {
	Register(mux *http.ServeMux)
}

func newRouter(backendPing pinger, handlers ...registrar) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := backendPing.Ping(ctx); err != nil {
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	for _, h := range handlers {
		h.Register(router)
	}
	return router
}

func purgeIdle(ctx context.Context, pg *store.LocalStoragePG) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pg.PurgeIdle(ctx, time.Now().Add(-storedVisitorRetention))
			if err != nil {
				log.Printf("purge idle visitors failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("purged idle visitor keys=%d", n)
			}
		}
	}
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("cannot create db pool: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Fatalf("cannot ping database (%s): %v", redactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
