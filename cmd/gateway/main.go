package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	api "github.com/hackmathlogic/hackmath/internal/api/http"
	"github.com/hackmathlogic/hackmath/internal/auth"
	authmw "github.com/hackmathlogic/hackmath/internal/auth/middleware"
	"github.com/hackmathlogic/hackmath/internal/config"
	"github.com/hackmathlogic/hackmath/internal/content"
	"github.com/hackmathlogic/hackmath/internal/db"
	"github.com/hackmathlogic/hackmath/internal/exam"
	"github.com/hackmathlogic/hackmath/internal/metrics"
	syncx "github.com/hackmathlogic/hackmath/internal/sync"
)

func main() {
	cfg := config.Load()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	accounts := auth.NewAccounts(dbh)
	if cfg.AdminPassHash != "" {
		created, err := accounts.Bootstrap(ctx, cfg.AdminUser, cfg.AdminPassHash)
		if err != nil {
			log.Fatalf("admin bootstrap: %v", err)
		}
		if created {
			log.Printf("created admin account %q", cfg.AdminUser)
		}
	}

	// --- Auth ---
	if cfg.UsesDevSecret() {
		if cfg.Mode == config.ModeOnline {
			log.Fatalf("AUTH_HMAC_SECRET must be set in online mode")
		}
		log.Printf("warning: signing tokens with the built-in dev secret")
	}
	authSvc := authmw.NewAuthService(cfg.AuthSecret, cfg.AuthTokenTTL)
	revoker := newRevoker(cfg)

	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	svc := exam.NewService(exam.NewSQLStore(dbh), events)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		DB:      dbh,
		Content: content.NewSQLStore(dbh),
		Exams:   svc,
		Events:  events,
		Sessions: api.Sessions{
			Accounts:           accounts,
			Auth:               authSvc,
			Revoker:            revoker,
			EnableRegistration: cfg.EnableRegistration,
			SecureCookies:      cfg.Mode == config.ModeOnline,
		},
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	if cfg.EnableMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// newRevoker shares logouts through Redis when configured.
func newRevoker(cfg config.Config) authmw.Revoker {
	if cfg.RedisAddr == "" {
		return authmw.NewMemoryRevoker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis %s unreachable, revocations stay in memory: %v", cfg.RedisAddr, err)
		_ = client.Close()
		return authmw.NewMemoryRevoker()
	}
	return authmw.NewRedisRevoker(client)
}
