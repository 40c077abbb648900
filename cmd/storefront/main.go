package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/redis/go-redis/v9"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/cart"
	"github.com/phuocduongts/storefront/internal/checkout"
	"github.com/phuocduongts/storefront/internal/config"
	"github.com/phuocduongts/storefront/internal/database"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/orderview"
	"github.com/phuocduongts/storefront/internal/pricing"
	"github.com/phuocduongts/storefront/internal/session"
	"github.com/phuocduongts/storefront/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Base().Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logging.Init("storefront", cfg.Log.File, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := backend.NewClient(cfg.Backend, backend.WithUnauthorizedHook(web.OnUnauthorized))
	if err != nil {
		log.Error("Failed to create backend client", "error", err)
		os.Exit(1)
	}
	api := backend.NewServices(client)

	jar := session.NewCookieJar(cfg.Session)
	var sessions session.Store = session.NewCookieStore(jar)
	if cfg.Session.Store == config.SessionStorePostgres {
		db, err := database.NewConnection(ctx, &cfg.Database)
		if err != nil {
			log.Error("Failed to connect to session database", "error", err)
			os.Exit(1)
		}
		defer closeDB(db)

		ss := session.NewServerStore(jar, db, cfg.Session.MaxAge)
		go ss.PurgeExpired(ctx, time.Hour)
		sessions = ss
		log.Info("Using server-side sessions")
	}

	var (
		counts        cart.CountCache
		confirmations checkout.ConfirmationStore
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		counts = cart.NewRedisCountCache(rdb, cfg.Redis.CartCountTTL)
		confirmations = checkout.NewRedisConfirmationStore(rdb)
		log.Info("Using redis for cart counts and checkout confirmations", "addr", cfg.Redis.Addr)
	} else {
		mem := cart.NewMemoryCountCache(cfg.Redis.CartCountTTL)
		go mem.GC(ctx, cfg.Redis.CartCountTTL)
		counts = mem

		pending := checkout.NewMemoryConfirmationStore()
		go pending.GC(ctx, cfg.Session.HandoffTTL)
		confirmations = pending
	}

	bus := cart.NewBus()
	counter := cart.NewCounter(counts, api.Cart, bus)
	defer counter.Close()
	cartStore := cart.NewStore(api.Cart, bus)
	policy := pricing.PolicyFromConfig(cfg.Shipping)

	templates := web.NewTemplateCache(cfg.Backend.ImageBaseURL)
	if err := templates.Load(nil); err != nil {
		log.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	srv := web.NewServer(web.Deps{
		API:       api,
		Sessions:  sessions,
		Jar:       jar,
		Cart:      cartStore,
		Counter:   counter,
		Checkout:  checkout.NewSubmitter(api.Orders, cartStore, policy),
		Handoff:   checkout.NewHandoff(jar, confirmations, cfg.Session.HandoffTTL),
		Orders:    orderview.NewLoader(api.Orders, api.OrderDetails, api.Products),
		Pricing:   pricing.Calculator{Policy: policy},
		Templates: templates,
	})

	protect := csrf.Protect(
		cfg.Session.CSRFKey,
		csrf.Secure(cfg.Session.CookieSecure),
		csrf.Path("/"),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Server.Port, "127.0.0.1:" + cfg.Server.Port}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Routes(protect),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port, "backend", cfg.Backend.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server exited gracefully.")
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.Base().Warn("close session database", "error", err)
	}
}
