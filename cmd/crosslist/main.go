package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/guarzo/crosslist/internal/api"
	"github.com/guarzo/crosslist/internal/cache"
	"github.com/guarzo/crosslist/internal/config"
	"github.com/guarzo/crosslist/internal/depop"
	"github.com/guarzo/crosslist/internal/ebay"
	"github.com/guarzo/crosslist/internal/etsy"
	"github.com/guarzo/crosslist/internal/history"
	"github.com/guarzo/crosslist/internal/lifecycle"
	"github.com/guarzo/crosslist/internal/marketplace"
	"github.com/guarzo/crosslist/internal/ratelimit"
	"github.com/guarzo/crosslist/internal/scheduler"
	"github.com/guarzo/crosslist/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer db.Close()

	engine := lifecycle.NewEngine(db, lifecycle.DefaultRules())
	salesLog := history.NewLog(cfg.SalesLogPath)
	rec := marketplace.NewReconciler(engine, db, salesLog)

	// Lapsed listings are swept on every start so the dashboard never
	// shows an active listing that the marketplace already dropped.
	if n, err := engine.SweepExpired(); err != nil {
		log.Printf("startup sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("startup sweep: %d listings expired", n)
	}

	adapters := buildAdapters(cfg, rec)

	sched := scheduler.New(cfg.SyncInterval)
	for _, a := range adapters {
		if err := a.Connect(context.Background()); err != nil {
			log.Printf("%s: connect failed, sync disabled until reconnect: %v", a.Platform(), err)
		}
		if err := sched.Add(a); err != nil {
			log.Printf("%s: scheduling failed: %v", a.Platform(), err)
		}
	}
	sched.Start()
	defer sched.Stop()

	server := api.NewServer(engine, db, salesLog, adapters...)
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Router()}

	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	if err := httpServer.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// buildAdapters wires every adapter whose credentials are present.
func buildAdapters(cfg config.Config, rec *marketplace.Reconciler) []marketplace.Adapter {
	var adapters []marketplace.Adapter
	writes := ratelimit.NewDefaultWriteLimiters()

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		log.Printf("creating cache dir: %v", err)
	}

	ebayAuth := ebay.NewOAuthManager(ebay.OAuthConfig{
		ClientID:     cfg.EbayClientID,
		ClientSecret: cfg.EbayClientSecret,
		RefreshToken: cfg.EbayRefreshToken,
		Sandbox:      cfg.EbaySandbox,
	})
	if ebayAuth.Configured() {
		c, err := cache.New(filepath.Join(cfg.CacheDir, "ebay.json"))
		if err != nil {
			log.Printf("ebay cache unavailable: %v", err)
		}
		adapters = append(adapters, ebay.New(ebayAuth, rec, c, writes.EBay))
	} else {
		log.Println("ebay: no credentials, adapter not wired")
	}

	etsyCfg := etsy.Config{
		APIKey:      cfg.EtsyAPIKey,
		AccessToken: cfg.EtsyAccessToken,
		ShopID:      cfg.EtsyShopID,
	}
	if etsyCfg.APIKey != "" && etsyCfg.AccessToken != "" && etsyCfg.ShopID != 0 {
		c, err := cache.New(filepath.Join(cfg.CacheDir, "etsy.json"))
		if err != nil {
			log.Printf("etsy cache unavailable: %v", err)
		}
		adapters = append(adapters, etsy.New(etsyCfg, rec, c, writes.Etsy))
	} else {
		log.Println("etsy: no credentials, adapter not wired")
	}

	if cfg.DepopSeller != "" {
		adapters = append(adapters, depop.New(cfg.DepopSeller, rec))
	} else {
		log.Println("depop: no seller handle, adapter not wired")
	}

	return adapters
}
