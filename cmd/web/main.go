package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tracker/web/internal/apiclient"
	"tracker/web/internal/app"
	"tracker/web/internal/config"
	"tracker/web/internal/session"
)

func main() {
	cfg := config.Load()

	api := apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.RequestTimeout))

	// Minted pairs are shared across instances through Redis when configured.
	var service *app.Service
	var cache session.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh de-duplication")
		redisCache, err := session.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisCache.Close()
		cache = redisCache
		service = app.NewWithCache(cfg, api, redisCache)
	} else {
		log.Printf("Using process memory for refresh de-duplication")
		cache = session.NewMemoryCache()
		service = app.New(cfg, api)
	}

	gate := session.NewGate(api,
		session.WithCache(cache, cfg.RefreshReuseTTL),
		session.WithProduction(cfg.Production),
	)

	httpServer := app.NewHTTPServer(service, gate, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Tracker web listening on %s (api %s)", cfg.Addr, cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
