package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/web"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	sweepEvery = time.Minute
	maxIdle    = 30 * time.Minute
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.New(api.Options{
		BaseURL: cfg.BaseURL,
		APIPath: cfg.APIPath,
		Timeout: cfg.RequestTimeout,
		Logger:  log,
	})

	sessions := web.NewSessions(client, log)
	defer sessions.Close()
	go sessions.RunSweeper(ctx, sweepEvery, maxIdle)

	router := httpx.NewRouter()
	web.NewServer(sessions, log).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("storefront listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("api", cfg.BaseURL),
			zap.String("api_path", cfg.APIPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
}
