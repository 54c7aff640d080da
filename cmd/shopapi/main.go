package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.ServiceName+"-shopapi", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := &httpx.ShopHandler{
		Service:       cfg.ServiceName,
		Log:           log,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		AdminToken:    cfg.AdminToken,
	}

	var prod *kafkax.Producer
	switch cfg.Store {
	case "memory":
		h.Store = shop.NewMemStore(demoProducts()...)
		log.Info("using in-memory store")
	default:
		// DB
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		h.Store = &shop.Repo{DB: db}

		// Redis
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		h.Cache = redisx.NewCartCache(rdb)

		// Kafka producer
		prod = kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderCreated, 1024, log)
		prod.Start(ctx)
		h.Orders = prod
	}

	router := httpx.NewRouter()
	h.Register(router)

	srv := &http.Server{Addr: cfg.ShopHTTPAddr, Handler: router}

	go func() {
		log.Info("shop API listening", zap.String("addr", cfg.ShopHTTPAddr), zap.String("store", cfg.Store))
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
	if prod != nil {
		prod.Close() // flush queued events
		cancel()
		prod.WaitClosed()
	}
}

func demoProducts() []shop.Product {
	return []shop.Product{
		{ID: "p-tea", Title: "Oolong tea", Category: "drink", Unit: "cup",
			OriginPrice: decimal.NewFromInt(80), Price: decimal.NewFromInt(60), Enabled: true,
			Description: "High mountain oolong.", Content: "Served hot."},
		{ID: "p-cake", Title: "Pineapple cake", Category: "food", Unit: "box",
			OriginPrice: decimal.NewFromInt(450), Price: decimal.NewFromInt(390), Enabled: true,
			Description: "Twelve pieces.", Content: "Keeps for two weeks."},
		{ID: "p-mug", Title: "Ceramic mug", Category: "goods", Unit: "pc",
			OriginPrice: decimal.NewFromInt(300), Price: decimal.NewFromInt(300), Enabled: true},
	}
}
