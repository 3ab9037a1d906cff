package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quietbay/paydrop/internal/auth"
	"github.com/quietbay/paydrop/internal/catalog"
	"github.com/quietbay/paydrop/internal/config"
	"github.com/quietbay/paydrop/internal/gateway"
	"github.com/quietbay/paydrop/internal/kv"
	"github.com/quietbay/paydrop/internal/ledger"
	"github.com/quietbay/paydrop/internal/notify"
	"github.com/quietbay/paydrop/internal/objectstore"
	"github.com/quietbay/paydrop/internal/payment"
	"github.com/quietbay/paydrop/internal/shop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var store kv.Store
	switch cfg.StoreBackend {
	case "", "memory":
		log.Printf("using in-memory token store; tokens will not survive a restart")
		store = kv.NewMemoryStore()
	case "redis":
		if cfg.RedisAddr == "" {
			log.Fatalf("PAYDROP_STORE_BACKEND=redis but PAYDROP_REDIS_ADDR is empty")
		}
		store = kv.NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		log.Fatalf("unknown PAYDROP_STORE_BACKEND=%q", cfg.StoreBackend)
	}

	var objects objectstore.Store
	switch cfg.ObjectBackend {
	case "", "fs":
		objects = objectstore.FSStore{Dir: cfg.FilesDir}
	case "s3":
		s3store, err := objectstore.NewS3Store(context.Background(), objectstore.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			log.Fatalf("s3 store: %v", err)
		}
		objects = s3store
	default:
		log.Fatalf("unknown PAYDROP_OBJECT_BACKEND=%q", cfg.ObjectBackend)
	}

	var verifier payment.Verifier
	if cfg.PayPalClientID != "" {
		verifier = &payment.PayPal{
			BaseURL:  cfg.PayPalBaseURL,
			ClientID: cfg.PayPalClientID,
			Secret:   cfg.PayPalSecret,
		}
	} else {
		log.Printf("WARNING: no PayPal client configured, claims are not payment-checked")
	}

	var senders []notify.Sender
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.TelegramSender{BotToken: cfg.TelegramBotToken, ChatID: cfg.TelegramChatID})
	}
	if cfg.WebhookURL != "" {
		senders = append(senders, notify.WebhookSender{URL: cfg.WebhookURL})
	}

	lg := &ledger.Ledger{Store: store}
	cat := catalog.Loader{File: cfg.CatalogFile, JSON: cfg.CatalogJSON}
	fanout := notify.Fanout{Senders: senders}

	claimer := &shop.Claimer{
		Ledger:        lg,
		Catalog:       cat,
		Payments:      verifier,
		Notifier:      fanout,
		BaseURL:       cfg.PublicBaseURL,
		TokenTTL:      cfg.TokenTTL,
		MinPrice:      cfg.MinPrice,
		Currency:      cfg.Currency,
		StrictCapture: cfg.StrictCapture,
	}
	downloader := &shop.Downloader{
		Ledger:   lg,
		Objects:  objects,
		Notifier: fanout,
	}

	router := gateway.Router{
		Claims:    claimer,
		Downloads: downloader,
		Debug:     gateway.DebugHandler{Ledger: lg, Catalog: cat},
	}
	if cfg.AdminKey != "" {
		j := auth.JWT{Secret: cfg.JWTSecret, TokenTTL: cfg.AdminTokenTTL}
		router.Auth = auth.Handler{AdminKey: cfg.AdminKey, JWT: j}
		router.AuthMW = auth.Middleware(j)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("paydrop listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Printf("shutdown complete")
}
