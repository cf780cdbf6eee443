package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/bot"
	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/database"
	"storefront_back_end/internal/events"
	"storefront_back_end/internal/handlers"
	"storefront_back_end/internal/invoice"
	"storefront_back_end/internal/journal"
	"storefront_back_end/internal/lifecycle"
	"storefront_back_end/internal/notify"
	"storefront_back_end/internal/routes"
	"storefront_back_end/internal/search"
	"storefront_back_end/internal/store"
	"storefront_back_end/internal/telegram"
)

// backend regroupe ce que les services attendent du stockage principal
type backend interface {
	lifecycle.Ledger
	lifecycle.Carts
	cart.Storage
	catalog.Store
}

// stockJournal est le journal des mouvements, Scylla ou mémoire
type stockJournal interface {
	lifecycle.Journal
	handlers.Movements
}

func main() {
	config.Load()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conns := database.ConnectDatabases(cfg)
	defer conns.Close()

	// 1. Stockage principal
	var db backend
	if conns.Postgres != nil {
		db = store.NewPostgres(conns.Postgres)
	} else {
		db = store.NewMemory()
	}

	live := cache.NewLive(conns.Redis)

	// 2. Telegram
	var messenger telegram.Messenger = telegram.LogMessenger{}
	var tg *telegram.BotMessenger
	if cfg.TelegramToken != "" {
		m, err := telegram.Connect(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		tg = m
		messenger = m
	} else {
		log.Println("⚠️ TELEGRAM_TOKEN absent — les messages sont seulement journalisés")
	}
	if cfg.OwnerChatID == 0 {
		log.Println("⚠️ OWNER_CHAT_ID absent — le propriétaire ne recevra aucune notification")
	}

	// 3. Notifications
	gwOpts := notify.Options{
		Messenger:   messenger,
		OwnerChatID: cfg.OwnerChatID,
		Prompts:     cache.NewPromptStore(conns.Redis),
		Web:         live,
	}
	if mailer := notify.NewMailer(cfg); mailer != nil {
		gwOpts.Mailer = mailer
		log.Println("📧 Copie des factures par e-mail activée")
	}
	gateway := notify.NewGateway(gwOpts)

	// 4. Factures, journal et événements
	renderer := invoice.NewRenderer(invoice.BankDetails{Name: cfg.CompanyName, IBAN: cfg.CompanyIBAN, BIC: cfg.CompanyBIC})

	var stock stockJournal
	if conns.Scylla != nil {
		scylla := journal.NewScylla(conns.Scylla)
		if err := scylla.EnsureSchema(); err != nil {
			log.Fatalf("❌ Schéma ScyllaDB: %v", err)
		}
		stock = scylla
	} else {
		stock = journal.NewMemory()
	}

	deps := lifecycle.Deps{
		Ledger:            db,
		Catalog:           db,
		Carts:             db,
		Notifier:          gateway,
		Renderer:          renderer,
		Journal:           stock,
		Live:              live,
		LowStockThreshold: cfg.LowStockThreshold,
		ResetHooks: []func(ctx context.Context) error{
			func(ctx context.Context) error { return cache.ResetEphemeral(ctx, conns.Redis) },
		},
	}

	hOpts := handlers.Options{Live: live, Movements: stock, Renderer: renderer}
	if conns.MinIO != nil {
		archive := invoice.NewArchive(conns.MinIO, cfg.MinioBucket)
		deps.Archive = archive
		hOpts.Invoices = archive
	}

	var kafka *events.Kafka
	if len(cfg.KafkaBrokers) > 0 {
		k, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("⚠️ Kafka indisponible, événements désactivés: %v", err)
		} else {
			kafka = k
			deps.Events = k
		}
	}

	var products *catalog.Service
	if conns.Elastic != nil {
		index := search.NewIndex(conns.Elastic, cfg.ElasticIndex)
		deps.ResetHooks = append(deps.ResetHooks, index.Clear)
		products = catalog.NewService(db, index)
	} else {
		products = catalog.NewService(db, nil)
	}

	engine := lifecycle.NewEngine(deps)
	carts := cart.NewService(db, db, live)

	hOpts.Engine = engine
	hOpts.Carts = carts
	hOpts.Catalog = products
	h := handlers.New(hOpts)

	authz := auth.SingleOwner{ChatID: cfg.OwnerChatID, Subject: cfg.OwnerSubject}

	// 5. Bot Telegram
	if tg != nil {
		b := bot.New(bot.Options{
			Messenger:     tg,
			Engine:        engine,
			Carts:         carts,
			Catalog:       products,
			Conversations: cache.NewConversationStore(conns.Redis, cfg.ConversationTTL),
			Authorizer:    authz,
			Prompter:      gateway,
			Movements:     stock,
		})
		go b.Run(ctx, tg.Updates())
	}

	// 6. HTTP
	r := gin.Default()
	routes.RegisterRoutes(r, h, routes.Options{
		Authorizer:    authz,
		JWTSecret:     cfg.JWTSecret,
		Redis:         conns.Redis,
		CartRateLimit: cfg.CartRateLimit,
		CORSOrigins:   cfg.CORSOrigins,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("🚀 Serveur Storefront lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt en cours...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if tg != nil {
		tg.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt HTTP: %v", err)
	}
	if kafka != nil {
		kafka.Close(shutdownCtx)
	}
	log.Println("👋 Serveur arrêté")
}
