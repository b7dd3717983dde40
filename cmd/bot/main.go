package main

import (
	"context"
	"log"
	"net/http"

	"vipclub-bot/internal/bot"
	"vipclub-bot/internal/catalog"
	"vipclub-bot/internal/config"
	"vipclub-bot/internal/database"
	"vipclub-bot/internal/payment"
	"vipclub-bot/internal/responses"
	"vipclub-bot/internal/store"
	"vipclub-bot/internal/subscription"
	"vipclub-bot/internal/users"
	"vipclub-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	// Wire services
	st := store.NewGorm(db)
	cat := catalog.New()
	usersSvc := users.NewService(st)
	payments := payment.NewService(st, cat)
	gateway := payment.NewClient(cfg.MercadoPagoToken)
	manager := subscription.NewManager(st, cat)
	resp := responses.NewService(st, rdb)

	tgBot, err := bot.NewBot(cfg.BotToken, usersSvc, payments, gateway, manager, cat, resp, st)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}

	// Payment confirmation webhook
	webhook := payment.NewWebhookHandler(manager, payments)
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/payments", webhook.HandleWebhook)
	go func() {
		log.Printf("Webhook server listening on %s", cfg.WebhookAddr)
		if err := http.ListenAndServe(cfg.WebhookAddr, mux); err != nil {
			log.Fatalf("Webhook server failed: %v", err)
		}
	}()

	// Background expiry worker
	checker := worker.NewChecker(st, rdb, payments, tgBot)
	go checker.Start(context.Background())

	log.Println("Service started successfully")
	tgBot.Start()
}
