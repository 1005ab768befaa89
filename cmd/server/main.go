package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/murmurapp/murmur-backend/internal/config"
	"github.com/murmurapp/murmur-backend/internal/database"
	"github.com/murmurapp/murmur-backend/internal/handlers"
	"github.com/murmurapp/murmur-backend/internal/middleware"
	"github.com/murmurapp/murmur-backend/internal/routes"
	"github.com/murmurapp/murmur-backend/internal/services"
	"github.com/murmurapp/murmur-backend/internal/store"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Connect to MongoDB
	log.Printf("Connecting to MongoDB...")
	if cfg.MongoURI != "" && strings.Contains(cfg.MongoURI, "@") {
		log.Printf("MongoDB URI host: %s", cfg.MongoURI[strings.LastIndex(cfg.MongoURI, "@")+1:])
	}
	mongoClient, db, err := database.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer database.DisconnectMongo(mongoClient)

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer rdb.Close()

	// Storage and indexes
	users := store.NewMongo(db)
	if err := users.EnsureIndexes(context.Background()); err != nil {
		log.Printf("WARNING: failed to ensure user indexes: %v", err)
	} else {
		log.Println("User indexes ensured")
	}

	// Services
	if cfg.SMTP.Host == "" {
		log.Println("WARNING: SMTP_HOST not set, verification emails will fail")
	}
	mailer := services.NewSMTPSender(cfg.SMTP)
	sessions := services.NewSessionService(rdb)
	accounts := services.NewAccountService(users, mailer)

	notifier := services.NewInboxNotifier(rdb)
	notifier.Start(context.Background())

	messaging := services.NewMessagingService(users, notifier)

	if cfg.AI.APIKey == "" {
		log.Println("WARNING: AI_API_KEY not set, message suggestions will fail")
	}
	suggestions := services.NewSuggestionService(cfg.AI)

	// Handlers
	authHandler := handlers.NewAuthHandler(accounts, sessions, users, cfg.IsProduction())
	messageHandler := handlers.NewMessageHandler(messaging)
	suggestHandler := handlers.NewSuggestHandler(suggestions)
	inboxSocket := handlers.NewInboxSocketHandler(sessions, notifier)

	// Router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.IsProduction() {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.RateLimit(rdb))
		r.Use(middleware.LoginRateLimit)
		log.Println("Production security enabled (security headers, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RateLimit(rdb))
	}

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.Setup(r, authHandler, messageHandler, suggestHandler, inboxSocket, middleware.RequireSession(sessions))

	log.Printf("Murmur backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
