package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"go-dm/internal/chat"
	"go-dm/internal/config"
	"go-dm/internal/db"
	"go-dm/internal/friend"
	myMiddleware "go-dm/internal/middleware"
	"go-dm/internal/presence"
	"go-dm/internal/user"
)

func main() {
	// 1. Config (.env + environment)
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ Bad configuration: %v", err)
	}

	// 2. Connect to Database (Platform Layer)
	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		logrus.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	logrus.Info("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		logrus.Fatalf("❌ Migration failed: %v", err)
	}
	logrus.Info("✅ Database Schema Initialized")

	// 3. Connect to Redis (Platform Layer)
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	logrus.Info("✅ Connected to Redis")

	tracker := presence.NewTracker(redisClient)

	// 4. Identity Feature
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, tracker, cfg.JWTSecret, cfg.TokenTTL)
	userHandler := user.NewHandler(userService)

	// 5. Friend Graph Feature
	friendRepo := friend.NewRepository(database.Conn)
	friendService := friend.NewService(friendRepo)
	friendHandler := friend.NewHandler(friendService)

	// 6. Chat Feature
	chatRepo := chat.NewRepository(database.Conn)

	// The hub owns all room membership; one Run goroutine for the process.
	hub := chat.NewHub(chatRepo, tracker)
	go hub.Run()

	chatHandler := chat.NewHandler(hub, chatRepo)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	// 7. Define Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public Routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)

	// Protected Routes (Require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/api/users/search", userHandler.SearchUsers)
		r.Get("/api/users/{id}", userHandler.GetUser)

		r.Get("/api/friends/requests", friendHandler.ListIncoming)
		r.Post("/api/friends/request", friendHandler.SendRequest)
		r.Post("/api/friends/accept", friendHandler.AcceptRequest)
		r.Post("/api/friends/reject", friendHandler.RejectRequest)

		r.Get("/api/messages/{counterpartID}", chatHandler.GetMessages)
		r.Post("/api/messages/send", chatHandler.SendMessage)
		r.Post("/api/messages/read", chatHandler.MarkRead)
		r.Get("/api/conversations", chatHandler.ListConversations)

		// WebSocket (Real-time)
		r.Get("/ws", chatHandler.ServeWs)
	})

	logrus.Infof("🚀 Server starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logrus.Fatal(err)
	}
}
