package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zipchat/internal/chat"
	"zipchat/internal/config"
	"zipchat/internal/handlers"
	"zipchat/internal/identity"
	"zipchat/internal/registry"
	"zipchat/internal/store"
	"zipchat/internal/ws"
	"zipchat/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := logger.Init(cfg.Server.Development); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize store
	st, err := store.NewPostgresStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer st.Close()

	// Core services
	reg := registry.New()
	broadcaster := chat.NewBroadcaster(st, st, reg, cfg.Chat.PresenceTTL)
	router := chat.NewPrivateRouter(st, reg, broadcaster)
	presence := chat.NewPresenceTracker(st, cfg.Chat.PresenceTTL, cfg.Chat.SweepInterval)
	aggregator := chat.NewActiveChatAggregator(st, cfg.Chat.ActiveChatMaxAge)
	identityService := identity.NewService(st, cfg)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go presence.RunSweeper(sweepCtx)

	// Handlers
	wsDeps := &ws.Deps{
		Registry:     reg,
		Broadcaster:  broadcaster,
		Router:       router,
		Presence:     presence,
		Messages:     st,
		PingPeriod:   cfg.Chat.PingPeriod,
		PongWait:     cfg.Chat.PongWait,
		BacklogLimit: cfg.Chat.BacklogLimit,
		HistoryLimit: cfg.Chat.HistoryLimit,
	}
	authHandlers := handlers.NewAuthHandlers(identityService)
	chatHandlers := handlers.NewChatHandlers(identityService, aggregator, router, st, cfg.Chat.RecentChatsLimit, cfg.Chat.HistoryLimit)
	wsHandlers := handlers.NewWebSocketHandlers(identityService, wsDeps)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, chatHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	stopSweeper()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, chatHandlers *handlers.ChatHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Identity routes
	mux.HandleFunc("/register", authHandlers.Register)
	mux.HandleFunc("/login", authHandlers.Login)

	// Active chat routes
	mux.HandleFunc("/chats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chatHandlers.RecentChats(w, r)
	})
	mux.HandleFunc("/chats/rebuild", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chatHandlers.RebuildChats(w, r)
	})

	// Private history
	mux.HandleFunc("/messages/private", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chatHandlers.PrivateHistory(w, r)
	})

	// Favourite routes
	mux.HandleFunc("/favourites", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			chatHandlers.ListFavourites(w, r)
		case http.MethodPost:
			chatHandlers.AddFavourite(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/favourites/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			chatHandlers.CheckFavourite(w, r)
		case http.MethodDelete:
			chatHandlers.RemoveFavourite(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
