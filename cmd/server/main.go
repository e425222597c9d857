// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/quizarena/quizarena/internal/auth"
	"github.com/quizarena/quizarena/internal/broadcast"
	"github.com/quizarena/quizarena/internal/cache"
	"github.com/quizarena/quizarena/internal/database"
	"github.com/quizarena/quizarena/internal/game"
	"github.com/quizarena/quizarena/internal/handlers"
	"github.com/quizarena/quizarena/internal/judge"
	"github.com/quizarena/quizarena/internal/leaderboard"
	"github.com/quizarena/quizarena/internal/middleware"
	"github.com/quizarena/quizarena/internal/shop"
	"github.com/quizarena/quizarena/internal/watchdog"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		// The ladder cache and historian queue degrade gracefully.
		logger.WithError(err).Warn("redis unavailable, continuing without cache")
	}

	store := database.Store{}

	hub := broadcast.NewHub(logger)

	engine := game.NewEngine(store)
	engine.Bcast = hub
	engine.Logger = logger
	engine.Judge = judge.NewClient()

	monitor := watchdog.NewMonitor(store)
	monitor.Bcast = hub
	monitor.Logger = logger
	monitor.ForceLeave = engine.ForceLeave

	ladder := leaderboard.New(database.TopUsersByRating)
	ladder.Logger = logger

	srv := &handlers.ArenaServer{
		Engine:  engine,
		Hub:     hub,
		Monitor: monitor,
		Shop:    shop.New(store, shop.CodesFromEnv()),
		Ladder:  ladder,
		Logger:  logger,
	}

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/me", handlers.MeHandler)
	mux.HandleFunc("/user/solo-progress", handlers.SoloProgressHandler)

	// lobby endpoints
	mux.Handle("/lobby/create", logged(handlers.CreateLobbyHandler(srv)))
	mux.Handle("/lobby/list", logged(handlers.ListLobbiesHandler(srv)))
	mux.Handle("/lobby/mine", logged(handlers.MyLobbyHandler(srv)))
	mux.Handle("/lobby/join", logged(handlers.JoinLobbyHandler(srv)))
	mux.Handle("/lobby/leave", logged(handlers.LeaveLobbyHandler(srv)))
	mux.Handle("/lobby/ready", logged(handlers.ReadyHandler(srv)))
	mux.Handle("/lobby/start", logged(handlers.StartLobbyHandler(srv)))
	mux.Handle("/lobby/answer", logged(handlers.AnswerHandler(srv)))
	mux.Handle("/lobby/chat", logged(handlers.ChatHandler(srv)))

	// leaderboard and shop
	mux.Handle("/leaderboard", logged(handlers.LeaderboardHandler(srv)))
	mux.Handle("/shop/redeem", logged(handlers.RedeemHandler(srv)))
	mux.Handle("/shop/buy", logged(handlers.BuyHandler(srv)))

	// event socket
	mux.Handle("/ws", logged(handlers.WSHandler(logger, srv)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
