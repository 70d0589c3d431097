package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/winterarc/backend/auth"
	"github.com/winterarc/backend/coach"
	"github.com/winterarc/backend/server"
	"github.com/winterarc/backend/storage"
	"github.com/winterarc/backend/storage/cache"
)

func main() {
	// Load the .env file.
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	mongoURI := os.Getenv("MONGODB_URI")       // MongoDB database URI
	dbName := os.Getenv("DB_NAME")             // The name of the MongoDB database
	addr := os.Getenv("SERVER_ADDR")           // Address the HTTP server listens on
	identityURL := os.Getenv("IDENTITY_URL")   // Base URL of the external identity provider
	redisURL := os.Getenv("REDIS_URL")         // Optional Redis URL for the leaderboard cache
	reap := os.Getenv("SESSION_REAP_SCHEDULE") // Optional cron schedule for the session sweep

	if addr == "" {
		addr = ":8080"
	}

	store, err := storage.NewStorage(dbName, mongoURI)
	if err != nil {
		log.Fatal("error initializing storage: ", err)
	}
	defer func() {
		if err := store.Disconnect(); err != nil {
			log.Printf("error disconnecting storage: %v", err)
		}
	}()

	var respCache cache.Cache
	if redisURL != "" {
		redisCache := cache.NewRedisCache()
		if err := redisCache.Connect(redisURL); err != nil {
			log.Fatal("error connecting to Redis: ", err)
		}
		defer redisCache.Disconnect()
		respCache = redisCache
	}

	if reap != "" {
		reaper := auth.NewSessionReaper(store)
		if err := reaper.Start(reap); err != nil {
			log.Fatal("error starting session reaper: ", err)
		}
		defer reaper.Stop()
	}

	identity := auth.NewIdentityClient(identityURL)
	srv := server.New(store, identity, coach.NewStaticPlaceholder(), respCache)

	go func() {
		log.Fatal(srv.Start(addr))
	}()

	// Wait for an interrupt so the deferred cleanup runs.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	fmt.Println()
	fmt.Println(sig)
}
