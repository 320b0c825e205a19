package app

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"

	"navira/internal/api"
	"navira/internal/assistant"
	"navira/internal/config"
	"navira/internal/data"
	"navira/internal/refresh"
	"navira/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	log.Printf(
		"Config loaded. Listen=%s DataDir=%s Allocation=%s TopCompetitors=%d CacheVersion=%s Assistant=%v",
		cfg.ListenAddr,
		cfg.DataDir,
		cfg.AllocationMode,
		cfg.TopCompetitors,
		cfg.CacheVersion,
		cfg.AssistantEnabled,
	)

	cacheDB, err := sqlite.InitDB(cfg.CacheDBPath)
	if err != nil {
		log.Fatalf("Failed to init result cache: %v", err)
	}
	log.Printf("Result cache initialized at %s", cfg.CacheDBPath)
	defer cacheDB.Close()

	store := data.NewStore()
	if err := store.Reload(cfg); err != nil {
		// Start anyway with empty tables: the scheduler may succeed later
		// and the API degrades to empty results, not errors.
		log.Printf("Initial data load failed: %v", err)
	}

	refresh.StartScheduler(cfg, store, cacheDB)

	server := &api.Server{
		Cfg:     cfg,
		Store:   store,
		CacheDB: cacheDB,
		Assist:  assistant.New(cfg),
	}
	router := api.NewRouter(server)
	logged := handlers.LoggingHandler(os.Stdout, router)

	log.Printf("Navira analytics API listening on %s", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, logged))
}
