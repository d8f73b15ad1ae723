package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	catalog, err := cfg.LoadCatalog()
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db %s: %v", cfg.DBPath, err)
	}
	defer db.Close()

	gin.SetMode(gin.ReleaseMode)
	hub := NewHub(cfg, db, catalog)
	go hub.Run()

	server := &http.Server{Addr: cfg.Addr, Handler: SetupRoutes(hub, cfg.ClientDir)}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		log.Printf("Serving client files from %s", cfg.ClientDir)
		if cfg.AllowGodMode {
			log.Printf("God mode action enabled")
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	hub.Shutdown()
}
