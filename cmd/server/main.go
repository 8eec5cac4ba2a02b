package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/idlink/idlink/internal/auth"
	"github.com/idlink/idlink/internal/auth/provider"
	"github.com/idlink/idlink/internal/config"
	"github.com/idlink/idlink/internal/database"
	"github.com/idlink/idlink/internal/user"
)

func main() {
	config.LoadConfig()

	// Setup database
	db, err := database.NewBadgerDB(false)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	// Credential verifiers
	registry := provider.NewRegistry(
		provider.NewGoogleVerifier(config.Current.OAuth.Google),
		provider.NewFacebookVerifier(config.Current.OAuth.Facebook),
	)

	// Setup routing
	r := mux.NewRouter()
	auth.SetupRoutes(r, db, registry)
	user.SetupRoutes(r, db)

	addr := fmt.Sprintf("%s:%s", config.Current.Server.Host, config.Current.Server.Port)
	srv := http.Server{
		Addr:    addr,
		Handler: r,

		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s\n", config.Current.Server.URL())
		log.Fatal(srv.ListenAndServe())
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	<-c

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v\n", err)
	}

	log.Println("Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Error closing database: %v\n", err)
	}
}
