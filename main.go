package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rfaulkner7/semaj/internal/config"
	"github.com/rfaulkner7/semaj/internal/handlers"
	appmiddleware "github.com/rfaulkner7/semaj/internal/middleware"
	"github.com/rfaulkner7/semaj/internal/store"
)

func main() {
	cfg := config.Load()

	posts := store.NewGitHub(cfg.GitHubRepo, cfg.GitHubToken)
	postsHandler := handlers.NewPostsHandler(posts, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	// Keep the JSON error contract for unknown routes and bad methods.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		// Mutations commit to the repo; keep them slow. Reads hit the
		// GitHub API too, so they get a limit as well.
		readLimiter := appmiddleware.NewRateLimiter(60, time.Minute)
		writeLimiter := appmiddleware.NewRateLimiter(10, time.Minute)

		r.With(readLimiter.Limit).Get("/posts", postsHandler.List)
		r.With(writeLimiter.Limit).Post("/posts", postsHandler.Create)
		r.With(writeLimiter.Limit).Post("/posts/delete", postsHandler.Delete)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func respondJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
