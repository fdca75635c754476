package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
)

// A stand-in for `ollama serve`: listens on OLLAMA_HOST and answers the
// pull and generate endpoints.
func main() {
	if len(os.Args) < 2 || os.Args[1] != "serve" {
		log.Fatalf("usage: fake_ollama serve")
	}
	if p := os.Getenv("FAKE_OLLAMA_PIDFILE"); p != "" {
		_ = os.WriteFile(p, []byte(strconv.Itoa(os.Getpid())), 0o644)
	}
	r := chi.NewRouter()
	r.Post("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		if os.Getenv("FAKE_OLLAMA_PULL_FAIL") == "1" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "pull model manifest: file does not exist"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	r.Post("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "ok", "done": true})
	})

	srv := &http.Server{Addr: os.Getenv("OLLAMA_HOST"), Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("Listening on %s", srv.Addr)

	// Wait for SIGTERM then shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
