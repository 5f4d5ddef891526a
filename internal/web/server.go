package web

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/ops"
)

// NewServer creates and configures the HTTP server for the jam web API.
func NewServer(db *sql.DB, cfg *config.Config, tok ops.Tokenizer, version, bind string, port int) *http.Server {
	h := &Handlers{
		db:      db,
		cfg:     cfg,
		tok:     tok,
		version: version,
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/encode", h.HandleEncode).Methods("POST")
	router.HandleFunc("/decode", h.HandleDecode).Methods("POST")
	router.HandleFunc("/pieces", h.HandleList).Methods("GET")
	router.HandleFunc("/pieces/{id}", h.HandleFetch).Methods("GET")
	router.HandleFunc("/pieces/{id}", h.HandleDelete).Methods("DELETE")
	router.HandleFunc("/pieces/{id}/view", h.HandleView).Methods("GET")
	router.HandleFunc("/stats", h.HandleStats).Methods("GET")

	handler := cors.Default().Handler(securityHeaders(router))

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: handler,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("jam API running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
