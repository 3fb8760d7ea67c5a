package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"

	"github.com/linkvault/linkvault/pkg/linkvault"
)

// ServerOptions configures the HTTP router.
type ServerOptions struct {
	BaseURL     string
	Environment string

	// JWTSecret enables bearer-token owner identification when non-empty.
	JWTSecret string
}

// NewRouter assembles the full HTTP surface: content lifecycle under
// /api, file downloads under /api/files.
func NewRouter(svc linkvault.Service, opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	if opts.JWTSecret != "" {
		ja := jwtauth.New("HS256", []byte(opts.JWTSecret), nil)
		r.Use(OwnerIdentifier(ja))
	}

	// CORS for development
	if opts.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Content-Password, X-Delete-Token")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	r.Get("/health", handleHealth(opts.Environment))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/", NewContentHandler(svc, opts.BaseURL).Routes())
		r.Mount("/files", NewFilesHandler(svc).Routes())
	})

	return r
}

func handleHealth(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "environment": "%s"}`, environment)
	}
}
