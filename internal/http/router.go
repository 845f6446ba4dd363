package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/clubledger/internal/http/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/http/webhook"
)

type Options struct {
	AllowedOrigins []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func New(ledgerV1 *ledger.Handler, webhooksV1 *webhook.Handler, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", webhooksV1.Routes)

		r.Route("/ledger", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: opts.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			ledgerV1.Routes(r)
		})
	})

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return router
}
