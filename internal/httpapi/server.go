package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/upmesh/upmesh/internal/httpapi/middleware"
	"github.com/upmesh/upmesh/internal/ingest"
	"github.com/upmesh/upmesh/internal/repo"
)

type Server struct {
	Logger     *zap.Logger
	Websites   repo.WebsiteStore
	Validators repo.ValidatorStore
	Ticks      repo.TickStore
	Ingest     *ingest.Service
}

func NewServer(l *zap.Logger, ws repo.WebsiteStore, vs repo.ValidatorStore, ts repo.TickStore, ing *ingest.Service) *Server {
	return &Server{Logger: l, Websites: ws, Validators: vs, Ticks: ts, Ingest: ing}
}

// Router wires the collector's routes. Report ingestion and the target feed
// stay keyless — validators authenticate through publicKey binding at the
// ingestion boundary; read routes take a public key, registration and
// deletion an admin key.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// validator-facing
	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(pubRPM, pubBurst))
		r.Post("/api/v1/validator/report", s.handleReport)
		r.Get("/api/v1/targets", s.handleTargets)
	})

	// user-facing reads
	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAny(keys))
		r.Use(apimw.RateLimit(pubRPM, pubBurst))
		r.Get("/api/v1/website/status", s.handleWebsiteStatus)
		r.Get("/api/v1/website/ticks", s.handleWebsiteTicks)
		r.Get("/api/v1/websites", s.handleListWebsites)
	})

	// administrative
	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAdmin(keys))
		r.Use(apimw.RateLimit(admRPM, admBurst))
		r.Post("/api/v1/website", s.handleCreateWebsite)
		r.Delete("/api/v1/website", s.handleDeleteWebsite)
		r.Post("/api/v1/validator", s.handleRegisterValidator)
	})

	return r
}
