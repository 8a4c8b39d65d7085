package httpapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"abode/internal/httpapi/handlers"
	"abode/internal/httpkit"
	"abode/internal/ledger"
	"abode/internal/orchestrator"
	"abode/internal/pkg/logger"
	"abode/internal/pkg/middleware"
	"abode/internal/ports"
)

type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Ledger       ledger.Ledger
	Log          *logger.Logger

	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Timeout(60 * time.Second))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-User-Id", "X-Org-Id"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Orchestrator: d.Orchestrator,
		Ledger:       d.Ledger,
		Log:          log,
		Pool:         d.Pool,
		RDB:          d.RDB,
		SP:           d.SP,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- RENDER JOBS ----
	r.Post("/render", h.PostRender)
	r.Get("/render/{jobId}", h.GetRenderStatus)
	r.Get("/projects/{projectId}/render", h.ListProjectRenders)

	// ---- CREDITS ----
	r.Get("/orgs/{orgId}/credits", h.GetCredits)
	r.Post("/orgs/{orgId}/credits/topup", h.PostCreditsTopup)

	// ---- ARTIFACTS ----
	r.Get("/artifacts/*", h.GetArtifact)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
