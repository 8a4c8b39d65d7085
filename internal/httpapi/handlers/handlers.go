package handlers

import (
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"abode/internal/authz"
	"abode/internal/httpkit"
	"abode/internal/ledger"
	"abode/internal/orchestrator"
	"abode/internal/pkg/logger"
	"abode/internal/ports"
)

type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Ledger       ledger.Ledger
	Log          *logger.Logger

	// Pool, RDB and SP back the deep health check; any of them may be nil
	// in a trimmed dev setup.
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
}

type Handler struct {
	orc    *orchestrator.Orchestrator
	ledger ledger.Ledger
	log    *logger.Logger

	pool *pgxpool.Pool
	rdb  *redis.Client
	sp   ports.StorageProvider
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		orc:    d.Orchestrator,
		ledger: d.Ledger,
		log:    log.WithComponent("httpapi"),
		pool:   d.Pool,
		rdb:    d.RDB,
		sp:     d.SP,
	}
}

// identity reads the caller identity asserted by the gateway. Writes a
// 401 and returns false when the headers are missing.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (authz.Identity, bool) {
	id := authz.Identity{
		UserID: strings.TrimSpace(r.Header.Get("X-User-Id")),
		OrgID:  strings.TrimSpace(r.Header.Get("X-Org-Id")),
	}
	if id.UserID == "" || id.OrgID == "" {
		httpkit.WriteErr(w, 401, "UNAUTHORIZED", "missing identity headers", nil)
		return authz.Identity{}, false
	}
	return id, true
}
