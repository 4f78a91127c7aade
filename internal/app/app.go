package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/tickerplot/nsepulse/config"
	"github.com/tickerplot/nsepulse/internal/api"
	"github.com/tickerplot/nsepulse/internal/ledger"
	"github.com/tickerplot/nsepulse/internal/service"
	"github.com/tickerplot/nsepulse/internal/storage"
)

// InitializeApp sets up all application dependencies and returns a fully
// configured Gin router, a cleanup function for graceful shutdown, and any
// error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Initializes the repository and ledger layers.
//   - Creates the HTTP handler layer and configures the router.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (DB connection).
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	repo := storage.NewHistoryRepository(db)
	led := ledger.New(db, cfg.Ingest.GraceDays)

	svc := service.NewHistoryService(repo, led)
	handler := api.NewHandler(svc)

	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(db.Ping)
	healthHandler.Register(router)

	cleanup := func() {
		_ = db.Close()
	}

	return router, cleanup, nil
}
