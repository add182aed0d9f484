package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/utsavhq/guestsheet/internal/client"
	"github.com/utsavhq/guestsheet/internal/config"
	"github.com/utsavhq/guestsheet/internal/database"
	"github.com/utsavhq/guestsheet/internal/handler"
	"github.com/utsavhq/guestsheet/internal/metrics"
	"github.com/utsavhq/guestsheet/internal/queue"
	"github.com/utsavhq/guestsheet/internal/repository"
	"github.com/utsavhq/guestsheet/internal/router"
	"github.com/utsavhq/guestsheet/internal/session"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger()
	cfg := config.Load()

	// Audit storage.  The service stays up without it: imports and edits
	// keep working, only the activity trail goes dark.
	var audit *repository.AuditRepo
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Warn().Err(err).Msg("audit database unavailable; activity trail disabled")
	} else {
		audit = repository.NewAuditRepo(db)
	}

	// Redis backs sessions, caching and rate limiting.  Without it the
	// session store degrades to process memory and the middlewares switch off.
	rdb := config.NewRedisClient()
	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, time.Duration(cfg.SessionTTLMin)*time.Minute)
	} else {
		log.Warn().Msg("redis unavailable; sessions held in process memory")
		sessions = session.NewMemoryStore()
	}

	planner := client.New(cfg.PlannerAPIURL, log)
	m := metrics.New("guestsheet")
	h := handler.NewImportHandler(cfg, sessions, planner, audit, m, log)

	if audit != nil {
		go queue.StartActivityConsumer(audit, log)
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, h, cfg, rdb)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
