package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/auth"
	"github.com/Axeist/cuephoria-pos/internal/cache"
	"github.com/Axeist/cuephoria-pos/internal/config"
	httpserver "github.com/Axeist/cuephoria-pos/internal/http"
	"github.com/Axeist/cuephoria-pos/internal/http/handlers"
	"github.com/Axeist/cuephoria-pos/internal/loader"
	"github.com/Axeist/cuephoria-pos/internal/notify"
	"github.com/Axeist/cuephoria-pos/internal/push"
	libredis "github.com/Axeist/cuephoria-pos/internal/redisconn"
	"github.com/Axeist/cuephoria-pos/internal/service"
	"github.com/Axeist/cuephoria-pos/internal/store"
	"github.com/Axeist/cuephoria-pos/internal/ws"
)

// App wires pos-server dependencies.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	sessions    *loader.SessionLoader
	stations    *loader.StationLoader
	syncer      *loader.Syncer
	hub         *ws.Hub
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := store.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	sessionRepo := store.NewSessionRepository(sqlDB)
	stationRepo := store.NewStationRepository(sqlDB)
	customerRepo := store.NewCustomerRepository(sqlDB)
	billRepo := store.NewBillRepository(sqlDB)
	staffRepo := store.NewStaffRepository(sqlDB)

	collectionCache := cache.NewStore(redisClient, cfg.CacheTTL(), cfg.CacheStaleAfter())
	bus := push.NewBus(redisClient, logger)
	sink := notify.NewLogSink(logger)

	sessions := loader.NewSessionLoader(
		sessionRepo, collectionCache, bus, sink, logger,
		cfg.Loader.SessionLimit, cfg.DebounceWindow(), loader.NewRealClock(),
	)
	stations := loader.NewStationLoader(
		stationRepo, sessionRepo, billRepo, collectionCache, bus, sink, logger,
		cfg.Loader.StationPageSize, cfg.DebounceWindow(), loader.NewRealClock(),
	)
	syncer := loader.NewSyncer(stations, sessions, logger)

	hub := ws.NewHub(cfg.WSPingInterval(), logger)
	syncer.OnReconciled(hub.BroadcastStations)

	actions := service.NewActions(
		stations, sessions, sessionRepo, stationRepo, customerRepo, billRepo,
		bus, sink, logger,
	)

	tokenizer := auth.NewTokenService(cfg.Auth.Secret, cfg.TokenTTL())
	authService := auth.NewService(staffRepo, auth.NewBcryptHasher(0), tokenizer, logger)

	routes := httpserver.Routes{
		Login:          handlers.NewLoginHandler(authService),
		Stations:       handlers.NewStationsHandler(stations),
		StationCreate:  handlers.NewStationCreateHandler(stationRepo, stations),
		StationUpdate:  handlers.NewStationUpdateHandler(stations),
		StationDelete:  handlers.NewStationDeleteHandler(stations),
		Sessions:       handlers.NewSessionsHandler(sessions),
		ActiveSessions: handlers.NewActiveSessionsHandler(sessions),
		SessionDelete:  handlers.NewSessionDeleteHandler(sessions),
		SessionStart:   handlers.NewSessionStartHandler(actions),
		SessionEnd:     handlers.NewSessionEndHandler(actions),
		Dashboard:      hub.Handler(),
		Health:         handlers.NewHealthHandler(),
		Protect:        auth.Middleware(tokenizer),
	}

	server := httpserver.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes), logger)

	return &App{
		server:      server,
		db:          sqlDB,
		redisClient: redisClient,
		sessions:    sessions,
		stations:    stations,
		syncer:      syncer,
		hub:         hub,
		logger:      logger,
	}, nil
}

// Run loads both collections, starts the push subscription and hub, and
// serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.stations.Load(ctx); err != nil {
		return err
	}
	if err := a.sessions.Load(ctx); err != nil {
		return err
	}
	a.syncer.Run()

	a.sessions.Start(ctx)
	a.stations.Start(ctx)
	go a.hub.Start(ctx)

	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
