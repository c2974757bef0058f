package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "parkmeter/backend/libs/db"
	libredis "parkmeter/backend/libs/redis"
	"parkmeter/backend/services/parking-service/internal/cardhash"
	appconfig "parkmeter/backend/services/parking-service/internal/config"
	"parkmeter/backend/services/parking-service/internal/db"
	httpserver "parkmeter/backend/services/parking-service/internal/http"
	"parkmeter/backend/services/parking-service/internal/http/handlers"
	"parkmeter/backend/services/parking-service/internal/identity"
	"parkmeter/backend/services/parking-service/internal/notify"
	redisstore "parkmeter/backend/services/parking-service/internal/redis"
	"parkmeter/backend/services/parking-service/internal/repository"
	"parkmeter/backend/services/parking-service/internal/repository/memory"
	"parkmeter/backend/services/parking-service/internal/service"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	webhookTimeout = 10 * time.Second
)

// App wires dependencies for the parking service.
type App struct {
	server    *httpserver.Server
	handler   http.Handler
	scheduler *service.ObligationScheduler
	fanout    *notify.Fanout
	hub       *notify.Hub
	amqp      *notify.AMQPSink
	db        *sql.DB
	redis     *goredis.Client
	logger    *zap.Logger
}

type stores struct {
	meters   service.MeterStore
	sessions service.SessionStore
	cars     service.CarStore
	payments service.PaymentStore
}

// New builds application graph.
func New(cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	st, err := a.openStores(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var guard service.AlertGuard
	if cfg.Redis.Addr != "" {
		client, err := libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		guard = redisstore.NewAlertGuard(client, cfg.Redis.AlertTTL)
	}

	var sinks []notify.Sink
	if cfg.Notify.Websocket {
		a.hub = notify.NewHub(wsWriteTimeout, wsPingInterval, logger)
		sinks = append(sinks, a.hub)
	}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.AvatarURL, &http.Client{Timeout: webhookTimeout}))
	}
	if cfg.Notify.AMQPURL != "" {
		a.amqp = notify.NewAMQPSink(cfg.Notify.AMQPURL, cfg.Notify.AMQPQueue)
		sinks = append(sinks, a.amqp)
	}
	a.fanout = notify.NewFanout(cfg.Notify.Timeout, logger, sinks...)

	a.scheduler = service.NewObligationScheduler(st.sessions, a.fanout, guard, cfg.GracePeriod(), logger)
	ledger := service.NewLedger(st.sessions, st.meters, st.cars, a.scheduler, logger)
	meterSvc := service.NewMeterService(st.meters, st.cars, st.payments, ledger, a.fanout, logger)
	paymentSvc := service.NewPaymentService(st.payments, ledger, cardhash.NewBcryptHasher(0), logger)
	tokens := identity.NewTokenService(cfg.JWT.Secret, cfg.JWTExpiration())

	carSvc := service.NewCarService(st.cars, logger)

	routes := httpserver.Routes{
		AddMeter:         handlers.NewAddMeterHandler(meterSvc, logger),
		ListMeters:       handlers.NewListMetersHandler(meterSvc, logger),
		GetMeter:         handlers.NewGetMeterHandler(meterSvc, logger),
		UpdateMeter:      handlers.NewUpdateMeterHandler(meterSvc, logger),
		ResetMeter:       handlers.NewResetMeterHandler(meterSvc, logger),
		ConfirmParking:   handlers.NewConfirmParkingHandler(ledger, logger),
		CurrentParkings:  handlers.NewCurrentParkingsHandler(ledger, logger),
		PreviousParkings: handlers.NewPreviousParkingsHandler(ledger, logger),
		AllParkings:      handlers.NewAllParkingsHandler(ledger, logger),
		GuestPayment:     handlers.NewGuestPaymentHandler(paymentSvc, logger),
		UserPayment:      handlers.NewUserPaymentHandler(paymentSvc, logger),
		ListCars:         handlers.NewListCarsHandler(carSvc, logger),
		AddCar:           handlers.NewAddCarHandler(carSvc, logger),
		GetCar:           handlers.NewGetCarHandler(carSvc, logger),
		RenameCar:        handlers.NewRenameCarHandler(carSvc, logger),
		DeleteCar:        handlers.NewDeleteCarHandler(carSvc, logger),
		Health:           handlers.NewHealthHandler(),
		Version:          handlers.NewVersionHandler(cfg.Version),
	}
	if a.hub != nil {
		routes.Events = a.hub
	}

	a.handler = httpserver.NewRouter(routes, tokens, logger)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), a.handler, cfg.HTTP.ShutdownTimeout, logger)

	logger.Info("parking service configured",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("alert_guard", guard != nil),
		zap.Int("sinks", len(sinks)),
		zap.Duration("grace", cfg.GracePeriod()),
	)
	return a, nil
}

func (a *App) openStores(cfg *appconfig.Config) (stores, error) {
	if cfg.Storage.Driver == appconfig.DriverMemory {
		return stores{
			meters:   memory.NewMeterRepository(),
			sessions: memory.NewSessionRepository(),
			cars:     memory.NewCarRepository(),
			payments: memory.NewPaymentRepository(),
		}, nil
	}

	sqlDB, err := OpenDatabase(cfg)
	if err != nil {
		return stores{}, err
	}
	a.db = sqlDB

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(ctx, sqlDB); err != nil {
			return stores{}, err
		}
		a.logger.Info("database schema applied")
	}

	return stores{
		meters:   repository.NewMeterRepository(sqlDB),
		sessions: repository.NewSessionRepository(sqlDB),
		cars:     repository.NewCarRepository(sqlDB),
		payments: repository.NewPaymentRepository(sqlDB),
	}, nil
}

// OpenDatabase connects to the configured Postgres instance.
func OpenDatabase(cfg *appconfig.Config) (*sql.DB, error) {
	return db.NewPostgres(cfg.Database.DSN, libdb.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnLifetime: cfg.Database.ConnLifetime,
	})
}

// Handler exposes the routed HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts serving HTTP traffic until context cancellation.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.fanout != nil {
		a.fanout.Wait()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close amqp connection", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
