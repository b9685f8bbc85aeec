package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/tenantbook/reservations/libs/config"
	"github.com/tenantbook/reservations/libs/db"
	"github.com/tenantbook/reservations/libs/httpx"
	"github.com/tenantbook/reservations/libs/kafkax"
	otelx "github.com/tenantbook/reservations/libs/otel"
	"github.com/tenantbook/reservations/libs/runtime"
	"github.com/tenantbook/reservations/services/availability-service/internal/availability"
	"github.com/tenantbook/reservations/services/availability-service/internal/calendar"
	"github.com/tenantbook/reservations/services/availability-service/internal/handlers"
	"github.com/tenantbook/reservations/services/availability-service/internal/reservations"
	"github.com/tenantbook/reservations/services/availability-service/internal/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	availabilityURL, err := config.RequiredString("AVAILABILITY_URL")
	if err != nil {
		panic(err)
	}
	registry, err := calendar.NewRegistry(calendar.Config{
		URL:     availabilityURL,
		Timeout: config.Duration("AVAILABILITY_TIMEOUT", 10*time.Second),
	})
	if err != nil {
		panic(err)
	}

	defaultLoc, err := time.LoadLocation(config.String("DEFAULT_TIMEZONE", "Asia/Tokyo"))
	if err != nil {
		panic(err)
	}

	var checks []runtime.ReadyCheck

	var stores tenant.Store
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL, db.PoolConfig{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 0)),
		})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		stores = tenant.NewPostgresStore(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
		logger.Info("store configs from postgres")
	} else {
		dir := config.String("STORE_CONFIG_DIR", "./stores")
		fs, err := tenant.NewFileStore(dir)
		if err != nil {
			logger.Error("store config dir unusable", "dir", dir, "err", err)
			panic(err)
		}
		stores = fs
		logger.Info("store configs from files", "dir", dir)
	}

	var publisher reservations.Publisher
	if brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")); len(brokers) > 0 {
		w := kafkax.NewWriter(brokers, config.String("KAFKA_RESERVATION_TOPIC", "reservation.requested.v1"))
		defer func() { _ = w.Close() }()
		publisher = reservations.NewKafkaPublisher(w)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; reservation requests are only logged")
		publisher = reservations.NewLogPublisher(logger)
	}

	svc := reservations.NewService(stores,
		func(cfg tenant.StoreConfig) (availability.Fetcher, error) {
			c, err := registry.For(cfg.AvailabilityURL)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		publisher,
		logger,
		reservations.Config{
			DefaultLocation: defaultLoc,
			BusinessDayTag:  config.String("BUSINESS_DAY_TAG", availability.DefaultBusinessDayTag),
		},
	)

	rateLimitMW, rdb := rateLimiter(logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	adminUser := config.String("ADMIN_USER", "admin")
	adminHash := config.String("ADMIN_PASSWORD_BCRYPT", "")
	if adminHash == "" {
		logger.Warn("ADMIN_PASSWORD_BCRYPT not set; admin routes reject every request")
	}

	mux := runtime.NewBaseMux(checks...)
	handlers.Register(mux,
		handlers.NewAvailabilityHandler(svc, logger),
		handlers.NewAdminHandler(stores, logger),
		httpx.WithBasicAuth(service+" admin", adminUser, adminHash),
	)

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS"),
			AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id"),
			MaxAge:         config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if err := startGrpcServer(ctx, logger); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// rateLimiter returns a Redis-backed limiter when REDIS_ADDR is set and an
// in-memory one otherwise. The client is nil in the in-memory case.
func rateLimiter(logger *slog.Logger) (httpx.Middleware, *redis.Client) {
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
		return httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:availability"))
	logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)), rdb
}
