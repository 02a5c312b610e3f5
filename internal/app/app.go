package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/sales-service/internal/catalog"
	"github.com/xenking/sales-service/internal/domain/branch"
	"github.com/xenking/sales-service/internal/domain/customer"
	"github.com/xenking/sales-service/internal/domain/product"
	"github.com/xenking/sales-service/internal/domain/sale"
	"github.com/xenking/sales-service/internal/events"
	"github.com/xenking/sales-service/internal/handler"
	"github.com/xenking/sales-service/internal/repository"
	"github.com/xenking/sales-service/internal/storage/memory"
	"github.com/xenking/sales-service/internal/usecase"
	"github.com/xenking/sales-service/pkg/health"
	"github.com/xenking/sales-service/pkg/httpmiddleware"
)

// stores are the repositories selected by the storage driver.
type stores struct {
	sales     sale.Repository
	products  product.Repository
	customers customer.Repository
	branches  branch.Repository
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	var st stores
	switch cfg.Storage.Driver {
	case DriverPostgres:
		pool, err := repository.NewPool(ctx, cfg.Storage.DatabaseURL,
			repository.WithMaxConns(cfg.Storage.MaxConns),
			repository.WithMaxConnLifetime(cfg.Storage.MaxConnLifetime),
		)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

		st = stores{
			sales:     repository.NewSaleRepository(pool),
			products:  repository.NewProductRepository(pool),
			customers: repository.NewCustomerRepository(pool),
			branches:  repository.NewBranchRepository(pool),
		}
	default:
		var err error
		if st, err = memoryStores(ctx, cfg.Storage.CatalogFile); err != nil {
			return errors.Wrap(err, "memory storage")
		}
		lg.Warn("Using in-memory storage, sales are lost on restart")
	}

	bus := events.NewBus()
	bus.Register(events.AuditLog{})
	if cfg.Events.RedisAddr != "" {
		client, err := newRedisClient(cfg.Events.RedisAddr)
		if err != nil {
			return errors.Wrap(err, "redis client")
		}
		defer func() { _ = client.Close() }()

		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		bus.Register(events.NewRedisPublisher(client, events.RedisConfig{
			Stream:           cfg.Events.RedisStream,
			MaxLen:           cfg.Events.MaxLen,
			FailureThreshold: cfg.Events.FailureThreshold,
			OpenTimeout:      cfg.Events.OpenTimeout,
		}))
		lg.Info("Forwarding sale events", zap.String("stream", cfg.Events.RedisStream))
	}

	sales, err := usecase.New(usecase.Deps{
		Sales:     st.sales,
		Products:  st.products,
		Customers: st.customers,
		Branches:  st.branches,
		Service: sale.NewService(
			sale.WithMaxQuantity(cfg.Sales.MaxQuantityPerProduct),
			sale.WithDefaultCurrency(cfg.Sales.DefaultCurrency),
		),
		Publisher: bus,
		Meter:     m.MeterProvider(),
		Tracer:    m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create sales usecase")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(sales, st.products).Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:      cfg.RateLimit.Max,
				WriteMax: cfg.RateLimit.WriteMax,
				Window:   cfg.RateLimit.Window,
				Skip:     httpmiddleware.SkipPaths("/livez", "/readyz"),
				Meter:    m.MeterProvider(),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("sales-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// memoryStores builds in-memory repositories seeded with the catalog at path,
// or the embedded one when path is empty.
func memoryStores(ctx context.Context, path string) (stores, error) {
	var (
		c   *catalog.Catalog
		err error
	)
	if path == "" {
		c, err = catalog.Default()
	} else {
		c, err = catalog.ReadFile(path)
	}
	if err != nil {
		return stores{}, err
	}

	products := memory.NewProductRepository()
	customers := memory.NewCustomerRepository()
	branches := memory.NewBranchRepository()
	if err := c.Load(ctx, catalog.Stores{
		Customers: customers,
		Branches:  branches,
		Products:  products,
	}); err != nil {
		return stores{}, errors.Wrap(err, "load catalog")
	}

	return stores{
		sales:     memory.NewSaleRepository(),
		products:  products,
		customers: customers,
		branches:  branches,
	}, nil
}

// newRedisClient accepts either a host:port address or a redis:// URL.
func newRedisClient(addr string) (*redis.Client, error) {
	if !strings.Contains(addr, "://") {
		return redis.NewClient(&redis.Options{Addr: addr}), nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}
