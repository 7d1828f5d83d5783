package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
	"github.com/xenking/vibe-commerce/internal/domain/checkout"
	"github.com/xenking/vibe-commerce/internal/domain/product"
	"github.com/xenking/vibe-commerce/internal/handler"
	"github.com/xenking/vibe-commerce/internal/storage/memory"
	"github.com/xenking/vibe-commerce/internal/storage/seed"
	"github.com/xenking/vibe-commerce/pkg/health"
	"github.com/xenking/vibe-commerce/pkg/httpmiddleware"
)

const serviceName = "vibe-api"

// Service is the fully wired storefront: domain state, health checks and the
// middleware-wrapped HTTP handler.
type Service struct {
	Catalog *memory.Catalog
	Health  *health.Health
	Handler http.Handler
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.CatalogFile),
	)

	svc, err := New(ctx, cfg, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	lg.Info("Catalog loaded", zap.Int("products", svc.Catalog.Len()))

	svc.Health.Start(ctx, 10*time.Second)
	svc.Health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           svc.Handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		wasReady := svc.Health.IsReady()
		svc.Health.SetReady(false)
		if wasReady && ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		defer svc.Health.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// New loads the catalog and wires the domain, health checks and HTTP stack.
// Request loggers derive from the logger carried by ctx.
func New(ctx context.Context, cfg *Config, tp trace.TracerProvider, mp metric.MeterProvider) (*Service, error) {
	products, err := loadProducts(cfg.CatalogFile)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	catalog, err := memory.NewCatalog(products)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog")
	}

	ledger := cart.NewLedger(catalog)
	checkoutSvc := checkout.NewService(ledger, memory.NewReceiptLog())

	h, err := handler.NewHandler(
		handler.HandlerConfig{Banner: cfg.Banner, MeterProvider: mp},
		catalog,
		ledger,
		checkoutSvc,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("catalog", time.Second, health.NonEmptyCheck("catalog", catalog.Len))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	return &Service{
		Catalog: catalog,
		Health:  healthSvc,
		Handler: wrap(ctx, cfg, tp, mp, mux),
	}, nil
}

// wrap applies the middleware chain, outermost first. The logger and request
// id are injected before Recovery so that panics are logged with them.
func wrap(ctx context.Context, cfg *Config, tp trace.TracerProvider, mp metric.MeterProvider, h http.Handler) http.Handler {
	limit := httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	}
	if cfg.RateLimit.TrustProxy {
		limit.KeyFunc = httpmiddleware.ForwardedClientIP
	}

	return httpmiddleware.Wrap(h,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, limit),
		httpmiddleware.Instrument(serviceName, tp, mp),
		httpmiddleware.LogRequests(),
	)
}

func loadProducts(path string) ([]product.Product, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.Open(path)
}
