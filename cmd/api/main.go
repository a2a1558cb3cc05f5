package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v79"

	"fotopro/internal/billing"
	"fotopro/internal/db"
	"fotopro/internal/enhanceflow"
	"fotopro/internal/enhancer"
	"fotopro/internal/guest"
	"fotopro/internal/http/handlers"
	httpapi "fotopro/internal/http/httpapi"
	"fotopro/internal/infra"
	"fotopro/internal/infra/geoip"
	"fotopro/internal/infra/google"
	"fotopro/internal/middleware"
	"fotopro/internal/storage"
)

const reconcileEvery = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	queries := db.New(dbpool)

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	var guests *guest.Store
	if rdb != nil {
		defer rdb.Close()
		guests = guest.NewStore(rdb)
	} else {
		logger.Warn().Msg("REDIS_URL not set, guest gallery disabled")
		guests = guest.NewStore(nil)
	}

	var geo middleware.CountryLookup
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open geoip database")
		}
		geo = resolver.CountryCode
	}

	blobs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init blob storage")
	}

	// The real adapter stays nil without a credential; the policy then
	// routes everything through the mock.
	var real enhancer.Enhancer
	if cfg.OpenAIAPIKey != "" {
		openai, err := enhancer.NewOpenAI(enhancer.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init enhancer")
		}
		real = openai
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, running in mock mode")
	}
	policy := enhanceflow.Policy{
		Real:    real,
		Mock:    enhancer.NewMock(0),
		UseReal: cfg.UseRealEnhancer,
	}

	stripe.Key = cfg.StripeSecretKey
	billingSvc := billing.NewService(queries, nil, cfg.PublicBaseURL, logger)

	flow := enhanceflow.NewService(queries, blobs, policy, logger)

	app := &handlers.App{
		Config:  cfg,
		Logger:  logger,
		Store:   queries,
		Flow:    flow,
		Policy:  policy,
		Billing: billingSvc,
		Guests:  guests,
		Google:  google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
	}

	router := httpapi.NewRouter(app, geo)
	server := infra.NewHTTPServer(cfg, router)

	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	defer stopReconcile()
	go flow.ReconcileLoop(reconcileCtx, reconcileEvery)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopReconcile()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
