package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clipsheet/internal/adapter/repo"
	"clipsheet/internal/cache"
	"clipsheet/internal/http/handlers"
	"clipsheet/internal/http/httpapi"
	"clipsheet/internal/infra"
	"clipsheet/internal/infra/geoip"
	"clipsheet/internal/middleware"
	"clipsheet/internal/observability"
	"clipsheet/internal/providers/extract"
	"clipsheet/internal/providers/identity"
	"clipsheet/internal/providers/sheets"
	"clipsheet/internal/ratelimit"
	"clipsheet/internal/usage"
)

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

	redisClient := infra.NewRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
	}

	geoLookup, closeGeo, err := geoip.NewLookup(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open geoip database")
	}
	defer func() {
		_ = closeGeo()
	}()

	metrics := observability.NewMetrics()
	accounts := repo.NewAccountRepository(dbpool)
	accountCache := cache.NewAccountCache(redisClient, cfg.CacheTTL, logger, metrics)

	rules := map[ratelimit.Scope]ratelimit.Rule{
		ratelimit.ScopeGeneral: {Max: cfg.RateLimitGeneral.Max, Window: cfg.RateLimitGeneral.Window},
		ratelimit.ScopeAuth:    {Max: cfg.RateLimitAuth.Max, Window: cfg.RateLimitAuth.Window},
		ratelimit.ScopeExtract: {Max: cfg.RateLimitExtract.Max, Window: cfg.RateLimitExtract.Window},
		ratelimit.ScopeExport:  {Max: cfg.RateLimitExport.Max, Window: cfg.RateLimitExport.Window},
	}
	var shared *ratelimit.RedisWindows
	if redisClient != nil {
		shared = ratelimit.NewRedisWindows(redisClient, rules)
	}
	local := ratelimit.NewMemoryWindows(rules)
	limiter := ratelimit.NewFailover(shared, local, logger, metrics)
	go sweepLocalWindows(ctx, local)

	ledger := usage.NewLedger(accounts, accountCache, logger, metrics)

	extractor, err := extract.NewGeminiExtractor(extract.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure extractor")
	}

	verifier, err := identity.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleTokenURL, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure identity provider")
	}

	app := &handlers.App{
		Logger:        logger,
		Accounts:      accounts,
		Cache:         accountCache,
		Ledger:        ledger,
		Limiter:       limiter,
		Identity:      verifier,
		Extractor:     extractor,
		Sheets:        sheets.NewClient(cfg.SheetsBaseURL, nil),
		TokenSecret:   cfg.JWTSecret,
		TokenTTL:      cfg.TokenTTL,
		WebhookSecret: cfg.WebhookSecret,
		PingDB:        dbpool.Ping,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		GeoIP:          geoLookup,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        metrics,
		Verifier:       middleware.JWTVerifier{Secret: cfg.JWTSecret},
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func sweepLocalWindows(ctx context.Context, local *ratelimit.MemoryWindows) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			local.Sweep()
		}
	}
}
