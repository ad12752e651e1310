package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-fedauth/config"
	"github.com/goliatone/go-fedauth/repository"
	"github.com/goliatone/go-fedauth/social"
	"github.com/goliatone/go-fedauth/social/providers/google"
	"github.com/goliatone/go-fedauth/social/providers/kakao"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	lgr := newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		lgr.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := openDB(cfg)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db, lgr.GetLogger("migrate")); err != nil {
		panic(err)
	}

	store := repository.NewIdentityStore(db, repository.WithStoreLogger(lgr.GetLogger("store")))

	denylist, err := newDenylist(ctx, cfg)
	if err != nil {
		panic(err)
	}

	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: []byte(cfg.JWTSigningKey),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, auth.WithTokenLogger(lgr.GetLogger("tokens")))

	activity := auth.LoggerActivitySink{Logger: lgr.GetLogger("activity")}

	authenticator := auth.NewAuthenticator(store, tokens,
		auth.WithLogger(lgr.GetLogger("auth")),
		auth.WithActivitySink(activity),
	)
	refresher := auth.NewRefresher(tokens, store, denylist, lgr.GetLogger("refresh"))
	authController := auth.NewAuthController(authenticator, refresher, tokens, store,
		auth.WithControllerLogger(lgr.GetLogger("auth:ctrl")),
	)

	httpClient := &http.Client{Timeout: cfg.OutboundTimeout}
	googleCfg, kakaoCfg := cfg.Google(), cfg.Kakao()
	providers := social.NewRegistry(
		google.New(google.Config{
			ClientID:     googleCfg.ClientID,
			ClientSecret: googleCfg.ClientSecret,
			CallbackURL:  googleCfg.CallbackURI,
			HTTPClient:   httpClient,
		}),
		kakao.New(kakao.Config{
			ClientID:     kakaoCfg.ClientID,
			ClientSecret: kakaoCfg.ClientSecret,
			CallbackURL:  kakaoCfg.CallbackURI,
			HTTPClient:   httpClient,
		}),
	)

	handoff := social.NewHTTPHandoff(cfg.ServiceBaseURL, cfg.HandoffSecret, cfg.OutboundTimeout)
	reconciler := social.NewReconciler(store, handoff,
		social.WithReconcilerLogger(lgr.GetLogger("reconciler")))

	login := social.NewFederatedLogin(providers, reconciler, store, tokens,
		social.WithFederatedLogger(lgr.GetLogger("social")),
		social.WithActivitySink(activity),
		social.WithOutboundTimeout(cfg.OutboundTimeout),
		social.WithRedirectURI(auth.ProviderGoogle, googleCfg.CallbackURI),
		social.WithRedirectURI(auth.ProviderKakao, kakaoCfg.CallbackURI),
	)

	finish := social.NewFinishController(providers, store,
		social.WithHandoffSecret(cfg.HandoffSecret),
		social.WithFinishLogger(lgr.GetLogger("social:finish")),
		social.WithFinishTimeout(cfg.OutboundTimeout),
	)

	socialController := social.NewHTTPController(login, finish, social.HTTPConfig{
		FrontendBaseURL: cfg.FrontendBaseURL,
		CookieSecure:    cfg.CookieSecure,
		ResponseModes: map[string]string{
			auth.ProviderGoogle: googleCfg.ResponseMode,
			auth.ProviderKakao:  kakaoCfg.ResponseMode,
		},
		States:   social.NewStateManagerFromSecret(cfg.StateSecret(), cfg.OAuthStateTTL),
		StateTTL: cfg.OAuthStateTTL,
		Logger:   lgr.GetLogger("social:ctrl"),
	})

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			ReadTimeout:   30 * time.Second,
		}))
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))

	auth.RegisterAuthRoutes(srv.Router(), authController)
	socialController.RegisterRoutes(srv.Router())

	lgr.Info("listening", "addr", cfg.HTTPAddr)
	srv.Serve(cfg.HTTPAddr)

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())
}

func newLogger(level string) *glog.BaseLogger {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("fedauth"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("fedauth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

func openDB(cfg *config.Config) (*bun.DB, error) {
	if cfg.UsePostgres() {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseDSN)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, err
	}
	return db, nil
}

func newDenylist(ctx context.Context, cfg *config.Config) (auth.Denylist, error) {
	if cfg.RedisAddr == "" {
		return auth.NewMemoryDenylist(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return repository.NewRedisDenylist(client, ""), nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
