package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/ilyavolkov/linkly/internal/api/http"
	"github.com/ilyavolkov/linkly/internal/config"
	"github.com/ilyavolkov/linkly/internal/database/postgres"
	"github.com/ilyavolkov/linkly/internal/service"
	pkgpostgres "github.com/ilyavolkov/linkly/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		panic(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	db, err := pkgpostgres.New(
		ctx,
		cfg.Postgres.DSN(),
		pkgpostgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pkgpostgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpostgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pkgpostgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		return db.Close()
	})

	if err := pkgpostgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return err
	}

	logger := httplog.NewLogger("linkly")

	linkRepo := postgres.NewLinkRepository(db)
	clickRepo := postgres.NewClickEventRepository(db)

	var svcOpts []service.Option
	if cfg.Analytics.Mode == config.AnalyticsModeAsync {
		svcOpts = append(svcOpts, service.WithAsyncRecording(cfg.Analytics.RecordTimeout))
	}

	linkSvc := service.NewLinkService(linkRepo, clickRepo, logger.Logger, svcOpts...)

	r := myhttp.NewRouter(logger, linkSvc, myhttp.Options{
		FallbackURL:      cfg.FallbackURL,
		GeoCountryHeader: cfg.Analytics.GeoCountryHeader,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	return g.Wait()
}
