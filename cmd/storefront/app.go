package main

import (
	"context"
	"io"

	"github.com/angelmondragon/maison-storefront/internal/api"
	"github.com/angelmondragon/maison-storefront/internal/storefront"
	"github.com/angelmondragon/maison-storefront/pkg/config"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/metrics"
	"github.com/angelmondragon/maison-storefront/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// app is what every storefront command runs against.
type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	sf       *storefront.Storefront
	closer   io.Closer
	registry *prometheus.Registry
}

func bootstrap(ctx context.Context, logOut io.Writer) (*app, error) {
	logg := logger.New(logger.Options{ServiceName: "storefront", Output: logOut})

	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      logOut,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	store, closer, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logg: logg, closer: closer}

	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		reg = a.registry
	}
	clientMetrics := metrics.NewClientMetrics(reg)

	client := api.NewFromConfig(cfg.API, api.WithMetrics(clientMetrics), api.WithLogger(logg))
	a.sf = storefront.New(storefront.Options{
		API:     client,
		Store:   store,
		Metrics: clientMetrics,
		Logger:  logg,
	})
	logg.Debug(ctx, "storefront ready")
	return a, nil
}

// close releases the store and, when metrics are enabled, writes them to w
// in the text exposition format.
func (a *app) close(w io.Writer) error {
	a.sf.Close()
	if a.registry != nil {
		families, err := a.registry.Gather()
		if err != nil {
			a.logg.WarnErr(context.Background(), "gathering metrics", err)
		} else {
			enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
			for _, mf := range families {
				if err := enc.Encode(mf); err != nil {
					a.logg.WarnErr(context.Background(), "encoding metrics", err)
					break
				}
			}
		}
	}
	return a.closer.Close()
}
