package main

import (
	"fmt"

	"github.com/kbukum/speakerid/attribution"
	"github.com/kbukum/speakerid/bootstrap"
	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/embedding"
	"github.com/kbukum/speakerid/embedding/sidecar"
	"github.com/kbukum/speakerid/embedding/spectral"
	"github.com/kbukum/speakerid/enrollment"
	"github.com/kbukum/speakerid/identity"
	"github.com/kbukum/speakerid/media"
	"github.com/kbukum/speakerid/observability"
)

// application is a bootstrapped App plus the attribution service wired
// from its config.
type application struct {
	*bootstrap.App[*Config]
	Service   *attribution.Service
	Embedder  *embedding.Service
	Loader    media.Loader
	Directory *identity.Directory
}

// newApplication validates cfg, initializes logging, and registers the
// telemetry, scratch workspace, and embedding components in start order.
func newApplication(cfg *Config) (*application, error) {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, err
	}

	telemetry := observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	metrics, err := observability.NewAttributionMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	dir, err := identity.LoadDirectory(cfg.Output.RosterCSV, cfg.Output.ProfilesJSON)
	if err != nil {
		return nil, err
	}

	ws := media.NewWorkspace(cfg.Media.ScratchDir)
	loader := media.NewLoader(cfg.Media, cfg.Embedding.SampleRate, ws)

	embedder := embedding.NewService(cfg.Embedding, embedding.WithMetrics(metrics))
	embedder.Register(spectral.ProviderName, spectral.Factory())
	embedder.Register(sidecar.ProviderName, sidecar.Factory())

	aggregator := enrollment.NewAggregator(loader, embedder,
		enrollment.WithConfig(cfg.Enrollment),
		enrollment.WithWorkers(cfg.Embedding.Workers),
		enrollment.WithMetrics(metrics),
	)
	svc := attribution.NewService(attribution.Deps{
		Embedder:   embedder,
		Aggregator: aggregator,
		Loader:     loader,
		Workspace:  ws,
		Directory:  dir,
	}, cfg.Enrollment.Dir, cfg.Matching,
		attribution.WithWorkers(cfg.Embedding.Workers),
		attribution.WithUnknownPrefix(cfg.Output.UnknownPrefix),
		attribution.WithTimeout(cfg.Attribution.Timeout),
		attribution.WithMetrics(metrics),
	)

	for _, c := range []component.Component{telemetry, ws, embedder} {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}

	if ff, ok := loader.(*media.FFmpeg); ok {
		app.OnStart(ff.Check)
	}

	return &application{
		App:       app,
		Service:   svc,
		Embedder:  embedder,
		Loader:    loader,
		Directory: dir,
	}, nil
}
