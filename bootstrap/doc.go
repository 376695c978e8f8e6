// Package bootstrap orchestrates the speakerid process lifecycle.
//
// An App owns the typed configuration, the logger and a component registry.
// Components start in registration order and stop in reverse order on every
// exit path. Run serves until a signal arrives; RunTask runs one finite job
// such as a single attribution.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(extractor)
//	app.RegisterComponent(workspace)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return run(ctx)
//	})
package bootstrap
