// Package bootstrap is the composition root of a modkit application.
//
// NewApp turns a typed config into a running application: it initializes
// the logger and telemetry, builds the capability container with the base
// capabilities (config and logger) registered as instances, and prepares the
// module registry.
//
//	app, err := bootstrap.LoadApp("modkit-demo", &cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.AddModule(network.Module())
//	app.AddModule(settings.Module())
//	err = app.RunTask(ctx, func(ctx context.Context) error { ... })
//
// Lifecycle: register modules, start modules, OnStart hooks, OnConfigure
// callbacks, inspect server, ready check, OnReady hooks, summary. Shutdown
// runs in reverse: OnStop hooks, modules stopped newest first (each one torn
// down in the container), inspect server, container close, telemetry flush.
package bootstrap
