// Command modkit-demo wires a network module and a settings module through
// a modkit container, then shows the settings module being torn down and
// rebuilt while the network service survives.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/modkit/bootstrap"
	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/logger"
	"github.com/kbukum/modkit/module"
)

const appName = "modkit-demo"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := bootstrap.LoadApp(appName, &DemoConfig{}, nil)
	if err != nil {
		return err
	}
	for _, m := range []module.Module{networkModule(), settingsModule()} {
		if err := app.AddModule(m); err != nil {
			return err
		}
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		_, err := runDemo(ctx, app.Container, app.Modules, app.Logger)
		return err
	})
}

// demoReport records the instance ids seen during the demo.
type demoReport struct {
	FirstFactory   string
	SecondFactory  string
	RebuiltFactory string
	NetworkBefore  string
	NetworkAfter   string
	Screen         Screen
}

// runDemo resolves the settings screen factory twice, restarts the settings
// module and resolves again.
func runDemo(ctx context.Context, c di.Container, modules *module.Registry, log *logger.Logger) (*demoReport, error) {
	log = log.WithComponent("demo")
	report := &demoReport{}

	first, err := di.Resolve(c, ScreenFactoryKey)
	if err != nil {
		return nil, err
	}
	report.FirstFactory = first.ID()
	if report.Screen, err = first.Build(ctx, "Settings"); err != nil {
		return nil, err
	}
	log.Info("screen built", logger.Fields("title", report.Screen.Title, "source", report.Screen.Source, "factory", first.ID()))

	second, err := di.Resolve(c, ScreenFactoryKey)
	if err != nil {
		return nil, err
	}
	report.SecondFactory = second.ID()
	log.Info("screen factory resolved again", logger.Fields("factory", second.ID(), "reused", second == first))

	network, err := di.Resolve(c, NetworkServiceKey)
	if err != nil {
		return nil, err
	}
	report.NetworkBefore = network.ID()

	if err := modules.Stop(ctx, "settings"); err != nil {
		return nil, err
	}
	if err := modules.Start(ctx, "settings"); err != nil {
		return nil, err
	}

	rebuilt, err := di.Resolve(c, ScreenFactoryKey)
	if err != nil {
		return nil, err
	}
	report.RebuiltFactory = rebuilt.ID()
	if rebuilt == first {
		return nil, fmt.Errorf("settings teardown kept screen factory %s", first.ID())
	}

	network, err = di.Resolve(c, NetworkServiceKey)
	if err != nil {
		return nil, err
	}
	report.NetworkAfter = network.ID()

	log.Info("settings module rebuilt", logger.Fields(
		"old_factory", first.ID(),
		"new_factory", rebuilt.ID(),
		"network_kept", report.NetworkBefore == report.NetworkAfter,
	))
	return report, nil
}
