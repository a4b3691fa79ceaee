package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/logger"
	"github.com/kbukum/modkit/module"
)

var loggerKey = di.NewCapability[*logger.Logger](string(di.Base.Logger))

// ScreenFactoryKey resolves the settings screen factory. It lives as long
// as the settings module is active.
var ScreenFactoryKey = di.NewCapability[*ScreenFactory]("settings.screen_factory")

// Screen is what the settings feature renders.
type Screen struct {
	Title   string
	Source  string
	Factory string
}

// ScreenFactory builds settings screens.
type ScreenFactory struct {
	id      string
	network NetworkService
	log     *logger.Logger
}

// NewScreenFactory creates a factory with its dependencies injected.
func NewScreenFactory(network NetworkService, log *logger.Logger) *ScreenFactory {
	return &ScreenFactory{
		id:      uuid.NewString(),
		network: network,
		log:     log.WithComponent("settings"),
	}
}

// ID identifies this factory instance.
func (f *ScreenFactory) ID() string { return f.id }

// Build creates a screen backed by the network service.
func (f *ScreenFactory) Build(ctx context.Context, title string) (Screen, error) {
	src, err := f.network.Fetch(ctx, "/settings")
	if err != nil {
		return Screen{}, err
	}
	return Screen{Title: title, Source: src, Factory: f.id}, nil
}

// Close runs when the settings module is torn down.
func (f *ScreenFactory) Close() error {
	f.log.Info("screen factory released", logger.Fields("id", f.id))
	return nil
}

func settingsModule() module.Module {
	return module.New("settings", func(_ context.Context, r di.Registrar) error {
		return di.Provide(r, ScreenFactoryKey, di.ScopeModule, func(res di.Resolver) (*ScreenFactory, error) {
			network, err := di.Resolve(res, NetworkServiceKey)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve(res, loggerKey)
			if err != nil {
				return nil, err
			}
			return NewScreenFactory(network, log), nil
		})
	}).WithDescription(module.Description{Type: "feature", Details: "settings screens"})
}
