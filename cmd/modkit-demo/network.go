package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/logger"
	"github.com/kbukum/modkit/module"
)

// NetworkService is the shared transport used by feature screens.
type NetworkService interface {
	ID() string
	Endpoint(path string) string
	Fetch(ctx context.Context, path string) (string, error)
}

// NetworkServiceKey resolves the application-wide network service.
var NetworkServiceKey = di.NewCapability[NetworkService]("network.service")

type networkService struct {
	id      string
	baseURL string
	timeout time.Duration
}

func newNetworkService(cfg NetworkConfig) *networkService {
	return &networkService{
		id:      uuid.NewString(),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
	}
}

func (n *networkService) ID() string { return n.id }

func (n *networkService) Endpoint(path string) string {
	return n.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// Fetch describes the request it would send. The demo stays offline.
func (n *networkService) Fetch(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("GET %s", n.Endpoint(path)), nil
}

// networkModule provides NetworkService for the lifetime of the container.
func networkModule() module.Module {
	return module.New("network", func(_ context.Context, r di.Registrar) error {
		return di.Provide(r, NetworkServiceKey, di.ScopeService, func(res di.Resolver) (NetworkService, error) {
			cfg, err := di.Resolve(res, configKey)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve(res, loggerKey)
			if err != nil {
				return nil, err
			}
			svc := newNetworkService(cfg.Network)
			log.WithComponent("network").Info("network service created", logger.Fields(
				"id", svc.id,
				"base_url", svc.baseURL,
			))
			return svc, nil
		})
	}).WithDescription(module.Description{Type: "infrastructure", Details: "shared HTTP transport"})
}
