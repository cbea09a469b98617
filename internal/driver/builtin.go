package driver

import (
	"context"
	"fmt"
	"log/slog"

	"ex-wechaty/internal/driver/mock"
	"ex-wechaty/internal/driver/service"
	"ex-wechaty/pkg/puppet"
)

// NewBuiltinRegistry constructs the runtime registry with all built-in drivers.
func NewBuiltinRegistry() (*Registry, error) {
	return NewRegistry([]Descriptor{
		{
			Type: service.DriverType,
			Builder: func(
				ctx context.Context,
				definition Definition,
				builderLogger *slog.Logger,
			) (puppet.Driver, error) {
				runtimeDriver, err := service.BuildRuntimeFromConfig(
					ctx,
					definition.Name,
					builderLogger,
					definition.Config,
				)
				if err != nil {
					return nil, fmt.Errorf("build service runtime from config: %w", err)
				}

				return runtimeDriver, nil
			},
		},
		{
			Type: mock.DriverType,
			Builder: func(
				_ context.Context,
				definition Definition,
				builderLogger *slog.Logger,
			) (puppet.Driver, error) {
				runtimeDriver, err := mock.BuildRuntimeFromConfig(
					definition.Name,
					builderLogger,
					definition.Config,
				)
				if err != nil {
					return nil, fmt.Errorf("build mock runtime from config: %w", err)
				}

				return runtimeDriver, nil
			},
		},
	})
}
