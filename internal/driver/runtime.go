package driver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"ex-wechaty/pkg/puppet"
)

// Definition is one entry of the drivers list in the bot configuration.
type Definition struct {
	// Name labels the instance in logs and must be unique.
	Name string
	// Type selects the registered builder.
	Type string
	// Enabled entries are built; the rest are kept for reference only.
	Enabled bool
	// Config is the raw JSON object handed to the builder.
	Config []byte
}

// Runtime pairs a built puppet driver with the definition it came from.
type Runtime struct {
	Name   string
	Type   string
	Driver puppet.Driver
}

// BuilderFunc turns a definition into a ready-to-start puppet driver.
type BuilderFunc func(ctx context.Context, definition Definition, logger *slog.Logger) (puppet.Driver, error)

// Descriptor registers a BuilderFunc under a type name such as "mock".
type Descriptor struct {
	Type    string
	Builder BuilderFunc
}

// Registry resolves driver type names to builders. It is read-only after
// NewRegistry returns.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry validates descriptors and indexes them by type.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	registry := &Registry{builders: make(map[string]BuilderFunc, len(descriptors))}
	for index, descriptor := range descriptors {
		switch {
		case descriptor.Type == "":
			return nil, fmt.Errorf("register driver #%d: type is required", index)
		case descriptor.Builder == nil:
			return nil, fmt.Errorf("register driver type %q: builder is nil", descriptor.Type)
		case registry.Supports(descriptor.Type):
			return nil, fmt.Errorf("register driver type %q: already registered", descriptor.Type)
		}
		registry.builders[descriptor.Type] = descriptor.Builder
	}

	return registry, nil
}

// Types lists the registered type names, sorted.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}

	types := make([]string, 0, len(r.builders))
	for driverType := range r.builders {
		types = append(types, driverType)
	}
	slices.Sort(types)

	return types
}

// Supports reports whether driverType has a registered builder.
func (r *Registry) Supports(driverType string) bool {
	if r == nil {
		return false
	}
	_, ok := r.builders[driverType]

	return ok
}

// BuildEnabled builds every enabled definition in list order. Disabled
// entries are skipped without validation.
func (r *Registry) BuildEnabled(ctx context.Context, definitions []Definition, logger *slog.Logger) ([]Runtime, error) {
	if r == nil {
		return nil, fmt.Errorf("build drivers: nil registry")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var runtimes []Runtime
	names := make(map[string]bool, len(definitions))
	for _, definition := range definitions {
		if !definition.Enabled {
			continue
		}
		if names[definition.Name] {
			return nil, fmt.Errorf("build driver %q: name used twice", definition.Name)
		}
		names[definition.Name] = true

		runtime, err := r.build(ctx, definition, logger)
		if err != nil {
			return nil, err
		}
		runtimes = append(runtimes, runtime)
	}

	return runtimes, nil
}

// BuildSingle builds the only enabled definition. A bot drives exactly one
// account, so zero or several enabled definitions are rejected.
func (r *Registry) BuildSingle(ctx context.Context, definitions []Definition, logger *slog.Logger) (Runtime, error) {
	enabled := 0
	for _, definition := range definitions {
		if definition.Enabled {
			enabled++
		}
	}
	if enabled != 1 {
		return Runtime{}, fmt.Errorf("build driver: %d enabled drivers, want exactly 1", enabled)
	}

	runtimes, err := r.BuildEnabled(ctx, definitions, logger)
	if err != nil {
		return Runtime{}, err
	}

	return runtimes[0], nil
}

func (r *Registry) build(ctx context.Context, definition Definition, logger *slog.Logger) (Runtime, error) {
	if definition.Name == "" {
		return Runtime{}, fmt.Errorf("build driver: name is required")
	}
	builder, ok := r.builders[definition.Type]
	if !ok {
		return Runtime{}, fmt.Errorf("build driver %q: unknown type %q", definition.Name, definition.Type)
	}

	built, err := builder(ctx, definition, logger.With("driver", definition.Name, "driver_type", definition.Type))
	if err != nil {
		return Runtime{}, fmt.Errorf("build driver %q: %w", definition.Name, err)
	}
	if built == nil {
		return Runtime{}, fmt.Errorf("build driver %q: builder returned nil", definition.Name)
	}

	return Runtime{Name: definition.Name, Type: definition.Type, Driver: built}, nil
}
