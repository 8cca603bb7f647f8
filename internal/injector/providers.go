// Package injector wires the runtime's collaborators. Run go generate after
// changing a provider to refresh wire_gen.go.
package injector

//go:generate go run -mod=mod github.com/google/wire/cmd/wire

import (
	"context"
	"time"

	"github.com/google/wire"

	"github.com/aframevr/aframe-sub002/internal/config"
	"github.com/aframevr/aframe-sub002/internal/core/builtin"
	"github.com/aframevr/aframe-sub002/internal/core/component"
	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/scene"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
	"github.com/aframevr/aframe-sub002/internal/server"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	proptype.NewRegistry,
	ProvideComponents,
	bus.New,
	ProvideScene,
	ProvideRunner,
	ProvideInspector,
	wire.Struct(new(Runtime), "*"),
)

// Runtime is everything a command needs to run one scene.
type Runtime struct {
	Config     config.Config
	Log        *log.Logger
	Components *component.Registry
	Scene      *scene.Scene
	Runner     *scene.Runner
	Inspector  *server.Inspector
}

func ProvideLogger(cfg config.Config) (*log.Logger, func()) {
	logger := log.New(cfg.Level())
	return logger, func() { _ = logger.Sync() }
}

// ProvideComponents creates the shared component registry with the built-in
// components registered.
func ProvideComponents(cfg config.Config, types *proptype.Registry, logger log.Log) (*component.Registry, error) {
	r := component.NewRegistry(types, logger)
	var opts []component.RegisterOption
	if cfg.AllowOverride {
		opts = append(opts, component.AllowOverride())
	}
	if err := builtin.Register(r, opts...); err != nil {
		return nil, err
	}
	return r, nil
}

func ProvideScene(cfg config.Config, components *component.Registry, b bus.EventBus, logger log.Log) (*scene.Scene, func(), error) {
	s, err := scene.New(components,
		scene.WithBus(b),
		scene.WithLogger(logger),
		scene.WithDefaultComponents(cfg.DefaultComponents...),
	)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			logger.Warn("scene close failed", log.Error(err))
		}
	}, nil
}

func ProvideRunner(cfg config.Config, s *scene.Scene) *scene.Runner {
	return scene.NewRunner(s, cfg.FrameRate)
}

// ProvideInspector builds the inspector; it snapshots through the runner so
// reads stay on the frame loop goroutine.
func ProvideInspector(cfg config.Config, s *scene.Scene, runner *scene.Runner, logger log.Log) (*server.Inspector, error) {
	icfg := server.DefaultConfig()
	icfg.Addr = cfg.Inspector.Addr
	snapshot := func(ctx context.Context) (*scene.Document, error) {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		var doc *scene.Document
		if err := runner.Do(ctx, func() { doc = scene.Snapshot(s) }); err != nil {
			return nil, err
		}
		return doc, nil
	}
	return server.NewInspector(icfg, s.Bus(), snapshot, logger)
}
