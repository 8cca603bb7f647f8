//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/aframevr/aframe-sub002/internal/config"
)

// InitializeRuntime assembles a runtime from a loaded config.
func InitializeRuntime(cfg config.Config) (*Runtime, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
