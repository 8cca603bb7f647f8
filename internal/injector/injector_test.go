package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aframevr/aframe-sub002/internal/config"
	"github.com/aframevr/aframe-sub002/internal/core/builtin"
)

func TestInitializeRuntime(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "silent"
	rt, cleanup, err := InitializeRuntime(cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, builtin.Defaults, rt.Components.Names())
	assert.NotNil(t, rt.Inspector)
	assert.Equal(t, rt.Scene.Components(), rt.Components)

	e := rt.Scene.CreateEntity("box")
	require.NoError(t, rt.Scene.Root().AppendChild(e))
	assert.Len(t, e.Components(), len(builtin.Defaults))
}
