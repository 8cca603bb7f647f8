package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aframevr/aframe-sub002/internal/config"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/scene"
	"github.com/aframevr/aframe-sub002/internal/injector"
)

func runCommand(ctx context.Context, args []string, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("run", stderr, &common)
	inspect := fs.Bool("inspect", false, "serve the inspector even if the config disables it")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: run takes exactly one scene file", errUsage)
	}

	cfg, err := config.Load(common.config)
	if err != nil {
		return err
	}
	if *inspect {
		cfg.Inspector.Enabled = true
	}
	rt, cleanup, err := loadRuntime(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Inspector.Enabled {
		if err := rt.Inspector.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rt.Inspector.Stop(stopCtx); err != nil {
				rt.Log.Warn("inspector stop failed", log.Error(err))
			}
		}()
	}

	err = rt.Runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadRuntime wires a runtime and applies the scene document to it.
func loadRuntime(cfg config.Config, path string) (*injector.Runtime, func(), error) {
	rt, cleanup, err := injector.InitializeRuntime(cfg)
	if err != nil {
		return nil, nil, err
	}
	doc, err := scene.LoadFile(path)
	if err == nil {
		err = doc.Apply(rt.Scene)
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	rt.Log.Info("scene loaded", log.String("file", path), log.Int("entities", len(rt.Scene.Entities())-1))
	return rt, cleanup, nil
}
