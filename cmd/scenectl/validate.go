package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/aframevr/aframe-sub002/internal/config"
	"github.com/aframevr/aframe-sub002/internal/core/component"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/scene"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
	"github.com/aframevr/aframe-sub002/internal/injector"
	"github.com/aframevr/aframe-sub002/pkg/concurrent"
	"github.com/aframevr/aframe-sub002/pkg/sequence"
)

// report is the outcome of validating one file.
type report struct {
	Path     string
	Entities int
	Issues   []string
	Err      error
}

func validateCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("validate", stderr, &common)
	workers := fs.Int("j", runtime.GOMAXPROCS(0), "files validated in parallel")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: validate takes one or more scene files", errUsage)
	}

	cfg, err := config.Load(common.config)
	if err != nil {
		return err
	}
	logger := log.New(cfg.Level())
	defer func() { _ = logger.Sync() }()
	components, err := injector.ProvideComponents(cfg, proptype.NewRegistry(), logger)
	if err != nil {
		return err
	}

	files := sequence.Unique(sequence.From(fs.Args()).Filter(isSceneFile)).Collect()
	reports := validateFiles(ctx, files, *workers, cfg, components, logger)

	failed := 0
	for _, r := range reports {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(stdout, "FAIL %s: %v\n", r.Path, r.Err)
		case len(r.Issues) > 0:
			failed++
			fmt.Fprintf(stdout, "FAIL %s: %d issue(s)\n", r.Path, len(r.Issues))
			for _, issue := range r.Issues {
				fmt.Fprintf(stdout, "  %s\n", issue)
			}
		default:
			fmt.Fprintf(stdout, "ok   %s (%d entities)\n", r.Path, r.Entities)
		}
	}
	if skipped := len(fs.Args()) - len(files); skipped > 0 {
		fmt.Fprintf(stdout, "skipped %d argument(s) that are not .yaml, .yml or .json files\n", skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", failed, len(reports))
	}
	return nil
}

func isSceneFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// validateFiles loads every file into its own scene over one shared component
// registry. Reports come back in input order.
func validateFiles(ctx context.Context, files []string, workers int, cfg config.Config, components *component.Registry, logger log.Log) []report {
	reports := make([]report, len(files))
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f] = i
	}
	_ = concurrent.ForEach(ctx, sequence.From(files), workers, func(_ context.Context, path string) error {
		reports[index[path]] = validateFile(path, cfg, components, logger)
		return nil
	})
	return reports
}

func validateFile(path string, cfg config.Config, components *component.Registry, logger log.Log) report {
	r := report{Path: path}
	var mu sync.Mutex
	s, err := scene.New(components,
		scene.WithLogger(log.NewNop()),
		scene.WithDefaultComponents(cfg.DefaultComponents...),
		scene.WithErrorHandler(func(entity, attr string, err error) {
			mu.Lock()
			defer mu.Unlock()
			r.Issues = append(r.Issues, fmt.Sprintf("%s.%s: %v", entity, attr, err))
		}),
	)
	if err != nil {
		r.Err = err
		return r
	}
	defer s.Close()

	doc, err := scene.LoadFile(path)
	if err == nil {
		err = doc.Apply(s)
	}
	if err != nil {
		r.Err = err
		return r
	}
	r.Entities = len(s.Entities()) - 1
	logger.Debug("scene validated", log.String("file", path), log.Int("issues", len(r.Issues)))
	return r
}
