package scene

import (
	"context"
	"errors"
	"time"

	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
)

var ErrRunnerStopped = errors.New("runner stopped")

// Runner drives a scene's frame loop on one goroutine. Work from other
// goroutines is queued with Do and runs between frames.
type Runner struct {
	scene    *Scene
	interval time.Duration
	log      log.Log

	tasks chan func()
	done  chan struct{}
}

// NewRunner ticks the scene frameRate times per second. A non-positive rate
// falls back to 60.
func NewRunner(s *Scene, frameRate int) *Runner {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Runner{
		scene:    s,
		interval: time.Second / time.Duration(frameRate),
		log:      s.log.With(log.String("scope", "runner")),
		tasks:    make(chan func()),
		done:     make(chan struct{}),
	}
}

func (r *Runner) Interval() time.Duration { return r.interval }

// Run plays the scene and ticks it until ctx is cancelled. The scene is paused
// before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	start := time.Now()
	last := start
	r.scene.Play()
	defer r.scene.Pause()
	r.log.Info("frame loop started", log.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.log.Info("frame loop stopped", log.Int("frames", int(r.scene.Frames())))
			return ctx.Err()
		case task := <-r.tasks:
			task()
		case now := <-ticker.C:
			r.scene.Tick(now.Sub(start), now.Sub(last))
			last = now
		}
	}
}

// Do runs fn on the frame loop goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case r.tasks <- task:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Step ticks the scene n frames of the runner interval without waiting. It is
// meant for offline use before or instead of Run.
func (r *Runner) Step(n int) {
	r.scene.Play()
	t := r.scene.Elapsed()
	for range n {
		t += r.interval
		r.scene.Tick(t, r.interval)
	}
}
