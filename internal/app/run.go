package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/globalplanner/internal/bridge"
	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/fsutil"
	"github.com/specialistvlad/globalplanner/internal/loader"
	"github.com/specialistvlad/globalplanner/internal/output"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
	"github.com/specialistvlad/globalplanner/internal/supervisor"
)

// ErrReloadUnsupported is returned when a map reload is requested for a live
// map source.
var ErrReloadUnsupported = errors.New("map reload requires a file or blob source")

// Run executes the mission until ctx is cancelled. It loads the configured
// map and destinations, connects the bridge when one is configured, and
// drives the supervisor.
func (app *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.ctx = ctx
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Starting mission.", "mission", app.missionID)

	app.healthCheckServer()
	defer app.closeHealthCheckServer()

	if err := app.loadInitial(ctx); err != nil {
		return fmt.Errorf("startup load failed: %w", err)
	}

	sink := output.Fanout{output.Log{}}
	if app.config.BridgeURL != "" {
		b, err := bridge.Dial(ctx, bridge.Config{
			URL:                app.config.BridgeURL,
			Namespace:          app.config.Namespace,
			InsecureSkipVerify: app.config.InsecureSkipVerify,
			ConnectTimeout:     app.config.ConnectTimeout,
		}, app.hub)
		if err != nil {
			return fmt.Errorf("bridge connection failed: %w", err)
		}
		defer b.Close()
		sink = append(sink, b)
	}

	if app.gc != nil {
		go app.gc.RunGC(ctx)
	}
	if err := app.watch(ctx); err != nil {
		return err
	}

	m := app.settings.Mission
	sup := supervisor.New(supervisor.Deps{
		Assembler: app.assembler,
		Costs:     app.costs,
		Goals:     app.goals,
		Planner:   app.planner,
		Sink:      sink,
		GenLog:    app.genlog,
		Reloader:  app,
	}, supervisor.Options{
		MissionID:         app.missionID,
		Params:            app.params,
		ReplanDistance:    m.ReplanDistance,
		ReplanTime:        m.ReplanTime,
		ArrivalTolerance:  m.ArrivalTolerance,
		StalePoseTimeout:  m.StalePoseTimeout,
		FailureBackoff:    m.FailureBackoff,
		MinReplanInterval: m.MinReplanInterval,
		Tick:              m.Tick,
		PruneInterval:     app.settings.Cost.PruneInterval,
		HMI:               m.HMI,
	})
	app.supervisor.Store(sup)

	err := sup.Run(ctx, app.hub.Sources())
	logger.Info("🏁 Mission stopped.", "mission", app.missionID)
	return err
}

// loadInitial parses the map and the destinations file concurrently. A map
// that cannot be loaded fails startup; a bad destinations file only halts
// the mission until a valid list arrives.
func (app *App) loadInitial(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	switch app.mode {
	case roadnet.ModeFile:
		g.Go(func() error {
			return app.assembler.LoadFile(gctx, app.mapPath)
		})
	case roadnet.ModeBlob:
		g.Go(func() error {
			blob, err := loader.Blob(gctx, app.mapPath)
			if err != nil {
				return err
			}
			return app.assembler.InstallBlob(gctx, blob)
		})
	}

	var dest *feed.DestinationsEvent
	if app.destPath != "" {
		g.Go(func() error {
			ev := app.readDestinations(gctx, app.settings.Mission.StartIndex)
			dest = &ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if dest != nil {
		app.hub.SendGoal(*dest)
	}
	return nil
}

// readDestinations parses the destinations file. A positive startIndex wins
// over the file's own start index.
func (app *App) readDestinations(ctx context.Context, startIndex int) feed.DestinationsEvent {
	f, err := loader.Destinations(ctx, app.destPath)
	if err != nil {
		return feed.DestinationsEvent{Source: app.destPath, Err: err}
	}
	if startIndex <= 0 {
		startIndex = f.StartIndex
	}
	return feed.DestinationsEvent{
		Destinations: f.Destinations,
		StartIndex:   startIndex,
		Source:       app.destPath,
	}
}

// ReloadDestinations re-reads the destinations file in the background and
// delivers it through the hub, resetting the goal index to zero.
func (app *App) ReloadDestinations(ctx context.Context) error {
	if app.destPath == "" {
		return errors.New("no destinations file configured")
	}
	go func() {
		ev := app.readDestinations(ctx, 0)
		ev.StartIndex = 0
		app.hub.SendGoal(ev)
	}()
	return nil
}

// ReloadMap re-parses the map source in the background and delivers it
// through the hub as a wholesale replacement.
func (app *App) ReloadMap(ctx context.Context) error {
	switch app.mode {
	case roadnet.ModeFile:
		go func() {
			b, err := loader.Map(ctx, app.mapPath)
			if err != nil {
				ctxlog.FromContext(ctx).Warn("Map reload failed.", "path", app.mapPath, "error", err)
				return
			}
			app.hub.SendMap(feed.BundleEvent{Source: app.mapPath, Bundle: b})
		}()
	case roadnet.ModeBlob:
		go func() {
			blob, err := loader.Blob(ctx, app.mapPath)
			if err != nil {
				ctxlog.FromContext(ctx).Warn("Map reload failed.", "path", app.mapPath, "error", err)
				return
			}
			app.hub.SendMap(feed.BlobEvent{Data: blob})
		}()
	default:
		return ErrReloadUnsupported
	}
	return nil
}

// watch starts the file watcher for the destinations file and, when
// map.watch is enabled, the map file.
func (app *App) watch(ctx context.Context) error {
	var paths []string
	if app.destPath != "" {
		paths = append(paths, app.destPath)
	}
	watchMap := app.settings.Map.Watch && app.mode != roadnet.ModeLive
	if watchMap {
		paths = append(paths, app.mapPath)
	}
	if len(paths) == 0 {
		return nil
	}

	w, err := fsutil.NewWatcher(paths, fsutil.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("file watcher: %w", err)
	}
	go func() {
		defer w.Close()
		w.Run(ctx, func(path string) {
			logger := ctxlog.FromContext(ctx)
			logger.Info("📂 File changed, reloading.", "path", path)
			var err error
			switch {
			case watchMap && sameFile(path, app.mapPath):
				err = app.ReloadMap(ctx)
			case sameFile(path, app.destPath):
				err = app.ReloadDestinations(ctx)
			}
			if err != nil {
				logger.Warn("Reload failed.", "path", path, "error", err)
			}
		})
	}()
	return nil
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
