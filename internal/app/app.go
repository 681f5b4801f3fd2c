package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/specialistvlad/globalplanner/internal/badgerstore"
	"github.com/specialistvlad/globalplanner/internal/config"
	"github.com/specialistvlad/globalplanner/internal/costoverlay"
	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/genlog"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/inmemorystore"
	"github.com/specialistvlad/globalplanner/internal/loader"
	"github.com/specialistvlad/globalplanner/internal/metrics"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
	"github.com/specialistvlad/globalplanner/internal/supervisor"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	settings   *config.Config
	httpServer *http.Server

	missionID string
	mode      roadnet.Mode
	params    planner.Params
	mapPath   string
	destPath  string

	hub       *feed.Channels
	assembler *roadnet.Assembler
	costs     *costoverlay.Store
	goals     *goals.Manager
	planner   *planner.Planner
	genlog    genlog.Store
	gc        *badgerstore.Store

	// supervisor is set by Run.
	supervisor atomic.Pointer[supervisor.Supervisor]
}

// NewApp is the constructor for the main application. It loads and validates
// the planner configuration and builds every mission component. An invalid
// configuration, including an unsupported map source, is a fatal startup
// error and panics.
func NewApp(outW io.Writer, appConfig *Config, cfgLoader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	settings, err := cfgLoader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	if err := settings.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	logger.Debug("Planner configuration loaded.", "path", appConfig.ConfigPath)

	mode, err := settings.MapMode()
	if err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	required, err := settings.RequiredCategories()
	if err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	params, err := settings.PlannerParams()
	if err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	app := &App{
		ctx:       ctx,
		outW:      outW,
		logger:    logger,
		config:    appConfig,
		settings:  settings,
		missionID: uuid.NewString(),
		mode:      mode,
		params:    params,
		mapPath:   resolvePath(appConfig.ConfigPath, settings.Map.Path),
		destPath:  resolvePath(appConfig.ConfigPath, settings.Mission.DestinationsFile),
		hub:       feed.NewChannels(appConfig.EventBuffer),
		costs:     costoverlay.New(settings.Cost.Horizon),
		goals:     goals.NewManager(settings.GoalOptions()),
		planner:   planner.New(metrics.ObserveExpansions),
	}
	app.assembler = roadnet.NewAssembler(roadnet.Options{
		Mode:     mode,
		Required: required,
		Build:    settings.BuildOptions(),
		Parser:   loader.Map,
	})

	if appConfig.GenLogPath != "" {
		cfg := badgerstore.DefaultConfig(appConfig.GenLogPath)
		cfg.Logger = logger
		store, err := badgerstore.Open(cfg)
		if err != nil {
			panic(fmt.Errorf("failed to open generation log: %w", err))
		}
		app.genlog = store
		app.gc = store
	} else {
		app.genlog = inmemorystore.New()
	}

	logger.Info("Application initialized.",
		"mission", app.missionID,
		"map_source", mode.String(),
		"map_path", app.mapPath,
		"destinations", app.destPath,
	)
	return app
}

// MissionID identifies this run in published output and the generation log.
func (app *App) MissionID() string { return app.missionID }

// Hub is the in-process feed the bridge and file reloads write into.
func (app *App) Hub() *feed.Channels { return app.hub }

// GenLog returns the generation log.
func (app *App) GenLog() genlog.Store { return app.genlog }

// Status reports the mission status, or false before Run has started the
// supervisor.
func (app *App) Status() (feed.MissionStatus, bool) {
	sup := app.supervisor.Load()
	if sup == nil {
		return feed.MissionStatus{}, false
	}
	return sup.Status(), true
}

// Close releases resources held by the app.
func (app *App) Close() error {
	if app.genlog == nil {
		return nil
	}
	return app.genlog.Close()
}

// resolvePath interprets p relative to the configuration file's directory.
func resolvePath(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
