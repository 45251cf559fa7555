package app

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"prayertimes.app/api"
	"prayertimes.app/config"
	"prayertimes.app/database"
	"prayertimes.app/prayer"
	"prayertimes.app/providers/cache"
	"prayertimes.app/repository"
	"prayertimes.app/scheduler"
	"prayertimes.app/service"
	"prayertimes.app/timetable"
)

// Application represents the main application with all its dependencies
type Application struct {
	config    *config.Config
	db        *gorm.DB
	server    *api.Server
	scheduler *scheduler.Scheduler
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	return app, nil
}

// Config returns the loaded configuration
func (app *Application) Config() *config.Config {
	return app.config
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

func (app *Application) initializeDatabase() error {
	slog.Info("Initializing database...")

	db, err := database.InitDB(app.config.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return fmt.Errorf("initialize database connection: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		return fmt.Errorf("run database migrations: %w", err)
	}

	app.db = db
	slog.Info("Database initialized successfully")
	return nil
}

func (app *Application) initializeServices() error {
	slog.Info("Initializing services...")

	clock, err := prayer.NewClock(app.config.Timetable.Timezone)
	if err != nil {
		return fmt.Errorf("create zone clock: %w", err)
	}

	source, err := app.createTimetableSource()
	if err != nil {
		return fmt.Errorf("create timetable source: %w", err)
	}

	subscriptionRepo := repository.NewSubscriptionRepository(app.db)
	pushService := service.NewPushService(&app.config.Push)
	dispatchService := service.NewDispatchService(
		clock,
		source,
		subscriptionRepo,
		pushService,
		app.config.Dispatch.BatchSize,
	)

	app.server = api.NewServer(api.ServerOptions{
		Config:   app.config,
		Clock:    clock,
		Source:   source,
		Repo:     subscriptionRepo,
		Dispatch: dispatchService,
	})

	if app.config.Scheduler.Enabled {
		app.scheduler = scheduler.NewScheduler(dispatchService)
	}

	slog.Info("Services initialized successfully")
	return nil
}

// createTimetableSource builds the file source, decorated with the
// configured cache backend
func (app *Application) createTimetableSource() (timetable.Source, error) {
	fileSource := timetable.NewFileSource(app.config.Timetable.Path)
	ttl := time.Duration(app.config.Timetable.CacheTTLMinutes) * time.Minute

	switch app.config.Timetable.CacheType {
	case "none":
		return fileSource, nil
	case "redis":
		redisCache, err := cache.NewRedisCache(&cache.RedisCacheConfig{
			Addr:         app.config.Redis.Addr,
			Password:     app.config.Redis.Password,
			DB:           app.config.Redis.DB,
			DialTimeout:  time.Duration(app.config.Redis.DialTimeout) * time.Second,
			ReadTimeout:  time.Duration(app.config.Redis.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(app.config.Redis.WriteTimeout) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return timetable.NewCachedSource(fileSource, redisCache, ttl, "redis"), nil
	default:
		return timetable.NewCachedSource(fileSource, cache.NewMemoryCache(), ttl, "memory"), nil
	}
}

// Start begins serving; it blocks until the HTTP server exits
func (app *Application) Start() error {
	if app.scheduler != nil {
		app.scheduler.Start()
	}
	return app.server.Start()
}

// Shutdown stops background work and releases resources
func (app *Application) Shutdown() error {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.db != nil {
		return database.CloseDB(app.db)
	}
	return nil
}
