package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"advancer/banking"
	"advancer/config"
	"advancer/database"
	"advancer/events"
	"advancer/models"
	"advancer/observability"
	"advancer/oracle"
	"advancer/repository"
	"advancer/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
)

// App is the wired application: the payback pipeline and its
// collaborators, ready for an embedding advance flow to call.
type App struct {
	Payback     service.PaybackService
	Predictions service.PredictionService
	Calendar    *banking.Calendar
	EventBus    *events.Bus

	db        *database.DB
	scheduler *cron.Cron
}

// NewApp builds the application from configuration: database, event bus,
// oracle client, experiment catalog and services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize metrics before anything that records them
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection, retrying while the database comes up
	log.Println("Connecting to database...")
	db, err := connectWithRetry(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()
	subscribeEventLogging(eventBus)

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize banking calendar and warm the holiday cache nightly
	calendar := banking.NewFederalCalendar()
	warmHolidayCache(calendar)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.HolidayWarmSchedule, func() {
		warmHolidayCache(calendar)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to schedule holiday cache warm: %w", err)
	}
	scheduler.Start()

	// Initialize oracle client
	oracleClient := oracle.NewClient(oracle.ClientOptions{
		BaseURL:        cfg.OracleURL,
		Version:        cfg.TinyMoneyModel.Version,
		Timeout:        cfg.OracleTimeout,
		RequestsPerSec: int(cfg.OracleRequestsPerSec),
	})

	// Initialize services
	log.Println("Initializing services...")
	catalog, err := service.NewCatalog(cfg.GlobalModelExperimentLimit)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build experiment catalog: %w", err)
	}
	predictionService := service.NewPredictionService(uowFactory, oracleClient, calendar, catalog)
	paybackService := service.NewPaybackService(
		uowFactory,
		predictionService,
		calendar,
		catalog,
		modelConfig(cfg.TinyMoneyModel, models.ModelTypeTinyMoney),
		modelConfig(cfg.GlobalModel, models.ModelTypeGlobalPayback),
	)
	log.Println("Services initialized successfully")

	return &App{
		Payback:     paybackService,
		Predictions: predictionService,
		Calendar:    calendar,
		EventBus:    eventBus,
		db:          db,
		scheduler:   scheduler,
	}, nil
}

// Close releases the application's resources
func (a *App) Close() {
	stopCtx := a.scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics: %v", err)
	}

	log.Println("Closing database connection...")
	a.db.Close()
}

// Run initializes the application and blocks until the context ends
func Run(ctx context.Context) error {
	log.Println("Starting advancer...")

	cfg := config.Get()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}

	log.Printf("Advancer is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Println("Shutting down...")
	app.Close()
	log.Println("Shutdown completed")

	return nil
}

// connectWithRetry dials the database with exponential backoff so a
// deploy does not race the database container.
func connectWithRetry(ctx context.Context, databaseURL string) (*database.DB, error) {
	var db *database.DB
	operation := func() error {
		var err error
		db, err = database.NewConnection(ctx, databaseURL)
		if err != nil {
			log.Printf("Database not ready: %v", err)
			return err
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	return db, nil
}

// warmHolidayCache precomputes this year's and next year's holiday sets
func warmHolidayCache(calendar *banking.Calendar) {
	year := time.Now().Year()
	calendar.Preload(year)
	calendar.Preload(year + 1)
	log.Printf("Holiday cache warmed for %d and %d", year, year+1)
}

// subscribeEventLogging logs the pipeline's domain events as they flush
func subscribeEventLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypePaybackDateAdjusted, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.PaybackDateAdjustedEvent); ok {
			log.Printf("Payback date adjusted: approval=%d source=%s %s -> %s",
				e.ApprovalID, e.Source, e.OldDate.Format("2006-01-02"), e.NewDate.Format("2006-01-02"))
		}
	})
	bus.Subscribe(events.EventTypeExperimentAssigned, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ExperimentAssignedEvent); ok {
			log.Printf("Experiment assignment: %s subject=%d value=%s", e.Experiment, e.SubjectID, e.Value)
		}
	})
}

// modelConfig maps the env-level model settings onto the service struct
func modelConfig(cfg config.ModelConfig, modelType models.ModelType) service.ModelConfig {
	return service.ModelConfig{
		Enabled:       cfg.Enabled,
		ModelType:     modelType,
		ScoreLimit:    cfg.ScoreLimit,
		OracleVersion: cfg.Version,
	}
}
