package observability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"advancer/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the advancer service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	oracleRequestsCounter        metric.Int64Counter
	oracleFailuresCounter        metric.Int64Counter
	predictionOutcomesCounter    metric.Int64Counter
	experimentAssignmentsCounter metric.Int64Counter
	paybackAdjustmentsCounter    metric.Int64Counter
	databaseQueriesCounter       metric.Int64Counter
	databaseQueryDurationHist    metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Println("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Println("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	// Create resource with service information
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// Create appropriate exporter based on config
	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Println("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.Printf("Using OTLP metric exporter: %s", mp.config.OTelOTLPEndpoint)

	case "none":
		log.Println("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	// Create meter provider with periodic reader
	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	// Set as global meter provider
	otel.SetMeterProvider(mp.meterProvider)

	// Get meter for creating instruments
	mp.meter = mp.meterProvider.Meter("advancer")

	// Create metric instruments
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Println("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	// Oracle metrics
	mp.oracleRequestsCounter, err = mp.meter.Int64Counter(
		OracleRequestsTotal,
		metric.WithDescription("Total number of scoring requests sent to the oracle"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle requests counter: %w", err)
	}

	mp.oracleFailuresCounter, err = mp.meter.Int64Counter(
		OracleFailuresTotal,
		metric.WithDescription("Total number of failed oracle scoring requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle failures counter: %w", err)
	}

	// Prediction metrics
	mp.predictionOutcomesCounter, err = mp.meter.Int64Counter(
		PredictionOutcomesTotal,
		metric.WithDescription("Total number of prediction outcomes by model and result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create prediction outcomes counter: %w", err)
	}

	// Experiment metrics
	mp.experimentAssignmentsCounter, err = mp.meter.Int64Counter(
		ExperimentAssignmentsTotal,
		metric.WithDescription("Total number of experiment bucket assignments"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create experiment assignments counter: %w", err)
	}

	// Payback metrics
	mp.paybackAdjustmentsCounter, err = mp.meter.Int64Counter(
		PaybackAdjustmentsTotal,
		metric.WithDescription("Total number of payback date adjustments applied"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payback adjustments counter: %w", err)
	}

	// Database metrics
	mp.databaseQueriesCounter, err = mp.meter.Int64Counter(
		DatabaseQueriesTotal,
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create database queries counter: %w", err)
	}

	mp.databaseQueryDurationHist, err = mp.meter.Float64Histogram(
		DatabaseQueryDuration,
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create database query duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordOracleRequest records a scoring request sent to the oracle
func (mp *MetricsProvider) RecordOracleRequest(modelType string) {
	if !mp.isEnabled() {
		return
	}

	mp.oracleRequestsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelModelType, modelType),
		),
	)
}

// RecordOracleFailure records a failed oracle scoring request
func (mp *MetricsProvider) RecordOracleFailure(modelType, errorType string) {
	if !mp.isEnabled() {
		return
	}

	mp.oracleFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelModelType, modelType),
			attribute.String(LabelErrorType, errorType),
		),
	)
}

// RecordPredictionOutcome records the outcome of a prediction attempt
func (mp *MetricsProvider) RecordPredictionOutcome(modelType, outcome, reason string) {
	if !mp.isEnabled() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(LabelModelType, modelType),
		attribute.String(LabelOutcome, outcome),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(LabelReason, reason))
	}

	mp.predictionOutcomesCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordExperimentAssignment records an experiment bucket assignment
func (mp *MetricsProvider) RecordExperimentAssignment(experiment, value string) {
	if !mp.isEnabled() {
		return
	}

	mp.experimentAssignmentsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelExperiment, experiment),
			attribute.String(LabelValue, value),
		),
	)
}

// RecordPaybackAdjustment records an applied payback date adjustment
func (mp *MetricsProvider) RecordPaybackAdjustment(source string) {
	if !mp.isEnabled() {
		return
	}

	mp.paybackAdjustmentsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelSource, source),
		),
	)
}

// RecordDatabaseQuery records a database query with duration
func (mp *MetricsProvider) RecordDatabaseQuery(repository, method string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelRepository, repository),
		attribute.String(LabelMethod, method),
	)

	mp.databaseQueriesCounter.Add(context.Background(), 1, attrs)
	mp.databaseQueryDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// MeasureDatabaseQuery returns a function to measure database query duration
// Usage:
//
//	defer mp.MeasureDatabaseQuery("approval", "GetByID")()
func (mp *MetricsProvider) MeasureDatabaseQuery(repository, method string) func() {
	start := time.Now()
	return func() {
		mp.RecordDatabaseQuery(repository, method, time.Since(start))
	}
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
