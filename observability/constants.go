package observability

// Metric name prefixes
const (
	MetricPrefix = "advancer"
)

// Metric names
const (
	// Oracle metrics
	OracleRequestsTotal = MetricPrefix + ".oracle.requests_total"
	OracleFailuresTotal = MetricPrefix + ".oracle.failures_total"

	// Prediction metrics
	PredictionOutcomesTotal = MetricPrefix + ".predictions.outcomes_total"

	// Experiment metrics
	ExperimentAssignmentsTotal = MetricPrefix + ".experiments.assignments_total"

	// Payback pipeline metrics
	PaybackAdjustmentsTotal = MetricPrefix + ".payback.adjustments_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	// Common labels
	LabelModelType = "model_type"

	// Prediction labels
	LabelOutcome = "outcome"
	LabelReason  = "reason"

	// Experiment labels
	LabelExperiment = "experiment"
	LabelValue      = "value"

	// Payback labels
	LabelSource = "source"

	// Database labels
	LabelRepository = "repository"
	LabelMethod     = "method"

	// Error labels
	LabelErrorType = "error_type"
)

// Prediction outcomes
const (
	OutcomeApplied  = "applied"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeDisabled = "disabled"
)

// Skip reasons
const (
	ReasonNoCandidates   = "no_candidates"
	ReasonBelowThreshold = "below_threshold"
	ReasonOutsideWindow  = "outside_window"
	ReasonOracleError    = "oracle_error"
)

// Payback adjustment sources
const (
	SourceAddOneDay   = "add_one_day"
	SourceTinyMoney   = "tiny_money"
	SourceGlobalModel = "global_model"
)
