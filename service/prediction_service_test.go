package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"advancer/banking"
	"advancer/models"
	"advancer/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOracleClient is a mock implementation of OracleClient
type MockOracleClient struct {
	mock.Mock
}

func (m *MockOracleClient) ScorePaybackDates(ctx context.Context, modelType models.ModelType, req oracle.ScoreRequest) ([]oracle.DateScore, error) {
	args := m.Called(ctx, modelType, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]oracle.DateScore), args.Error(1)
}

// fixedNow is a Wednesday noon Pacific; the payback window it opens runs
// 2020-03-15 through 2020-03-22.
var fixedNow = time.Date(2020, 3, 11, 20, 0, 0, 0, time.UTC)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(0)
	require.NoError(t, err)
	return catalog
}

func strategyPtr(s models.SelectionStrategy) *models.SelectionStrategy {
	return &s
}

func tinyMoneyConfig() ModelConfig {
	return ModelConfig{
		Enabled:       true,
		ModelType:     models.ModelTypeTinyMoney,
		ScoreLimit:    0.5,
		OracleVersion: "v2",
	}
}

func TestPredictionService_Predict_EarliestOverThreshold(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockEventBus := new(MockEventPublisher)
	mockOracle := new(MockOracleClient)

	mockUoW.SetRepositories(nil, mockPredictionRepo, nil, nil, mockEventBus)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), newTestCatalog(t)).(*predictionService)
	svc.now = func() time.Time { return fixedNow }

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// One candidate per window day, only 2020-03-19 above threshold
	scores := []oracle.DateScore{
		{Date: "2020-03-15", Score: 0.21},
		{Date: "2020-03-16", Score: 0.34},
		{Date: "2020-03-17", Score: 0.18},
		{Date: "2020-03-18", Score: 0.42},
		{Date: "2020-03-19", Score: 0.92},
		{Date: "2020-03-20", Score: 0.11},
		{Date: "2020-03-21", Score: 0.27},
		{Date: "2020-03-22", Score: 0.05},
	}

	mockOracle.On("ScorePaybackDates", ctx, models.ModelTypeTinyMoney, mock.MatchedBy(func(req oracle.ScoreRequest) bool {
		return req.UserID == 7 && req.BankAccountID == 11 &&
			len(req.Dates) == 8 &&
			req.Dates[0] == "2020-03-15" && req.Dates[7] == "2020-03-22"
	})).Return(scores, nil)

	mockPredictionRepo.On("CreateBatch", ctx, mock.MatchedBy(func(rows []*models.PaybackPrediction) bool {
		if len(rows) != 8 {
			return false
		}
		successes := 0
		for _, row := range rows {
			if row.AdvanceApprovalID != 42 || row.ModelType != models.ModelTypeTinyMoney {
				return false
			}
			if row.Success {
				successes++
				if row.PredictedDate.Format("2006-01-02") != "2020-03-19" {
					return false
				}
			}
		}
		return successes == 1
	})).Return(nil)

	mockEventBus.On("Publish", mock.Anything).Return()

	date, err := svc.Predict(ctx, PredictionInput{
		ApprovalID:    42,
		UserID:        7,
		BankAccountID: 11,
		Strategy:      strategyPtr(models.StrategyEarliestOverThreshold),
		Model:         tinyMoneyConfig(),
	})

	require.NoError(t, err)
	require.NotNil(t, date)
	assert.Equal(t, "2020-03-19", date.Format("2006-01-02"))

	mockOracle.AssertExpectations(t)
	mockPredictionRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestPredictionService_Predict_MostProbable(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockEventBus := new(MockEventPublisher)
	mockOracle := new(MockOracleClient)

	mockUoW.SetRepositories(nil, mockPredictionRepo, nil, nil, mockEventBus)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), newTestCatalog(t)).(*predictionService)
	svc.now = func() time.Time { return fixedNow }

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// Every score under the threshold; most-probable still picks the max
	scores := []oracle.DateScore{
		{Date: "2020-03-16", Score: 0.12},
		{Date: "2020-03-17", Score: 0.31},
		{Date: "2020-03-18", Score: 0.09},
	}
	mockOracle.On("ScorePaybackDates", ctx, models.ModelTypeGlobalPayback, mock.Anything).Return(scores, nil)
	mockPredictionRepo.On("CreateBatch", ctx, mock.Anything).Return(nil)
	mockEventBus.On("Publish", mock.Anything).Return()

	date, err := svc.Predict(ctx, PredictionInput{
		ApprovalID:    42,
		UserID:        7,
		BankAccountID: 11,
		Strategy:      strategyPtr(models.StrategyMostProbable),
		Model: ModelConfig{
			Enabled:       true,
			ModelType:     models.ModelTypeGlobalPayback,
			ScoreLimit:    0.5,
			OracleVersion: "v2",
		},
	})

	require.NoError(t, err)
	require.NotNil(t, date)
	assert.Equal(t, "2020-03-17", date.Format("2006-01-02"))
}

func TestPredictionService_Predict_DisabledModel(t *testing.T) {
	ctx := context.Background()

	mockFactory := new(MockUnitOfWorkFactory)
	mockOracle := new(MockOracleClient)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), newTestCatalog(t))

	cfg := tinyMoneyConfig()
	cfg.Enabled = false

	date, err := svc.Predict(ctx, PredictionInput{ApprovalID: 42, UserID: 7, BankAccountID: 11, Model: cfg})

	require.NoError(t, err)
	assert.Nil(t, date)
	mockFactory.AssertNotCalled(t, "Create")
	mockOracle.AssertNotCalled(t, "ScorePaybackDates")
}

func TestPredictionService_Predict_OracleFailure(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockEventBus := new(MockEventPublisher)
	mockOracle := new(MockOracleClient)

	mockUoW.SetRepositories(nil, mockPredictionRepo, nil, nil, mockEventBus)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), newTestCatalog(t)).(*predictionService)
	svc.now = func() time.Time { return fixedNow }

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockOracle.On("ScorePaybackDates", ctx, models.ModelTypeTinyMoney, mock.Anything).
		Return(nil, errors.New("oracle returned status 503"))

	date, err := svc.Predict(ctx, PredictionInput{
		ApprovalID:    42,
		UserID:        7,
		BankAccountID: 11,
		Strategy:      strategyPtr(models.StrategyEarliestOverThreshold),
		Model:         tinyMoneyConfig(),
	})

	// Oracle failure is "no opinion", not an error, and nothing persists
	require.NoError(t, err)
	assert.Nil(t, date)
	mockPredictionRepo.AssertNotCalled(t, "CreateBatch")
}

func TestPredictionService_Predict_NoneQualify(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockEventBus := new(MockEventPublisher)
	mockOracle := new(MockOracleClient)

	mockUoW.SetRepositories(nil, mockPredictionRepo, nil, nil, mockEventBus)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), newTestCatalog(t)).(*predictionService)
	svc.now = func() time.Time { return fixedNow }

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	scores := []oracle.DateScore{
		{Date: "2020-03-16", Score: 0.12},
		{Date: "2020-03-17", Score: 0.31},
	}
	mockOracle.On("ScorePaybackDates", ctx, models.ModelTypeTinyMoney, mock.Anything).Return(scores, nil)

	// All candidates still persisted, none successful
	mockPredictionRepo.On("CreateBatch", ctx, mock.MatchedBy(func(rows []*models.PaybackPrediction) bool {
		if len(rows) != 2 {
			return false
		}
		for _, row := range rows {
			if row.Success {
				return false
			}
		}
		return true
	})).Return(nil)
	mockEventBus.On("Publish", mock.Anything).Return()

	date, err := svc.Predict(ctx, PredictionInput{
		ApprovalID:    42,
		UserID:        7,
		BankAccountID: 11,
		Strategy:      strategyPtr(models.StrategyEarliestOverThreshold),
		Model:         tinyMoneyConfig(),
	})

	require.NoError(t, err)
	assert.Nil(t, date)
	mockPredictionRepo.AssertExpectations(t)
}

func TestPredictionService_Predict_DiscardsCandidatesOutsideWindow(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockEventBus := new(MockEventPublisher)
	mockOracle := new(MockOracleClient)

	mockUoW.SetRepositories(nil, mockPredictionRepo, nil, nil, mockEventBus)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), newTestCatalog(t)).(*predictionService)
	svc.now = func() time.Time { return fixedNow }

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// The out-of-window date has the best score but must not be selected
	scores := []oracle.DateScore{
		{Date: "2020-04-01", Score: 0.99},
		{Date: "2020-03-18", Score: 0.71},
	}
	mockOracle.On("ScorePaybackDates", ctx, models.ModelTypeTinyMoney, mock.Anything).Return(scores, nil)

	// Both originals persisted, success on the in-window one
	mockPredictionRepo.On("CreateBatch", ctx, mock.MatchedBy(func(rows []*models.PaybackPrediction) bool {
		if len(rows) != 2 {
			return false
		}
		for _, row := range rows {
			day := row.PredictedDate.Format("2006-01-02")
			if row.Success != (day == "2020-03-18") {
				return false
			}
		}
		return true
	})).Return(nil)
	mockEventBus.On("Publish", mock.Anything).Return()

	date, err := svc.Predict(ctx, PredictionInput{
		ApprovalID:    42,
		UserID:        7,
		BankAccountID: 11,
		Strategy:      strategyPtr(models.StrategyMostProbable),
		Model:         tinyMoneyConfig(),
	})

	require.NoError(t, err)
	require.NotNil(t, date)
	assert.Equal(t, "2020-03-18", date.Format("2006-01-02"))
	mockPredictionRepo.AssertExpectations(t)
}

func TestPredictionService_Predict_PersistenceFailurePropagates(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockEventBus := new(MockEventPublisher)
	mockOracle := new(MockOracleClient)

	mockUoW.SetRepositories(nil, mockPredictionRepo, nil, nil, mockEventBus)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), newTestCatalog(t)).(*predictionService)
	svc.now = func() time.Time { return fixedNow }

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	scores := []oracle.DateScore{{Date: "2020-03-18", Score: 0.71}}
	mockOracle.On("ScorePaybackDates", ctx, models.ModelTypeTinyMoney, mock.Anything).Return(scores, nil)
	mockPredictionRepo.On("CreateBatch", ctx, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.Predict(ctx, PredictionInput{
		ApprovalID:    42,
		UserID:        7,
		BankAccountID: 11,
		Strategy:      strategyPtr(models.StrategyEarliestOverThreshold),
		Model:         tinyMoneyConfig(),
	})

	require.Error(t, err)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestPredictionService_Predict_ResolvesStrategyFromExperiment(t *testing.T) {
	ctx := context.Background()

	catalog := newTestCatalog(t)

	// Pick a subject deterministically assigned to control so no audit
	// write is expected
	var subjectID int64
	for id := int64(1); id < 1000; id++ {
		if catalog.SelectionStrategy.Assign(id) == string(models.StrategyEarliestOverThreshold) {
			subjectID = id
			break
		}
	}
	require.NotZero(t, subjectID)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockAuditRepo := new(MockAuditLogRepository)
	mockCounterRepo := new(MockCounterRepository)
	mockEventBus := new(MockEventPublisher)
	mockOracle := new(MockOracleClient)

	mockUoW.SetRepositories(nil, mockPredictionRepo, mockAuditRepo, mockCounterRepo, mockEventBus)

	svc := NewPredictionService(mockFactory, mockOracle, banking.NewFederalCalendar(), catalog).(*predictionService)
	svc.now = func() time.Time { return fixedNow }

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	scores := []oracle.DateScore{{Date: "2020-03-18", Score: 0.71}}
	mockOracle.On("ScorePaybackDates", ctx, models.ModelTypeTinyMoney, mock.Anything).Return(scores, nil)

	mockPredictionRepo.On("CreateBatch", ctx, mock.MatchedBy(func(rows []*models.PaybackPrediction) bool {
		return len(rows) == 1 && rows[0].SelectionStrategy == models.StrategyEarliestOverThreshold
	})).Return(nil)
	mockEventBus.On("Publish", mock.Anything).Return()

	date, err := svc.Predict(ctx, PredictionInput{
		ApprovalID:    subjectID,
		UserID:        7,
		BankAccountID: 11,
		Model:         tinyMoneyConfig(),
	})

	require.NoError(t, err)
	require.NotNil(t, date)
	mockAuditRepo.AssertNotCalled(t, "Create")
	mockPredictionRepo.AssertExpectations(t)
}

func TestPredictionService_GetLastSuccessfulPrediction(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)

	mockUoW.SetRepositories(nil, mockPredictionRepo, nil, nil, nil)

	svc := NewPredictionService(mockFactory, new(MockOracleClient), banking.NewFederalCalendar(), newTestCatalog(t))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	stored := time.Date(2020, 3, 19, 0, 0, 0, 0, time.UTC)
	mockPredictionRepo.On("GetLastSuccessful", ctx, int64(42)).Return(&models.PaybackPrediction{
		AdvanceApprovalID: 42,
		PredictedDate:     stored,
		Success:           true,
	}, nil)

	date, err := svc.GetLastSuccessfulPrediction(ctx, 42)

	require.NoError(t, err)
	require.NotNil(t, date)
	assert.Equal(t, stored, *date)
}
