package service

import (
	"context"
	"time"

	"advancer/events"
	"advancer/models"

	"github.com/stretchr/testify/mock"
)

// MockApprovalRepository is a mock implementation of ApprovalRepository
type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) GetByID(ctx context.Context, id int64) (*models.AdvanceApproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdvanceApproval), args.Error(1)
}

func (m *MockApprovalRepository) Create(ctx context.Context, approval *models.AdvanceApproval) error {
	args := m.Called(ctx, approval)
	return args.Error(0)
}

func (m *MockApprovalRepository) UpdateDefaultPaybackDate(ctx context.Context, id int64, date time.Time) error {
	args := m.Called(ctx, id, date)
	return args.Error(0)
}

// MockPredictionRepository is a mock implementation of PredictionRepository
type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) CreateBatch(ctx context.Context, predictions []*models.PaybackPrediction) error {
	args := m.Called(ctx, predictions)
	return args.Error(0)
}

func (m *MockPredictionRepository) GetLastSuccessful(ctx context.Context, approvalID int64) (*models.PaybackPrediction, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaybackPrediction), args.Error(1)
}

func (m *MockPredictionRepository) GetByApproval(ctx context.Context, approvalID int64) ([]*models.PaybackPrediction, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaybackPrediction), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditLogRepository) GetBySubject(ctx context.Context, subjectID int64, limit int) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, subjectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEvent), args.Error(1)
}

// MockCounterRepository is a mock implementation of CounterRepository
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) Get(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCounterRepository) Increment(ctx context.Context, name string, amount int64) error {
	args := m.Called(ctx, name, amount)
	return args.Error(0)
}

func (m *MockCounterRepository) Reset(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockPredictionService is a mock implementation of PredictionService
type MockPredictionService struct {
	mock.Mock
}

func (m *MockPredictionService) Predict(ctx context.Context, input PredictionInput) (*time.Time, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockPredictionService) GetLastSuccessfulPrediction(ctx context.Context, approvalID int64) (*time.Time, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories
// are injected with SetRepositories rather than mocked per getter.
type MockUnitOfWork struct {
	mock.Mock

	approvalRepo   ApprovalRepository
	predictionRepo PredictionRepository
	auditLogRepo   AuditLogRepository
	counterRepo    CounterRepository
	eventBus       EventPublisher
}

// SetRepositories wires the repositories the getters return
func (m *MockUnitOfWork) SetRepositories(approvalRepo ApprovalRepository, predictionRepo PredictionRepository, auditLogRepo AuditLogRepository, counterRepo CounterRepository, eventBus EventPublisher) {
	m.approvalRepo = approvalRepo
	m.predictionRepo = predictionRepo
	m.auditLogRepo = auditLogRepo
	m.counterRepo = counterRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) ApprovalRepository() ApprovalRepository {
	return m.approvalRepo
}

func (m *MockUnitOfWork) PredictionRepository() PredictionRepository {
	return m.predictionRepo
}

func (m *MockUnitOfWork) AuditLogRepository() AuditLogRepository {
	return m.auditLogRepo
}

func (m *MockUnitOfWork) CounterRepository() CounterRepository {
	return m.counterRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
