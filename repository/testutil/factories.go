package testutil

import (
	"time"

	"advancer/models"
)

// CreateTestApproval creates a test advance approval with default values
func CreateTestApproval(userID int64) *models.AdvanceApproval {
	return &models.AdvanceApproval{
		UserID:             userID,
		BankAccountID:      userID * 100,
		Amount:             75,
		IncomeValid:        true,
		DefaultPaybackDate: time.Date(2020, 3, 20, 0, 0, 0, 0, time.UTC),
	}
}

// CreateTestMicroApproval creates a test micro-advance approval
func CreateTestMicroApproval(userID int64) *models.AdvanceApproval {
	approval := CreateTestApproval(userID)
	approval.Amount = 5
	approval.MicroAdvanceApproved = true
	return approval
}

// CreateTestPrediction creates a test payback prediction candidate
func CreateTestPrediction(approvalID int64, date time.Time, score float64) *models.PaybackPrediction {
	return &models.PaybackPrediction{
		AdvanceApprovalID: approvalID,
		PredictedDate:     date,
		Score:             score,
		ModelType:         models.ModelTypeGlobalPayback,
		ScoreThreshold:    0.5,
		OracleVersion:     "v2",
		SelectionStrategy: models.StrategyEarliestOverThreshold,
	}
}

// CreateTestAuditEvent creates a test audit event
func CreateTestAuditEvent(subjectID int64, eventName string) *models.AuditEvent {
	key := "payback_date"
	return &models.AuditEvent{
		SubjectID: subjectID,
		EventName: eventName,
		EventKey:  &key,
		Extra: map[string]any{
			"test": true,
		},
	}
}
