package mocks

import (
	"context"
	"errors"

	"github.com/godilite/helpdesk-kpi/internal/repository/models"
)

// MockSourceRepository is a mock implementation of the SourceRepository interface
// for testing the service layer.
type MockSourceRepository struct {
	GetTicketsFunc func(ctx context.Context) ([]models.Ticket, error)
	GetSurveysFunc func(ctx context.Context) ([]models.SurveyResponse, error)
}

// GetTickets implements the SourceRepository interface
func (m *MockSourceRepository) GetTickets(ctx context.Context) ([]models.Ticket, error) {
	if m.GetTicketsFunc != nil {
		return m.GetTicketsFunc(ctx)
	}
	return nil, errors.New("GetTicketsFunc not implemented")
}

// GetSurveys implements the SourceRepository interface
func (m *MockSourceRepository) GetSurveys(ctx context.Context) ([]models.SurveyResponse, error) {
	if m.GetSurveysFunc != nil {
		return m.GetSurveysFunc(ctx)
	}
	return nil, errors.New("GetSurveysFunc not implemented")
}
