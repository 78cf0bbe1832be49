package service

import (
	"context"

	"github.com/godilite/helpdesk-kpi/internal/repository/models"
)

// SourceRepository defines the data access the dashboard needs.
type SourceRepository interface {
	GetTickets(ctx context.Context) ([]models.Ticket, error)
	GetSurveys(ctx context.Context) ([]models.SurveyResponse, error)
}
