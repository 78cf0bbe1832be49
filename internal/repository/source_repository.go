package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/fetch"
	"github.com/godilite/helpdesk-kpi/internal/ingest"
	"github.com/godilite/helpdesk-kpi/internal/repository/models"
	"github.com/godilite/helpdesk-kpi/internal/sheet"
	"github.com/godilite/helpdesk-kpi/internal/snapshot"
	"go.uber.org/zap"
)

const (
	SourceOperational = "operational"
	SourceSurvey      = "survey"
)

// Source is one configured spreadsheet endpoint.
type Source struct {
	URL   string
	Token string
}

// SourceRepository serves typed records from the two spreadsheet sources.
// Every source goes through fetch, decode and normalize, and the result is
// held in a snapshot cache. Failures are logged and surface as an empty
// table; only a cancelled context is returned to the caller.
type SourceRepository struct {
	fetcher     *fetch.Fetcher
	loader      *ingest.Loader
	logger      *zap.Logger
	tokenHeader string
	operational Source
	survey      Source

	tickets *snapshot.Cache[[]models.Ticket]
	surveys *snapshot.Cache[[]models.SurveyResponse]
}

type Option func(*SourceRepository)

func WithOperational(s Source) Option {
	return func(r *SourceRepository) { r.operational = s }
}

func WithSurvey(s Source) Option {
	return func(r *SourceRepository) { r.survey = s }
}

func WithTokenHeader(h string) Option {
	return func(r *SourceRepository) {
		if h != "" {
			r.tokenHeader = h
		}
	}
}

// WithTTL sets how long a snapshot, or a failed load, is reused.
func WithTTL(ttl time.Duration) Option {
	return func(r *SourceRepository) {
		r.tickets = snapshot.New[[]models.Ticket](ttl, r.logger)
		r.surveys = snapshot.New[[]models.SurveyResponse](ttl, r.logger)
	}
}

func NewSourceRepository(fetcher *fetch.Fetcher, loader *ingest.Loader, logger *zap.Logger, opts ...Option) *SourceRepository {
	if fetcher == nil || loader == nil {
		panic("fetcher and loader must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &SourceRepository{
		fetcher:     fetcher,
		loader:      loader,
		logger:      logger.Named("repository"),
		tokenHeader: "X-Access-Token",
	}
	r.tickets = snapshot.New[[]models.Ticket](0, r.logger)
	r.surveys = snapshot.New[[]models.SurveyResponse](0, r.logger)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetTickets returns the normalized operational export.
func (r *SourceRepository) GetTickets(ctx context.Context) ([]models.Ticket, error) {
	req := r.request(SourceOperational, r.operational)
	snap, err := r.tickets.Get(ctx, r.key(req), func(ctx context.Context) ([]models.Ticket, error) {
		tbl, err := r.table(ctx, req)
		if err != nil {
			return nil, err
		}
		rows, _ := r.loader.Tickets(tbl)
		return rows, nil
	})
	if err != nil {
		return nil, r.degrade(ctx, req.Source, err)
	}
	return snap.Value, nil
}

// GetSurveys returns the normalized survey export, duplicates included.
func (r *SourceRepository) GetSurveys(ctx context.Context) ([]models.SurveyResponse, error) {
	req := r.request(SourceSurvey, r.survey)
	snap, err := r.surveys.Get(ctx, r.key(req), func(ctx context.Context) ([]models.SurveyResponse, error) {
		tbl, err := r.table(ctx, req)
		if err != nil {
			return nil, err
		}
		rows, _ := r.loader.Surveys(tbl)
		return rows, nil
	})
	if err != nil {
		return nil, r.degrade(ctx, req.Source, err)
	}
	return snap.Value, nil
}

// Refresh drops both snapshots so the next read reloads them.
func (r *SourceRepository) Refresh() {
	r.tickets.Invalidate(r.key(r.request(SourceOperational, r.operational)))
	r.surveys.Invalidate(r.key(r.request(SourceSurvey, r.survey)))
}

func (r *SourceRepository) request(name string, s Source) fetch.Request {
	return fetch.Request{Source: name, URL: s.URL, Header: r.tokenHeader, Token: s.Token}
}

func (r *SourceRepository) key(req fetch.Request) string {
	return snapshot.Key(req.URL, map[string]string{req.Header: req.Token})
}

func (r *SourceRepository) table(ctx context.Context, req fetch.Request) (sheet.Table, error) {
	body, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		return sheet.Table{}, err
	}
	tbl, err := sheet.Decode(body)
	if err != nil {
		return sheet.Table{}, fmt.Errorf("decode %s: %w", req.Source, err)
	}
	return tbl, nil
}

// degrade turns a load failure into "no data" unless the caller gave up.
func (r *SourceRepository) degrade(ctx context.Context, source string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var fe *fetch.FetchError
	switch {
	case errors.As(err, &fe) && errors.Is(fe, fetch.ErrNotConfigured):
		r.logger.Debug("source not configured", zap.String("source", source))
	case errors.As(err, &fe):
		r.logger.Warn("source unavailable; serving empty table",
			zap.String("source", source), zap.Int("status", fe.StatusCode), zap.Error(err))
	default:
		r.logger.Warn("source unreadable; serving empty table", zap.String("source", source), zap.Error(err))
	}
	return nil
}
