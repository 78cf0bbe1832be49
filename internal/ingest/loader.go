package ingest

import (
	"strings"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/metrics"
	"github.com/godilite/helpdesk-kpi/internal/repository/models"
	"github.com/godilite/helpdesk-kpi/internal/sheet"
	"go.uber.org/zap"
)

// Loader turns decoded sheets into typed records. Malformed cells become
// nil or zero values; missing columns are reported but never fatal.
type Loader struct {
	logger      *zap.Logger
	loc         *time.Location
	operational Schema
	survey      Schema
}

type Option func(*Loader)

// WithLocation sets the zone used for timestamps without an offset.
func WithLocation(loc *time.Location) Option {
	return func(l *Loader) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithRatingHeader sets the survey question header and its substring fallback.
func WithRatingHeader(exact, fallback string) Option {
	return func(l *Loader) { l.survey = SurveySchema(exact, fallback) }
}

func NewLoader(logger *zap.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		logger:      logger.Named("ingest"),
		loc:         time.UTC,
		operational: OperationalSchema(),
		survey:      SurveySchema("", "qualidade do atendimento"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type rowReader struct {
	source string
	tbl    sheet.Table
	bind   Binding
	row    int
}

func (r rowReader) text(field string) string {
	return strings.TrimSpace(r.tbl.Cell(r.row, r.bind.Index(field)))
}

func (r rowReader) shown(field string) string {
	return strings.TrimSpace(r.tbl.DisplayCell(r.row, r.bind.Index(field)))
}

// slaExpired prefers the breach column and falls back to the met column.
func (r rowReader) slaExpired(expired, met string) models.Flag {
	switch {
	case r.bind.Has(expired):
		return ParseSLAExpired(r.text(expired), false)
	case r.bind.Has(met):
		return ParseSLAExpired(r.text(met), true)
	default:
		return models.FlagUnknown
	}
}

func (r rowReader) raw() map[string]string {
	out := make(map[string]string, len(r.tbl.Header))
	for i, h := range r.tbl.Header {
		if h == "" {
			continue
		}
		out[h] = r.tbl.Cell(r.row, i)
	}
	return out
}

func (l *Loader) bind(s Schema, header []string) (Binding, []*SchemaError) {
	b, missing := s.Bind(header)
	for _, m := range missing {
		metrics.SchemaWarningsTotal.WithLabelValues(m.Source, m.Field).Inc()
		l.logger.Warn("column not found", zap.String("source", m.Source), zap.String("field", m.Field), zap.Bool("required", m.Required))
	}
	return b, missing
}

func (l *Loader) duration(r rowReader, field string) *float64 {
	if !r.bind.Has(field) {
		return nil
	}
	v, err := ParseCellDuration(r.text(field), r.shown(field))
	if err != nil {
		metrics.CellParseErrorsTotal.WithLabelValues(r.source, field).Inc()
		l.logger.Debug("cell coerced to null", zap.String("field", field), zap.Int("row", r.row), zap.Error(err))
		return nil
	}
	return v
}

func (l *Loader) timestamp(r rowReader, field string) time.Time {
	if !r.bind.Has(field) {
		return time.Time{}
	}
	t, err := ParseTimestamp(r.text(field), l.loc)
	if err != nil {
		metrics.CellParseErrorsTotal.WithLabelValues(r.source, field).Inc()
		l.logger.Debug("cell coerced to zero time", zap.String("field", field), zap.Int("row", r.row), zap.Error(err))
		return time.Time{}
	}
	return t
}

// Tickets normalizes the operational sheet. Without an identifier column the
// tickets are still returned, with empty IDs that never match a survey.
func (l *Loader) Tickets(tbl sheet.Table) ([]models.Ticket, []*SchemaError) {
	b, missing := l.bind(l.operational, tbl.Header)

	out := make([]models.Ticket, 0, tbl.Len())
	for i := range tbl.Rows {
		r := rowReader{source: l.operational.Source, tbl: tbl, bind: b, row: i}
		out = append(out, models.Ticket{
			ID:                   NormalizeKey(r.text(FieldTicketID)),
			Analyst:              r.text(FieldAnalyst),
			CreatedAt:            l.timestamp(r, FieldCreatedAt),
			CompletedAt:          l.timestamp(r, FieldCompletedAt),
			FirstResponse:        l.duration(r, FieldFirstResponse),
			SecondResponse:       l.duration(r, FieldSecondResponse),
			Resolution:           l.duration(r, FieldResolution),
			SLAFirstExpired:      r.slaExpired(FieldSLAFirstExpired, FieldSLAFirstMet),
			SLAResolutionExpired: r.slaExpired(FieldSLAResolutionExpired, FieldSLAResolutionMet),
			Category:             r.text(FieldCategory),
			SurveySent:           ParseFlag(r.text(FieldSurveySent)),
			Raw:                  r.raw(),
		})
	}

	metrics.RowsLoaded.WithLabelValues(l.operational.Source).Set(float64(len(out)))
	return out, missing
}

// Surveys normalizes the survey sheet, one record per raw row, duplicates
// included. Row keeps the original position for stable ordering.
func (l *Loader) Surveys(tbl sheet.Table) ([]models.SurveyResponse, []*SchemaError) {
	b, missing := l.bind(l.survey, tbl.Header)

	out := make([]models.SurveyResponse, 0, tbl.Len())
	for i := range tbl.Rows {
		r := rowReader{source: l.survey.Source, tbl: tbl, bind: b, row: i}
		out = append(out, models.SurveyResponse{
			TicketID:    NormalizeKey(r.text(FieldTicketID)),
			Rating:      r.text(FieldRating),
			RespondedAt: l.timestamp(r, FieldRespondedAt),
			Row:         i,
			Raw:         r.raw(),
		})
	}

	metrics.RowsLoaded.WithLabelValues(l.survey.Source).Set(float64(len(out)))
	return out, missing
}
