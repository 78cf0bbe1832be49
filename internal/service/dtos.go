package service

import "github.com/godilite/helpdesk-kpi/internal/kpi"

// Scope echoes the effective filter of a view.
type Scope struct {
	Start     string   `json:"start_date,omitempty"`
	End       string   `json:"end_date,omitempty"`
	Analysts  []string `json:"analysts,omitempty"`
	TimeBase  string   `json:"time_base"`
	Aggregate string   `json:"aggregate"`
}

type NamedMetrics struct {
	Name string `json:"name"`
	kpi.Metrics
}

type Overview struct {
	Scope      Scope          `json:"scope"`
	Team       kpi.Metrics    `json:"team"`
	Analysts   []string       `json:"analysts"`
	Categories []NamedMetrics `json:"categories"`
}

type AnalystSummary struct {
	Scope    Scope          `json:"scope"`
	Analysts []NamedMetrics `json:"analysts"`
}

type DayPoint struct {
	Day string `json:"day"`
	kpi.Metrics
}

type TimeSeries struct {
	Scope  Scope      `json:"scope"`
	Points []DayPoint `json:"points"`
}

type CSATBreakdown struct {
	Scope        Scope          `json:"scope"`
	Distribution map[int]int    `json:"distribution"`
	Scored       int            `json:"scored"`
	Satisfied    int            `json:"satisfied"`
	CSATPct      float64        `json:"csat_pct"`
	SurveysSent  int            `json:"surveys_sent"`
	ResponsePct  float64        `json:"response_pct"`
	ByAnalyst    []NamedMetrics `json:"by_analyst"`
	ByCategory   []NamedMetrics `json:"by_category"`
}

// RawRow is one joined ticket flattened for tabular display.
type RawRow struct {
	TicketID             string   `json:"ticket_id"`
	Analyst              string   `json:"analyst"`
	CreatedAt            string   `json:"created_at,omitempty"`
	CompletedAt          string   `json:"completed_at,omitempty"`
	FirstResponse        *float64 `json:"first_response_minutes"`
	SecondResponse       *float64 `json:"second_response_minutes"`
	Resolution           *float64 `json:"resolution_minutes"`
	SLAFirstExpired      string   `json:"sla_first_expired"`
	SLAResolutionExpired string   `json:"sla_resolution_expired"`
	Category             string   `json:"category"`
	SurveySent           string   `json:"survey_sent"`
	Rating               string   `json:"rating"`
	Score                *int     `json:"score"`
}

type RawTable struct {
	Scope Scope    `json:"scope"`
	Total int      `json:"total"`
	Rows  []RawRow `json:"rows"`
}

// DailySummary is the per-analyst view of the latest day with data.
type DailySummary struct {
	Scope    Scope          `json:"scope"`
	Day      string         `json:"day"`
	Team     kpi.Metrics    `json:"team"`
	Analysts []NamedMetrics `json:"analysts"`
}
