package models

import "time"

// Flag is a boolean-like spreadsheet value that may be absent.
type Flag int8

const (
	FlagUnknown Flag = iota
	FlagYes
	FlagNo
)

func (f Flag) String() string {
	switch f {
	case FlagYes:
		return "yes"
	case FlagNo:
		return "no"
	default:
		return ""
	}
}

// Ticket is one row of the operational export.
type Ticket struct {
	ID                   string
	Analyst              string
	CreatedAt            time.Time
	CompletedAt          time.Time
	FirstResponse        *float64 // minutes
	SecondResponse       *float64 // minutes
	Resolution           *float64 // minutes
	SLAFirstExpired      Flag
	SLAResolutionExpired Flag
	Category             string
	SurveySent           Flag
	Raw                  map[string]string
}

// SurveyResponse is one row of the satisfaction survey export.
type SurveyResponse struct {
	TicketID    string
	Rating      string
	RespondedAt time.Time
	Row         int
	Raw         map[string]string
}

// JoinedTicket is a ticket with at most one canonical survey answer.
type JoinedTicket struct {
	Ticket
	Survey *SurveyResponse
	Score  *int
}
