package csat

import (
	"github.com/godilite/helpdesk-kpi/internal/ingest"
	"github.com/godilite/helpdesk-kpi/internal/repository/models"
)

// KeyFunc extracts the raw join key of one side.
type KeyFunc[T any] func(T) any

// Join left-joins canonical survey answers onto tickets by ticket ID.
func Join(tickets []models.Ticket, surveys []models.SurveyResponse, p ScoreParser) []models.JoinedTicket {
	return JoinBy(tickets, surveys,
		func(t models.Ticket) any { return t.ID },
		func(s models.SurveyResponse) any { return s.TicketID },
		p)
}

// JoinBy is Join with explicit key extractors. Both keys pass through
// ingest.NormalizeKey before comparison. The output has exactly one row per
// ticket; if the survey side still repeats a key the first answer wins.
func JoinBy(
	tickets []models.Ticket,
	surveys []models.SurveyResponse,
	ticketKey KeyFunc[models.Ticket],
	surveyKey KeyFunc[models.SurveyResponse],
	p ScoreParser,
) []models.JoinedTicket {
	index := make(map[string]int, len(surveys))
	for i, s := range surveys {
		k := ingest.NormalizeKey(surveyKey(s))
		if k == "" {
			continue
		}
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}

	out := make([]models.JoinedTicket, len(tickets))
	for i, t := range tickets {
		out[i] = models.JoinedTicket{Ticket: t}
		k := ingest.NormalizeKey(ticketKey(t))
		if k == "" {
			continue
		}
		if j, ok := index[k]; ok {
			s := surveys[j]
			out[i].Survey = &s
			out[i].Score = p.Score(s.Rating)
		}
	}
	return out
}
