// Package csat reconciles survey answers with tickets: it collapses repeated
// answers per ticket, derives the 1-5 satisfaction score and left-joins the
// result onto the ticket table.
package csat

import (
	"sort"
	"strings"

	"github.com/godilite/helpdesk-kpi/internal/ingest"
	"github.com/godilite/helpdesk-kpi/internal/repository/models"
)

const (
	RankTop    = 1
	RankSecond = 2
	RankOther  = 3
)

// Ranker orders rating texts by how good the answer is.
type Ranker struct {
	top    string
	second string
}

// NewRanker builds a ranker from the top-tier and second-tier labels
// (for example "Ótimo" and "Bom").
func NewRanker(top, second string) Ranker {
	return Ranker{top: ingest.Fold(top), second: ingest.Fold(second)}
}

// Rank returns RankTop or RankSecond when the normalized rating starts with
// the corresponding label and RankOther for anything else, blanks included.
func (r Ranker) Rank(rating string) int {
	v := ingest.Fold(rating)
	switch {
	case v == "":
		return RankOther
	case r.top != "" && strings.HasPrefix(v, r.top):
		return RankTop
	case r.second != "" && strings.HasPrefix(v, r.second):
		return RankSecond
	default:
		return RankOther
	}
}

// Deduplicate keeps exactly one answer per ticket: the best-ranked one, the
// earliest in input order among equals. Rows without a ticket key are
// discarded since they can never join. The result is ordered by key and
// carries normalized TicketIDs; dropped counts the discarded duplicates.
func Deduplicate(rows []models.SurveyResponse, r Ranker) (out []models.SurveyResponse, dropped int) {
	type ranked struct {
		key  string
		rank int
		row  models.SurveyResponse
	}

	items := make([]ranked, 0, len(rows))
	for _, row := range rows {
		key := ingest.NormalizeKey(row.TicketID)
		if key == "" {
			continue
		}
		row.TicketID = key
		items = append(items, ranked{key: key, rank: r.Rank(row.Rating), row: row})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].key != items[j].key {
			return items[i].key < items[j].key
		}
		return items[i].rank < items[j].rank
	})

	out = make([]models.SurveyResponse, 0, len(items))
	for i, it := range items {
		if i > 0 && it.key == items[i-1].key {
			dropped++
			continue
		}
		out = append(out, it.row)
	}
	return out, dropped
}
